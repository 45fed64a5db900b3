package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"continuous-futures/internal/series"
)

// WriteCSV writes rows as date,close,return,hist_vol. Undefined statistics are left empty.
func WriteCSV(w io.Writer, rows []Row, period int) error {
	writer := csv.NewWriter(w)

	header := []string{"date", "close", "return", fmt.Sprintf("%dd_hist_vol", period)}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			series.FormatDate(row.Date),
			row.Close.String(),
			formatOptional(row.Return, row.HasReturn),
			formatOptional(row.HistVol, row.HasHistVol),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WritePNG renders the close on the primary axis and hist vol on the secondary axis.
func WritePNG(w io.Writer, product string, rows []Row, period int) error {
	if len(rows) < 2 {
		return fmt.Errorf("need at least 2 rows to chart, got %d", len(rows))
	}

	x := make([]time.Time, len(rows))
	closes := make([]float64, len(rows))
	for i, row := range rows {
		x[i] = row.Date
		closes[i] = row.Close.InexactFloat64()
	}

	var volX []time.Time
	var vols []float64
	for _, row := range rows {
		if row.HasHistVol {
			volX = append(volX, row.Date)
			vols = append(vols, row.HistVol)
		}
	}

	graph := chart.Chart{
		Title:  product + " continuous",
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: "Close",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.2f")
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    product,
				XValues: x,
				YValues: closes,
			},
		},
	}

	if len(vols) >= 2 {
		graph.YAxisSecondary = chart.YAxis{
			Name: fmt.Sprintf("%dd hist vol", period),
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.3f")
			},
		}
		graph.Series = append(graph.Series, chart.TimeSeries{
			Name:    fmt.Sprintf("%dd hist vol", period),
			XValues: volX,
			YValues: vols,
			YAxis:   chart.YAxisSecondary,
		})
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

// WriteCSVFile writes rows to path, creating parent directories.
func WriteCSVFile(path string, rows []Row, period int) error {
	return writeFile(path, func(w io.Writer) error { return WriteCSV(w, rows, period) })
}

// WritePNGFile renders rows to path, creating parent directories.
func WritePNGFile(path, product string, rows []Row, period int) error {
	return writeFile(path, func(w io.Writer) error { return WritePNG(w, product, rows, period) })
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatOptional(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
