// Package analysis derives return and volatility statistics from a continuous series and
// renders them for export.
package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"continuous-futures/internal/series"
)

const (
	// TradingDaysPerYear annualises daily volatility.
	TradingDaysPerYear = 252
	// DefaultVolPeriod is the rolling window of HistVol in trading days.
	DefaultVolPeriod = 20
)

// Row is one exported observation. Return is undefined on the first row and HistVol until
// period returns are available.
type Row struct {
	Date       time.Time
	Close      decimal.Decimal
	Return     float64
	HasReturn  bool
	HistVol    float64
	HasHistVol bool
}

// VolPoint is an annualised historical volatility on a date.
type VolPoint struct {
	Date  time.Time
	Value float64
}

// Returns computes simple daily returns close[i]/close[i-1] - 1. The result has one element
// fewer than points.
func Returns(points []series.Point) []float64 {
	if len(points) < 2 {
		return nil
	}
	out := make([]float64, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Close
		if prev.IsZero() {
			out[i-1] = math.NaN()
			continue
		}
		out[i-1] = points[i].Close.Div(prev).Sub(decimal.NewFromInt(1)).InexactFloat64()
	}
	return out
}

// HistVol returns sqrt(252) times the sample standard deviation of the trailing period returns,
// for every date from index period onward.
func HistVol(points []series.Point, period int) ([]VolPoint, error) {
	if period < 2 {
		return nil, fmt.Errorf("hist vol period must be at least 2, got %d", period)
	}
	returns := Returns(points)
	if len(returns) < period {
		return nil, nil
	}

	out := make([]VolPoint, 0, len(returns)-period+1)
	for end := period; end <= len(returns); end++ {
		window := returns[end-period : end]
		out = append(out, VolPoint{
			Date:  points[end].Date,
			Value: math.Sqrt(TradingDaysPerYear) * stdDev(window),
		})
	}
	return out, nil
}

// Analyze joins closes, returns and hist vol by date.
func Analyze(points []series.Point, period int) ([]Row, error) {
	vols, err := HistVol(points, period)
	if err != nil {
		return nil, err
	}
	returns := Returns(points)

	rows := make([]Row, len(points))
	firstVol := len(points) - len(vols)
	for i, p := range points {
		rows[i] = Row{Date: p.Date, Close: p.Close}
		if i > 0 && !math.IsNaN(returns[i-1]) {
			rows[i].Return = returns[i-1]
			rows[i].HasReturn = true
		}
		if i >= firstVol && len(vols) > 0 {
			v := vols[i-firstVol].Value
			if !math.IsNaN(v) {
				rows[i].HistVol = v
				rows[i].HasHistVol = true
			}
		}
	}
	return rows, nil
}

// Downsample keeps at most max rows spread evenly across rows, always keeping both ends.
func Downsample(rows []Row, max int) []Row {
	if max <= 0 || len(rows) <= max {
		return rows
	}
	if max == 1 {
		return rows[len(rows)-1:]
	}

	result := make([]Row, 0, max)
	step := float64(len(rows)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(rows) {
			idx = len(rows) - 1
		}
		result = append(result, rows[idx])
	}
	return result
}

func stdDev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))

	sumSq := 0.0
	for _, v := range vals {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(vals)-1))
}
