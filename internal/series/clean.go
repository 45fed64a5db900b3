package series

import (
	"fmt"
	"sort"
)

// Clean turns a raw provider series into a ContractSeries.
//
// Rows with a non-positive settle are discarded, the last days rows are kept,
// settle becomes close, change is recomputed inside the window and the first
// row (whose change is undefined) is dropped. raw is not modified.
func Clean(raw RawContractSeries, days int) (ContractSeries, error) {
	if days <= 0 {
		return ContractSeries{}, &ValidationError{Contract: raw.Contract, Reason: fmt.Sprintf("window must be positive, got %d", days)}
	}

	rows := make([]RawRow, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		if row.Settle.IsPositive() {
			rows = append(rows, row)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	for i := 1; i < len(rows); i++ {
		if rows[i].Date.Equal(rows[i-1].Date) {
			return ContractSeries{}, &ValidationError{Contract: raw.Contract, Reason: "duplicate date " + FormatDate(rows[i].Date)}
		}
	}

	if len(rows) > days {
		rows = rows[len(rows)-days:]
	}
	if len(rows) < MinPoints {
		return ContractSeries{}, &InsufficientHistoryError{Contract: raw.Contract, Have: len(rows), Need: MinPoints}
	}

	bars := make([]Bar, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		bars = append(bars, Bar{
			Date:         row.Date,
			Open:         row.Open,
			High:         row.High,
			Low:          row.Low,
			Close:        row.Settle,
			Volume:       row.Volume,
			OpenInterest: row.OpenInterest,
			Change:       row.Settle.Sub(rows[i-1].Settle),
		})
	}
	if len(bars) < MinPoints {
		return ContractSeries{}, &InsufficientHistoryError{Contract: raw.Contract, Have: len(bars), Need: MinPoints}
	}

	return ContractSeries{Contract: raw.Contract, Bars: bars}, nil
}
