package series

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testContract = ContractID{Product: "CL", Month: 'Z', Year: 2015}

func day(n int) time.Time {
	return time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func rawWithSettles(settles ...float64) RawContractSeries {
	rows := make([]RawRow, len(settles))
	for i, s := range settles {
		v := decimal.NewFromFloat(s)
		rows[i] = RawRow{
			Date:         day(i),
			Open:         v,
			High:         v.Add(decimal.NewFromInt(1)),
			Low:          v.Sub(decimal.NewFromInt(1)),
			Settle:       v,
			Volume:       decimal.NewFromInt(int64(100 + i)),
			OpenInterest: decimal.NewFromInt(int64(1000 + i)),
		}
	}
	return RawContractSeries{Contract: testContract, Rows: rows}
}

func TestCleanDropsNonPositiveSettles(t *testing.T) {
	raw := rawWithSettles(10, 0, 11, -1, 12, 13, 14, 15, 16)

	cleaned, err := Clean(raw, DefaultWindowDays)
	require.NoError(t, err)

	// 7 positive rows remain, the first is dropped.
	require.Equal(t, 6, cleaned.Len())
	assert.Equal(t, day(2), cleaned.Bars[0].Date)
	assert.True(t, cleaned.Bars[0].Close.Equal(decimal.NewFromInt(11)))
	assert.True(t, cleaned.Bars[0].Change.Equal(decimal.NewFromInt(1)), "change is measured against the previous positive settle")
}

func TestCleanKeepsTrailingWindow(t *testing.T) {
	raw := rawWithSettles(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	cleaned, err := Clean(raw, 7)
	require.NoError(t, err)

	// last 7 rows are 4..10, then the first is dropped.
	require.Equal(t, 6, cleaned.Len())
	assert.True(t, cleaned.Bars[0].Close.Equal(decimal.NewFromInt(5)))
	assert.True(t, cleaned.Bars[5].Close.Equal(decimal.NewFromInt(10)))
	for _, bar := range cleaned.Bars {
		assert.True(t, bar.Change.Equal(decimal.NewFromInt(1)))
	}
}

func TestCleanRenamesColumns(t *testing.T) {
	raw := rawWithSettles(20, 21, 22, 23, 24, 25)

	cleaned, err := Clean(raw, DefaultWindowDays)
	require.NoError(t, err)

	bar := cleaned.Bars[0]
	assert.Equal(t, testContract, cleaned.Contract)
	assert.True(t, bar.Close.Equal(raw.Rows[1].Settle))
	assert.True(t, bar.Open.Equal(raw.Rows[1].Open))
	assert.True(t, bar.High.Equal(raw.Rows[1].High))
	assert.True(t, bar.Low.Equal(raw.Rows[1].Low))
	assert.True(t, bar.Volume.Equal(raw.Rows[1].Volume))
	assert.True(t, bar.OpenInterest.Equal(raw.Rows[1].OpenInterest))
}

func TestCleanInsufficientHistory(t *testing.T) {
	cases := map[string]RawContractSeries{
		"four positive rows":      rawWithSettles(1, 2, 3, 4),
		"five rows lose one":      rawWithSettles(1, 2, 3, 4, 5),
		"placeholders only":       rawWithSettles(0, 0, 0, 0, 0, 0, 0),
		"window too small":        rawWithSettles(1, 2, 3, 4, 5, 6, 7, 8),
		"empty provider response": {Contract: testContract},
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			days := DefaultWindowDays
			if name == "window too small" {
				days = 3
			}
			_, err := Clean(raw, days)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInsufficientHistory), "got %v", err)

			var ihe *InsufficientHistoryError
			require.True(t, errors.As(err, &ihe))
			assert.Equal(t, testContract, ihe.Contract)
			assert.Equal(t, MinPoints, ihe.Need)
		})
	}
}

func TestCleanSortsWithoutMutatingInput(t *testing.T) {
	raw := rawWithSettles(1, 2, 3, 4, 5, 6, 7)
	reversed := make([]RawRow, len(raw.Rows))
	for i, row := range raw.Rows {
		reversed[len(raw.Rows)-1-i] = row
	}
	raw.Rows = reversed

	cleaned, err := Clean(raw, DefaultWindowDays)
	require.NoError(t, err)

	assert.NoError(t, CheckOrdered(cleaned.Closes()))
	assert.Equal(t, day(6), raw.Rows[0].Date, "input order must be left untouched")
}

func TestCleanRejectsDuplicateDates(t *testing.T) {
	raw := rawWithSettles(1, 2, 3, 4, 5, 6, 7)
	raw.Rows[3].Date = raw.Rows[2].Date

	_, err := Clean(raw, DefaultWindowDays)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestCleanRejectsNonPositiveWindow(t *testing.T) {
	_, err := Clean(rawWithSettles(1, 2, 3, 4, 5, 6), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestContractIDOrdering(t *testing.T) {
	assert.Equal(t, "CLZ2015", testContract.String())
	assert.True(t, ContractID{Product: "CL", Month: 'F', Year: 2016}.Before(ContractID{Product: "CL", Month: 'G', Year: 2016}))
	assert.True(t, ContractID{Product: "CL", Month: 'Z', Year: 2015}.Before(ContractID{Product: "CL", Month: 'F', Year: 2016}))
	assert.Equal(t, 0, MonthNumber('A'))
	assert.Equal(t, 12, MonthNumber('Z'))
}
