// Package roll stitches consecutive futures contracts into one continuous series.
//
// Each roll replaces the expiring contract's last WindowDays closes with a
// linear blend of both contracts, so the price step between them is spread
// over the window instead of landing on a single day.
package roll

import (
	"fmt"

	"github.com/shopspring/decimal"

	"continuous-futures/internal/series"
)

// WindowDays is the number of trading days a roll is blended over.
const WindowDays = 4

var (
	outgoingWeights = [WindowDays]decimal.Decimal{
		decimal.RequireFromString("0.8"),
		decimal.RequireFromString("0.6"),
		decimal.RequireFromString("0.4"),
		decimal.RequireFromString("0.2"),
	}
	incomingWeights = [WindowDays]decimal.Decimal{
		decimal.RequireFromString("0.2"),
		decimal.RequireFromString("0.4"),
		decimal.RequireFromString("0.6"),
		decimal.RequireFromString("0.8"),
	}
)

// Weights returns the outgoing and incoming weight for roll day i (0-based).
func Weights(i int) (decimal.Decimal, decimal.Decimal) {
	return outgoingWeights[i], incomingWeights[i]
}

// Blend joins outgoing and incoming across a WindowDays roll window.
//
// Outgoing closes up to its fifth-from-last date are copied as-is, its last
// WindowDays dates are blended with incoming closes on the same dates, and
// incoming continues verbatim from the first date after the window. Both
// inputs must have strictly increasing dates; neither is modified.
func Blend(outgoing, incoming []series.Point) ([]series.Point, error) {
	if len(outgoing) < series.MinPoints {
		return nil, &series.InsufficientHistoryError{Have: len(outgoing), Need: series.MinPoints}
	}
	if err := series.CheckOrdered(outgoing); err != nil {
		return nil, fmt.Errorf("outgoing: %w", err)
	}
	if err := series.CheckOrdered(incoming); err != nil {
		return nil, fmt.Errorf("incoming: %w", err)
	}

	rollStart := len(outgoing) - WindowDays
	rollDates := outgoing[rollStart:]

	index := make(map[int64]int, len(incoming))
	for i, p := range incoming {
		index[p.Date.Unix()] = i
	}

	first, ok := index[rollDates[0].Date.Unix()]
	if !ok {
		return nil, &series.AlignmentError{Date: rollDates[0].Date, Reason: "roll date missing from incoming contract"}
	}
	for i := 1; i < WindowDays; i++ {
		pos, ok := index[rollDates[i].Date.Unix()]
		if !ok {
			return nil, &series.AlignmentError{Date: rollDates[i].Date, Reason: "roll date missing from incoming contract"}
		}
		if pos != first+i {
			return nil, &series.AlignmentError{
				Date:   rollDates[i].Date,
				Reason: fmt.Sprintf("incoming contract trades %d extra day(s) inside the roll window", pos-first-i),
			}
		}
	}

	continuation := first + WindowDays
	if continuation >= len(incoming) {
		return nil, &series.InsufficientHistoryError{Have: len(incoming), Need: continuation + 1}
	}

	out := make([]series.Point, 0, rollStart+WindowDays+len(incoming)-continuation)
	out = append(out, outgoing[:rollStart]...)
	for i, p := range rollDates {
		wOut, wIn := Weights(i)
		blended := wOut.Mul(p.Close).Add(wIn.Mul(incoming[first+i].Close))
		out = append(out, series.Point{Date: p.Date, Close: blended})
	}
	out = append(out, incoming[continuation:]...)

	return out, nil
}
