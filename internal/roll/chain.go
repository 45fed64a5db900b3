package roll

import (
	"fmt"

	"continuous-futures/internal/series"
)

// StepError wraps a failure of one fold step with the contracts involved.
type StepError struct {
	Step     int
	Outgoing series.ContractID
	Incoming series.ContractID
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("roll %s -> %s (step %d): %v", e.Outgoing, e.Incoming, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Chain folds contracts, ordered by expiry, into one continuous series.
//
// The fold is strictly left to right: every step blends the accumulated
// series with the next contract, so the result depends on order only.
func Chain(contracts []series.ContractSeries) (series.ContinuousSeries, error) {
	if len(contracts) == 0 {
		return series.ContinuousSeries{}, &series.InsufficientHistoryError{Need: 1}
	}

	product := contracts[0].Contract.Product
	for i := 1; i < len(contracts); i++ {
		c := contracts[i].Contract
		if c.Product != product {
			return series.ContinuousSeries{}, &series.ValidationError{Contract: c, Reason: "mixes products " + product + " and " + c.Product}
		}
		if !contracts[i-1].Contract.Before(c) {
			return series.ContinuousSeries{}, &series.ValidationError{Contract: c, Reason: "contracts not ordered by expiry after " + contracts[i-1].Contract.String()}
		}
	}

	acc := contracts[0].Closes()
	for i := 1; i < len(contracts); i++ {
		next, err := Blend(acc, contracts[i].Closes())
		if err != nil {
			return series.ContinuousSeries{}, &StepError{
				Step:     i,
				Outgoing: contracts[i-1].Contract,
				Incoming: contracts[i].Contract,
				Err:      err,
			}
		}
		acc = next
	}

	return series.ContinuousSeries{Product: product, Points: acc}, nil
}
