package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"continuous-futures/internal/alerting"
	"continuous-futures/internal/builder"
	"continuous-futures/internal/series"
)

// SimulateAlert sends a sample withheld-product notification for product through the
// configured channel, to check alert routing without waiting for a real failure.
func (a *App) SimulateAlert(ctx context.Context, product string) error {
	if a.Notifier == nil && !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	p, ok := a.Catalog.Lookup(product)
	if !ok {
		return fmt.Errorf("unknown product %q", product)
	}
	contracts := p.Contracts(a.Config.Build.EndYear, a.Config.Build.EndYear)
	if len(contracts) == 0 {
		return fmt.Errorf("product %s lists no contracts", p.Symbol)
	}
	contract := contracts[len(contracts)-1]

	now := time.Now().UTC()
	err := &builder.ProductError{
		Product:  p.Symbol,
		Contract: contract,
		Stage:    builder.StageChain,
		Err:      &series.AlignmentError{Date: now.Truncate(24 * time.Hour), Reason: "simulated misalignment"},
	}

	return a.newNotifier().Notify(ctx, alerting.Notification{
		Product:  p.Symbol,
		Contract: contract.String(),
		Stage:    string(builder.StageChain),
		Err:      err,
		Time:     now,
	})
}
