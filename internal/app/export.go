package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"continuous-futures/internal/analysis"
)

// Export renders a stored continuous series with its hist vol as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	product, ok := a.Catalog.Lookup(opts.Product)
	if !ok {
		return fmt.Errorf("unknown product %q", opts.Product)
	}

	var from, to time.Time
	if opts.From != nil {
		from = opts.From.UTC()
	}
	if opts.To != nil {
		to = opts.To.UTC()
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return errors.New("from must not be after to")
	}

	maxPoints := a.Config.ResolveMaxPoints(opts.MaxPoints)
	period := a.Config.ResolveVolPeriod(opts.VolPeriod)

	store, closeStore, err := a.requireStore(ctx, "export")
	if err != nil {
		return err
	}
	defer closeStore()

	points, err := store.ListClosingPrices(ctx, product.Symbol, from, to)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		a.Logger.Info().Str("product", product.Symbol).Msg("no closing prices found for export window")
		return nil
	}

	// Statistics are computed on the full series before thinning it for output.
	rows, err := analysis.Analyze(points, period)
	if err != nil {
		return err
	}
	exported := analysis.Downsample(rows, maxPoints)
	a.Logger.Info().Str("product", product.Symbol).Int("total", len(rows)).Int("exported", len(exported)).Msg("exporting series")

	if opts.CSVPath != "" {
		if err := analysis.WriteCSVFile(opts.CSVPath, exported, period); err != nil {
			return err
		}
	}
	if opts.PNGPath != "" {
		if err := analysis.WritePNGFile(opts.PNGPath, product.Symbol, exported, period); err != nil {
			return err
		}
	}
	return nil
}
