package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"continuous-futures/internal/alerting"
	"continuous-futures/internal/builder"
	"continuous-futures/internal/catalog"
)

// Report summarises one rebuild across products.
type Report struct {
	Built    []string
	Withheld []string
}

// Build fetches, chains and stores the selected products once.
func (a *App) Build(ctx context.Context, opts BuildOptions) (Report, error) {
	products, err := a.selectProducts(opts.Products)
	if err != nil {
		return Report{}, err
	}

	bopts := a.builderOptions()
	if opts.FromYear > 0 {
		bopts.StartYear = opts.FromYear
	}
	if opts.ToYear > 0 {
		bopts.EndYear = opts.ToYear
	}
	if opts.Workers > 0 {
		bopts.Workers = opts.Workers
	}
	if bopts.EndYear < bopts.StartYear {
		return Report{}, fmt.Errorf("year range %d-%d is empty", bopts.StartYear, bopts.EndYear)
	}

	fetcher, closeFetcher, err := a.newFetcher()
	if err != nil {
		return Report{}, err
	}
	defer closeFetcher()

	var sink builder.Sink
	if opts.DryRun {
		a.Logger.Warn().Msg("build dry-run: nothing will be written to the database")
	} else {
		store, closeStore, err := a.requireStore(ctx, "build (use --dry-run to skip persistence)")
		if err != nil {
			return Report{}, err
		}
		defer closeStore()

		if err := store.UpsertVendor(ctx, catalog.DefaultVendor()); err != nil {
			return Report{}, err
		}
		sink = store
	}

	b := builder.New(fetcher, sink, a.Metrics, bopts, a.Logger)
	report := a.rebuild(ctx, b, products)
	if len(report.Withheld) > 0 {
		return report, fmt.Errorf("%d of %d products withheld: %v", len(report.Withheld), len(products), report.Withheld)
	}
	return report, nil
}

func (a *App) builderOptions() builder.Options {
	return builder.Options{
		StartYear:  a.Config.Build.StartYear,
		EndYear:    a.Config.Build.EndYear,
		WindowDays: a.Config.Build.WindowDays,
		Workers:    a.Config.Build.Workers,
	}
}

// rebuild builds every product and reports each withheld one through the notifier.
func (a *App) rebuild(ctx context.Context, b *builder.Builder, products []catalog.Product) Report {
	started := time.Now()
	notifier := a.newNotifier()

	var report Report
	for _, res := range b.BuildAll(ctx, products) {
		if res.Err == nil {
			report.Built = append(report.Built, res.Product.Symbol)
			continue
		}

		report.Withheld = append(report.Withheld, res.Product.Symbol)
		if errors.Is(res.Err, context.Canceled) {
			continue
		}

		note := alerting.Notification{Product: res.Product.Symbol, Err: res.Err, Time: time.Now().UTC()}
		var pe *builder.ProductError
		if errors.As(res.Err, &pe) {
			note.Stage = string(pe.Stage)
			if pe.Contract.Product != "" {
				note.Contract = pe.Contract.String()
			}
		}
		if err := notifier.Notify(ctx, note); err != nil {
			a.Logger.Error().Err(err).Str("product", note.Product).Msg("failed to dispatch withheld-product alert")
		}
	}

	a.Logger.Info().
		Int("built", len(report.Built)).
		Int("withheld", len(report.Withheld)).
		Dur("elapsed", time.Since(started)).
		Msg("rebuild finished")
	return report
}
