package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"continuous-futures/internal/builder"
	"continuous-futures/internal/catalog"
	"continuous-futures/internal/scheduler"
	"continuous-futures/internal/storage"
)

// Run rebuilds the configured products on the scheduler interval until interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	products, err := a.selectProducts(nil)
	if err != nil {
		return err
	}

	store, closeStore, err := a.requireStore(ctx, "run the scheduled rebuild")
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.UpsertVendor(ctx, catalog.DefaultVendor()); err != nil {
		return err
	}

	fetcher, closeFetcher, err := a.newFetcher()
	if err != nil {
		return err
	}
	defer closeFetcher()

	stopMetrics := a.serveMetrics()
	defer stopMetrics()

	b := builder.New(fetcher, store, a.Metrics, a.builderOptions(), a.Logger)
	sched := scheduler.New(scheduler.Options{
		Interval:        a.Config.Scheduler.Interval,
		AlignToInterval: a.Config.Scheduler.AlignToInterval,
		StartupDelay:    a.Config.Scheduler.StartupDelay,
		RunOnStart:      true,
	}, a.Logger)

	a.Logger.Info().Int("products", len(products)).Dur("interval", a.Config.Scheduler.Interval).Msg("starting scheduled rebuild")
	err = sched.Run(ctx, func(ctx context.Context, at time.Time) error {
		return a.scheduledRebuild(ctx, store, b, products)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("scheduler terminated with error")
		return err
	}

	a.Logger.Info().Msg("scheduled rebuild stopped")
	return nil
}

// scheduledRebuild runs one rebuild while holding the advisory lock, so concurrent instances
// never write the same products.
func (a *App) scheduledRebuild(ctx context.Context, locker storage.AdvisoryLocker, b *builder.Builder, products []catalog.Product) error {
	unlock, proceed, err := a.acquireLock(ctx, locker)
	if err != nil {
		return err
	}
	if !proceed {
		a.Logger.Info().Msg("another instance holds the rebuild lock; skipping")
		return nil
	}
	defer func() {
		if err := unlock(); err != nil {
			a.Logger.Warn().Err(err).Msg("release rebuild lock")
		}
	}()

	report := a.rebuild(ctx, b, products)
	if len(report.Withheld) > 0 {
		return fmt.Errorf("%d of %d products withheld", len(report.Withheld), len(products))
	}
	return nil
}

func (a *App) acquireLock(ctx context.Context, locker storage.AdvisoryLocker) (func() error, bool, error) {
	key := a.Config.Scheduler.AdvisoryLockKey
	if key == 0 || locker == nil {
		return func() error { return nil }, true, nil
	}
	unlock, acquired, err := locker.TryAdvisoryLock(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}

// serveMetrics exposes /metrics when metrics.listen_addr is set and returns a shutdown func.
func (a *App) serveMetrics() func() {
	addr := a.Config.Metrics.ListenAddr
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.Logger.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("metrics server shutdown")
		}
	}
}
