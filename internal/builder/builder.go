package builder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"continuous-futures/internal/catalog"
	"continuous-futures/internal/provider"
	"continuous-futures/internal/roll"
	"continuous-futures/internal/series"
)

// Stage names the step of a product build that failed.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageClean   Stage = "clean"
	StageChain   Stage = "chain"
	StagePersist Stage = "persist"
)

// ProductError tags a build failure with the product, contract and stage involved.
type ProductError struct {
	Product  string
	Contract series.ContractID
	Stage    Stage
	Err      error
}

func (e *ProductError) Error() string {
	if e.Contract.Product == "" {
		return fmt.Sprintf("build %s: %s: %v", e.Product, e.Stage, e.Err)
	}
	return fmt.Sprintf("build %s: %s %s: %v", e.Product, e.Stage, e.Contract, e.Err)
}

func (e *ProductError) Unwrap() error { return e.Err }

// Sink receives every successfully built series. Implementations must write atomically per product.
type Sink interface {
	SaveContinuousSeries(ctx context.Context, product catalog.Product, s series.ContinuousSeries) error
}

// Observer receives per-product build outcomes.
type Observer interface {
	ObserveBuild(product, stage string, points int, elapsed time.Duration)
}

// Options select the contract range and concurrency of a build.
type Options struct {
	StartYear  int
	EndYear    int
	WindowDays int
	Workers    int
}

// Builder turns a product's contracts into one continuous series.
type Builder struct {
	fetcher  provider.Fetcher
	sink     Sink
	observer Observer
	opts     Options
	logger   zerolog.Logger
}

// New constructs a Builder. sink and observer may be nil; a nil sink builds without persisting.
func New(fetcher provider.Fetcher, sink Sink, observer Observer, opts Options, logger zerolog.Logger) *Builder {
	if opts.WindowDays <= 0 {
		opts.WindowDays = series.DefaultWindowDays
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Builder{
		fetcher:  fetcher,
		sink:     sink,
		observer: observer,
		opts:     opts,
		logger:   logger.With().Str("component", "builder").Logger(),
	}
}

// Result is the outcome of one product build.
type Result struct {
	Product catalog.Product
	Series  series.ContinuousSeries
	Err     error
}

// BuildAll builds products concurrently and returns one Result per product, in input order.
// A failing product never affects the others.
func (b *Builder) BuildAll(ctx context.Context, products []catalog.Product) []Result {
	results := make([]Result, len(products))

	var g errgroup.Group
	g.SetLimit(b.opts.Workers)
	for i, p := range products {
		g.Go(func() error {
			s, err := b.BuildProduct(ctx, p)
			results[i] = Result{Product: p, Series: s, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// BuildProduct fetches, cleans and chains every contract of p, then hands the series to the sink.
func (b *Builder) BuildProduct(ctx context.Context, p catalog.Product) (series.ContinuousSeries, error) {
	start := time.Now()
	log := b.logger.With().Str("product", p.Symbol).Logger()

	fail := func(stage Stage, contract series.ContractID, err error) (series.ContinuousSeries, error) {
		b.observe(p.Symbol, string(stage), 0, time.Since(start))
		log.Error().Err(err).Str("stage", string(stage)).Str("contract", contract.String()).Msg("product withheld")
		return series.ContinuousSeries{}, &ProductError{Product: p.Symbol, Contract: contract, Stage: stage, Err: err}
	}

	contracts := p.Contracts(b.opts.StartYear, b.opts.EndYear)
	if len(contracts) == 0 {
		return fail(StageFetch, series.ContractID{}, &series.ValidationError{Reason: fmt.Sprintf("no contracts between %d and %d", b.opts.StartYear, b.opts.EndYear)})
	}

	cleaned := make([]series.ContractSeries, 0, len(contracts))
	for _, id := range contracts {
		if err := ctx.Err(); err != nil {
			return fail(StageFetch, id, err)
		}

		raw, err := b.fetcher.FetchContract(ctx, p.Exchange, id)
		if err != nil {
			return fail(StageFetch, id, err)
		}
		raw.Contract = id

		cs, err := series.Clean(raw, b.opts.WindowDays)
		if err != nil {
			return fail(StageClean, id, err)
		}
		cleaned = append(cleaned, cs)
		log.Debug().Str("contract", id.String()).Int("bars", cs.Len()).Msg("contract cleaned")
	}

	continuous, err := roll.Chain(cleaned)
	if err != nil {
		var step *roll.StepError
		contract := series.ContractID{}
		if errors.As(err, &step) {
			contract = step.Incoming
		}
		return fail(StageChain, contract, err)
	}

	if b.sink != nil {
		if err := b.sink.SaveContinuousSeries(ctx, p, continuous); err != nil {
			return fail(StagePersist, series.ContractID{}, err)
		}
	}

	b.observe(p.Symbol, "ok", continuous.Len(), time.Since(start))
	log.Info().
		Int("contracts", len(cleaned)).
		Int("points", continuous.Len()).
		Str("from", series.FormatDate(continuous.First())).
		Str("to", series.FormatDate(continuous.Last())).
		Msg("continuous series built")

	return continuous, nil
}

func (b *Builder) observe(product, stage string, points int, elapsed time.Duration) {
	if b.observer != nil {
		b.observer.ObserveBuild(product, stage, points, elapsed)
	}
}
