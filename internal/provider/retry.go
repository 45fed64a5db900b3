package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"continuous-futures/internal/series"
)

// Observer receives per-request provider telemetry.
type Observer interface {
	ObserveFetch(product, outcome string, elapsed time.Duration)
	ObserveRetry(product, kind string)
}

// RetryOptions bound how hard a provider is pushed.
type RetryOptions struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	RequestsPerSecond float64
	Burst             int
	// BreakerFailures is the number of consecutive transient failures that opens the breaker.
	BreakerFailures int
	BreakerTimeout  time.Duration
}

// Retrying wraps a Fetcher with rate limiting, a circuit breaker per product and bounded
// exponential backoff. The limiter is shared by all products.
type Retrying struct {
	next     Fetcher
	opts     RetryOptions
	limiter  *rate.Limiter
	settings gobreaker.Settings
	observer Observer
	logger   zerolog.Logger
	sleep    func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewRetrying decorates next. observer may be nil.
func NewRetrying(next Fetcher, opts RetryOptions, observer Observer, logger zerolog.Logger) *Retrying {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = opts.InitialBackoff
	}
	if opts.BreakerFailures <= 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 60 * time.Second
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	log := logger.With().Str("component", "provider_retry").Logger()
	failures := uint32(opts.BreakerFailures)
	settings := gobreaker.Settings{
		Timeout: opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Permanent failures say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("provider breaker state changed")
		},
	}

	return &Retrying{
		next:     next,
		opts:     opts,
		limiter:  rate.NewLimiter(limit, burst),
		settings: settings,
		observer: observer,
		logger:   log,
		sleep:    sleepContext,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// breakerFor returns the breaker guarding product, creating it on first use.
func (r *Retrying) breakerFor(product string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[product]
	if !ok {
		settings := r.settings
		settings.Name = "provider:" + product
		cb = gobreaker.NewCircuitBreaker(settings)
		r.breakers[product] = cb
	}
	return cb
}

// FetchContract fetches with retries; only retryable FetchErrors are attempted again.
func (r *Retrying) FetchContract(ctx context.Context, exchange string, contract series.ContractID) (series.RawContractSeries, error) {
	backoff := r.opts.InitialBackoff
	breaker := r.breakerFor(contract.Product)
	var lastErr error

	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return series.RawContractSeries{}, err
		}

		start := time.Now()
		result, err := breaker.Execute(func() (interface{}, error) {
			return r.next.FetchContract(ctx, exchange, contract)
		})
		if err == nil {
			r.observe(contract.Product, "ok", time.Since(start))
			return result.(series.RawContractSeries), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &FetchError{Exchange: exchange, Contract: contract, Kind: KindBreakerOpen, Err: err}
		}
		r.observe(contract.Product, "error", time.Since(start))
		lastErr = err

		if !IsRetryable(err) || attempt == r.opts.MaxAttempts {
			break
		}

		kind := ""
		var fe *FetchError
		if errors.As(err, &fe) {
			kind = fe.Kind
		}
		if r.observer != nil {
			r.observer.ObserveRetry(contract.Product, kind)
		}
		r.logger.Warn().Err(err).
			Str("contract", contract.String()).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("transient provider failure; retrying")

		if err := r.sleep(ctx, backoff); err != nil {
			return series.RawContractSeries{}, err
		}
		backoff *= 2
		if backoff > r.opts.MaxBackoff {
			backoff = r.opts.MaxBackoff
		}
	}

	return series.RawContractSeries{}, lastErr
}

func (r *Retrying) observe(product, outcome string, elapsed time.Duration) {
	if r.observer != nil {
		r.observer.ObserveFetch(product, outcome, elapsed)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ Fetcher = (*Retrying)(nil)
