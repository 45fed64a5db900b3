package provider

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"continuous-futures/internal/series"
)

type scriptedFetcher struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (s *scriptedFetcher) FetchContract(_ context.Context, exchange string, contract series.ContractID) (series.RawContractSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return series.RawContractSeries{}, err
		}
	}
	return series.RawContractSeries{Contract: contract}, nil
}

type recordingObserver struct {
	fetches map[string]int
	retries int
}

func (o *recordingObserver) ObserveFetch(_, outcome string, _ time.Duration) {
	if o.fetches == nil {
		o.fetches = map[string]int{}
	}
	o.fetches[outcome]++
}

func (o *recordingObserver) ObserveRetry(_, _ string) { o.retries++ }

func transient() error {
	return &FetchError{Exchange: "CME", Contract: clz15, Kind: KindRateLimited, Status: 429, Retryable: true}
}

func permanent() error {
	return &FetchError{Exchange: "CME", Contract: clz15, Kind: KindNotFound, Status: 404}
}

func newTestRetrying(next Fetcher, opts RetryOptions, obs Observer) (*Retrying, *[]time.Duration) {
	r := NewRetrying(next, opts, obs, noopLogger())
	var waits []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return r, &waits
}

func TestRetryingRecoversFromTransientFailures(t *testing.T) {
	next := &scriptedFetcher{errs: []error{transient(), transient()}}
	obs := &recordingObserver{}
	r, waits := newTestRetrying(next, RetryOptions{MaxAttempts: 4, InitialBackoff: time.Second, MaxBackoff: 90 * time.Second}, obs)

	raw, err := r.FetchContract(context.Background(), "CME", clz15)
	require.NoError(t, err)
	assert.Equal(t, clz15, raw.Contract)
	assert.Equal(t, 3, next.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
	assert.Equal(t, 2, obs.retries)
	assert.Equal(t, 1, obs.fetches["ok"])
	assert.Equal(t, 2, obs.fetches["error"])
}

func TestRetryingBackoffIsCapped(t *testing.T) {
	next := &scriptedFetcher{errs: []error{transient(), transient(), transient(), transient()}}
	r, waits := newTestRetrying(next, RetryOptions{MaxAttempts: 5, InitialBackoff: time.Second, MaxBackoff: 3 * time.Second, BreakerFailures: 10}, nil)

	_, err := r.FetchContract(context.Background(), "CME", clz15)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}, *waits)
}

func TestRetryingGivesUpAfterBudget(t *testing.T) {
	next := &scriptedFetcher{errs: []error{transient(), transient(), transient()}}
	r, waits := newTestRetrying(next, RetryOptions{MaxAttempts: 3, BreakerFailures: 10}, nil)

	_, err := r.FetchContract(context.Background(), "CME", clz15)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetch))
	assert.Equal(t, 3, next.calls)
	assert.Len(t, *waits, 2)
}

func TestRetryingDoesNotRetryPermanentFailures(t *testing.T) {
	next := &scriptedFetcher{errs: []error{permanent()}}
	r, waits := newTestRetrying(next, RetryOptions{MaxAttempts: 5}, nil)

	_, err := r.FetchContract(context.Background(), "CME", clz15)
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindNotFound, fe.Kind)
	assert.Equal(t, 1, next.calls)
	assert.Empty(t, *waits)
}

func TestRetryingBreakerOpens(t *testing.T) {
	next := &scriptedFetcher{errs: []error{transient(), transient(), nil}}
	r, _ := newTestRetrying(next, RetryOptions{MaxAttempts: 5, BreakerFailures: 2, BreakerTimeout: time.Hour}, nil)

	_, err := r.FetchContract(context.Background(), "CME", clz15)
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindBreakerOpen, fe.Kind)
	assert.Equal(t, 2, next.calls, "open breaker must short-circuit the provider")
}

type productFetcher struct {
	mu    sync.Mutex
	down  string
	calls map[string]int
}

func (p *productFetcher) FetchContract(_ context.Context, exchange string, contract series.ContractID) (series.RawContractSeries, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = map[string]int{}
	}
	p.calls[contract.Product]++
	if contract.Product == p.down {
		return series.RawContractSeries{}, &FetchError{Exchange: exchange, Contract: contract, Kind: KindServer, Status: 503, Retryable: true}
	}
	return series.RawContractSeries{Contract: contract}, nil
}

func TestRetryingBreakerIsPerProduct(t *testing.T) {
	next := &productFetcher{down: "CL"}
	r, _ := newTestRetrying(next, RetryOptions{MaxAttempts: 3, BreakerFailures: 2, BreakerTimeout: time.Hour}, nil)

	_, err := r.FetchContract(context.Background(), "CME", clz15)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindBreakerOpen, fe.Kind)

	ngz15 := series.ContractID{Product: "NG", Month: 'Z', Year: 2015}
	raw, err := r.FetchContract(context.Background(), "CME", ngz15)
	require.NoError(t, err)
	assert.Equal(t, ngz15, raw.Contract)
	assert.Equal(t, 1, next.calls["NG"])
	assert.Equal(t, 2, next.calls["CL"])
}

func TestRetryingHonoursCancellation(t *testing.T) {
	next := &scriptedFetcher{errs: []error{transient(), transient()}}
	r := NewRetrying(next, RetryOptions{MaxAttempts: 3, InitialBackoff: time.Hour}, nil, noopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := r.FetchContract(ctx, "CME", clz15)
	assert.ErrorIs(t, err, context.Canceled)
}
