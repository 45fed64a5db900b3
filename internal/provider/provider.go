package provider

import (
	"context"
	"errors"
	"fmt"

	"continuous-futures/internal/series"
)

// ErrFetch matches every FetchError.
var ErrFetch = errors.New("provider fetch failed")

// Fetcher retrieves one contract's raw daily history.
type Fetcher interface {
	FetchContract(ctx context.Context, exchange string, contract series.ContractID) (series.RawContractSeries, error)
}

// Failure kinds reported by FetchError.
const (
	KindNotFound    = "not_found"
	KindAuth        = "auth"
	KindRateLimited = "rate_limited"
	KindServer      = "server"
	KindTransport   = "transport"
	KindDecode      = "decode"
	KindBreakerOpen = "breaker_open"
)

// FetchError describes a failed provider request.
type FetchError struct {
	Exchange  string
	Contract  series.ContractID
	Status    int
	Kind      string
	Retryable bool
	Err       error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s/%s: %s", e.Exchange, e.Contract, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (%d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is matches ErrFetch.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// IsRetryable reports whether err is a transient provider failure.
func IsRetryable(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return false
}
