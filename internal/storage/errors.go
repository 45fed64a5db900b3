package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")

	// ErrPersistence matches every PersistenceError.
	ErrPersistence = errors.New("persistence error")
)

// PersistenceError reports a failed database operation. A failed SaveContinuousSeries leaves
// the product's previously stored rows untouched.
type PersistenceError struct {
	Op     string
	Symbol string
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Symbol, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func persistenceErr(op, symbol string, err error) error {
	return &PersistenceError{Op: op, Symbol: symbol, Err: err}
}
