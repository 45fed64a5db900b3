package series

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInsufficientHistory marks a series too short to clean or chain.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrAlignment marks adjacent contracts whose roll-window calendars differ.
	ErrAlignment = errors.New("roll window misaligned")
	// ErrValidation marks malformed raw input.
	ErrValidation = errors.New("invalid series")
)

// InsufficientHistoryError reports how many points were available against how many are required.
type InsufficientHistoryError struct {
	Contract ContractID
	Have     int
	Need     int
}

func (e *InsufficientHistoryError) Error() string {
	if e.Contract.Product == "" {
		return fmt.Sprintf("insufficient history: have %d points, need %d", e.Have, e.Need)
	}
	return fmt.Sprintf("insufficient history for %s: have %d points, need %d", e.Contract, e.Have, e.Need)
}

// Is matches ErrInsufficientHistory.
func (e *InsufficientHistoryError) Is(target error) bool { return target == ErrInsufficientHistory }

// AlignmentError reports a roll date the incoming series cannot be matched on.
type AlignmentError struct {
	Date   time.Time
	Reason string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("roll window misaligned at %s: %s", FormatDate(e.Date), e.Reason)
}

// Is matches ErrAlignment.
func (e *AlignmentError) Is(target error) bool { return target == ErrAlignment }

// ValidationError reports raw input that does not meet the expected shape.
type ValidationError struct {
	Contract ContractID
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Contract.Product == "" {
		return "invalid series: " + e.Reason
	}
	return fmt.Sprintf("invalid series %s: %s", e.Contract, e.Reason)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
