package types

import (
	"errors"
	"fmt"
)

// Record and collection errors.
var (
	ErrNotFound     = errors.New("meal not found")
	ErrInvalidID    = errors.New("invalid meal ID")
	ErrInvalidData  = errors.New("invalid meal data")
	ErrInvalidDate  = errors.New("invalid date, want YYYY-MM-DD")
	ErrInvalidRange = errors.New("start date is after end date")
	ErrSameDate     = errors.New("source and target dates are the same")
	ErrDuplicateID  = errors.New("meal ID already exists")
)

// IsInputError reports whether err was caused by a caller mistake rather
// than a store or filesystem failure. A store rejecting a duplicate ID is
// still the caller's fault.
func IsInputError(err error) bool {
	for _, target := range []error{
		ErrInvalidID, ErrInvalidData, ErrInvalidDate,
		ErrInvalidRange, ErrSameDate, ErrDuplicateID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// ErrNothingToExport is reported in a failed export result when no date is
// left after duplicate filtering and there is no workbook to append to.
var ErrNothingToExport = errors.New("no new dates to export")

// StoreError reports a store rejection for a single record.
type StoreError struct {
	Op  string // "add", "delete", "get", "max-id", "replace"
	ID  MealID // offending record; zero when the call is not per-record
	Err error
}

func (e *StoreError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("store %s meal %d: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
