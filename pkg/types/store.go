package types

import "context"

// Store is the persistent record store the engine reads from and writes to.
// Calls are per record; implementations need not batch.
type Store interface {
	// GetMealsByDate returns the records filed under date in insertion order.
	// An unknown date yields an empty slice, not an error.
	GetMealsByDate(ctx context.Context, date string) ([]MealRecord, error)

	// AddMeal persists a record that already carries its ID.
	// Returns ErrDuplicateID if the ID is taken.
	AddMeal(ctx context.Context, rec MealRecord) error

	// DeleteMeal removes a record. Returns ErrNotFound if the ID is unknown.
	DeleteMeal(ctx context.Context, id MealID) error

	MaxIDQuerier
}

// MaxIDQuerier reports the largest identifier in use.
// ok is false when the store holds no records.
type MaxIDQuerier interface {
	MaxID(ctx context.Context) (id MealID, ok bool, err error)
}

// BatchStore is implemented by stores that can delete and add records in
// one atomic write. Store-backed migration uses it when available.
type BatchStore interface {
	ReplaceMeals(ctx context.Context, deleteIDs []MealID, add []MealRecord) error
}

// RangeReader is implemented by stores that can load a whole date range.
// Either bound may be empty.
type RangeReader interface {
	MealsBetween(ctx context.Context, start, end string) (MealsByDate, error)
}

// Backend is a Store with a lifecycle. Attach opens the store described by
// Config; Detach releases it and is idempotent. Operations on a detached
// backend return ErrStoreDetached.
type Backend interface {
	Store
	BatchStore
	RangeReader
	Attach(config Config) error
	Detach() error
}
