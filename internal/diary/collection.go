// Package diary implements the record operations of the meal diary:
// migrating a date's records to another date, copying them, and clearing a
// date. Each operation exists in two forms. The collection functions
// (Migrate, Copy, Clear) take a MealsByDate and return a new one without
// touching the input. Service runs the same operations against a
// types.Store, one store call per record.
package diary

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/mealbook/internal/ids"
	"github.com/mesh-intelligence/mealbook/pkg/types"
)

// checkDates validates a source/target pair.
func checkDates(source, target string) error {
	if _, err := types.ParseDate(source); err != nil {
		return err
	}
	if _, err := types.ParseDate(target); err != nil {
		return err
	}
	if source == target {
		return fmt.Errorf("%w: %s", types.ErrSameDate, source)
	}
	return nil
}

// Redate returns ts with its calendar date replaced by date, keeping the
// wall-clock time, nanoseconds and location.
func Redate(ts time.Time, date string) (time.Time, error) {
	d, err := types.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(),
		ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond(), ts.Location()), nil
}

// migrateRecords rewrites records for target with fresh identifiers.
func migrateRecords(records []types.MealRecord, target string, alloc ids.Allocator) ([]types.MealRecord, error) {
	newIDs, err := alloc.Allocate(len(records))
	if err != nil {
		return nil, fmt.Errorf("allocating ids: %w", err)
	}
	out := make([]types.MealRecord, len(records))
	for i, rec := range records {
		m := rec.Clone()
		m.Timestamp, err = Redate(rec.Timestamp, target)
		if err != nil {
			return nil, err
		}
		m.ID, m.LegacyID = newIDs[i], nil
		m.Date = target
		out[i] = m
	}
	return out, nil
}

// copyRecords duplicates records into target as new occurrences at now.
func copyRecords(records []types.MealRecord, target string, alloc ids.Allocator, now time.Time) ([]types.MealRecord, error) {
	newIDs, err := alloc.Allocate(len(records))
	if err != nil {
		return nil, fmt.Errorf("allocating ids: %w", err)
	}
	out := make([]types.MealRecord, len(records))
	for i, rec := range records {
		m := rec.Clone()
		m.ID, m.LegacyID = newIDs[i], nil
		m.Date = target
		m.Timestamp = now
		if m.Source == "" {
			m.Source = types.SourceCopy
		}
		out[i] = m
	}
	return out, nil
}

// Migrate moves every record under source to target. Timestamps keep their
// time of day, identifiers are reallocated, and the records are appended
// after any already filed under target. The source key is removed.
// An empty source returns an unchanged copy of c and a zero count.
func Migrate(c types.MealsByDate, source, target string, alloc ids.Allocator) (types.MealsByDate, int, error) {
	if err := checkDates(source, target); err != nil {
		return nil, 0, err
	}
	out := c.Clone()
	records := out[source]
	if len(records) == 0 {
		return out, 0, nil
	}

	moved, err := migrateRecords(records, target, alloc)
	if err != nil {
		return nil, 0, err
	}
	out[target] = append(out[target], moved...)
	delete(out, source)
	return out, len(moved), nil
}

// Copy duplicates every record under source into target with fresh
// identifiers and now as the timestamp. The source is untouched.
func Copy(c types.MealsByDate, source, target string, alloc ids.Allocator, now time.Time) (types.MealsByDate, int, error) {
	if err := checkDates(source, target); err != nil {
		return nil, 0, err
	}
	out := c.Clone()
	records := out[source]
	if len(records) == 0 {
		return out, 0, nil
	}

	copied, err := copyRecords(records, target, alloc, now)
	if err != nil {
		return nil, 0, err
	}
	out[target] = append(out[target], copied...)
	return out, len(copied), nil
}

// Clear removes every record under date and returns how many there were.
func Clear(c types.MealsByDate, date string) (types.MealsByDate, int, error) {
	if _, err := types.ParseDate(date); err != nil {
		return nil, 0, err
	}
	out := c.Clone()
	n := len(out[date])
	delete(out, date)
	return out, n, nil
}
