package types

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the ISO calendar date format used for collection keys.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD key. Returns ErrInvalidDate on failure.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// MealsByDate maps a date key to its records in display order.
type MealsByDate map[string][]MealRecord

// Dates returns the keys that hold at least one record, ascending.
func (c MealsByDate) Dates() []string {
	dates := make([]string, 0, len(c))
	for d, meals := range c {
		if len(meals) > 0 {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	return dates
}

// Count returns the total number of records across all dates.
func (c MealsByDate) Count() int {
	n := 0
	for _, meals := range c {
		n += len(meals)
	}
	return n
}

// Clone returns a deep copy. A nil collection clones to an empty one.
func (c MealsByDate) Clone() MealsByDate {
	out := make(MealsByDate, len(c))
	for d, meals := range c {
		cp := make([]MealRecord, len(meals))
		for i, m := range meals {
			cp[i] = m.Clone()
		}
		out[d] = cp
	}
	return out
}

// Normalize returns a copy in which records with an empty Date take the
// date of their key. Records whose Date disagrees with the key are left
// alone so Validate can report them.
func (c MealsByDate) Normalize() MealsByDate {
	out := c.Clone()
	for d, meals := range out {
		for i := range meals {
			if meals[i].Date == "" {
				meals[i].Date = d
			}
		}
	}
	return out
}

// Validate checks that every key is a valid date and every record is filed
// under its own date.
func (c MealsByDate) Validate() error {
	for d, meals := range c {
		if _, err := ParseDate(d); err != nil {
			return err
		}
		for _, m := range meals {
			if m.Date != d {
				return fmt.Errorf("%w: record %d dated %q filed under %q", ErrInvalidData, m.ID, m.Date, d)
			}
		}
	}
	return nil
}

// InRange returns the ascending dates that fall inside [start, end].
// Either bound may be empty to leave that side open.
func (c MealsByDate) InRange(start, end string) ([]string, error) {
	if start != "" {
		if _, err := ParseDate(start); err != nil {
			return nil, err
		}
	}
	if end != "" {
		if _, err := ParseDate(end); err != nil {
			return nil, err
		}
	}
	if start != "" && end != "" && start > end {
		return nil, fmt.Errorf("%w: %s after %s", ErrInvalidRange, start, end)
	}

	var dates []string
	for _, d := range c.Dates() {
		if start != "" && d < start {
			continue
		}
		if end != "" && d > end {
			continue
		}
		dates = append(dates, d)
	}
	return dates, nil
}
