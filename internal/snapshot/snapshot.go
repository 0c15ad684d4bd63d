// Package snapshot reads and writes a meal collection as an indented JSON
// document keyed by date, the side file kept after a migration for review.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mesh-intelligence/mealbook/internal/fsutil"
	"github.com/mesh-intelligence/mealbook/pkg/types"
)

// DefaultFile is the side file name used when none is configured.
const DefaultFile = "migrated_meals.json"

// Save writes c to path atomically. Empty dates are kept so a cleared day
// stays visible in the file.
func Save(path string, c types.MealsByDate) error {
	if c == nil {
		c = types.MealsByDate{}
	}
	err := fsutil.WriteFile(path, 0o644, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	})
	if err != nil {
		return fmt.Errorf("writing snapshot %s: %w", path, err)
	}
	return nil
}

// Load reads a collection from path. Records without a date take the date
// of their key; a record filed under the wrong key is an error.
func Load(path string) (types.MealsByDate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a collection from r with the same rules as Load.
func Decode(r io.Reader) (types.MealsByDate, error) {
	var c types.MealsByDate
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: decoding collection: %v", types.ErrInvalidData, err)
	}
	c = c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
