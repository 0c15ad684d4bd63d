package sheet

import (
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/mealbook/pkg/types"
)

// Plan is the set of dates an export will write and the ones it skips
// because the workbook already has a sheet for them.
type Plan struct {
	Dates   []string
	Skipped []string
}

// NewPlan selects the dates of c inside [start, end] that have records and
// splits them into new and already-present sheets. Both lists are ascending.
func NewPlan(c types.MealsByDate, start, end string, existing []string) (Plan, error) {
	dates, err := c.InRange(start, end)
	if err != nil {
		return Plan{}, err
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	p := Plan{Dates: []string{}, Skipped: []string{}}
	for _, d := range dates {
		if have[d] {
			p.Skipped = append(p.Skipped, d)
			continue
		}
		p.Dates = append(p.Dates, d)
	}
	return p, nil
}

// WorkbookName picks the output file name. An explicit name wins and gets
// an .xlsx extension if it has none. Otherwise the name is the YYYY-MM of
// start, or of the earliest date when start is empty. It returns "" when
// there is nothing to derive a name from.
func WorkbookName(explicit, start string, dates []string) string {
	if explicit != "" {
		name := filepath.Base(explicit)
		if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
			name += ".xlsx"
		}
		return name
	}
	from := start
	if from == "" && len(dates) > 0 {
		from = dates[0]
	}
	if len(from) < len("2006-01") {
		return ""
	}
	return from[:len("2006-01")] + ".xlsx"
}
