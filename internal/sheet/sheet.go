// Package sheet lays out one day of meals as spreadsheet rows: a header, one
// row per meal, a blank spacer and a totals row. It knows nothing about any
// file format; internal/export renders the rows into a workbook.
package sheet

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mesh-intelligence/mealbook/pkg/types"
)

// Column is a worksheet column with its display width in characters.
type Column struct {
	Header string
	Width  float64
}

// Columns is the fixed column set of a day sheet, left to right.
var Columns = []Column{
	{"Date", 15},
	{"Time", 10},
	{"Meal Description", 40},
	{"Calories", 10},
	{"Protein (g)", 12},
	{"Carbs (g)", 12},
	{"Fat (g)", 10},
	{"Fiber (g)", 10},
	{"Source", 15},
	{"Ingredients", 50},
}

// Column indexes into Columns.
const (
	ColDate = iota
	ColTime
	ColDescription
	ColCalories
	ColProtein
	ColCarbs
	ColFat
	ColFiber
	ColSource
	ColIngredients
)

// RowKind tells the renderer how to style a row.
type RowKind int

const (
	RowHeader RowKind = iota
	RowMeal
	RowSpacer
	RowTotal
)

// Row heights in points.
const (
	HeaderHeight  = 25.0
	MinMealHeight = 20.0
	lineHeight    = 15.0
	charsPerLine  = 50
)

// SummarySource is the Source cell of the totals row.
const SummarySource = "SUMMARY"

// Row is one worksheet row. Cells hold string or float64 values; a spacer
// row has no cells.
type Row struct {
	Kind   RowKind
	Height float64
	Cells  []any
}

// Day is the complete layout of one date's sheet.
type Day struct {
	Name   string
	Date   string
	Meals  int
	Rows   []Row
	Totals Totals
}

// Totals are the summed nutrients of a day, rounded for display.
type Totals struct {
	Calories decimal.Decimal
	Protein  decimal.Decimal
	Carbs    decimal.Decimal
	Fat      decimal.Decimal
	Fiber    decimal.Decimal
}

// Sum adds the nutrients of meals exactly, then rounds calories to a whole
// number and the rest to one decimal place.
func Sum(meals []types.MealRecord) Totals {
	var t Totals
	for _, m := range meals {
		n := m.Nutrition
		t.Calories = t.Calories.Add(decimal.NewFromFloat(n.Calories))
		t.Protein = t.Protein.Add(decimal.NewFromFloat(n.Protein))
		t.Carbs = t.Carbs.Add(decimal.NewFromFloat(n.Carbs))
		t.Fat = t.Fat.Add(decimal.NewFromFloat(n.Fat))
		t.Fiber = t.Fiber.Add(decimal.NewFromFloat(n.Fiber))
	}
	t.Calories = t.Calories.Round(0)
	t.Protein = t.Protein.Round(1)
	t.Carbs = t.Carbs.Round(1)
	t.Fat = t.Fat.Round(1)
	t.Fiber = t.Fiber.Round(1)
	return t
}

// Build lays out the sheet for date from meals in their stored order.
func Build(date string, meals []types.MealRecord) (Day, error) {
	d, err := types.ParseDate(date)
	if err != nil {
		return Day{}, err
	}
	day := Day{Name: date, Date: date, Meals: len(meals), Totals: Sum(meals)}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c.Header
	}
	day.Rows = append(day.Rows, Row{Kind: RowHeader, Height: HeaderHeight, Cells: header})

	label := FormatDate(d)
	for _, m := range meals {
		ingredients := FormatIngredients(m.Ingredients)
		day.Rows = append(day.Rows, Row{
			Kind:   RowMeal,
			Height: MealHeight(ingredients),
			Cells: []any{
				label,
				FormatTime(m.Timestamp),
				m.Description,
				m.Nutrition.Calories,
				m.Nutrition.Protein,
				m.Nutrition.Carbs,
				m.Nutrition.Fat,
				m.Nutrition.Fiber,
				SourceLabel(m.Source),
				ingredients,
			},
		})
	}

	day.Rows = append(day.Rows, Row{Kind: RowSpacer})
	t := day.Totals
	day.Rows = append(day.Rows, Row{
		Kind: RowTotal,
		Cells: []any{
			"",
			"",
			fmt.Sprintf("Daily Total (%d meals)", len(meals)),
			t.Calories.InexactFloat64(),
			t.Protein.InexactFloat64(),
			t.Carbs.InexactFloat64(),
			t.Fat.InexactFloat64(),
			t.Fiber.InexactFloat64(),
			SummarySource,
			"",
		},
	})
	return day, nil
}

// MealHeight grows a meal row by one line per 50 characters of ingredients.
func MealHeight(ingredients string) float64 {
	lines := math.Ceil(float64(len(ingredients)) / charsPerLine)
	return math.Max(MinMealHeight, lines*lineHeight)
}

// SourceLabel maps a record source to its display label.
func SourceLabel(s types.Source) string {
	switch s {
	case types.SourceDatabase:
		return "Database"
	case types.SourceIngredients:
		return "Custom Recipe"
	default:
		return "Manual Entry"
	}
}

// FormatIngredients renders "name (quantityx measurement)" entries joined
// by "; ". Free-form ingredients are rendered as given.
func FormatIngredients(ings []types.Ingredient) string {
	parts := make([]string, len(ings))
	for i, ing := range ings {
		if ing.Text != "" {
			parts[i] = ing.Text
			continue
		}
		q := strconv.FormatFloat(ing.Quantity, 'f', -1, 64)
		parts[i] = fmt.Sprintf("%s (%sx %s)", ing.Name, q, ing.Measurement)
	}
	return strings.Join(parts, "; ")
}

// FormatDate renders a date as "Wednesday, December 3, 2025".
func FormatDate(d time.Time) string {
	return d.Format("Monday, January 2, 2006")
}

// FormatTime renders the 24-hour wall clock of ts in its own zone.
func FormatTime(ts time.Time) string {
	return ts.Format("15:04")
}
