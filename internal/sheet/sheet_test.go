package sheet

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/mealbook/pkg/types"
)

func testMeals() []types.MealRecord {
	loc := time.FixedZone("EST", -5*3600)
	return []types.MealRecord{
		{
			ID:          1,
			Date:        "2025-12-03",
			Timestamp:   time.Date(2025, 12, 3, 8, 5, 0, 0, loc),
			Description: "Oatmeal with berries",
			Nutrition:   types.Nutrition{Calories: 350.4, Protein: 12.15, Carbs: 58, Fat: 6.1, Fiber: 8},
			Source:      types.SourceIngredients,
			Ingredients: []types.Ingredient{
				{Name: "Oats", Quantity: 0.5, Measurement: "cup"},
				{Name: "Blueberries", Quantity: 1, Measurement: "handful"},
			},
		},
		{
			ID:          2,
			Date:        "2025-12-03",
			Timestamp:   time.Date(2025, 12, 3, 19, 30, 0, 0, loc),
			Description: "Chicken salad",
			Nutrition:   types.Nutrition{Calories: 420.3, Protein: 35.1, Carbs: 12.2, Fat: 18.04, Fiber: 4.1},
			Source:      types.SourceDatabase,
			Ingredients: []types.Ingredient{},
		},
	}
}

func TestBuildLayout(t *testing.T) {
	day, err := Build("2025-12-03", testMeals())
	require.NoError(t, err)

	assert.Equal(t, "2025-12-03", day.Name)
	assert.Equal(t, 2, day.Meals)
	require.Len(t, day.Rows, 5)

	kinds := make([]RowKind, len(day.Rows))
	for i, r := range day.Rows {
		kinds[i] = r.Kind
	}
	assert.Equal(t, []RowKind{RowHeader, RowMeal, RowMeal, RowSpacer, RowTotal}, kinds)

	header := day.Rows[0]
	assert.Equal(t, HeaderHeight, header.Height)
	assert.Equal(t, "Date", header.Cells[ColDate])
	assert.Equal(t, "Ingredients", header.Cells[ColIngredients])
	assert.Len(t, header.Cells, len(Columns))

	first := day.Rows[1]
	assert.Equal(t, "Wednesday, December 3, 2025", first.Cells[ColDate])
	assert.Equal(t, "08:05", first.Cells[ColTime])
	assert.Equal(t, "Oatmeal with berries", first.Cells[ColDescription])
	assert.Equal(t, 350.4, first.Cells[ColCalories])
	assert.Equal(t, "Custom Recipe", first.Cells[ColSource])
	assert.Equal(t, "Oats (0.5x cup); Blueberries (1x handful)", first.Cells[ColIngredients])
	assert.Equal(t, MinMealHeight, first.Height)

	assert.Equal(t, "19:30", day.Rows[2].Cells[ColTime], "time is shown in the timestamp's own zone")
	assert.Equal(t, "Database", day.Rows[2].Cells[ColSource])
	assert.Empty(t, day.Rows[3].Cells)

	total := day.Rows[4]
	assert.Equal(t, "Daily Total (2 meals)", total.Cells[ColDescription])
	assert.Equal(t, 771.0, total.Cells[ColCalories])
	assert.Equal(t, 47.3, total.Cells[ColProtein])
	assert.Equal(t, 70.2, total.Cells[ColCarbs])
	assert.Equal(t, 24.1, total.Cells[ColFat])
	assert.Equal(t, 12.1, total.Cells[ColFiber])
	assert.Equal(t, SummarySource, total.Cells[ColSource])
}

func TestFormatIngredients(t *testing.T) {
	assert.Equal(t, "", FormatIngredients(nil))
	assert.Equal(t, "Test ingredients", FormatIngredients([]types.Ingredient{{Text: "Test ingredients"}}))
	assert.Equal(t, "Rice (1.5x cup); 2 eggs", FormatIngredients([]types.Ingredient{
		{Name: "Rice", Quantity: 1.5, Measurement: "cup"},
		{Text: "2 eggs"},
	}))
}

func TestBuildRejectsBadDate(t *testing.T) {
	_, err := Build("December 3", nil)
	assert.ErrorIs(t, err, types.ErrInvalidDate)
}

func TestSumIsExact(t *testing.T) {
	meals := make([]types.MealRecord, 3)
	for i := range meals {
		meals[i].Nutrition = types.Nutrition{Protein: 0.1, Carbs: 0.05}
	}
	got := Sum(meals)
	assert.Equal(t, "0.3", got.Protein.String())
	assert.Equal(t, "0.2", got.Carbs.String(), "0.15 rounds half up")
}

func TestMealHeight(t *testing.T) {
	tests := []struct {
		chars int
		want  float64
	}{
		{0, 20},
		{50, 20},
		{51, 30},
		{120, 45},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MealHeight(strings.Repeat("x", tt.chars)), "chars=%d", tt.chars)
	}
}

func TestSourceLabel(t *testing.T) {
	assert.Equal(t, "Database", SourceLabel(types.SourceDatabase))
	assert.Equal(t, "Custom Recipe", SourceLabel(types.SourceIngredients))
	assert.Equal(t, "Manual Entry", SourceLabel(types.SourceManual))
	assert.Equal(t, "Manual Entry", SourceLabel(types.SourceCopy))
	assert.Equal(t, "Manual Entry", SourceLabel(""))
}

func TestNewPlan(t *testing.T) {
	c := types.MealsByDate{
		"2025-12-01": testMeals(),
		"2025-12-02": testMeals(),
		"2025-12-03": testMeals(),
		"2025-12-09": {},
	}

	p, err := NewPlan(c, "2025-12-02", "", []string{"2025-12-02", "Sheet1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-12-03"}, p.Dates)
	assert.Equal(t, []string{"2025-12-02"}, p.Skipped)

	p, err = NewPlan(c, "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-12-01", "2025-12-02", "2025-12-03"}, p.Dates, "empty dates are not exported")
	assert.Empty(t, p.Skipped)

	_, err = NewPlan(c, "2025-12-05", "2025-12-01", nil)
	assert.ErrorIs(t, err, types.ErrInvalidRange)
}

func TestWorkbookName(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		start    string
		dates    []string
		want     string
	}{
		{"explicit with extension", "diet.xlsx", "2025-12-01", nil, "diet.xlsx"},
		{"explicit without extension", "diet", "", nil, "diet.xlsx"},
		{"explicit path is reduced to base", "../x/diet.XLSX", "", nil, "diet.XLSX"},
		{"from start", "", "2025-12-03", []string{"2025-11-30"}, "2025-12.xlsx"},
		{"from earliest date", "", "", []string{"2025-11-30", "2025-12-01"}, "2025-11.xlsx"},
		{"nothing to derive from", "", "", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WorkbookName(tt.explicit, tt.start, tt.dates))
		})
	}
}
