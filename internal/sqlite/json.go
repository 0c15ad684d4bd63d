// JSON record structure for meals.jsonl.
package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mesh-intelligence/mealbook/pkg/types"
)

// mealJSON is one line of meals.jsonl. Field names match the meals columns
// so the loader can insert by key.
type mealJSON struct {
	MealID      int64              `json:"meal_id"`
	Date        string             `json:"date"`
	Timestamp   string             `json:"timestamp"`
	Description string             `json:"description"`
	MealType    string             `json:"meal_type"`
	Source      string             `json:"source"`
	Calories    float64            `json:"calories"`
	Protein     float64            `json:"protein"`
	Carbs       float64            `json:"carbs"`
	Fat         float64            `json:"fat"`
	Fiber       float64            `json:"fiber"`
	Ingredients []types.Ingredient `json:"ingredients"`
}

func toMealJSON(m types.MealRecord) mealJSON {
	ingredients := m.Ingredients
	if ingredients == nil {
		ingredients = []types.Ingredient{}
	}
	return mealJSON{
		MealID:      int64(m.ID),
		Date:        m.Date,
		Timestamp:   m.Timestamp.Format(time.RFC3339Nano),
		Description: m.Description,
		MealType:    m.MealType,
		Source:      string(m.Source),
		Calories:    m.Nutrition.Calories,
		Protein:     m.Nutrition.Protein,
		Carbs:       m.Nutrition.Carbs,
		Fat:         m.Nutrition.Fat,
		Fiber:       m.Nutrition.Fiber,
		Ingredients: ingredients,
	}
}

// args returns the column values in mealColumns order.
func (j mealJSON) args() ([]any, error) {
	ing, err := json.Marshal(j.Ingredients)
	if err != nil {
		return nil, fmt.Errorf("marshal ingredients: %w", err)
	}
	return []any{
		j.MealID, j.Date, j.Timestamp, j.Description, j.MealType, j.Source,
		j.Calories, j.Protein, j.Carbs, j.Fat, j.Fiber, string(ing),
	}, nil
}
