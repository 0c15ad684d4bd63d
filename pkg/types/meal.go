package types

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// MealID identifies a meal record across the whole store.
// Zero means "not yet assigned"; the allocator replaces it on persistence.
type MealID int64

// UnmarshalJSON accepts integral JSON numbers and integral numeric strings.
// Anything else (fractional browser ids such as Date.now()+Math.random(),
// or free-form strings) decodes to the zero MealID rather than failing, so
// collections produced by other clients can still be exported or imported.
func (id *MealID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = 0
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			*id = 0
			return nil
		}
		s = unq
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*id = MealID(n)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		*id = 0
		return nil
	}
	*id = MealID(f)
	return nil
}

// Source describes where a meal record came from. It is only used for
// display labeling.
type Source string

// Known sources. Callers may supply other values.
const (
	SourceIngredients Source = "ingredients"
	SourceDatabase    Source = "database"
	SourceManual      Source = "manual"
	SourceCopy        Source = "copy"
)

// Nutrition holds the five tracked nutrients for one meal.
// A missing field in JSON input is zero.
type Nutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
}

// Validate returns ErrInvalidData if any nutrient is negative or NaN.
func (n Nutrition) Validate() error {
	for _, v := range []float64{n.Calories, n.Protein, n.Carbs, n.Fat, n.Fiber} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidData
		}
	}
	return nil
}

// Ingredient is one line of a recipe-style meal. Text holds a free-form
// ingredient line from clients that send plain strings; when set, the other
// fields are unused.
type Ingredient struct {
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`
	Measurement string  `json:"measurement"`
	Text        string  `json:"-"`
}

type ingredientJSON Ingredient

// MarshalJSON writes a free-form ingredient back as a plain string.
func (ing Ingredient) MarshalJSON() ([]byte, error) {
	if ing.Text != "" {
		return json.Marshal(ing.Text)
	}
	return json.Marshal(ingredientJSON(ing))
}

// UnmarshalJSON accepts either an ingredient object or a plain string.
func (ing *Ingredient) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var text string
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
		*ing = Ingredient{Text: text}
		return nil
	}
	var aux ingredientJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*ing = Ingredient(aux)
	return nil
}

// MealRecord is a single diary entry.
type MealRecord struct {
	ID          MealID       `json:"id"`
	Date        string       `json:"date,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
	Description string       `json:"description"`
	MealType    string       `json:"mealType,omitempty"`
	Nutrition   Nutrition    `json:"nutrition"`
	Source      Source       `json:"source,omitempty"`
	Ingredients []Ingredient `json:"ingredients"`

	// LegacyID keeps the raw JSON id of a record whose id did not decode to
	// a MealID, such as "test-meal-2" or 1733300000123.456. It is written
	// back unchanged while ID stays zero.
	LegacyID json.RawMessage `json:"-"`
}

type mealRecordJSON MealRecord

// MarshalJSON writes LegacyID in place of a zero ID.
func (m MealRecord) MarshalJSON() ([]byte, error) {
	if m.ID != 0 || len(m.LegacyID) == 0 {
		return json.Marshal(mealRecordJSON(m))
	}
	return json.Marshal(struct {
		ID json.RawMessage `json:"id"`
		mealRecordJSON
	}{ID: m.LegacyID, mealRecordJSON: mealRecordJSON(m)})
}

// UnmarshalJSON decodes a record leniently. Ids that are not integral keep
// their raw text in LegacyID. Ingredients may be a list or a single free-form
// string, which becomes one Text ingredient.
func (m *MealRecord) UnmarshalJSON(b []byte) error {
	var aux struct {
		ID          json.RawMessage `json:"id"`
		Ingredients json.RawMessage `json:"ingredients"`
		mealRecordJSON
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	rec := MealRecord(aux.mealRecordJSON)
	rec.LegacyID = nil

	raw := bytes.TrimSpace(aux.ID)
	if err := rec.ID.UnmarshalJSON(raw); err != nil {
		return err
	}
	if rec.ID == 0 && len(raw) > 0 && !bytes.Equal(raw, []byte("null")) && !bytes.Equal(raw, []byte("0")) {
		rec.LegacyID = append(json.RawMessage(nil), raw...)
	}

	ings, err := decodeIngredients(aux.Ingredients)
	if err != nil {
		return err
	}
	rec.Ingredients = ings
	*m = rec
	return nil
}

func decodeIngredients(raw json.RawMessage) ([]Ingredient, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return nil, nil
	case raw[0] == '"':
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, err
		}
		if text == "" {
			return []Ingredient{}, nil
		}
		return []Ingredient{{Text: text}}, nil
	}
	var ings []Ingredient
	if err := json.Unmarshal(raw, &ings); err != nil {
		return nil, err
	}
	return ings, nil
}

// Clone returns a deep copy of the record.
func (m MealRecord) Clone() MealRecord {
	c := m
	if m.Ingredients != nil {
		c.Ingredients = make([]Ingredient, len(m.Ingredients))
		copy(c.Ingredients, m.Ingredients)
	}
	if m.LegacyID != nil {
		c.LegacyID = append(json.RawMessage(nil), m.LegacyID...)
	}
	return c
}

// Validate checks the fields a store needs before persisting the record.
func (m MealRecord) Validate() error {
	if m.ID <= 0 {
		return ErrInvalidID
	}
	if _, err := ParseDate(m.Date); err != nil {
		return err
	}
	return m.Nutrition.Validate()
}
