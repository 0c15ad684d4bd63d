// Meal store operations for the SQLite backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mesh-intelligence/mealbook/pkg/types"
)

// selectMeals reads every column with NULLs folded to zero values.
const selectMeals = `SELECT meal_id, date, timestamp,
    COALESCE(description, ''), COALESCE(meal_type, ''), COALESCE(source, ''),
    COALESCE(calories, 0), COALESCE(protein, 0), COALESCE(carbs, 0),
    COALESCE(fat, 0), COALESCE(fiber, 0), COALESCE(ingredients, '')
FROM meals`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetMealsByDate returns the records for date in insertion order.
func (b *Backend) GetMealsByDate(ctx context.Context, date string) ([]types.MealRecord, error) {
	if _, err := types.ParseDate(date); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	rows, err := b.db.QueryContext(ctx, selectMeals+" WHERE date = ? ORDER BY seq", date)
	if err != nil {
		return nil, fmt.Errorf("querying meals for %s: %w", date, err)
	}
	defer rows.Close()

	meals := []types.MealRecord{}
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

// MealsBetween loads every date in [start, end]. Either bound may be empty.
func (b *Backend) MealsBetween(ctx context.Context, start, end string) (types.MealsByDate, error) {
	var conditions []string
	var args []any
	if start != "" {
		if _, err := types.ParseDate(start); err != nil {
			return nil, err
		}
		conditions = append(conditions, "date >= ?")
		args = append(args, start)
	}
	if end != "" {
		if _, err := types.ParseDate(end); err != nil {
			return nil, err
		}
		conditions = append(conditions, "date <= ?")
		args = append(args, end)
	}
	if start != "" && end != "" && start > end {
		return nil, types.ErrInvalidRange
	}

	query := selectMeals
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date, seq"

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying meals: %w", err)
	}
	defer rows.Close()

	out := types.MealsByDate{}
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		out[m.Date] = append(out[m.Date], m)
	}
	return out, rows.Err()
}

// AddMeal inserts a record that already carries its ID.
// Returns ErrDuplicateID if the ID is taken.
func (b *Backend) AddMeal(ctx context.Context, rec types.MealRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	if err := insertMeal(ctx, b.db, rec); err != nil {
		return err
	}
	return b.persistJSONLLocked(ctx)
}

// DeleteMeal removes a record. Returns ErrNotFound if the ID is unknown.
func (b *Backend) DeleteMeal(ctx context.Context, id types.MealID) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	if err := deleteMeal(ctx, b.db, id); err != nil {
		return err
	}
	return b.persistJSONLLocked(ctx)
}

// ReplaceMeals deletes deleteIDs and inserts add in a single transaction,
// then rewrites meals.jsonl once. Either every change lands or none does.
func (b *Backend) ReplaceMeals(ctx context.Context, deleteIDs []types.MealID, add []types.MealRecord) error {
	for _, rec := range add {
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("meal %d: %w", rec.ID, err)
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range deleteIDs {
		if err := deleteMeal(ctx, tx, id); err != nil {
			return fmt.Errorf("meal %d: %w", id, err)
		}
	}
	for _, rec := range add {
		if err := insertMeal(ctx, tx, rec); err != nil {
			return fmt.Errorf("meal %d: %w", rec.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing replace: %w", err)
	}
	return b.persistJSONLLocked(ctx)
}

// MaxID returns the largest meal ID. ok is false for an empty store.
func (b *Backend) MaxID(ctx context.Context) (types.MealID, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return 0, false, types.ErrStoreDetached
	}

	var maxID sql.NullInt64
	if err := b.db.QueryRowContext(ctx, "SELECT MAX(meal_id) FROM meals").Scan(&maxID); err != nil {
		return 0, false, fmt.Errorf("querying max id: %w", err)
	}
	if !maxID.Valid {
		return 0, false, nil
	}
	return types.MealID(maxID.Int64), true, nil
}

func insertMeal(ctx context.Context, db execer, rec types.MealRecord) error {
	var exists int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM meals WHERE meal_id = ?", int64(rec.ID)).Scan(&exists)
	if err == nil {
		return types.ErrDuplicateID
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking meal existence: %w", err)
	}

	args, err := toMealJSON(rec).args()
	if err != nil {
		return err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(mealColumns)), ", ")
	_, err = db.ExecContext(ctx,
		"INSERT INTO meals ("+strings.Join(mealColumns, ", ")+") VALUES ("+placeholders+")",
		args...)
	if err != nil {
		return fmt.Errorf("inserting meal: %w", err)
	}
	return nil
}

func deleteMeal(ctx context.Context, db execer, id types.MealID) error {
	res, err := db.ExecContext(ctx, "DELETE FROM meals WHERE meal_id = ?", int64(id))
	if err != nil {
		return fmt.Errorf("deleting meal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting meal: %w", err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeal(row rowScanner) (types.MealRecord, error) {
	var (
		m           types.MealRecord
		id          int64
		ts          string
		source      string
		ingredients string
	)
	err := row.Scan(&id, &m.Date, &ts, &m.Description, &m.MealType, &source,
		&m.Nutrition.Calories, &m.Nutrition.Protein, &m.Nutrition.Carbs,
		&m.Nutrition.Fat, &m.Nutrition.Fiber, &ingredients)
	if err != nil {
		return m, fmt.Errorf("scanning meal: %w", err)
	}
	m.ID = types.MealID(id)
	m.Source = types.Source(source)
	m.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return m, fmt.Errorf("parsing timestamp of meal %d: %w", id, err)
	}
	m.Ingredients = []types.Ingredient{}
	if ingredients != "" {
		if err := json.Unmarshal([]byte(ingredients), &m.Ingredients); err != nil {
			return m, fmt.Errorf("parsing ingredients of meal %d: %w", id, err)
		}
	}
	return m, nil
}

// persistJSONLLocked rewrites meals.jsonl from the meals table in insertion
// order. The caller must hold b.mu for writing.
func (b *Backend) persistJSONLLocked(ctx context.Context) error {
	rows, err := b.db.QueryContext(ctx, selectMeals+" ORDER BY seq")
	if err != nil {
		return fmt.Errorf("querying meals for persist: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return err
		}
		line, err := json.Marshal(toMealJSON(m))
		if err != nil {
			return fmt.Errorf("marshal meal %d: %w", m.ID, err)
		}
		records = append(records, line)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if err := writeJSONL(filepath.Join(b.config.DataDir, mealsFile), records); err != nil {
		return fmt.Errorf("persisting %s: %w", mealsFile, err)
	}
	return nil
}
