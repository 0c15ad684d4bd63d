// JSONL loading at Attach.
package sqlite

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// loadJSONL reads meals.jsonl and inserts its records into the meals table
// in file order, which restores insertion order. Loading is transactional:
// all records load or the table stays empty. Malformed lines and records
// that violate constraints (duplicate ids, missing dates) are skipped.
// Unknown fields are ignored.
func loadJSONL(db *sql.DB, dataDir string) (loaded int, err error) {
	records, err := readJSONL(filepath.Join(dataDir, mealsFile))
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	loaded, err = insertRecords(tx, "meals", mealColumns, records)
	if err != nil {
		return 0, fmt.Errorf("loading %s: %w", mealsFile, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing load transaction: %w", err)
	}
	return loaded, nil
}

// insertRecords inserts parsed JSONL records into a table, extracting only
// the listed columns. Numbers are decoded with UseNumber so snowflake-sized
// ids survive without float rounding.
func insertRecords(tx *sql.Tx, table string, columns []string, records []json.RawMessage) (int, error) {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		dec := json.NewDecoder(bytes.NewReader(rec))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			continue
		}

		args := make([]any, len(columns))
		for i, col := range columns {
			args[i] = columnValue(obj[col])
		}

		if _, err := stmt.Exec(args...); err != nil {
			continue
		}
		inserted++
	}
	return inserted, nil
}

// columnValue converts a decoded JSON value to a SQLite argument. Nested
// values (ingredient lists) are stored as JSON text.
func columnValue(val any) any {
	switch v := val.(type) {
	case nil:
		return nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return string(b)
	default:
		return v
	}
}
