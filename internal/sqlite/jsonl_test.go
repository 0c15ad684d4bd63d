// Tests for meals.jsonl persistence.
package sqlite

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mesh-intelligence/mealbook/pkg/types"
)

func TestJSONLFileInitializedEmpty(t *testing.T) {
	_, dir := setupBackend(t)

	info, err := os.Stat(filepath.Join(dir, mealsFile))
	if err != nil {
		t.Fatalf("failed to stat %s: %v", mealsFile, err)
	}
	if info.Size() != 0 {
		t.Errorf("expected empty file, got %d bytes", info.Size())
	}
}

func TestJSONLExistingFileKept(t *testing.T) {
	dir := t.TempDir()
	line := `{"meal_id":7,"date":"2025-12-03","timestamp":"2025-12-03T08:00:00Z","description":"kept"}` + "\n"
	path := filepath.Join(dir, mealsFile)
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := initJSONLFile(dir); err != nil {
		t.Fatalf("initJSONLFile failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != line {
		t.Errorf("initJSONLFile rewrote an existing file: %q", data)
	}
}

func TestMealPersistedToJSONL(t *testing.T) {
	b, dir := setupBackend(t)
	ctx := context.Background()

	if err := b.AddMeal(ctx, meal(42, "2025-12-03", 8, "Oatmeal")); err != nil {
		t.Fatalf("AddMeal failed: %v", err)
	}

	records, err := readJSONL(filepath.Join(dir, mealsFile))
	if err != nil {
		t.Fatalf("readJSONL failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	var got mealJSON
	if err := json.Unmarshal(records[0], &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.MealID != 42 || got.Date != "2025-12-03" || got.Description != "Oatmeal" {
		t.Errorf("unexpected record: %+v", got)
	}
	if len(got.Ingredients) != 1 || got.Ingredients[0].Name != "Oats" {
		t.Errorf("ingredients not persisted: %+v", got.Ingredients)
	}

	if err := b.DeleteMeal(ctx, 42); err != nil {
		t.Fatalf("DeleteMeal failed: %v", err)
	}
	records, _ = readJSONL(filepath.Join(dir, mealsFile))
	if len(records) != 0 {
		t.Errorf("expected delete to be persisted, got %d records", len(records))
	}
}

func TestJSONLNotPrettyPrinted(t *testing.T) {
	b, dir := setupBackend(t)
	ctx := context.Background()
	for i, desc := range []string{"a", "b", "c"} {
		if err := b.AddMeal(ctx, meal(types.MealID(i+1), "2025-12-03", 8+i, desc)); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, mealsFile))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected one line per meal, got %d lines", len(lines))
	}
	for _, l := range lines {
		if !json.Valid([]byte(l)) {
			t.Errorf("line is not a JSON object: %q", l)
		}
	}
}

func TestReadJSONLSkipsEmptyAndMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.jsonl")
	content := "{\"a\":1}\n\n{broken\n{\"b\":2}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	records, err := readJSONL(path)
	if err != nil {
		t.Fatalf("readJSONL failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}

func TestWriteJSONLReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.jsonl")
	if err := os.WriteFile(path, []byte("{\"old\":true}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	records := []json.RawMessage{json.RawMessage(`{"x":1}`), json.RawMessage(`{"x":2}`)}
	if err := writeJSONL(path, records); err != nil {
		t.Fatalf("writeJSONL failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "{\"x\":1}\n{\"x\":2}\n" {
		t.Errorf("unexpected content: %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}
