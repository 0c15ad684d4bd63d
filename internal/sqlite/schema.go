// Package sqlite implements the SQLite-backed meal store.
// SQLite is the query engine; meals.jsonl in the data directory is the
// source of truth and is rebuilt into a fresh database on every Attach.
package sqlite

// Schema DDL. seq preserves insertion order, which is display order within
// a date.
const (
	createMeals = `CREATE TABLE meals (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    meal_id INTEGER NOT NULL UNIQUE,
    date TEXT NOT NULL,
    timestamp TEXT NOT NULL,
    description TEXT,
    meal_type TEXT,
    source TEXT,
    calories REAL,
    protein REAL,
    carbs REAL,
    fat REAL,
    fiber REAL,
    ingredients TEXT
);`
)

// Index DDL for common queries.
const (
	idxMealsDate = `CREATE INDEX idx_meals_date ON meals(date, seq);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createMeals,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxMealsDate,
}

// mealColumns is the column list shared by selects, inserts and the JSONL
// loader. Order matches mealJSON and scanMeal.
var mealColumns = []string{
	"meal_id", "date", "timestamp", "description", "meal_type", "source",
	"calories", "protein", "carbs", "fat", "fiber", "ingredients",
}
