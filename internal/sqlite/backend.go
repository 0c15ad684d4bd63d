package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/mealbook/pkg/types"
)

// dbFile is the SQLite file inside the data directory. It is disposable:
// Attach deletes and rebuilds it from meals.jsonl.
const dbFile = "mealbook.db"

// Compile-time interface checks.
var (
	_ types.Store       = (*Backend)(nil)
	_ types.BatchStore  = (*Backend)(nil)
	_ types.RangeReader = (*Backend)(nil)
)

// Backend is a meal store using SQLite as the query engine and meals.jsonl
// as the source of truth. Every successful write rewrites meals.jsonl
// atomically before returning.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
}

// NewBackend creates a detached backend. Call Attach before use.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach creates DataDir if needed, builds a fresh SQLite schema, and loads
// meals.jsonl into it. Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	dbPath := filepath.Join(dataDir, dbFile)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	// One connection: the backend lock already serializes writers.
	db.SetMaxOpenConns(1)

	ddl := strings.Join(append(append([]string{}, schemaDDL...), indexDDL...), "\n")
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return fmt.Errorf("create schema: %w", err)
	}

	if err := initJSONLFile(dataDir); err != nil {
		db.Close()
		return err
	}
	if _, err := loadJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	config.DataDir = dataDir
	b.db = db
	b.config = config
	b.attached = true
	return nil
}

// Detach closes the SQLite connection. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	return nil
}

// DataDir returns the directory holding meals.jsonl.
func (b *Backend) DataDir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.DataDir
}
