package diary

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/mealbook/internal/ids"
	"github.com/mesh-intelligence/mealbook/pkg/types"
)

// MigrateResult reports a store-backed migration.
type MigrateResult struct {
	OperationID string         `json:"operationId"`
	SourceDate  string         `json:"sourceDate"`
	TargetDate  string         `json:"targetDate"`
	Migrated    int            `json:"migrated"`
	Written     int            `json:"written"`
	Removed     int            `json:"removed"`
	Atomic      bool           `json:"atomic"`
	IDs         []types.MealID `json:"ids"`
}

// Partial reports whether some records were written to the target but the
// source was not fully removed. A partial migration must not be re-run
// blindly: the source may still hold records already copied to the target.
func (r MigrateResult) Partial() bool {
	return r.Written > 0 && r.Removed < r.Written
}

// CopyResult reports a store-backed copy.
type CopyResult struct {
	OperationID string         `json:"operationId"`
	SourceDate  string         `json:"sourceDate"`
	TargetDate  string         `json:"targetDate"`
	Copied      int            `json:"copied"`
	IDs         []types.MealID `json:"ids"`
}

// RecordFailure is a per-record store failure that did not stop the batch.
type RecordFailure struct {
	ID    types.MealID `json:"id"`
	Error string       `json:"error"`
	Err   error        `json:"-"`
}

// ClearResult reports a store-backed clear.
type ClearResult struct {
	OperationID string          `json:"operationId"`
	Date        string          `json:"date"`
	Deleted     int             `json:"deleted"`
	Failures    []RecordFailure `json:"failures,omitempty"`
}

// Partial reports whether some deletions failed.
func (r ClearResult) Partial() bool { return len(r.Failures) > 0 }

// Service runs migrate, copy and clear against a Store. Mutations are
// serialized per date key; operations on unrelated dates run concurrently.
type Service struct {
	store  types.Store
	policy *ids.Policy
	log    *zap.Logger
	now    func() time.Time
	locks  *dateLocks

	// allocMu is held from the max-id query until the batch is written.
	allocMu sync.Mutex
}

// NewService wires a Service. A nil logger discards output.
func NewService(store types.Store, policy *ids.Policy, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:  store,
		policy: policy,
		log:    log,
		now:    time.Now,
		locks:  newDateLocks(),
	}
}

// Migrate moves every record under source to target through the store.
//
// When the store implements types.BatchStore, the new records and the
// source deletions are written in one atomic batch. Otherwise records are
// added one at a time and then the source ids are deleted one at a time;
// the first failure aborts the rest and is returned as a *types.StoreError.
// Nothing already written is rolled back, so the result's Written and
// Removed counts tell the caller what landed.
func (s *Service) Migrate(ctx context.Context, source, target string) (MigrateResult, error) {
	res := MigrateResult{OperationID: ids.OperationID(), SourceDate: source, TargetDate: target}
	if err := checkDates(source, target); err != nil {
		return res, err
	}
	unlock := s.locks.lock(source, target)
	defer unlock()

	log := s.log.With(zap.String("op", "migrate"), zap.String("operation_id", res.OperationID),
		zap.String("source", source), zap.String("target", target))

	records, err := s.store.GetMealsByDate(ctx, source)
	if err != nil {
		return res, &types.StoreError{Op: "get", Err: err}
	}
	if len(records) == 0 {
		log.Info("no meals to migrate")
		return res, nil
	}

	s.allocMu.Lock()
	defer s.allocMu.Unlock()
	moved, err := migrateRecords(records, target, s.policy.For(ctx, s.store, log))
	if err != nil {
		return res, err
	}
	res.IDs = make([]types.MealID, len(moved))
	for i, m := range moved {
		res.IDs[i] = m.ID
	}

	if batch, ok := s.store.(types.BatchStore); ok {
		oldIDs := make([]types.MealID, len(records))
		for i, m := range records {
			oldIDs[i] = m.ID
		}
		if err := batch.ReplaceMeals(ctx, oldIDs, moved); err != nil {
			return res, &types.StoreError{Op: "replace", Err: err}
		}
		res.Atomic = true
		res.Written, res.Removed, res.Migrated = len(moved), len(records), len(moved)
		log.Info("migrated meals", zap.Int("count", res.Migrated), zap.Bool("atomic", true))
		return res, nil
	}

	for _, m := range moved {
		if err := s.store.AddMeal(ctx, m); err != nil {
			log.Error("migration aborted, target partially written",
				zap.Int64("meal_id", int64(m.ID)), zap.Int("written", res.Written), zap.Error(err))
			return res, &types.StoreError{Op: "add", ID: m.ID, Err: err}
		}
		res.Written++
	}
	for _, m := range records {
		if err := s.store.DeleteMeal(ctx, m.ID); err != nil {
			log.Error("migration aborted, source partially removed",
				zap.Int64("meal_id", int64(m.ID)), zap.Int("removed", res.Removed), zap.Error(err))
			return res, &types.StoreError{Op: "delete", ID: m.ID, Err: err}
		}
		res.Removed++
	}
	res.Migrated = len(moved)
	log.Info("migrated meals", zap.Int("count", res.Migrated), zap.Bool("atomic", false))
	return res, nil
}

// Copy duplicates every record under source into target with fresh ids and
// the invocation time as timestamp. The first failed add aborts the rest.
func (s *Service) Copy(ctx context.Context, source, target string) (CopyResult, error) {
	res := CopyResult{OperationID: ids.OperationID(), SourceDate: source, TargetDate: target}
	if err := checkDates(source, target); err != nil {
		return res, err
	}
	unlock := s.locks.lock(source, target)
	defer unlock()

	log := s.log.With(zap.String("op", "copy"), zap.String("operation_id", res.OperationID),
		zap.String("source", source), zap.String("target", target))

	records, err := s.store.GetMealsByDate(ctx, source)
	if err != nil {
		return res, &types.StoreError{Op: "get", Err: err}
	}
	if len(records) == 0 {
		log.Info("no meals to copy")
		return res, nil
	}

	s.allocMu.Lock()
	defer s.allocMu.Unlock()
	copied, err := copyRecords(records, target, s.policy.For(ctx, s.store, log), s.now())
	if err != nil {
		return res, err
	}
	for _, m := range copied {
		if err := s.store.AddMeal(ctx, m); err != nil {
			log.Error("copy aborted", zap.Int64("meal_id", int64(m.ID)), zap.Int("copied", res.Copied), zap.Error(err))
			return res, &types.StoreError{Op: "add", ID: m.ID, Err: err}
		}
		res.Copied++
		res.IDs = append(res.IDs, m.ID)
	}
	log.Info("copied meals", zap.Int("count", res.Copied))
	return res, nil
}

// Clear deletes every record under date, one id at a time. A failed delete
// is recorded in Failures and the clear continues with the next record.
func (s *Service) Clear(ctx context.Context, date string) (ClearResult, error) {
	res := ClearResult{OperationID: ids.OperationID(), Date: date}
	if _, err := types.ParseDate(date); err != nil {
		return res, err
	}
	unlock := s.locks.lock(date)
	defer unlock()

	log := s.log.With(zap.String("op", "clear"), zap.String("operation_id", res.OperationID), zap.String("date", date))

	records, err := s.store.GetMealsByDate(ctx, date)
	if err != nil {
		return res, &types.StoreError{Op: "get", Err: err}
	}
	for _, m := range records {
		if err := s.store.DeleteMeal(ctx, m.ID); err != nil {
			log.Warn("delete failed", zap.Int64("meal_id", int64(m.ID)), zap.Error(err))
			res.Failures = append(res.Failures, RecordFailure{ID: m.ID, Error: err.Error(), Err: err})
			continue
		}
		res.Deleted++
	}
	log.Info("cleared meals", zap.Int("deleted", res.Deleted), zap.Int("failed", len(res.Failures)))
	return res, nil
}

// Add persists new records, allocating ids for any that carry none.
// Records are filed under their own Date. The first failure aborts the rest.
func (s *Service) Add(ctx context.Context, records []types.MealRecord) ([]types.MealRecord, error) {
	var dates []string
	need := 0
	for _, m := range records {
		if _, err := types.ParseDate(m.Date); err != nil {
			return nil, err
		}
		if err := m.Nutrition.Validate(); err != nil {
			return nil, fmt.Errorf("meal %q: %w", m.Description, err)
		}
		dates = append(dates, m.Date)
		if m.ID == 0 {
			need++
		}
	}
	unlock := s.locks.lock(dates...)
	defer unlock()
	s.allocMu.Lock()
	defer s.allocMu.Unlock()

	fresh, err := s.policy.For(ctx, s.store, s.log).Allocate(need)
	if err != nil {
		return nil, fmt.Errorf("allocating ids: %w", err)
	}

	added := make([]types.MealRecord, 0, len(records))
	for _, rec := range records {
		m := rec.Clone()
		if m.ID == 0 {
			m.ID, m.LegacyID, fresh = fresh[0], nil, fresh[1:]
		}
		if m.Timestamp.IsZero() {
			m.Timestamp = s.now()
		}
		if m.Ingredients == nil {
			m.Ingredients = []types.Ingredient{}
		}
		if err := s.store.AddMeal(ctx, m); err != nil {
			return added, &types.StoreError{Op: "add", ID: m.ID, Err: err}
		}
		added = append(added, m)
	}
	s.log.Info("added meals", zap.Int("count", len(added)))
	return added, nil
}
