// Package ids allocates collision-free meal identifiers for records that are
// created, copied, or migrated.
//
// Two strategies exist. Sequential continues from the store's maximum
// identifier. TimeDerived issues snowflake identifiers for offline runs that
// have no authoritative maximum. Both guarantee that every identifier an
// allocator returns is strictly greater than the one before it.
package ids

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/mealbook/pkg/types"
)

// Strategy names accepted by configuration.
const (
	StrategySequential = "sequential"
	StrategySnowflake  = "snowflake"
)

// ErrUnknownStrategy is returned for an unrecognized ids.strategy value.
var ErrUnknownStrategy = errors.New("unknown id strategy")

// ErrInvalidCount is returned when a negative batch size is requested.
var ErrInvalidCount = errors.New("allocation count must not be negative")

// Allocator hands out batches of strictly increasing identifiers.
type Allocator interface {
	Allocate(n int) ([]types.MealID, error)
}

// Sequential increments by one from a starting identifier.
type Sequential struct {
	mu   sync.Mutex
	next types.MealID
}

// NewSequential returns an allocator whose first identifier is next.
// Values below 1 are raised to 1.
func NewSequential(next types.MealID) *Sequential {
	if next < 1 {
		next = 1
	}
	return &Sequential{next: next}
}

// Allocate implements Allocator.
func (s *Sequential) Allocate(n int) ([]types.MealID, error) {
	if n < 0 {
		return nil, ErrInvalidCount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.MealID, n)
	for i := range out {
		out[i] = s.next
		s.next++
	}
	return out, nil
}

// TimeDerived issues snowflake identifiers: millisecond timestamp, node and
// per-millisecond step packed into an int64.
type TimeDerived struct {
	mu   sync.Mutex
	node *snowflake.Node
	last types.MealID
}

// NewTimeDerived creates a snowflake allocator for the given node (0-1023).
func NewTimeDerived(node int64) (*TimeDerived, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", node, err)
	}
	return &TimeDerived{node: n}, nil
}

// Allocate implements Allocator. If the wall clock steps backwards the
// identifiers keep increasing from the last one issued.
func (a *TimeDerived) Allocate(n int) ([]types.MealID, error) {
	if n < 0 {
		return nil, ErrInvalidCount
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]types.MealID, n)
	for i := range out {
		id := types.MealID(a.node.Generate().Int64())
		if id <= a.last {
			id = a.last + 1
		}
		a.last = id
		out[i] = id
	}
	return out, nil
}

// Policy picks the allocator for each store-backed batch.
type Policy struct {
	Strategy string
	Fallback Allocator
}

// NewPolicy builds a Policy for a configured strategy. Both strategies need
// a time-derived allocator: snowflake always uses it, sequential falls back
// to it when the store is empty.
func NewPolicy(strategy string, node int64) (*Policy, error) {
	switch strategy {
	case "":
		strategy = StrategySequential
	case StrategySequential, StrategySnowflake:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
	td, err := NewTimeDerived(node)
	if err != nil {
		return nil, err
	}
	return &Policy{Strategy: strategy, Fallback: td}, nil
}

// For returns the allocator to use against q for one batch.
func (p *Policy) For(ctx context.Context, q types.MaxIDQuerier, log *zap.Logger) Allocator {
	if p.Strategy == StrategySnowflake {
		return p.Fallback
	}
	return ForStore(ctx, q, p.Fallback, log)
}

// ForStore returns a Sequential allocator seeded from the store's maximum
// identifier. When the store is empty or cannot report a maximum, fallback
// is returned instead and the reason is logged.
func ForStore(ctx context.Context, q types.MaxIDQuerier, fallback Allocator, log *zap.Logger) Allocator {
	maxID, ok, err := q.MaxID(ctx)
	switch {
	case err != nil:
		log.Warn("max id query failed, using time-derived ids", zap.Error(err))
		return fallback
	case !ok:
		log.Debug("store is empty, using time-derived ids")
		return fallback
	default:
		return NewSequential(maxID + 1)
	}
}
