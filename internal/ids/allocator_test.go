package ids

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mesh-intelligence/mealbook/pkg/types"
)

// fakeMax is a MaxIDQuerier with a canned answer.
type fakeMax struct {
	id  types.MealID
	ok  bool
	err error
}

func (f fakeMax) MaxID(context.Context) (types.MealID, bool, error) { return f.id, f.ok, f.err }

func assertStrictlyIncreasing(t *testing.T, got []types.MealID) {
	t.Helper()
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i], got[i-1], "id %d not greater than id %d", i, i-1)
	}
}

func TestSequentialAllocate(t *testing.T) {
	s := NewSequential(10)

	first, err := s.Allocate(3)
	require.NoError(t, err)
	assert.Equal(t, []types.MealID{10, 11, 12}, first)

	second, err := s.Allocate(2)
	require.NoError(t, err)
	assert.Equal(t, []types.MealID{13, 14}, second, "batches continue without reuse")

	empty, err := s.Allocate(0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = s.Allocate(-1)
	assert.ErrorIs(t, err, ErrInvalidCount)
}

func TestSequentialClampsStart(t *testing.T) {
	got, err := NewSequential(0).Allocate(1)
	require.NoError(t, err)
	assert.Equal(t, []types.MealID{1}, got)
}

func TestTimeDerivedAllocate(t *testing.T) {
	a, err := NewTimeDerived(1)
	require.NoError(t, err)

	got, err := a.Allocate(5000)
	require.NoError(t, err)
	require.Len(t, got, 5000)
	assertStrictlyIncreasing(t, got)

	more, err := a.Allocate(10)
	require.NoError(t, err)
	assert.Greater(t, more[0], got[len(got)-1])
}

func TestTimeDerivedClockStepBack(t *testing.T) {
	a, err := NewTimeDerived(1)
	require.NoError(t, err)
	a.last = types.MealID(1) << 62

	got, err := a.Allocate(2)
	require.NoError(t, err)
	assert.Equal(t, []types.MealID{a.last - 1, a.last}, got)
}

func TestNewTimeDerivedRejectsBadNode(t *testing.T) {
	_, err := NewTimeDerived(5000)
	assert.Error(t, err)
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy("", 0)
	require.NoError(t, err)
	assert.Equal(t, StrategySequential, p.Strategy)

	_, err = NewPolicy("uuid", 0)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestPolicyFor(t *testing.T) {
	log := zaptest.NewLogger(t)
	ctx := context.Background()

	t.Run("sequential seeds from store max", func(t *testing.T) {
		p, err := NewPolicy(StrategySequential, 0)
		require.NoError(t, err)

		got, err := p.For(ctx, fakeMax{id: 41, ok: true}, log).Allocate(2)
		require.NoError(t, err)
		assert.Equal(t, []types.MealID{42, 43}, got)
	})

	t.Run("sequential falls back on empty store", func(t *testing.T) {
		p, err := NewPolicy(StrategySequential, 0)
		require.NoError(t, err)
		assert.Same(t, p.Fallback, p.For(ctx, fakeMax{}, log))
	})

	t.Run("sequential falls back on query failure", func(t *testing.T) {
		p, err := NewPolicy(StrategySequential, 0)
		require.NoError(t, err)
		assert.Same(t, p.Fallback, p.For(ctx, fakeMax{err: errors.New("locked")}, log))
	})

	t.Run("snowflake ignores store max", func(t *testing.T) {
		p, err := NewPolicy(StrategySnowflake, 0)
		require.NoError(t, err)
		assert.Same(t, p.Fallback, p.For(ctx, fakeMax{id: 41, ok: true}, log))
	})
}

func TestOperationID(t *testing.T) {
	a, b := OperationID(), OperationID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b, "v7 ids sort by creation time")
}
