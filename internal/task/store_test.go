package task

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fynch/toast-export-api/internal/domain"
)

func testRequest(t *testing.T) domain.ExportRequest {
	t.Helper()
	rng, err := domain.NewDateRange("2024-03-01", "2024-03-02")
	require.NoError(t, err)
	return domain.ExportRequest{
		Kind:           domain.ExportKindOrders,
		Range:          rng,
		LocationIndex:  1,
		RestaurantGUID: "guid-1",
		Delivery:       domain.DeliveryTarget{Mode: domain.DeliveryModeSkip},
	}
}

func TestStoreCreateAndGet(t *testing.T) {
	store := NewStore()
	id := store.Create(testRequest(t))

	rec, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, StateQueued, rec.State)
	assert.Equal(t, 1, rec.Request.LocationIndex)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Nil(t, rec.StartedAt)
	assert.Nil(t, rec.FinishedAt)
	assert.Nil(t, rec.Result)
	assert.Nil(t, rec.Error)
	assert.Empty(t, rec.LogLines)
}

func TestStoreGetUnknownID(t *testing.T) {
	store := NewStore()

	_, err := store.Get(uuid.New())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestStoreDistinctIDs(t *testing.T) {
	store := NewStore()

	seen := make(map[uuid.UUID]bool)
	for i := 0; i < 100; i++ {
		id := store.Create(testRequest(t))
		assert.False(t, seen[id], "id %s issued twice", id)
		seen[id] = true
	}
}

func TestStoreTransitionLifecycle(t *testing.T) {
	store := NewStore()
	id := store.Create(testRequest(t))

	require.NoError(t, store.Transition(id, StateRunning, Outcome{}))
	rec, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, rec.State)
	require.NotNil(t, rec.StartedAt)
	assert.Nil(t, rec.FinishedAt)

	result := &Result{RecordCount: 12, PayloadBytes: 2048, DeliveryAttempts: 1}
	require.NoError(t, store.Transition(id, StateSucceeded, Outcome{Result: result}))
	rec, err = store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, rec.State)
	require.NotNil(t, rec.FinishedAt)
	require.NotNil(t, rec.Result)
	assert.Equal(t, 12, rec.Result.RecordCount)
	assert.Nil(t, rec.Error)
}

func TestStoreTransitionToFailed(t *testing.T) {
	store := NewStore()
	id := store.Create(testRequest(t))

	require.NoError(t, store.Transition(id, StateRunning, Outcome{}))
	taskErr := &Error{Kind: "fetch_auth", Message: "authentication failed"}
	require.NoError(t, store.Transition(id, StateFailed, Outcome{Error: taskErr}))

	rec, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, rec.State)
	require.NotNil(t, rec.Error)
	assert.Equal(t, "fetch_auth", rec.Error.Kind)
	assert.Nil(t, rec.Result)
}

func TestStoreInvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		steps []State
		bad   State
	}{
		{name: "queued to succeeded", steps: nil, bad: StateSucceeded},
		{name: "queued to failed", steps: nil, bad: StateFailed},
		{name: "queued to queued", steps: nil, bad: StateQueued},
		{name: "running to running", steps: []State{StateRunning}, bad: StateRunning},
		{
			name:  "succeeded is terminal",
			steps: []State{StateRunning, StateSucceeded},
			bad:   StateRunning,
		},
		{
			name:  "failed is terminal",
			steps: []State{StateRunning, StateFailed},
			bad:   StateRunning,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := NewStore()
			id := store.Create(testRequest(t))
			for _, next := range tc.steps {
				require.NoError(t, store.Transition(id, next, Outcome{
					Result: &Result{},
					Error:  &Error{},
				}))
			}

			err := store.Transition(id, tc.bad, Outcome{})
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestStoreTransitionUnknownID(t *testing.T) {
	store := NewStore()

	err := store.Transition(uuid.New(), StateRunning, Outcome{})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestStoreAppendLogPreservesOrder(t *testing.T) {
	store := NewStore()
	id := store.Create(testRequest(t))

	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendLog(id, slog.LevelInfo, fmt.Sprintf("line %d", i)))
	}

	rec, err := store.Get(id)
	require.NoError(t, err)
	require.Len(t, rec.LogLines, 5)
	for i, line := range rec.LogLines {
		assert.Equal(t, fmt.Sprintf("line %d", i), line.Message)
		if i > 0 {
			assert.False(t, line.Time.Before(rec.LogLines[i-1].Time))
		}
	}
}

func TestStoreLogFrozenAfterTerminalState(t *testing.T) {
	store := NewStore()
	id := store.Create(testRequest(t))

	require.NoError(t, store.AppendLog(id, slog.LevelInfo, "before"))
	require.NoError(t, store.Transition(id, StateRunning, Outcome{}))
	require.NoError(t, store.Transition(id, StateSucceeded, Outcome{Result: &Result{}}))

	err := store.AppendLog(id, slog.LevelInfo, "after")
	assert.ErrorIs(t, err, ErrRecordFrozen)

	rec, err := store.Get(id)
	require.NoError(t, err)
	require.Len(t, rec.LogLines, 1)
	assert.Equal(t, "before", rec.LogLines[0].Message)
}

func TestStoreSnapshotIsolation(t *testing.T) {
	store := NewStore()
	id := store.Create(testRequest(t))
	require.NoError(t, store.AppendLog(id, slog.LevelInfo, "first"))

	snap, err := store.Get(id)
	require.NoError(t, err)

	// Later appends must not leak into snapshots taken earlier.
	require.NoError(t, store.AppendLog(id, slog.LevelInfo, "second"))
	assert.Len(t, snap.LogLines, 1)

	// Mutating the snapshot must not affect the stored record.
	snap.LogLines[0].Message = "tampered"
	fresh, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "first", fresh.LogLines[0].Message)
}

func TestStoreConcurrentTasks(t *testing.T) {
	store := NewStore()

	const workers = 16
	ids := make([]uuid.UUID, workers)
	for i := range ids {
		ids[i] = store.Create(testRequest(t))
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			assert.NoError(t, store.Transition(id, StateRunning, Outcome{}))
			for j := 0; j < 20; j++ {
				assert.NoError(t, store.AppendLog(id, slog.LevelInfo, "working"))
			}
			assert.NoError(t, store.Transition(id, StateSucceeded, Outcome{
				Result: &Result{RecordCount: 20},
			}))
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		rec, err := store.Get(id)
		require.NoError(t, err)
		assert.Equal(t, StateSucceeded, rec.State)
		assert.Len(t, rec.LogLines, 20)
	}
}

func TestStoreCountByState(t *testing.T) {
	store := NewStore()

	counts := store.CountByState()
	assert.Equal(t, map[State]int{
		StateQueued:    0,
		StateRunning:   0,
		StateSucceeded: 0,
		StateFailed:    0,
	}, counts)

	store.Create(testRequest(t))
	running := store.Create(testRequest(t))
	require.NoError(t, store.Transition(running, StateRunning, Outcome{}))
	done := store.Create(testRequest(t))
	require.NoError(t, store.Transition(done, StateRunning, Outcome{}))
	require.NoError(t, store.Transition(done, StateSucceeded, Outcome{Result: &Result{}}))

	counts = store.CountByState()
	assert.Equal(t, 1, counts[StateQueued])
	assert.Equal(t, 1, counts[StateRunning])
	assert.Equal(t, 1, counts[StateSucceeded])
	assert.Equal(t, 0, counts[StateFailed])
}

func TestStateTerminal(t *testing.T) {
	assert.False(t, StateQueued.Terminal())
	assert.False(t, StateRunning.Terminal())
	assert.True(t, StateSucceeded.Terminal())
	assert.True(t, StateFailed.Terminal())
}

func TestStoreTimestampsAreUTC(t *testing.T) {
	store := NewStore()
	id := store.Create(testRequest(t))
	require.NoError(t, store.Transition(id, StateRunning, Outcome{}))

	rec, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())
	assert.Equal(t, time.UTC, rec.StartedAt.Location())
}
