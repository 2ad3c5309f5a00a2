package execution_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aosanya/agentforge/internal/execution"
)

func TestReconcilerDeletesCorruptExecutions(t *testing.T) {
	store := newFakeStore()
	store.execs["corrupt-1"] = &execution.Execution{ID: "corrupt-1", StartTime: time.Now().UTC()}

	r := execution.NewReconciler(store, nil)
	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.DeletedCorrupt)
	assert.Equal(t, 0, report.CancelledStale)

	_, err = store.GetExecution(context.Background(), "corrupt-1")
	require.Error(t, err)
}

func TestReconcilerCancelsStaleExecutions(t *testing.T) {
	store := newFakeStore()
	old := time.Now().UTC().Add(-2 * execution.StaleThreshold)
	store.execs["stale-1"] = &execution.Execution{
		ID: "stale-1", TaskID: "t1", AgentID: "a1", Status: execution.StatusRunning, StartTime: old,
	}

	r := execution.NewReconciler(store, nil)
	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.CancelledStale)

	exec, err := store.GetExecution(context.Background(), "stale-1")
	require.NoError(t, err)
	assert.Equal(t, execution.StatusCancelled, exec.Status)
}

func TestReconcilerIsIdempotent(t *testing.T) {
	store := newFakeStore()
	old := time.Now().UTC().Add(-2 * execution.StaleThreshold)
	store.execs["stale-1"] = &execution.Execution{
		ID: "stale-1", TaskID: "t1", AgentID: "a1", Status: execution.StatusRunning, StartTime: old,
	}
	store.execs["corrupt-1"] = &execution.Execution{ID: "corrupt-1", StartTime: time.Now().UTC()}

	r := execution.NewReconciler(store, nil)
	first, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.DeletedCorrupt)
	assert.Equal(t, 1, first.CancelledStale)

	second, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.DeletedCorrupt)
	assert.Equal(t, 0, second.CancelledStale)
}

// TestReconcilerCancelsFreshNonTerminalExecutionsToo asserts that a plain
// execution still in starting/running is cancelled on the startup sweep
// regardless of age: a process restart leaves no supervisor running to
// ever finish it, so the one-hour staleness window that gates
// workflow_executions does not apply here.
func TestReconcilerCancelsFreshNonTerminalExecutionsToo(t *testing.T) {
	store := newFakeStore()
	store.execs["fresh-1"] = &execution.Execution{
		ID: "fresh-1", TaskID: "t1", AgentID: "a1", Status: execution.StatusRunning, StartTime: time.Now().UTC(),
	}

	r := execution.NewReconciler(store, nil)
	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.DeletedCorrupt)
	assert.Equal(t, 1, report.CancelledStale)

	exec, err := store.GetExecution(context.Background(), "fresh-1")
	require.NoError(t, err)
	assert.Equal(t, execution.StatusCancelled, exec.Status)
}
