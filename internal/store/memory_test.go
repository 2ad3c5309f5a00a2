package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aosanya/agentforge/internal/agent"
	"github.com/aosanya/agentforge/internal/domainerr"
	"github.com/aosanya/agentforge/internal/execution"
	"github.com/aosanya/agentforge/internal/orchestrator"
	"github.com/aosanya/agentforge/internal/store"
	"github.com/aosanya/agentforge/internal/task"
)

func TestCreateAgentThenGetAgentRoundTrips(t *testing.T) {
	m := store.NewMemory()
	a, err := agent.New("Alice", "backend", "", "You are Alice, a backend engineer.")
	require.NoError(t, err)

	require.NoError(t, m.CreateAgent(context.Background(), a))
	got, err := m.GetAgent(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Name, got.Name)
	assert.Equal(t, a.SystemPrompt, got.SystemPrompt)
}

func TestCreateTaskWithEstimatedDurationRoundTrips(t *testing.T) {
	m := store.NewMemory()
	tk, err := task.New("Build endpoint", "Add /health endpoint")
	require.NoError(t, err)
	minutes := 45
	tk.SetEstimatedMinutes(&minutes)

	require.NoError(t, m.CreateTask(context.Background(), tk))
	got, err := m.GetTask(context.Background(), tk.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EstimatedMinutes())
	assert.Equal(t, 45, *got.EstimatedMinutes())
}

func TestDeleteAgentWithNonTerminalExecutionRequiresForce(t *testing.T) {
	m := store.NewMemory()
	a, err := agent.New("Alice", "backend", "", "You are Alice, a backend engineer.")
	require.NoError(t, err)
	require.NoError(t, m.CreateAgent(context.Background(), a))

	tk, err := task.New("Build", "Do work")
	require.NoError(t, err)
	require.NoError(t, m.CreateTask(context.Background(), tk))
	tk.AssignedAgents = append(tk.AssignedAgents, task.AssignedAgent{AgentID: a.ID})
	require.NoError(t, m.UpdateTask(context.Background(), tk))

	exec := &execution.Execution{ID: "e1", TaskID: tk.ID, AgentIDs: []string{a.ID}, Status: execution.StatusRunning, StartTime: time.Now()}
	require.NoError(t, m.CreateExecution(context.Background(), exec))

	err = m.DeleteAgent(context.Background(), a.ID, false)
	require.Error(t, err)
	assert.True(t, domainerr.Is(err, domainerr.Conflict))

	require.NoError(t, m.DeleteAgent(context.Background(), a.ID, true))
	_, err = m.GetAgent(context.Background(), a.ID)
	assert.True(t, domainerr.Is(err, domainerr.NotFound))

	gotExec, err := m.GetExecution(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, execution.StatusCancelled, gotExec.Status)

	gotTask, err := m.GetTask(context.Background(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusPending, gotTask.Status)
	assert.Contains(t, gotTask.ErrorMessage, "was deleted")
}

func TestReconcileStaleDeletesCorruptAndCancelsAllNonTerminalExecutions(t *testing.T) {
	m := store.NewMemory()

	corrupt := &execution.Execution{ID: "corrupt", TaskID: "", AgentIDs: nil, Status: execution.StatusRunning, StartTime: time.Now()}
	require.NoError(t, m.CreateExecution(context.Background(), corrupt))

	stale := &execution.Execution{ID: "stale", TaskID: "t1", AgentIDs: []string{"a1"}, Status: execution.StatusRunning, StartTime: time.Now().Add(-2 * execution.StaleThreshold)}
	require.NoError(t, m.CreateExecution(context.Background(), stale))

	fresh := &execution.Execution{ID: "fresh", TaskID: "t2", AgentIDs: []string{"a2"}, Status: execution.StatusRunning, StartTime: time.Now()}
	require.NoError(t, m.CreateExecution(context.Background(), fresh))

	report, err := m.ReconcileStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.DeletedCorrupt)
	assert.Equal(t, 2, report.CancelledStale)

	_, err = m.GetExecution(context.Background(), "corrupt")
	assert.True(t, domainerr.Is(err, domainerr.NotFound))

	gotStale, err := m.GetExecution(context.Background(), "stale")
	require.NoError(t, err)
	assert.Equal(t, execution.StatusCancelled, gotStale.Status)

	gotFresh, err := m.GetExecution(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, execution.StatusCancelled, gotFresh.Status, "a process restart cancels every non-terminal execution unconditionally")
}

func TestReconcileStaleSweepsWorkflowExecutions(t *testing.T) {
	m := store.NewMemory()

	staleRunning := &orchestrator.WorkflowExecution{ID: "wf-stale", PatternID: "p1", Status: orchestrator.StatusRunning, StartTime: time.Now().Add(-2 * execution.StaleThreshold)}
	require.NoError(t, m.CreateWorkflowExecution(context.Background(), staleRunning))

	freshRunning := &orchestrator.WorkflowExecution{ID: "wf-fresh", PatternID: "p1", Status: orchestrator.StatusRunning, StartTime: time.Now()}
	require.NoError(t, m.CreateWorkflowExecution(context.Background(), freshRunning))

	oldEnd := time.Now().Add(-2 * execution.StaleThreshold)
	staleCompleted := &orchestrator.WorkflowExecution{ID: "wf-done", PatternID: "p1", Status: orchestrator.StatusCompleted, StartTime: oldEnd, EndTime: &oldEnd}
	require.NoError(t, m.CreateWorkflowExecution(context.Background(), staleCompleted))

	freshCompleted := &orchestrator.WorkflowExecution{ID: "wf-recent", PatternID: "p1", Status: orchestrator.StatusCompleted, StartTime: time.Now(), EndTime: timePtr(time.Now())}
	require.NoError(t, m.CreateWorkflowExecution(context.Background(), freshCompleted))

	report, err := m.ReconcileStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.WorkflowsAborted)
	assert.Equal(t, 1, report.WorkflowsDeleted)

	gotStale, err := m.GetWorkflowExecution(context.Background(), "wf-stale")
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusCancelled, gotStale.Status)

	gotFresh, err := m.GetWorkflowExecution(context.Background(), "wf-fresh")
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusRunning, gotFresh.Status)

	_, err = m.GetWorkflowExecution(context.Background(), "wf-done")
	assert.True(t, domainerr.Is(err, domainerr.NotFound))

	_, err = m.GetWorkflowExecution(context.Background(), "wf-recent")
	require.NoError(t, err)
}

func timePtr(t time.Time) *time.Time { return &t }

func TestListTasksFiltersByStatus(t *testing.T) {
	m := store.NewMemory()
	pending, _ := task.New("pending task", "desc")
	require.NoError(t, m.CreateTask(context.Background(), pending))

	done, _ := task.New("done task", "desc")
	done.Status = task.StatusCompleted
	require.NoError(t, m.CreateTask(context.Background(), done))

	out, err := m.ListTasks(context.Background(), store.TaskFilters{Status: []task.Status{task.StatusCompleted}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, done.ID, out[0].ID)
}
