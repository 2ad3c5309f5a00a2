package orchestrator_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aosanya/agentforge/internal/domainerr"
	"github.com/aosanya/agentforge/internal/execution"
	"github.com/aosanya/agentforge/internal/orchestrator"
)

// fakeRunner is a ChildRunner test double that resolves every started
// execution to StatusCompleted (or StatusFailed, for task ids configured
// to fail) as soon as StartTaskExecution returns, without ever touching a
// real subprocess.
type fakeRunner struct {
	mu      sync.Mutex
	execs   map[string]*execution.Execution
	failIDs map[string]bool // task IDs that should resolve to Failed
	started []startedPair
}

type startedPair struct {
	AgentID string
	TaskID  string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		execs:   map[string]*execution.Execution{},
		failIDs: map[string]bool{},
	}
}

func (f *fakeRunner) StartTaskExecution(ctx context.Context, req execution.StartRequest) (*execution.StartResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New().String()
	status := execution.StatusCompleted
	if f.failIDs[req.TaskID] {
		status = execution.StatusFailed
	}
	f.execs[id] = &execution.Execution{ID: id, TaskID: req.TaskID, Status: status}
	agentID := ""
	if len(req.AgentIDs) > 0 {
		agentID = req.AgentIDs[0]
	}
	f.started = append(f.started, startedPair{AgentID: agentID, TaskID: req.TaskID})
	return &execution.StartResult{ExecutionID: id, TaskID: req.TaskID, Status: status}, nil
}

func (f *fakeRunner) GetExecution(ctx context.Context, id string) (*execution.Execution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	exec, ok := f.execs[id]
	if !ok {
		return nil, domainerr.NewNotFound("execution", id)
	}
	return exec, nil
}

func (f *fakeRunner) startedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started)
}

func newCore(runner orchestrator.ChildRunner) *orchestrator.Core {
	c := orchestrator.NewCore(runner, nil, nil, nil)
	c.PollInterval = 5 * time.Millisecond
	c.RoundDelay = 5 * time.Millisecond
	return c
}

func agentSet(n int) []orchestrator.AgentInfo {
	agents := make([]orchestrator.AgentInfo, n)
	roles := []string{"research", "writer", "analyst", "backend", "qa"}
	for i := range agents {
		agents[i] = orchestrator.AgentInfo{
			ID:   fmt.Sprintf("agent-%d", i),
			Name: fmt.Sprintf("Agent%d", i),
			Role: roles[i%len(roles)],
		}
	}
	return agents
}

func taskSet(titles ...string) []orchestrator.TaskInfo {
	tasks := make([]orchestrator.TaskInfo, len(titles))
	for i, title := range titles {
		tasks[i] = orchestrator.TaskInfo{ID: fmt.Sprintf("task-%d", i), Title: title, Description: title}
	}
	return tasks
}

func TestSequentialStartsExactlyOneChildPerTask(t *testing.T) {
	runner := newFakeRunner()
	core := newCore(runner)
	pattern := &orchestrator.WorkflowPattern{ID: "p1", Type: orchestrator.Sequential, Config: orchestrator.DefaultConfig()}

	we, err := core.ExecuteWorkflow(context.Background(), pattern, agentSet(2), taskSet("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusCompleted, we.Status)
	assert.Equal(t, 3, runner.startedCount())
	assert.EqualValues(t, 3, we.Results["steps_completed"])
	assert.EqualValues(t, 1.0, we.Results["success_rate"])
}

func TestSequentialStopsOnFirstFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.failIDs["task-0"] = true
	core := newCore(runner)
	pattern := &orchestrator.WorkflowPattern{ID: "p1", Type: orchestrator.Sequential, Config: orchestrator.DefaultConfig()}

	we, err := core.ExecuteWorkflow(context.Background(), pattern, agentSet(2), taskSet("U", "V", "W"))
	require.NoError(t, err)
	assert.Equal(t, 1, runner.startedCount())
	assert.EqualValues(t, 1, we.Results["steps_completed"])
	assert.InDelta(t, 1.0/3.0, we.Results["success_rate"], 0.0001)
}

func TestParallelStartsAllChildrenConcurrently(t *testing.T) {
	runner := newFakeRunner()
	core := newCore(runner)
	pattern := &orchestrator.WorkflowPattern{ID: "p2", Type: orchestrator.Parallel, Config: orchestrator.DefaultConfig()}

	we, err := core.ExecuteWorkflow(context.Background(), pattern, agentSet(3), taskSet("a", "b", "c", "d"))
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusCompleted, we.Status)
	assert.Equal(t, 4, runner.startedCount())
	assert.EqualValues(t, 4, we.Results["successful_tasks"])
}

func TestRouterAssignsOneChildPerTaskByCategory(t *testing.T) {
	runner := newFakeRunner()
	core := newCore(runner)
	pattern := &orchestrator.WorkflowPattern{ID: "p3", Type: orchestrator.Router, Config: orchestrator.DefaultConfig()}

	agents := []orchestrator.AgentInfo{
		{ID: "A", Name: "Alice", Role: "research"},
		{ID: "B", Name: "Bob", Role: "writer"},
		{ID: "C", Name: "Carol", Role: "analyst"},
	}
	tasks := []orchestrator.TaskInfo{
		{ID: "T1", Title: "gather facts"},
		{ID: "T2", Title: "write report"},
		{ID: "T3", Title: "analyze data"},
	}

	we, err := core.ExecuteWorkflow(context.Background(), pattern, agents, tasks)
	require.NoError(t, err)
	assert.Equal(t, 3, runner.startedCount())
	assert.EqualValues(t, 3, we.Results["agents_utilized"])
}

func TestEvaluatorOptimizerStopsAtThreshold(t *testing.T) {
	runner := newFakeRunner()
	runner.failIDs["task-0"] = false
	core := newCore(runner)
	cfg := orchestrator.DefaultConfig()
	cfg.MaxIterations = 5
	cfg.SuccessThreshold = 0.5
	pattern := &orchestrator.WorkflowPattern{ID: "p4", Type: orchestrator.EvaluatorOptimizer, Config: cfg}

	we, err := core.ExecuteWorkflow(context.Background(), pattern, agentSet(1), taskSet("t"))
	require.NoError(t, err)
	assert.True(t, we.Results["threshold_achieved"].(bool))
	iterations := we.Results["iterations_completed"].(int)
	assert.Equal(t, iterations, runner.startedCount())
	assert.LessOrEqual(t, iterations, 5)
}

func TestSwarmStartsRoundsTimesTasksTimesAgentsPerTask(t *testing.T) {
	runner := newFakeRunner()
	core := newCore(runner)
	cfg := orchestrator.DefaultConfig()
	cfg.CoordinationRounds = 2
	cfg.AgentsPerTask = 2
	pattern := &orchestrator.WorkflowPattern{ID: "p5", Type: orchestrator.Swarm, Config: cfg}

	we, err := core.ExecuteWorkflow(context.Background(), pattern, agentSet(4), taskSet("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, 2*2*2, runner.startedCount())
	assert.Equal(t, orchestrator.StatusCompleted, we.Status)
}

func TestOrchestratorPatternStartsOneChildPerTaskByDefault(t *testing.T) {
	runner := newFakeRunner()
	core := newCore(runner)
	pattern := &orchestrator.WorkflowPattern{ID: "p6", Type: orchestrator.Orchestrator, Config: orchestrator.DefaultConfig()}

	we, err := core.ExecuteWorkflow(context.Background(), pattern, agentSet(2), taskSet("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, 3, runner.startedCount())
	assert.InDelta(t, 0.95, we.Results["coordination_efficiency"], 0.0001)
}

func TestOrchestratorPatternHonorsExplicitAssignment(t *testing.T) {
	runner := newFakeRunner()
	core := newCore(runner)
	pattern := &orchestrator.WorkflowPattern{ID: "p6b", Type: orchestrator.Orchestrator, Config: orchestrator.DefaultConfig()}

	agents := agentSet(2)
	tasks := taskSet("a")
	tasks[0].AssignedAgents = []string{agents[0].ID, agents[1].ID}

	we, err := core.ExecuteWorkflow(context.Background(), pattern, agents, tasks)
	require.NoError(t, err)
	assert.Equal(t, 2, runner.startedCount())
	assert.EqualValues(t, 2, we.Results["agents_coordinated"])
}

func TestAdaptivePicksParallelWhenAgentsExceedTasksAndDescriptionsAreShort(t *testing.T) {
	runner := newFakeRunner()
	core := newCore(runner)
	pattern := &orchestrator.WorkflowPattern{ID: "p7", Type: orchestrator.Adaptive, Config: orchestrator.DefaultConfig()}

	we, err := core.ExecuteWorkflow(context.Background(), pattern, agentSet(5), taskSet("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, "parallel_adaptive", we.Results["chosen_strategy"])
	assert.Equal(t, 2, runner.startedCount())
}

func TestAdaptivePicksSequentialWhenTasksFarExceedAgents(t *testing.T) {
	runner := newFakeRunner()
	core := newCore(runner)
	pattern := &orchestrator.WorkflowPattern{ID: "p8", Type: orchestrator.Adaptive, Config: orchestrator.DefaultConfig()}

	we, err := core.ExecuteWorkflow(context.Background(), pattern, agentSet(1), taskSet("a", "b", "c", "d"))
	require.NoError(t, err)
	assert.Equal(t, "sequential_adaptive", we.Results["chosen_strategy"])
}

func TestWorkflowProgressIsOneAtTerminal(t *testing.T) {
	runner := newFakeRunner()
	core := newCore(runner)
	pattern := &orchestrator.WorkflowPattern{ID: "p9", Type: orchestrator.Parallel, Config: orchestrator.DefaultConfig()}

	we, err := core.ExecuteWorkflow(context.Background(), pattern, agentSet(2), taskSet("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, we.Progress)
}

func TestAbortWorkflowExecutionDoesNotTouchChildren(t *testing.T) {
	runner := newFakeRunner()
	core := newCore(runner)
	we := &orchestrator.WorkflowExecution{ID: "we1", Status: orchestrator.StatusRunning}

	core.AbortWorkflowExecution(context.Background(), we, true)
	assert.Equal(t, orchestrator.StatusCancelled, we.Status)
	assert.NotNil(t, we.EndTime)
	require.Len(t, we.ExecutionLogs, 1)
	assert.Equal(t, "user aborted", we.ExecutionLogs[0].Message)
}
