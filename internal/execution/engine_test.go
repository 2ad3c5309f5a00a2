package execution_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aosanya/agentforge/internal/agent"
	"github.com/aosanya/agentforge/internal/domainerr"
	"github.com/aosanya/agentforge/internal/eventbus"
	"github.com/aosanya/agentforge/internal/execution"
	"github.com/aosanya/agentforge/internal/fallback"
	"github.com/aosanya/agentforge/internal/subprocess"
	"github.com/aosanya/agentforge/internal/task"
)

// fakeStore is a minimal in-memory execution.Store used to exercise the
// engine without a real backing database.
type fakeStore struct {
	mu     sync.Mutex
	tasks  map[string]*task.Task
	agents map[string]*agent.Agent
	execs  map[string]*execution.Execution
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:  make(map[string]*task.Task),
		agents: make(map[string]*agent.Agent),
		execs:  make(map[string]*execution.Execution),
	}
}

func (s *fakeStore) CreateExecution(ctx context.Context, exec *execution.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *exec
	s.execs[exec.ID] = &cp
	for _, id := range exec.AgentIDs {
		if a, ok := s.agents[id]; ok {
			a.TransitionStatus(agent.StatusExecuting, time.Now().UTC())
		}
	}
	return nil
}

func (s *fakeStore) GetExecution(ctx context.Context, id string) (*execution.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.execs[id]
	if !ok {
		return nil, domainerr.NewNotFound("execution", id)
	}
	cp := *e
	return &cp, nil
}

func (s *fakeStore) ListExecutions(ctx context.Context, filters execution.ExecutionFilters) ([]*execution.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*execution.Execution
	for _, e := range s.execs {
		if filters.TaskID != "" && e.TaskID != filters.TaskID {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeStore) AppendLog(ctx context.Context, id string, entry execution.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.execs[id]
	if !ok {
		return domainerr.NewNotFound("execution", id)
	}
	e.Logs = append(e.Logs, entry)
	return nil
}

func (s *fakeStore) SetStatus(ctx context.Context, id string, status execution.Status, output map[string]any, errDetails *execution.ErrorDetails) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.execs[id]
	if !ok {
		return domainerr.NewNotFound("execution", id)
	}
	e.Status = status
	e.Output = output
	e.ErrorDetails = errDetails
	if status.IsTerminal() {
		now := time.Now().UTC()
		e.EndTime = &now
	}
	return nil
}

func (s *fakeStore) SavePausedSnapshot(ctx context.Context, id string, pausedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.execs[id]
	if !ok {
		return domainerr.NewNotFound("execution", id)
	}
	e.PausedAt = &pausedAt
	return nil
}

func (s *fakeStore) SetAgentResponse(ctx context.Context, id string, resp *execution.AgentResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.execs[id]
	if !ok {
		return domainerr.NewNotFound("execution", id)
	}
	e.AgentResponse = resp
	return nil
}

func (s *fakeStore) ReleaseAgents(ctx context.Context, agentIDs []string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range agentIDs {
		if a, ok := s.agents[id]; ok {
			a.TransitionStatus(agent.StatusIdle, now)
		}
	}
	return nil
}

func (s *fakeStore) ListNonTerminalForAgent(ctx context.Context, agentID string) ([]*execution.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*execution.Execution
	for _, e := range s.execs {
		if e.Status.IsTerminal() {
			continue
		}
		for _, id := range e.AgentIDs {
			if id == agentID {
				cp := *e
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (s *fakeStore) GetTask(ctx context.Context, taskID string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, domainerr.NewNotFound("task", taskID)
	}
	cp := *t
	return &cp, nil
}

func (s *fakeStore) GetAgents(ctx context.Context, agentIDs []string) ([]*agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*agent.Agent
	for _, id := range agentIDs {
		a, ok := s.agents[id]
		if !ok {
			return nil, domainerr.NewNotFound("agent", id)
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *fakeStore) ReconcileStale(ctx context.Context) (execution.ReconcileReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var report execution.ReconcileReport
	for id, e := range s.execs {
		if e.TaskID == "" || e.AgentID == "" {
			delete(s.execs, id)
			report.DeletedCorrupt++
			continue
		}
		if e.Status == execution.StatusStarting || e.Status == execution.StatusRunning {
			e.Status = execution.StatusCancelled
			now := time.Now().UTC()
			e.EndTime = &now
			report.CancelledStale++
		}
	}
	return report, nil
}

// fakeAssistant writes a tiny shell script standing in for the external
// code-assistant binary.
func fakeAssistant(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-claude.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func newTestAgent(t *testing.T, name, role string) *agent.Agent {
	t.Helper()
	a, err := agent.New(name, role, "test agent", "a system prompt long enough")
	require.NoError(t, err)
	return a
}

func newTestTask(t *testing.T, title string) *task.Task {
	t.Helper()
	tk, err := task.New(title, "do the thing")
	require.NoError(t, err)
	return tk
}

func testConfig(workDir string) execution.Config {
	return execution.Config{
		DefaultTimeout:         5 * time.Second,
		MaxTimeout:             10 * time.Second,
		SubprocessInnerTimeout: 2 * time.Second,
		WorkDirectoryRoot:      workDir,
	}
}

func TestStartTaskExecutionSucceedsViaSubprocess(t *testing.T) {
	store := newFakeStore()
	a := newTestAgent(t, "Alice", "backend engineer")
	tk := newTestTask(t, "Build endpoint")
	store.agents[a.ID] = a
	store.tasks[tk.ID] = tk

	bin := fakeAssistant(t, `echo '{"type":"text","text":"done"}'`)
	runner := subprocess.NewRunner(bin, nil)
	engine := execution.NewEngine(store, nil, runner, fallback.New(), testConfig(t.TempDir()), nil)

	result, err := engine.StartTaskExecution(context.Background(), execution.StartRequest{
		TaskID:   tk.ID,
		AgentIDs: []string{a.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, execution.StatusStarting, result.Status)

	assert.Eventually(t, func() bool {
		exec, err := engine.GetExecution(context.Background(), result.ExecutionID)
		return err == nil && exec.Status == execution.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	exec, err := engine.GetExecution(context.Background(), result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, "done", exec.AgentResponse.AggregatedText)
	assert.Equal(t, "subprocess", exec.AgentResponse.ExecutionMethod)
	assert.Equal(t, agent.StatusIdle, store.agents[a.ID].Status)
}

func TestStartTaskExecutionFallsBackOnSubprocessFailure(t *testing.T) {
	store := newFakeStore()
	a := newTestAgent(t, "Bob", "frontend engineer")
	tk := newTestTask(t, "Build UI")
	store.agents[a.ID] = a
	store.tasks[tk.ID] = tk

	bin := fakeAssistant(t, `exit 1`)
	runner := subprocess.NewRunner(bin, nil)
	engine := execution.NewEngine(store, nil, runner, fallback.New(), testConfig(t.TempDir()), nil)

	result, err := engine.StartTaskExecution(context.Background(), execution.StartRequest{
		TaskID:   tk.ID,
		AgentIDs: []string{a.ID},
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		exec, err := engine.GetExecution(context.Background(), result.ExecutionID)
		return err == nil && exec.Status == execution.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	exec, err := engine.GetExecution(context.Background(), result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, "fallback", exec.AgentResponse.ExecutionMethod)
	assert.Contains(t, exec.AgentResponse.AggregatedText, "Frontend task 'Build UI'")
}

func TestStartTaskExecutionRejectsConcurrentRunsWithoutForceRestart(t *testing.T) {
	store := newFakeStore()
	a := newTestAgent(t, "Carol", "qa tester")
	tk := newTestTask(t, "Write tests")
	store.agents[a.ID] = a
	store.tasks[tk.ID] = tk

	bin := fakeAssistant(t, `sleep 1; echo '{"type":"text","text":"done"}'`)
	runner := subprocess.NewRunner(bin, nil)
	engine := execution.NewEngine(store, nil, runner, fallback.New(), testConfig(t.TempDir()), nil)

	_, err := engine.StartTaskExecution(context.Background(), execution.StartRequest{
		TaskID: tk.ID, AgentIDs: []string{a.ID},
	})
	require.NoError(t, err)

	_, err = engine.StartTaskExecution(context.Background(), execution.StartRequest{
		TaskID: tk.ID, AgentIDs: []string{a.ID},
	})
	require.Error(t, err)
	assert.True(t, domainerr.Is(err, domainerr.Conflict))
}

func TestPauseAndResumeExecution(t *testing.T) {
	store := newFakeStore()
	a := newTestAgent(t, "Dana", "backend engineer")
	tk := newTestTask(t, "Long task")
	store.agents[a.ID] = a
	store.tasks[tk.ID] = tk

	bin := fakeAssistant(t, `sleep 5; echo '{"type":"text","text":"done"}'`)
	runner := subprocess.NewRunner(bin, nil)
	engine := execution.NewEngine(store, nil, runner, fallback.New(), testConfig(t.TempDir()), nil)

	result, err := engine.StartTaskExecution(context.Background(), execution.StartRequest{
		TaskID: tk.ID, AgentIDs: []string{a.ID},
	})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, engine.PauseExecution(context.Background(), result.ExecutionID))

	assert.Eventually(t, func() bool {
		exec, err := engine.GetExecution(context.Background(), result.ExecutionID)
		return err == nil && exec.Status == execution.StatusPaused
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, agent.StatusExecuting, store.agents[a.ID].Status)

	require.NoError(t, engine.ResumeExecution(context.Background(), result.ExecutionID))
	exec, err := engine.GetExecution(context.Background(), result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, execution.StatusRunning, exec.Status)
}

func TestAbortExecution(t *testing.T) {
	store := newFakeStore()
	a := newTestAgent(t, "Eve", "backend engineer")
	tk := newTestTask(t, "Long task")
	store.agents[a.ID] = a
	store.tasks[tk.ID] = tk

	bin := fakeAssistant(t, `sleep 5; echo '{"type":"text","text":"done"}'`)
	runner := subprocess.NewRunner(bin, nil)
	engine := execution.NewEngine(store, nil, runner, fallback.New(), testConfig(t.TempDir()), nil)

	result, err := engine.StartTaskExecution(context.Background(), execution.StartRequest{
		TaskID: tk.ID, AgentIDs: []string{a.ID},
	})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, engine.AbortExecution(context.Background(), result.ExecutionID))

	assert.Eventually(t, func() bool {
		exec, err := engine.GetExecution(context.Background(), result.ExecutionID)
		return err == nil && exec.Status == execution.StatusCancelled
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, agent.StatusIdle, store.agents[a.ID].Status)
}

func TestGetSystemStatus(t *testing.T) {
	store := newFakeStore()
	a := newTestAgent(t, "Frank", "backend engineer")
	tk := newTestTask(t, "Quick task")
	store.agents[a.ID] = a
	store.tasks[tk.ID] = tk

	bin := fakeAssistant(t, `echo '{"type":"text","text":"done"}'`)
	runner := subprocess.NewRunner(bin, nil)
	engine := execution.NewEngine(store, nil, runner, fallback.New(), testConfig(t.TempDir()), nil)

	result, err := engine.StartTaskExecution(context.Background(), execution.StartRequest{
		TaskID: tk.ID, AgentIDs: []string{a.ID},
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		exec, err := engine.GetExecution(context.Background(), result.ExecutionID)
		return err == nil && exec.Status == execution.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	status, err := engine.GetSystemStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, status.Total)
	assert.Equal(t, 1, status.Completed)
}

func TestStartTaskExecutionEmitsEvents(t *testing.T) {
	store := newFakeStore()
	a := newTestAgent(t, "Gina", "backend engineer")
	tk := newTestTask(t, "Quick task")
	store.agents[a.ID] = a
	store.tasks[tk.ID] = tk

	bin := fakeAssistant(t, `echo '{"type":"text","text":"done"}'`)
	runner := subprocess.NewRunner(bin, nil)
	bus := eventbus.New(nil)
	sub := bus.Subscribe(string(eventbus.TopicExecution))
	defer sub.Close()

	engine := execution.NewEngine(store, bus, runner, fallback.New(), testConfig(t.TempDir()), nil)
	_, err := engine.StartTaskExecution(context.Background(), execution.StartRequest{
		TaskID: tk.ID, AgentIDs: []string{a.ID},
	})
	require.NoError(t, err)

	select {
	case ev := <-sub.Events():
		assert.Equal(t, "execution_started", ev.EventType)
	case <-time.After(time.Second):
		t.Fatal("expected execution_started event")
	}
}

func TestStartTaskExecutionRequiresTaskID(t *testing.T) {
	store := newFakeStore()
	runner := subprocess.NewRunner(fakeAssistant(t, "true"), nil)
	engine := execution.NewEngine(store, nil, runner, fallback.New(), testConfig(t.TempDir()), nil)

	_, err := engine.StartTaskExecution(context.Background(), execution.StartRequest{})
	require.Error(t, err)
	assert.True(t, domainerr.Is(err, domainerr.Invariant))
}

func TestStartTaskExecutionDerivesAgentsFromTask(t *testing.T) {
	store := newFakeStore()
	a := newTestAgent(t, "Hank", "backend engineer")
	tk := newTestTask(t, "Quick task")
	tk.AssignedAgents = []task.AssignedAgent{{AgentID: a.ID, RoleInTask: "implementer", AssignedAt: time.Now()}}
	store.agents[a.ID] = a
	store.tasks[tk.ID] = tk

	bin := fakeAssistant(t, `echo '{"type":"text","text":"done"}'`)
	runner := subprocess.NewRunner(bin, nil)
	engine := execution.NewEngine(store, nil, runner, fallback.New(), testConfig(t.TempDir()), nil)

	result, err := engine.StartTaskExecution(context.Background(), execution.StartRequest{TaskID: tk.ID})
	require.NoError(t, err)

	exec, err := engine.GetExecution(context.Background(), result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, exec.AgentIDs)
}

func TestOuterDeadlineEndsExecutionAsTimeout(t *testing.T) {
	store := newFakeStore()
	a := newTestAgent(t, "Ivy", "backend engineer")
	tk := newTestTask(t, "Slow task")
	minutes := 0
	tk.SetEstimatedMinutes(&minutes)
	store.agents[a.ID] = a
	store.tasks[tk.ID] = tk

	// The subprocess attempt consumes nearly the whole outer deadline,
	// leaving too little headroom for the fallback responder's own
	// simulated delay, so the run must end in StatusTimeout.
	bin := fakeAssistant(t, `sleep 3; echo '{"type":"text","text":"done"}'`)
	runner := subprocess.NewRunner(bin, nil)
	cfg := execution.Config{
		DefaultTimeout:         120 * time.Millisecond,
		MaxTimeout:             120 * time.Millisecond,
		SubprocessInnerTimeout: 100 * time.Millisecond,
		WorkDirectoryRoot:      t.TempDir(),
	}
	engine := execution.NewEngine(store, nil, runner, fallback.New(), cfg, nil)

	result, err := engine.StartTaskExecution(context.Background(), execution.StartRequest{
		TaskID: tk.ID, AgentIDs: []string{a.ID},
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		exec, err := engine.GetExecution(context.Background(), result.ExecutionID)
		return err == nil && exec.Status.IsTerminal()
	}, 2*time.Second, 10*time.Millisecond)

	exec, err := engine.GetExecution(context.Background(), result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, execution.StatusTimeout, exec.Status)
	require.NotNil(t, exec.ErrorDetails)
	assert.Equal(t, execution.ErrorKindTimeout, exec.ErrorDetails.Kind)
}
