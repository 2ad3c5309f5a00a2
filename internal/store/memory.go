package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aosanya/agentforge/internal/agent"
	"github.com/aosanya/agentforge/internal/domainerr"
	"github.com/aosanya/agentforge/internal/execution"
	"github.com/aosanya/agentforge/internal/orchestrator"
	"github.com/aosanya/agentforge/internal/task"
)

// Memory is an in-process Gateway implementation, safe for concurrent
// use, intended for tests and for single-process deployments that don't
// need ArangoDB.
type Memory struct {
	mu sync.Mutex

	agents     map[string]*agent.Agent
	tasks      map[string]*task.Task
	patterns   map[string]*orchestrator.WorkflowPattern
	executions map[string]*execution.Execution
	workflows  map[string]*orchestrator.WorkflowExecution
}

// NewMemory constructs an empty Memory gateway.
func NewMemory() *Memory {
	return &Memory{
		agents:     map[string]*agent.Agent{},
		tasks:      map[string]*task.Task{},
		patterns:   map[string]*orchestrator.WorkflowPattern{},
		executions: map[string]*execution.Execution{},
		workflows:  map[string]*orchestrator.WorkflowExecution{},
	}
}

// --- Agent CRUD ---

func (m *Memory) CreateAgent(ctx context.Context, a *agent.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.agents[a.ID] = &cp
	return nil
}

func (m *Memory) GetAgent(ctx context.Context, id string) (*agent.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return nil, domainerr.NewNotFound("agent", id)
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) ListAgents(ctx context.Context, filters AgentFilters) ([]*agent.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*agent.Agent
	for _, a := range m.agents {
		if filters.Status != "" && a.Status != filters.Status {
			continue
		}
		if filters.Role != "" && a.Role != filters.Role {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) UpdateAgent(ctx context.Context, a *agent.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[a.ID]; !ok {
		return domainerr.NewNotFound("agent", a.ID)
	}
	cp := *a
	m.agents[a.ID] = &cp
	return nil
}

func (m *Memory) DeleteAgent(ctx context.Context, id string, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[id]; !ok {
		return domainerr.NewNotFound("agent", id)
	}

	var nonTerminal []*execution.Execution
	for _, e := range m.executions {
		if !e.Status.IsTerminal() && containsID(e.AgentIDs, id) {
			nonTerminal = append(nonTerminal, e)
		}
	}

	if len(nonTerminal) > 0 && !force {
		return domainerr.NewConflict(
			fmt.Sprintf("agent %s has a non-terminal execution", id),
			"retry with force=true to abort in-flight executions and delete anyway",
		)
	}

	now := time.Now().UTC()
	agentName := m.agents[id].Name
	for _, e := range nonTerminal {
		e.Status = execution.StatusCancelled
		e.EndTime = &now
	}
	for _, t := range m.tasks {
		if t.IsTerminal() {
			continue
		}
		for _, aa := range t.AssignedAgents {
			if aa.AgentID == id {
				t.Status = task.StatusPending
				t.ErrorMessage = fmt.Sprintf("Agent %s was deleted", agentName)
				t.UpdatedAt = now
				break
			}
		}
	}

	delete(m.agents, id)
	return nil
}

// --- Task CRUD ---

func (m *Memory) CreateTask(ctx context.Context, t *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *Memory) GetTask(ctx context.Context, taskID string) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return nil, domainerr.NewNotFound("task", taskID)
	}
	cp := *t
	return &cp, nil
}

func (m *Memory) ListTasks(ctx context.Context, filters TaskFilters) ([]*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*task.Task
	for _, t := range m.tasks {
		if len(filters.Status) > 0 && !statusIn(t.Status, filters.Status) {
			continue
		}
		cp := *t
		out = append(out, &cp)
		if filters.Limit > 0 && len(out) >= filters.Limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) UpdateTask(ctx context.Context, t *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return domainerr.NewNotFound("task", t.ID)
	}
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *Memory) DeleteTask(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return domainerr.NewNotFound("task", id)
	}
	delete(m.tasks, id)
	return nil
}

// --- Pattern CRUD ---

func (m *Memory) CreatePattern(ctx context.Context, p *orchestrator.WorkflowPattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.patterns[p.ID] = &cp
	return nil
}

func (m *Memory) GetPattern(ctx context.Context, id string) (*orchestrator.WorkflowPattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patterns[id]
	if !ok {
		return nil, domainerr.NewNotFound("pattern", id)
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) ListPatterns(ctx context.Context, filters PatternFilters) ([]*orchestrator.WorkflowPattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*orchestrator.WorkflowPattern
	for _, p := range m.patterns {
		if filters.Status != "" && p.Status != filters.Status {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) UpdatePattern(ctx context.Context, p *orchestrator.WorkflowPattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patterns[p.ID]; !ok {
		return domainerr.NewNotFound("pattern", p.ID)
	}
	cp := *p
	m.patterns[p.ID] = &cp
	return nil
}

func (m *Memory) DeletePattern(ctx context.Context, id string, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patterns[id]; !ok {
		return domainerr.NewNotFound("pattern", id)
	}

	var running []*orchestrator.WorkflowExecution
	for _, we := range m.workflows {
		if we.PatternID == id && !we.Status.IsTerminal() {
			running = append(running, we)
		}
	}
	if len(running) > 0 && !force {
		return domainerr.NewConflict(
			fmt.Sprintf("pattern %s has a running workflow execution", id),
			"retry with force=true to abort running workflows and delete anyway",
		)
	}

	now := time.Now().UTC()
	for _, we := range running {
		we.Status = orchestrator.StatusCancelled
		we.EndTime = &now
	}

	delete(m.patterns, id)
	return nil
}

// --- execution.Store ---

func (m *Memory) CreateExecution(ctx context.Context, exec *execution.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *exec
	m.executions[exec.ID] = &cp
	for _, id := range exec.AgentIDs {
		if a, ok := m.agents[id]; ok {
			a.Status = agent.StatusExecuting
		}
	}
	return nil
}

func (m *Memory) GetExecution(ctx context.Context, id string) (*execution.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	if !ok {
		return nil, domainerr.NewNotFound("execution", id)
	}
	cp := *e
	return &cp, nil
}

func (m *Memory) ListExecutions(ctx context.Context, filters execution.ExecutionFilters) ([]*execution.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*execution.Execution
	for _, e := range m.executions {
		if filters.TaskID != "" && e.TaskID != filters.TaskID {
			continue
		}
		if filters.AgentID != "" && !containsID(e.AgentIDs, filters.AgentID) {
			continue
		}
		if len(filters.Status) > 0 && !execStatusIn(e.Status, filters.Status) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) AppendLog(ctx context.Context, id string, entry execution.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	if !ok {
		return domainerr.NewNotFound("execution", id)
	}
	e.Logs = append(e.Logs, entry)
	return nil
}

func (m *Memory) SetStatus(ctx context.Context, id string, status execution.Status, output map[string]any, errDetails *execution.ErrorDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	if !ok {
		return domainerr.NewNotFound("execution", id)
	}
	e.Status = status
	if output != nil {
		e.Output = output
	}
	e.ErrorDetails = errDetails
	if status.IsTerminal() {
		now := time.Now().UTC()
		e.EndTime = &now
		e.DurationSeconds = now.Sub(e.StartTime).Seconds()
	}
	return nil
}

func (m *Memory) SavePausedSnapshot(ctx context.Context, id string, pausedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	if !ok {
		return domainerr.NewNotFound("execution", id)
	}
	e.PausedAt = &pausedAt
	return nil
}

func (m *Memory) SetAgentResponse(ctx context.Context, id string, resp *execution.AgentResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	if !ok {
		return domainerr.NewNotFound("execution", id)
	}
	e.AgentResponse = resp
	return nil
}

func (m *Memory) ReleaseAgents(ctx context.Context, agentIDs []string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range agentIDs {
		if a, ok := m.agents[id]; ok {
			a.Status = agent.StatusIdle
			a.LastActive = now
		}
	}
	return nil
}

func (m *Memory) ListNonTerminalForAgent(ctx context.Context, agentID string) ([]*execution.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*execution.Execution
	for _, e := range m.executions {
		if !e.Status.IsTerminal() && containsID(e.AgentIDs, agentID) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) GetAgents(ctx context.Context, agentIDs []string) ([]*agent.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*agent.Agent, 0, len(agentIDs))
	for _, id := range agentIDs {
		a, ok := m.agents[id]
		if !ok {
			return nil, domainerr.NewNotFound("agent", id)
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) ReconcileStale(ctx context.Context) (execution.ReconcileReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	report := execution.ReconcileReport{}
	now := time.Now().UTC()

	for id, e := range m.executions {
		if e.TaskID == "" || len(e.AgentIDs) == 0 {
			delete(m.executions, id)
			report.DeletedCorrupt++
			continue
		}
		if e.Status == execution.StatusStarting || e.Status == execution.StatusRunning {
			e.Status = execution.StatusCancelled
			e.EndTime = &now
			e.ErrorDetails = &execution.ErrorDetails{Kind: execution.ErrorKindInternal, Message: "system restart cleanup"}
			report.CancelledStale++
		}
	}

	for id, we := range m.workflows {
		age := now.Sub(we.StartTime)
		if we.EndTime != nil {
			age = now.Sub(*we.EndTime)
		}
		if !we.Status.IsTerminal() {
			if age > execution.StaleThreshold {
				we.Status = orchestrator.StatusCancelled
				we.EndTime = &now
				report.WorkflowsAborted++
			}
			continue
		}
		if (we.Status == orchestrator.StatusCompleted || we.Status == orchestrator.StatusFailed) && age > execution.StaleThreshold {
			delete(m.workflows, id)
			report.WorkflowsDeleted++
		}
	}
	return report, nil
}

// --- orchestrator.Store ---

func (m *Memory) CreateWorkflowExecution(ctx context.Context, we *orchestrator.WorkflowExecution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *we
	m.workflows[we.ID] = &cp
	return nil
}

func (m *Memory) UpdateWorkflowExecution(ctx context.Context, we *orchestrator.WorkflowExecution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workflows[we.ID]; !ok {
		return domainerr.NewNotFound("workflow_execution", we.ID)
	}
	cp := *we
	m.workflows[we.ID] = &cp
	return nil
}

func (m *Memory) GetWorkflowExecution(ctx context.Context, id string) (*orchestrator.WorkflowExecution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	we, ok := m.workflows[id]
	if !ok {
		return nil, domainerr.NewNotFound("workflow_execution", id)
	}
	cp := *we
	return &cp, nil
}

func (m *Memory) ListWorkflowExecutions(ctx context.Context, patternID string) ([]*orchestrator.WorkflowExecution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*orchestrator.WorkflowExecution
	for _, we := range m.workflows {
		if patternID != "" && we.PatternID != patternID {
			continue
		}
		cp := *we
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) AppendCoordinationMessage(ctx context.Context, executionID string, msg orchestrator.CoordinationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	we, ok := m.workflows[executionID]
	if !ok {
		return domainerr.NewNotFound("workflow_execution", executionID)
	}
	we.ExecutionLogs = append(we.ExecutionLogs, msg)
	return nil
}

func containsID(ids []string, target string) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

func statusIn(s task.Status, statuses []task.Status) bool {
	for _, want := range statuses {
		if s == want {
			return true
		}
	}
	return false
}

func execStatusIn(s execution.Status, statuses []execution.Status) bool {
	for _, want := range statuses {
		if s == want {
			return true
		}
	}
	return false
}
