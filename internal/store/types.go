// Package store implements StoreGateway: the single persistence boundary
// backing ExecutionEngine, OrchestratorCore, and the agent/task/pattern
// CRUD surface, with composite, individually-atomic methods rather than
// exposing a raw transaction object to callers. Two implementations
// satisfy the same method sets: Memory (an in-process test double) and
// Arango (backed by ArangoDB).
package store

import (
	"context"
	"time"

	"github.com/aosanya/agentforge/internal/agent"
	"github.com/aosanya/agentforge/internal/execution"
	"github.com/aosanya/agentforge/internal/orchestrator"
	"github.com/aosanya/agentforge/internal/task"
)

// AgentFilters narrows ListAgents.
type AgentFilters struct {
	Status agent.Status
	Role   string
}

// TaskFilters narrows ListTasks.
type TaskFilters struct {
	Status []task.Status
	Limit  int
}

// PatternFilters narrows ListPatterns.
type PatternFilters struct {
	Status string
}

// AgentCRUD is the agent persistence surface used by the HTTP layer.
type AgentCRUD interface {
	CreateAgent(ctx context.Context, a *agent.Agent) error
	GetAgent(ctx context.Context, id string) (*agent.Agent, error)
	ListAgents(ctx context.Context, filters AgentFilters) ([]*agent.Agent, error)
	UpdateAgent(ctx context.Context, a *agent.Agent) error

	// DeleteAgent removes an agent. With force=false, a non-terminal
	// execution referencing the agent is a Conflict.
	// With force=true, the in-flight execution is aborted, the agent is
	// removed, and dependent tasks are set to pending with a message
	// noting the agent's deletion.
	DeleteAgent(ctx context.Context, id string, force bool) error
}

// TaskCRUD is the task persistence surface used by the HTTP layer.
// GetTask (shared with execution.Store) is the read path.
type TaskCRUD interface {
	CreateTask(ctx context.Context, t *task.Task) error
	ListTasks(ctx context.Context, filters TaskFilters) ([]*task.Task, error)
	UpdateTask(ctx context.Context, t *task.Task) error
	DeleteTask(ctx context.Context, id string) error
}

// PatternCRUD is the workflow-pattern persistence surface used by the
// HTTP layer and by OrchestratorCore.
type PatternCRUD interface {
	CreatePattern(ctx context.Context, p *orchestrator.WorkflowPattern) error
	ListPatterns(ctx context.Context, filters PatternFilters) ([]*orchestrator.WorkflowPattern, error)
	UpdatePattern(ctx context.Context, p *orchestrator.WorkflowPattern) error

	// DeletePattern removes a pattern. With force=true and any running
	// workflow executions, those executions are aborted first.
	DeletePattern(ctx context.Context, id string, force bool) error
}

// Gateway is the full StoreGateway surface: agent/task/pattern CRUD plus
// everything execution.Store and orchestrator.Store need. A single
// concrete type satisfies all of these method sets structurally, so
// ExecutionEngine and OrchestratorCore can each depend on their own
// narrow interface without importing this package.
type Gateway interface {
	AgentCRUD
	TaskCRUD
	PatternCRUD

	CreateExecution(ctx context.Context, exec *execution.Execution) error
	GetExecution(ctx context.Context, id string) (*execution.Execution, error)
	ListExecutions(ctx context.Context, filters execution.ExecutionFilters) ([]*execution.Execution, error)
	AppendLog(ctx context.Context, id string, entry execution.LogEntry) error
	SetStatus(ctx context.Context, id string, status execution.Status, output map[string]any, errDetails *execution.ErrorDetails) error
	SavePausedSnapshot(ctx context.Context, id string, pausedAt time.Time) error
	SetAgentResponse(ctx context.Context, id string, resp *execution.AgentResponse) error
	ReleaseAgents(ctx context.Context, agentIDs []string, now time.Time) error
	ListNonTerminalForAgent(ctx context.Context, agentID string) ([]*execution.Execution, error)
	GetTask(ctx context.Context, taskID string) (*task.Task, error)
	GetAgents(ctx context.Context, agentIDs []string) ([]*agent.Agent, error)
	ReconcileStale(ctx context.Context) (execution.ReconcileReport, error)

	GetPattern(ctx context.Context, id string) (*orchestrator.WorkflowPattern, error)
	CreateWorkflowExecution(ctx context.Context, we *orchestrator.WorkflowExecution) error
	UpdateWorkflowExecution(ctx context.Context, we *orchestrator.WorkflowExecution) error
	GetWorkflowExecution(ctx context.Context, id string) (*orchestrator.WorkflowExecution, error)
	ListWorkflowExecutions(ctx context.Context, patternID string) ([]*orchestrator.WorkflowExecution, error)
	AppendCoordinationMessage(ctx context.Context, executionID string, msg orchestrator.CoordinationMessage) error
}
