// Package execution implements the ExecutionEngine: the bounded, timed,
// cancellable lifecycle of a single (task, primary agent) pair, with a
// subprocess-based primary path, an internal deterministic fallback, and
// a startup reconciliation sweep.
package execution

import (
	"context"
	"time"

	"github.com/aosanya/agentforge/internal/agent"
	"github.com/aosanya/agentforge/internal/task"
)

// Status represents the current lifecycle state of an Execution.
type Status string

const (
	// StatusStarting is the initial state immediately after creation.
	StatusStarting Status = "starting"
	// StatusRunning indicates the supervised run is in progress.
	StatusRunning Status = "running"
	// StatusPaused indicates the run was suspended by the caller.
	StatusPaused Status = "paused"
	// StatusCompleted is a terminal success state.
	StatusCompleted Status = "completed"
	// StatusFailed is a terminal failure state.
	StatusFailed Status = "failed"
	// StatusCancelled is a terminal state reached via AbortExecution or the
	// startup reconciliation sweep.
	StatusCancelled Status = "cancelled"
	// StatusAborted is a terminal state counted by IsTerminal; neither the
	// engine nor the reconciliation sweep sets it (both use StatusCancelled).
	StatusAborted Status = "aborted"
	// StatusTimeout is a terminal state reached when the outer deadline elapses.
	StatusTimeout Status = "timeout"
)

// IsTerminal reports whether s is a terminal status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusAborted, StatusTimeout:
		return true
	default:
		return false
	}
}

// LogEntry is one append-only execution log line.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// ErrorKind discriminates the category of a terminal execution error.
type ErrorKind string

const (
	// ErrorKindTimeout means the outer deadline elapsed.
	ErrorKindTimeout ErrorKind = "timeout"
	// ErrorKindInternal means an uncaught condition occurred.
	ErrorKindInternal ErrorKind = "internal"
)

// ErrorDetails captures a terminal execution's failure reason.
type ErrorDetails struct {
	Kind           ErrorKind `json:"kind"`
	Message        string    `json:"message,omitempty"`
	TimeoutSeconds float64   `json:"timeout_seconds,omitempty"`
}

// AgentResponse is the structured result of the primary or fallback path.
type AgentResponse struct {
	AggregatedText   string `json:"aggregated_text"`
	Analysis         string `json:"analysis,omitempty"`
	MessagesCount    int    `json:"messages_count,omitempty"`
	WorkDirectory    string `json:"work_directory"`
	ExecutionMethod  string `json:"execution_method"`
}

// Execution is a single agent-task attempt.
type Execution struct {
	ID              string         `json:"id"`
	TaskID          string         `json:"task_id"`
	AgentID         string         `json:"agent_id"`
	AgentIDs        []string       `json:"agent_ids"`
	Status          Status         `json:"status"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         *time.Time     `json:"end_time,omitempty"`
	Logs            []LogEntry     `json:"logs"`
	Output          map[string]any `json:"output,omitempty"`
	ErrorDetails    *ErrorDetails  `json:"error_details,omitempty"`
	AgentResponse   *AgentResponse `json:"agent_response,omitempty"`
	WorkDirectory   string         `json:"work_directory"`
	NeedsInteraction bool          `json:"needs_interaction"`
	DurationSeconds float64        `json:"duration_seconds,omitempty"`
	PausedAt        *time.Time     `json:"-"`
}

// AppendLog appends a log line; logs only ever grow, never reorder or
// truncate.
func (e *Execution) AppendLog(level, message string, now time.Time) {
	e.Logs = append(e.Logs, LogEntry{Timestamp: now, Level: level, Message: message})
}

// StartRequest is the input to StartTaskExecution.
type StartRequest struct {
	TaskID       string
	AgentIDs     []string
	WorkDirectory string
	ForceRestart bool
}

// StartResult is the output of StartTaskExecution.
type StartResult struct {
	ExecutionID string
	TaskID      string
	Status      Status
}

// ExecutionFilters narrows ListExecutions.
type ExecutionFilters struct {
	TaskID  string
	AgentID string
	Status  []Status
}

// Store is the subset of StoreGateway the ExecutionEngine needs, expressed
// as composite methods that are individually atomic rather than exposing
// a raw transaction object to callers.
type Store interface {
	// CreateExecution persists a new starting Execution and, in the same
	// unit, transitions every referenced agent to agent.StatusExecuting.
	CreateExecution(ctx context.Context, exec *Execution) error

	GetExecution(ctx context.Context, id string) (*Execution, error)
	ListExecutions(ctx context.Context, filters ExecutionFilters) ([]*Execution, error)
	AppendLog(ctx context.Context, id string, entry LogEntry) error

	// SetStatus updates status and, when terminal, end_time/output/error.
	SetStatus(ctx context.Context, id string, status Status, output map[string]any, errDetails *ErrorDetails) error

	// SavePausedSnapshot records the paused-at timestamp.
	SavePausedSnapshot(ctx context.Context, id string, pausedAt time.Time) error

	// SetAgentResponse records the structured response of whichever path
	// (subprocess or fallback) produced it.
	SetAgentResponse(ctx context.Context, id string, resp *AgentResponse) error

	// ReleaseAgents transitions the given agents back to idle, stamping
	// LastActive, in one unit.
	ReleaseAgents(ctx context.Context, agentIDs []string, now time.Time) error

	// ListNonTerminalForAgent returns non-terminal executions referencing agentID.
	ListNonTerminalForAgent(ctx context.Context, agentID string) ([]*Execution, error)

	// GetTask and GetAgents are the read paths the engine needs to admit
	// and drive a run.
	GetTask(ctx context.Context, taskID string) (*task.Task, error)
	GetAgents(ctx context.Context, agentIDs []string) ([]*agent.Agent, error)

	// ReconcileStale runs the startup sweep: delete executions with no
	// task/agent, unconditionally cancel every execution still in
	// starting/running (a process restart means no supervisor is left to
	// finish them), abort workflow executions non-terminal for longer than
	// StaleThreshold, and delete completed or failed workflow executions
	// older than StaleThreshold.
	ReconcileStale(ctx context.Context) (ReconcileReport, error)
}

// ReconcileReport summarizes a startup reconciliation pass, for logging
// and to confirm the sweep is idempotent across repeated runs.
type ReconcileReport struct {
	DeletedCorrupt    int
	CancelledStale    int
	WorkflowsAborted  int
	WorkflowsDeleted  int
}
