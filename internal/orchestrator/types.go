// Package orchestrator implements OrchestratorCore: the seven workflow
// coordination patterns that drive child executions through the
// ExecutionEngine and aggregate their outcomes, plus the
// shared WorkflowPattern/WorkflowExecution/CoordinationMessage entities.
package orchestrator

import (
	"context"
	"time"

	"github.com/aosanya/agentforge/internal/execution"
)

// Pattern names the seven coordination strategies.
type Pattern string

const (
	Sequential         Pattern = "sequential"
	Parallel           Pattern = "parallel"
	Router             Pattern = "router"
	EvaluatorOptimizer Pattern = "evaluator_optimizer"
	Swarm              Pattern = "swarm"
	Orchestrator       Pattern = "orchestrator"
	Adaptive           Pattern = "adaptive"
)

// Status is a WorkflowExecution's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStarting  Status = "starting"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether s is a terminal WorkflowExecution status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Config holds the shared configuration keys every pattern reads; Extras
// carries forward-compatible, unrecognized keys instead of a free-form
// kwargs dict.
type Config struct {
	MaxIterations            int            `json:"max_iterations"`
	SuccessThreshold         float64        `json:"success_threshold"`
	CoordinationRounds       int            `json:"coordination_rounds"`
	AgentsPerTask            int            `json:"agents_per_task"`
	TimeoutMinutes           int            `json:"timeout_minutes"`
	EnableAgentCommunication bool           `json:"enable_agent_communication"`
	QualityGates             []string       `json:"quality_gates"`
	PerformanceMonitoring    bool           `json:"performance_monitoring"`
	AdaptiveOptimization     bool           `json:"adaptive_optimization"`
	Extras                   map[string]any `json:"extras,omitempty"`
}

// DefaultConfig returns the default coordination settings.
func DefaultConfig() Config {
	return Config{
		MaxIterations:            10,
		SuccessThreshold:         0.85,
		CoordinationRounds:       2,
		AgentsPerTask:            2,
		TimeoutMinutes:           60,
		EnableAgentCommunication: true,
		QualityGates:             []string{},
		PerformanceMonitoring:    true,
		AdaptiveOptimization:     true,
	}
}

// WorkflowPattern is a named, reusable coordination configuration.
type WorkflowPattern struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Type             Pattern  `json:"workflow_type"`
	AgentIDs         []string `json:"agent_ids"`
	TaskIDs          []string `json:"task_ids"`
	Dependencies     []string `json:"dependencies"`
	Config           Config   `json:"config"`
	UserObjective    string   `json:"user_objective,omitempty"`
	ProjectDirectory string   `json:"project_directory,omitempty"`
	// Status is "active" or "inactive"; ExecutePattern requires active.
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrorDetails captures a terminal workflow-execution's failure reason.
type ErrorDetails struct {
	Message string `json:"message"`
	ErrorID string `json:"error_id,omitempty"`
}

// CoordinationMessage is one immutable, observational record of
// inter-agent/coordination traffic logged against a workflow run.
type CoordinationMessage struct {
	ID           string         `json:"id"`
	ExecutionID  string         `json:"execution_id"`
	FromAgent    string         `json:"from_agent"`
	ToAgent      string         `json:"to_agent"`
	MessageType  string         `json:"message_type"`
	Message      string         `json:"message"`
	Payload      map[string]any `json:"payload,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	Acknowledged bool           `json:"acknowledged"`
}

// WorkflowExecution is one run of a WorkflowPattern.
type WorkflowExecution struct {
	ID            string                `json:"id"`
	PatternID     string                `json:"pattern_id"`
	Status        Status                `json:"status"`
	StartTime     time.Time             `json:"start_time"`
	EndTime       *time.Time            `json:"end_time,omitempty"`
	Progress      float64               `json:"progress"`
	CurrentStep   string                `json:"current_step"`
	ExecutionLogs []CoordinationMessage `json:"execution_logs"`
	Results       map[string]any        `json:"results,omitempty"`
	ErrorDetails  *ErrorDetails         `json:"error_details,omitempty"`
}

// AgentInfo is the subset of Agent fields the orchestrator reads.
type AgentInfo struct {
	ID           string
	Name         string
	Role         string
	Capabilities []string
}

// TaskInfo is the subset of Task fields the orchestrator reads.
type TaskInfo struct {
	ID             string
	Title          string
	Description    string
	AssignedAgents []string
}

// ChildOutcome is the terminal result of one child execution a pattern
// started, used to compute each pattern's metrics.
type ChildOutcome struct {
	AgentID     string
	TaskID      string
	ExecutionID string
	Status      execution.Status
	Started     bool
}

// ChildRunner is the subset of ExecutionEngine the orchestrator drives
// child executions through; expressed narrowly so patterns can be tested
// against a fake.
type ChildRunner interface {
	StartTaskExecution(ctx context.Context, req execution.StartRequest) (*execution.StartResult, error)
	GetExecution(ctx context.Context, id string) (*execution.Execution, error)
}

// Store is the subset of StoreGateway OrchestratorCore needs.
type Store interface {
	GetPattern(ctx context.Context, id string) (*WorkflowPattern, error)
	CreateWorkflowExecution(ctx context.Context, we *WorkflowExecution) error
	UpdateWorkflowExecution(ctx context.Context, we *WorkflowExecution) error
	GetWorkflowExecution(ctx context.Context, id string) (*WorkflowExecution, error)
	ListWorkflowExecutions(ctx context.Context, patternID string) ([]*WorkflowExecution, error)
	AppendCoordinationMessage(ctx context.Context, executionID string, msg CoordinationMessage) error
}
