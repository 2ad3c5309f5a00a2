package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/aosanya/agentforge/internal/eventbus"
	"github.com/aosanya/agentforge/internal/execution"
)

// Default per-child wait deadlines.
const (
	SequentialChildWait = 300 * time.Second
	ShortChildWait      = 180 * time.Second
)

// Core implements OrchestratorCore: it drives N child executions through
// a ChildRunner for whichever of the seven patterns a WorkflowPattern
// names, recording coordination messages and progress on the
// WorkflowExecution row as it goes.
type Core struct {
	runner ChildRunner
	bus    *eventbus.Bus
	store  Store
	logger *log.Logger

	// PollInterval is how often per-child wait loops re-check the store.
	// Defaults to 2s. Exported so tests can shrink it.
	PollInterval time.Duration
	// RoundDelay is the pause Swarm takes between coordination rounds.
	// Defaults to 1s.
	RoundDelay time.Duration
}

// NewCore constructs a Core with default timing.
func NewCore(runner ChildRunner, bus *eventbus.Bus, store Store, logger *log.Logger) *Core {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Core{
		runner:       runner,
		bus:          bus,
		store:        store,
		logger:       logger,
		PollInterval: 2 * time.Second,
		RoundDelay:   1 * time.Second,
	}
}

// ExecuteWorkflow drives pattern's coordination strategy over agents and
// tasks, aggregating child outcomes onto a new WorkflowExecution.
func (c *Core) ExecuteWorkflow(ctx context.Context, pattern *WorkflowPattern, agents []AgentInfo, tasks []TaskInfo) (*WorkflowExecution, error) {
	we := &WorkflowExecution{
		ID:            uuid.New().String(),
		PatternID:     pattern.ID,
		Status:        StatusStarting,
		StartTime:     time.Now().UTC(),
		ExecutionLogs: []CoordinationMessage{},
	}
	c.persistCreate(ctx, we)

	we.Status = StatusRunning
	c.persistUpdate(ctx, we)
	c.publish("started", we)

	cfg := pattern.Config

	var (
		outcomes []ChildOutcome
		results  map[string]any
		err      error
	)

	switch pattern.Type {
	case Sequential:
		outcomes, results, err = c.runSequential(ctx, we, agents, tasks, cfg)
	case Parallel:
		outcomes, results, err = c.runParallel(ctx, we, agents, tasks, cfg)
	case Router:
		outcomes, results, err = c.runRouter(ctx, we, agents, tasks, cfg)
	case EvaluatorOptimizer:
		outcomes, results, err = c.runEvaluatorOptimizer(ctx, we, agents, tasks, cfg)
	case Swarm:
		outcomes, results, err = c.runSwarm(ctx, we, agents, tasks, cfg)
	case Orchestrator:
		outcomes, results, err = c.runOrchestratorPattern(ctx, we, agents, tasks, cfg)
	case Adaptive:
		outcomes, results, err = c.runAdaptive(ctx, we, agents, tasks, cfg)
	default:
		err = fmt.Errorf("unknown workflow pattern %q", pattern.Type)
	}

	now := time.Now().UTC()
	we.EndTime = &now

	if err != nil {
		we.Status = StatusFailed
		we.ErrorDetails = &ErrorDetails{Message: err.Error()}
	} else {
		we.Status = StatusCompleted
		we.Progress = 1.0
		if results == nil {
			results = map[string]any{}
		}
		results["child_count"] = len(outcomes)
		we.Results = results
	}

	c.persistUpdate(ctx, we)
	c.publish(string(we.Status), we)

	return we, nil
}

// AbortWorkflowExecution transitions we to cancelled without cascading
// into any in-flight child execution: the caller must
// abort individual children explicitly for a full stop.
func (c *Core) AbortWorkflowExecution(ctx context.Context, we *WorkflowExecution, userInitiated bool) {
	now := time.Now().UTC()
	we.Status = StatusCancelled
	we.EndTime = &now
	reason := "Pattern deleted with force flag"
	if userInitiated {
		reason = "user aborted"
	}
	c.recordMessage(ctx, we, "system", reason, nil)
	c.persistUpdate(ctx, we)
	c.publish("cancelled", we)
}

func (c *Core) startChild(ctx context.Context, we *WorkflowExecution, agentID, taskID string) ChildOutcome {
	result, err := c.runner.StartTaskExecution(ctx, execution.StartRequest{
		TaskID:   taskID,
		AgentIDs: []string{agentID},
	})
	if err != nil {
		c.recordMessage(ctx, we, "child_start_failed", fmt.Sprintf("failed to start agent %s on task %s: %v", agentID, taskID, err), nil)
		return ChildOutcome{AgentID: agentID, TaskID: taskID, Status: execution.StatusFailed, Started: false}
	}
	c.recordMessage(ctx, we, "child_started", fmt.Sprintf("agent %s started on task %s", agentID, taskID), map[string]any{"execution_id": result.ExecutionID})
	return ChildOutcome{AgentID: agentID, TaskID: taskID, ExecutionID: result.ExecutionID, Status: result.Status, Started: true}
}

// waitTerminal polls the store every PollInterval until the execution
// reaches a terminal status or timeout elapses.
func (c *Core) waitTerminal(ctx context.Context, executionID string, timeout time.Duration) execution.Status {
	deadline := time.Now().Add(timeout)
	for {
		exec, err := c.runner.GetExecution(ctx, executionID)
		if err == nil && exec.Status.IsTerminal() {
			return exec.Status
		}
		if time.Now().After(deadline) {
			return execution.StatusTimeout
		}
		select {
		case <-ctx.Done():
			return execution.StatusCancelled
		case <-time.After(c.PollInterval):
		}
	}
}

func (c *Core) recordMessage(ctx context.Context, we *WorkflowExecution, messageType, message string, payload map[string]any) {
	msg := CoordinationMessage{
		ID:          uuid.New().String(),
		ExecutionID: we.ID,
		MessageType: messageType,
		Message:     message,
		Payload:     payload,
		Timestamp:   time.Now().UTC(),
	}
	we.ExecutionLogs = append(we.ExecutionLogs, msg)
	if c.store != nil {
		if err := c.store.AppendCoordinationMessage(ctx, we.ID, msg); err != nil {
			c.logger.WithError(err).Warn("failed to persist coordination message")
		}
	}
}

func (c *Core) setStep(we *WorkflowExecution, step string, progress float64) {
	we.CurrentStep = step
	if progress > we.Progress {
		we.Progress = progress
	}
}

func (c *Core) persistCreate(ctx context.Context, we *WorkflowExecution) {
	if c.store == nil {
		return
	}
	if err := c.store.CreateWorkflowExecution(ctx, we); err != nil {
		c.logger.WithError(err).Warn("failed to persist workflow execution")
	}
}

func (c *Core) persistUpdate(ctx context.Context, we *WorkflowExecution) {
	if c.store == nil {
		return
	}
	if err := c.store.UpdateWorkflowExecution(ctx, we); err != nil {
		c.logger.WithError(err).Warn("failed to persist workflow execution update")
	}
}

func (c *Core) publish(eventType string, we *WorkflowExecution) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(eventbus.Event{
		Type:      eventbus.TopicWorkflow,
		EventType: eventType,
		Payload: map[string]any{
			"workflow_execution_id": we.ID,
			"pattern_id":            we.PatternID,
			"status":                we.Status,
			"progress":              we.Progress,
		},
	})
}

func successCount(outcomes []ChildOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == execution.StatusCompleted {
			n++
		}
	}
	return n
}
