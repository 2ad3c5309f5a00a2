package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/aosanya/agentforge/internal/agent"
	"github.com/aosanya/agentforge/internal/domainerr"
	"github.com/aosanya/agentforge/internal/eventbus"
	"github.com/aosanya/agentforge/internal/fallback"
	"github.com/aosanya/agentforge/internal/subprocess"
	"github.com/aosanya/agentforge/internal/task"
)

// Config bounds the timing behavior of the supervised run.
type Config struct {
	// DefaultTimeout is the outer deadline used when the task carries no
	// estimated duration.
	DefaultTimeout time.Duration
	// MaxTimeout is the hard ceiling no outer deadline may exceed.
	MaxTimeout time.Duration
	// SubprocessInnerTimeout bounds each primary-path attempt before the
	// engine falls back to the deterministic responder.
	SubprocessInnerTimeout time.Duration
	// WorkDirectoryRoot is prepended to a generated per-execution directory
	// name when the caller does not supply one.
	WorkDirectoryRoot string
}

// DefaultConfig returns the timing values names.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:         300 * time.Second,
		MaxTimeout:             600 * time.Second,
		SubprocessInnerTimeout: 60 * time.Second,
		WorkDirectoryRoot:      "claude_executions",
	}
}

// SystemStatus summarizes the engine's in-memory and persisted state for
// the AgentStatusSummary/SystemStatus read model.
type SystemStatus struct {
	Total     int
	Running   int
	Paused    int
	Completed int
	Failed    int
	Cancelled int
}

// activeRun is the bookkeeping the engine keeps for one in-flight execution.
type activeRun struct {
	cancel context.CancelFunc
}

// Engine implements the ExecutionEngine: it admits, drives, and supervises
// one Execution at a time per (task, agent) pair, with a subprocess-backed
// primary path and a deterministic fallback.
type Engine struct {
	store     Store
	bus       *eventbus.Bus
	runner    *subprocess.Runner
	responder *fallback.Responder
	config    Config
	logger    *log.Logger

	mu      sync.Mutex
	active  map[string]*activeRun
	reasons map[string]string
}

// NewEngine constructs an Engine. logger defaults to logrus's standard
// logger when nil.
func NewEngine(store Store, bus *eventbus.Bus, runner *subprocess.Runner, responder *fallback.Responder, config Config, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Engine{
		store:     store,
		bus:       bus,
		runner:    runner,
		responder: responder,
		config:    config,
		logger:    logger,
		active:    make(map[string]*activeRun),
		reasons:   make(map[string]string),
	}
}

// StartTaskExecution admits and launches a new Execution for req.TaskID
// driven by req.AgentIDs (or the task's assigned agents if empty).
func (e *Engine) StartTaskExecution(ctx context.Context, req StartRequest) (*StartResult, error) {
	if req.TaskID == "" {
		return nil, domainerr.NewInvariant("task_id", "must not be empty")
	}

	t, err := e.store.GetTask(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}

	agentIDs := req.AgentIDs
	if len(agentIDs) == 0 {
		for _, a := range t.AssignedAgents {
			agentIDs = append(agentIDs, a.AgentID)
		}
	}
	if len(agentIDs) == 0 {
		return nil, domainerr.NewInvariant("agent_ids", "at least one agent is required")
	}

	agents, err := e.store.GetAgents(ctx, agentIDs)
	if err != nil {
		return nil, err
	}

	if !req.ForceRestart {
		for _, agentID := range agentIDs {
			existing, err := e.store.ListNonTerminalForAgent(ctx, agentID)
			if err != nil {
				return nil, err
			}
			if len(existing) > 0 {
				return nil, domainerr.NewConflict(
					fmt.Sprintf("agent %s already has a non-terminal execution", agentID),
					"set force_restart to override")
			}
		}
	}

	now := time.Now().UTC()
	exec := &Execution{
		ID:        generateID(),
		TaskID:    req.TaskID,
		AgentID:   agentIDs[0],
		AgentIDs:  agentIDs,
		Status:    StatusStarting,
		StartTime: now,
		Logs:      []LogEntry{},
	}
	exec.WorkDirectory = req.WorkDirectory
	if exec.WorkDirectory == "" {
		exec.WorkDirectory = fmt.Sprintf("%s/execution_%s", e.config.WorkDirectoryRoot, exec.ID)
	}
	exec.AppendLog("info", "execution created", now)

	if err := e.store.CreateExecution(ctx, exec); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.active[exec.ID] = &activeRun{cancel: cancel}
	e.mu.Unlock()

	e.publish(eventbus.TopicExecution, "execution_started", map[string]any{
		"execution_id": exec.ID,
		"task_id":      exec.TaskID,
		"agent_ids":    exec.AgentIDs,
	})

	go e.run(runCtx, exec.ID, t, agents, exec.WorkDirectory)

	return &StartResult{ExecutionID: exec.ID, TaskID: exec.TaskID, Status: exec.Status}, nil
}

// run drives the supervised lifecycle of one execution to a terminal or
// paused state. It always runs to completion on its own goroutine; callers
// observe progress through the store and the event bus.
func (e *Engine) run(ctx context.Context, execID string, t *task.Task, agents []*agent.Agent, workDir string) {
	storeCtx := context.Background()

	defer func() {
		e.mu.Lock()
		delete(e.active, execID)
		e.mu.Unlock()
	}()

	if err := e.store.SetStatus(storeCtx, execID, StatusRunning, nil, nil); err != nil {
		e.logger.WithError(err).WithField("execution_id", execID).Error("failed to mark execution running")
	}
	_ = e.store.AppendLog(storeCtx, execID, LogEntry{Timestamp: time.Now().UTC(), Level: "info", Message: "execution running"})
	e.publish(eventbus.TopicExecution, "execution_running", map[string]any{"execution_id": execID})

	outerTimeout := e.outerTimeout(t)
	runCtx, cancel := context.WithTimeout(ctx, outerTimeout)
	defer cancel()

	prompt := buildPrompt(t)

	result, subErr := e.runner.Run(runCtx, subprocess.Request{
		Prompt:           prompt,
		WorkingDirectory: workDir,
		Timeout:          e.config.SubprocessInnerTimeout,
		NonInteractive:   true,
	})

	var (
		response  *AgentResponse
		outputErr error
	)

	switch {
	case subErr == nil:
		response = &AgentResponse{
			AggregatedText:  result.AggregatedText,
			MessagesCount:   result.MessagesCount,
			WorkDirectory:   result.WorkDirectory,
			ExecutionMethod: result.ExecutionMethod,
		}
	case errors.Is(subErr, context.Canceled):
		e.finishInterrupted(storeCtx, execID, agents)
		return
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		// The outer deadline is already exhausted; there is no time
		// left to attempt the fallback path.
		e.finishTimeout(storeCtx, execID, agents, outerTimeout)
		return
	default:
		_ = e.store.AppendLog(storeCtx, execID, LogEntry{
			Timestamp: time.Now().UTC(), Level: "warn",
			Message: fmt.Sprintf("primary path failed, falling back: %v", subErr),
		})

		primaryAgent := primaryAgentInfo(agents)
		fbResult, fbErr := e.responder.Respond(runCtx, primaryAgent, fallback.TaskInfo{Title: t.Title})
		switch {
		case fbErr == nil:
			response = &AgentResponse{
				AggregatedText:  fbResult.AggregatedText,
				Analysis:        fbResult.Analysis,
				WorkDirectory:   workDir,
				ExecutionMethod: fbResult.ExecutionMethod,
			}
		case errors.Is(fbErr, context.DeadlineExceeded):
			e.finishTimeout(storeCtx, execID, agents, outerTimeout)
			return
		case errors.Is(fbErr, context.Canceled):
			e.finishInterrupted(storeCtx, execID, agents)
			return
		default:
			outputErr = fbErr
		}
	}

	if outputErr != nil {
		e.finishFailed(storeCtx, execID, agents, outputErr)
		return
	}

	e.finishCompleted(storeCtx, execID, agents, response)
}

func (e *Engine) finishCompleted(ctx context.Context, execID string, agents []*agent.Agent, response *AgentResponse) {
	if err := e.store.SetAgentResponse(ctx, execID, response); err != nil {
		e.logger.WithError(err).Error("failed to record agent response")
	}
	output := map[string]any{"execution_method": response.ExecutionMethod}
	if err := e.store.SetStatus(ctx, execID, StatusCompleted, output, nil); err != nil {
		e.logger.WithError(err).Error("failed to mark execution completed")
	}
	e.releaseAgents(ctx, agents)
	e.publish(eventbus.TopicExecution, "execution_completed", map[string]any{"execution_id": execID})
}

func (e *Engine) finishFailed(ctx context.Context, execID string, agents []*agent.Agent, cause error) {
	de := domainerr.NewInternal(cause)
	if err := e.store.SetStatus(ctx, execID, StatusFailed, nil, &ErrorDetails{Kind: ErrorKindInternal, Message: de.Message}); err != nil {
		e.logger.WithError(err).Error("failed to mark execution failed")
	}
	e.releaseAgents(ctx, agents)
	e.publish(eventbus.TopicExecution, "execution_failed", map[string]any{"execution_id": execID, "error_id": de.ErrorID})
}

func (e *Engine) finishTimeout(ctx context.Context, execID string, agents []*agent.Agent, timeout time.Duration) {
	details := &ErrorDetails{Kind: ErrorKindTimeout, Message: "deadline exceeded", TimeoutSeconds: timeout.Seconds()}
	if err := e.store.SetStatus(ctx, execID, StatusTimeout, nil, details); err != nil {
		e.logger.WithError(err).Error("failed to mark execution timed out")
	}
	e.releaseAgents(ctx, agents)
	e.publish(eventbus.TopicExecution, "execution_timeout", map[string]any{"execution_id": execID})
}

func (e *Engine) finishInterrupted(ctx context.Context, execID string, agents []*agent.Agent) {
	e.mu.Lock()
	reason := e.reasons[execID]
	delete(e.reasons, execID)
	e.mu.Unlock()

	now := time.Now().UTC()
	if reason == "paused" {
		if err := e.store.SavePausedSnapshot(ctx, execID, now); err != nil {
			e.logger.WithError(err).Error("failed to save paused snapshot")
		}
		if err := e.store.SetStatus(ctx, execID, StatusPaused, nil, nil); err != nil {
			e.logger.WithError(err).Error("failed to mark execution paused")
		}
		e.publish(eventbus.TopicExecution, "execution_paused", map[string]any{"execution_id": execID})
		return
	}

	if err := e.store.SetStatus(ctx, execID, StatusCancelled, nil, nil); err != nil {
		e.logger.WithError(err).Error("failed to mark execution cancelled")
	}
	e.releaseAgents(ctx, agents)
	e.publish(eventbus.TopicExecution, "execution_cancelled", map[string]any{"execution_id": execID})
}

func (e *Engine) releaseAgents(ctx context.Context, agents []*agent.Agent) {
	if len(agents) == 0 {
		return
	}
	ids := make([]string, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.ID)
	}
	if err := e.store.ReleaseAgents(ctx, ids, time.Now().UTC()); err != nil {
		e.logger.WithError(err).Error("failed to release agents")
	}
}

// PauseExecution cancels the in-flight run for id, leaving its agents
// reserved and its status paused for a later ResumeExecution.
func (e *Engine) PauseExecution(ctx context.Context, id string) error {
	e.mu.Lock()
	run, ok := e.active[id]
	if !ok {
		e.mu.Unlock()
		return domainerr.NewConflict(fmt.Sprintf("execution %s is not running", id), "only a running execution can be paused")
	}
	e.reasons[id] = "paused"
	run.cancel()
	delete(e.active, id)
	e.mu.Unlock()
	return nil
}

// ResumeExecution restarts a paused execution's supervised run.
func (e *Engine) ResumeExecution(ctx context.Context, id string) error {
	exec, err := e.store.GetExecution(ctx, id)
	if err != nil {
		return err
	}
	if exec.Status != StatusPaused {
		return domainerr.NewConflict(fmt.Sprintf("execution %s is not paused", id), "only a paused execution can be resumed")
	}

	t, err := e.store.GetTask(ctx, exec.TaskID)
	if err != nil {
		return err
	}
	agents, err := e.store.GetAgents(ctx, exec.AgentIDs)
	if err != nil {
		return err
	}

	if err := e.store.SetStatus(ctx, id, StatusRunning, nil, nil); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.active[id] = &activeRun{cancel: cancel}
	e.mu.Unlock()

	go e.run(runCtx, id, t, agents, exec.WorkDirectory)

	e.publish(eventbus.TopicExecution, "execution_resumed", map[string]any{"execution_id": id})
	return nil
}

// AbortExecution cancels a running execution, or directly terminates a
// paused one, in both cases releasing its reserved agents.
func (e *Engine) AbortExecution(ctx context.Context, id string) error {
	e.mu.Lock()
	run, ok := e.active[id]
	if ok {
		e.reasons[id] = "aborted"
		run.cancel()
		delete(e.active, id)
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	exec, err := e.store.GetExecution(ctx, id)
	if err != nil {
		return err
	}
	if exec.Status.IsTerminal() {
		return domainerr.NewConflict(fmt.Sprintf("execution %s is already terminal", id), "")
	}

	agents, err := e.store.GetAgents(ctx, exec.AgentIDs)
	if err != nil {
		return err
	}
	if err := e.store.SetStatus(ctx, id, StatusCancelled, nil, nil); err != nil {
		return err
	}
	e.releaseAgents(ctx, agents)
	e.publish(eventbus.TopicExecution, "execution_cancelled", map[string]any{"execution_id": id})
	return nil
}

// GetExecution returns the persisted execution by id.
func (e *Engine) GetExecution(ctx context.Context, id string) (*Execution, error) {
	return e.store.GetExecution(ctx, id)
}

// ListExecutions returns persisted executions matching filters.
func (e *Engine) ListExecutions(ctx context.Context, filters ExecutionFilters) ([]*Execution, error) {
	return e.store.ListExecutions(ctx, filters)
}

// GetSystemStatus tallies persisted executions by status.
func (e *Engine) GetSystemStatus(ctx context.Context) (SystemStatus, error) {
	execs, err := e.store.ListExecutions(ctx, ExecutionFilters{})
	if err != nil {
		return SystemStatus{}, err
	}
	var s SystemStatus
	for _, ex := range execs {
		s.Total++
		switch ex.Status {
		case StatusRunning, StatusStarting:
			s.Running++
		case StatusPaused:
			s.Paused++
		case StatusCompleted:
			s.Completed++
		case StatusFailed, StatusTimeout:
			s.Failed++
		case StatusCancelled, StatusAborted:
			s.Cancelled++
		}
	}
	return s, nil
}

func (e *Engine) outerTimeout(t *task.Task) time.Duration {
	timeout := e.config.DefaultTimeout
	if minutes := t.EstimatedMinutes(); minutes != nil && *minutes > 0 {
		timeout = time.Duration(*minutes) * time.Minute
	}
	if timeout > e.config.MaxTimeout {
		timeout = e.config.MaxTimeout
	}
	return timeout
}

func (e *Engine) publish(topic eventbus.Topic, eventType string, payload map[string]any) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(eventbus.Event{Type: topic, EventType: eventType, Payload: payload})
}

func buildPrompt(t *task.Task) string {
	prompt := fmt.Sprintf("Task: %s\n\n%s", t.Title, t.Description)
	if t.ExpectedOutput != "" {
		prompt += fmt.Sprintf("\n\nExpected output: %s", t.ExpectedOutput)
	}
	return prompt
}

func primaryAgentInfo(agents []*agent.Agent) fallback.AgentInfo {
	if len(agents) == 0 {
		return fallback.AgentInfo{}
	}
	return fallback.AgentInfo{Name: agents[0].Name, Role: agents[0].Role}
}

func generateID() string {
	return uuid.New().String()
}
