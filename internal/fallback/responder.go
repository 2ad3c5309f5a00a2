// Package fallback implements FallbackResponder: a
// deterministic, role-keyed stub used when the subprocess path errors or
// is absent, so the execution engine always reaches a terminal state.
package fallback

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// simulatedDelay mirrors the source's small sleep before returning, so
// downstream observers see non-zero execution duration.
const simulatedDelay = 50 * time.Millisecond

// AgentInfo is the subset of agent fields the responder keys off.
type AgentInfo struct {
	Name string
	Role string
}

// TaskInfo is the subset of task fields the responder keys off.
type TaskInfo struct {
	Title string
}

// Response is the deterministic terminal output of the fallback path.
type Response struct {
	AggregatedText  string
	Analysis        string
	ExecutionMethod string
	Status          string
}

// Responder produces canned, role-keyed completions.
type Responder struct {
	// Clock is used for the simulated delay; overridable in tests.
	Clock func() <-chan time.Time
}

// New constructs a Responder with a real-time clock.
func New() *Responder {
	return &Responder{Clock: func() <-chan time.Time { return time.After(simulatedDelay) }}
}

// Respond synthesizes a textual summary for the given agent/task pair. It
// honors ctx cancellation during its simulated delay.
func (r *Responder) Respond(ctx context.Context, agent AgentInfo, task TaskInfo) (*Response, error) {
	select {
	case <-r.clock():
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	text := canned(agent, task)

	return &Response{
		AggregatedText:  text,
		Analysis:        fmt.Sprintf("Task processed using the fallback responder for %s", agent.Role),
		ExecutionMethod: "fallback",
		Status:          "completed",
	}, nil
}

func (r *Responder) clock() <-chan time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.After(simulatedDelay)
}

// canned selects the role-keyed sentence by substring match on the
// lower-cased role, matching the source's expert-system fallback
// (original_source/backend/services/execution_engine.py).
func canned(agent AgentInfo, task TaskInfo) string {
	role := strings.ToLower(agent.Role)

	switch {
	case strings.Contains(role, "backend"):
		return fmt.Sprintf("Backend task '%s' analyzed. Would implement API endpoints, database models, and error handling.", task.Title)
	case strings.Contains(role, "frontend"):
		return fmt.Sprintf("Frontend task '%s' analyzed. Would build UI components with proper state management and styling.", task.Title)
	case strings.Contains(role, "test"):
		return fmt.Sprintf("Testing task '%s' analyzed. Would create unit, integration, and performance test suites.", task.Title)
	default:
		return fmt.Sprintf("Task '%s' completed by %s.", task.Title, agent.Name)
	}
}
