package orchestrator

import (
	"context"
	"fmt"

	"github.com/aosanya/agentforge/internal/execution"
)

// runSequential pairs agents[i mod |agents|] with tasks[i] in order,
// waiting each child to terminal before starting the next, and stops on
// the first failure.
func (c *Core) runSequential(ctx context.Context, we *WorkflowExecution, agents []AgentInfo, tasks []TaskInfo, cfg Config) ([]ChildOutcome, map[string]any, error) {
	if len(agents) == 0 {
		return nil, nil, fmt.Errorf("sequential requires at least one agent")
	}

	outcomes := make([]ChildOutcome, 0, len(tasks))
	order := make([]string, 0, len(tasks))

	for i, t := range tasks {
		agent := agents[i%len(agents)]
		c.setStep(we, fmt.Sprintf("task %d/%d: %s", i+1, len(tasks), t.Title), 0.1)

		outcome := c.startChild(ctx, we, agent.ID, t.ID)
		if outcome.Started {
			outcome.Status = c.waitTerminal(ctx, outcome.ExecutionID, SequentialChildWait)
		}
		outcomes = append(outcomes, outcome)
		order = append(order, fmt.Sprintf("%s -> %s", agent.Name, t.Title))

		progress := 0.1 + 0.8*float64(i+1)/float64(len(tasks))
		c.setStep(we, we.CurrentStep, progress)
		c.persistUpdate(ctx, we)

		if outcome.Status == execution.StatusFailed {
			break
		}
	}

	successRate := 0.0
	if len(tasks) > 0 {
		successRate = float64(len(outcomes)) / float64(len(tasks))
	}

	results := map[string]any{
		"steps_completed": len(outcomes),
		"total_steps":     len(tasks),
		"success_rate":    successRate,
		"execution_order": order,
	}
	return outcomes, results, nil
}
