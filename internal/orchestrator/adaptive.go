package orchestrator

import (
	"context"
	"fmt"

	"github.com/aosanya/agentforge/internal/execution"
)

type adaptiveStrategy string

const (
	parallelAdaptive   adaptiveStrategy = "parallel_adaptive"
	sequentialAdaptive adaptiveStrategy = "sequential_adaptive"
	routerAdaptive     adaptiveStrategy = "router_adaptive"
)

// chooseAdaptiveStrategy implements the Adaptive pattern's three-condition
// sub-strategy selection rule.
func chooseAdaptiveStrategy(agents []AgentInfo, tasks []TaskInfo) adaptiveStrategy {
	if len(agents) > len(tasks) && meanDescriptionLength(tasks) < 100 {
		return parallelAdaptive
	}
	if len(tasks) > 2*len(agents) {
		return sequentialAdaptive
	}
	return routerAdaptive
}

func meanDescriptionLength(tasks []TaskInfo) float64 {
	if len(tasks) == 0 {
		return 0
	}
	total := 0
	for _, t := range tasks {
		total += len(t.Description)
	}
	return float64(total) / float64(len(tasks))
}

// runAdaptive picks a sub-strategy and executes it using that
// sub-strategy's own rules: parallel_adaptive fires every child
// concurrently, sequential_adaptive fires and waits (≤180s) in order and
// stops on the first failure, router_adaptive scores and assigns best
// agent per task.
func (c *Core) runAdaptive(ctx context.Context, we *WorkflowExecution, agents []AgentInfo, tasks []TaskInfo, cfg Config) ([]ChildOutcome, map[string]any, error) {
	if len(agents) == 0 {
		return nil, nil, fmt.Errorf("adaptive requires at least one agent")
	}
	strategy := chooseAdaptiveStrategy(agents, tasks)
	c.recordMessage(ctx, we, "adaptive_selection", fmt.Sprintf("chose strategy %s", strategy), map[string]any{"strategy": string(strategy)})

	var outcomes []ChildOutcome

	switch strategy {
	case parallelAdaptive:
		c.setStep(we, "adaptive: firing all children", 0.3)
		outcomes = make([]ChildOutcome, len(tasks))
		for i, t := range tasks {
			agent := agents[i%len(agents)]
			outcomes[i] = c.startChild(ctx, we, agent.ID, t.ID)
		}
		for i, o := range outcomes {
			if o.Started {
				outcomes[i].Status = c.waitTerminal(ctx, o.ExecutionID, ShortChildWait)
			}
		}
	case sequentialAdaptive:
		for i, t := range tasks {
			agent := agents[i%len(agents)]
			c.setStep(we, fmt.Sprintf("adaptive sequential task %d/%d", i+1, len(tasks)), 0.1+0.8*float64(i+1)/float64(len(tasks)))
			outcome := c.startChild(ctx, we, agent.ID, t.ID)
			if outcome.Started {
				outcome.Status = c.waitTerminal(ctx, outcome.ExecutionID, ShortChildWait)
			}
			outcomes = append(outcomes, outcome)
			if outcome.Status == execution.StatusFailed {
				break
			}
		}
	case routerAdaptive:
		var err error
		outcomes, _, err = c.runRouter(ctx, we, agents, tasks, cfg)
		if err != nil {
			return outcomes, nil, err
		}
	}
	c.persistUpdate(ctx, we)

	total := len(outcomes)
	successful := 0
	if strategy == routerAdaptive {
		successful = successfulStarts(outcomes)
	} else {
		successful = successCount(outcomes)
	}
	efficiency := 0.0
	if total > 0 {
		efficiency = float64(successful) / float64(total)
	}

	results := map[string]any{
		"chosen_strategy":             string(strategy),
		"adaptation_efficiency":       efficiency,
		"adaptive_intelligence_score": efficiency * 0.92,
	}
	return outcomes, results, nil
}
