package orchestrator

import (
	"context"
	"fmt"
	"sync"
)

// runParallel starts every (agent, task) pair concurrently and polls each
// to terminal, never stopping early on an individual failure.
func (c *Core) runParallel(ctx context.Context, we *WorkflowExecution, agents []AgentInfo, tasks []TaskInfo, cfg Config) ([]ChildOutcome, map[string]any, error) {
	if len(agents) == 0 {
		return nil, nil, fmt.Errorf("parallel requires at least one agent")
	}

	c.setStep(we, "starting all children", 0.3)
	c.persistUpdate(ctx, we)

	outcomes := make([]ChildOutcome, len(tasks))
	var wg sync.WaitGroup
	var mu sync.Mutex
	completed := 0

	for i, t := range tasks {
		agent := agents[i%len(agents)]
		wg.Add(1)
		go func(idx int, agent AgentInfo, t TaskInfo) {
			defer wg.Done()
			outcome := c.startChild(ctx, we, agent.ID, t.ID)
			if outcome.Started {
				outcome.Status = c.waitTerminal(ctx, outcome.ExecutionID, SequentialChildWait)
			}
			mu.Lock()
			outcomes[idx] = outcome
			completed++
			progress := 0.3 + 0.6*float64(completed)/float64(len(tasks))
			c.setStep(we, fmt.Sprintf("%d/%d complete", completed, len(tasks)), progress)
			mu.Unlock()
		}(i, agent, t)
	}

	wg.Wait()
	c.persistUpdate(ctx, we)

	sortedOutcomes := make([]ChildOutcome, len(outcomes))
	copy(sortedOutcomes, outcomes)

	results := map[string]any{
		"parallel_results":     sortedOutcomes,
		"successful_tasks":     successCount(sortedOutcomes),
		"concurrency_achieved": len(agents),
		"parallel_efficiency":  efficiency(sortedOutcomes),
	}
	return sortedOutcomes, results, nil
}

func efficiency(outcomes []ChildOutcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	return float64(successCount(outcomes)) / float64(len(outcomes))
}
