package orchestrator

import (
	"context"
	"fmt"
	"time"
)

// runSwarm runs cfg.CoordinationRounds rounds, each round assigning
// contiguous cfg.AgentsPerTask-sized agent slices against the task set and
// waiting a RoundDelay between rounds to let coordination settle.
func (c *Core) runSwarm(ctx context.Context, we *WorkflowExecution, agents []AgentInfo, tasks []TaskInfo, cfg Config) ([]ChildOutcome, map[string]any, error) {
	if len(agents) == 0 {
		return nil, nil, fmt.Errorf("swarm requires at least one agent")
	}
	rounds := cfg.CoordinationRounds
	if rounds <= 0 {
		rounds = DefaultConfig().CoordinationRounds
	}
	perTask := cfg.AgentsPerTask
	if perTask <= 0 {
		perTask = DefaultConfig().AgentsPerTask
	}
	if perTask > len(agents) {
		perTask = len(agents)
	}

	var allOutcomes []ChildOutcome
	collaborations := 0
	emergentCount := 0
	combinations := map[string]bool{}

	for round := 0; round < rounds; round++ {
		c.setStep(we, fmt.Sprintf("coordination round %d/%d", round+1, rounds), 0.1+0.8*float64(round+1)/float64(rounds))

		for i, t := range tasks {
			offset := i % len(agents)
			roundOutcomes := make([]ChildOutcome, 0, perTask)
			for j := 0; j < perTask; j++ {
				agent := agents[(offset+j)%len(agents)]
				combinations[agent.ID+"|"+t.ID] = true
				outcome := c.startChild(ctx, we, agent.ID, t.ID)
				if outcome.Started {
					outcome.Status = c.waitTerminal(ctx, outcome.ExecutionID, ShortChildWait)
				}
				roundOutcomes = append(roundOutcomes, outcome)
			}
			allOutcomes = append(allOutcomes, roundOutcomes...)

			if perTask > 1 {
				collaborations += perTask - 1
				if successCount(roundOutcomes) == perTask {
					emergentCount++
					c.recordMessage(ctx, we, "emergent_behavior", fmt.Sprintf("task %s converged across %d agents", t.Title, perTask), nil)
				}
			}
		}

		c.persistUpdate(ctx, we)
		if round < rounds-1 {
			select {
			case <-ctx.Done():
				return allOutcomes, nil, ctx.Err()
			case <-time.After(c.RoundDelay):
			}
		}
	}

	total := len(allOutcomes)
	efficiency := 0.0
	if total > 0 {
		efficiency = float64(successCount(allOutcomes)) / float64(total)
	}
	intelligence := efficiency * 0.95

	results := map[string]any{
		"total_collaborations":           collaborations,
		"coordination_efficiency":        efficiency,
		"collective_intelligence_score":  intelligence,
		"emergent_behavior_count":        emergentCount,
		"unique_agent_task_combinations": len(combinations),
	}
	return allOutcomes, results, nil
}
