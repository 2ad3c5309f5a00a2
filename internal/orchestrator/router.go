package orchestrator

import (
	"context"
	"fmt"
	"strings"
)

var routerCategories = map[string][]string{
	"gather":  {"gather", "collect", "research"},
	"report":  {"report", "write", "document"},
	"analyze": {"analyze", "process"},
}

// routerRoleKeywords holds the role-side keyword set matched against an
// agent's role for each category. These deliberately differ from
// routerCategories: a task titled "analyze data" is routed to an agent
// whose role contains "analyst", not "analyze".
var routerRoleKeywords = map[string][]string{
	"gather":  {"gather", "research", "info"},
	"report":  {"report", "writer", "document"},
	"analyze": {"analyst", "process"},
}

// routingDecision records the scored choice for one task, for the
// routing_decisions metric.
type routingDecision struct {
	TaskID    string
	TaskName  string
	AgentID   string
	AgentName string
	Score     int
	Reason    string
}

// scoreAgent scores one candidate agent against a task title: +10 for
// a category-keyword match between the task title and the agent role, +5
// if any title word appears in the agent name, +1 baseline.
func scoreAgent(taskTitle string, agent AgentInfo) (int, string) {
	score := 1
	reason := "baseline"
	titleLower := strings.ToLower(taskTitle)
	roleLower := strings.ToLower(agent.Role)

	for category, keywords := range routerCategories {
		titleMatches := false
		for _, kw := range keywords {
			if strings.Contains(titleLower, kw) {
				titleMatches = true
				break
			}
		}
		if !titleMatches {
			continue
		}
		for _, kw := range routerRoleKeywords[category] {
			if strings.Contains(roleLower, kw) {
				score += 10
				reason = "category match"
				break
			}
		}
	}

	for _, word := range strings.Fields(titleLower) {
		if word == "" {
			continue
		}
		if strings.Contains(strings.ToLower(agent.Name), word) {
			score += 5
			if reason == "baseline" {
				reason = "name match"
			}
			break
		}
	}

	return score, reason
}

// runRouter assigns each task to its highest-scoring agent and starts the
// child without waiting for it.
func (c *Core) runRouter(ctx context.Context, we *WorkflowExecution, agents []AgentInfo, tasks []TaskInfo, cfg Config) ([]ChildOutcome, map[string]any, error) {
	if len(agents) == 0 {
		return nil, nil, fmt.Errorf("router requires at least one agent")
	}

	outcomes := make([]ChildOutcome, 0, len(tasks))
	decisions := make([]routingDecision, 0, len(tasks))
	utilized := map[string]bool{}

	for i, t := range tasks {
		bestIdx := 0
		bestScore := -1
		bestReason := ""
		for idx, a := range agents {
			score, reason := scoreAgent(t.Title, a)
			if score > bestScore {
				bestScore = score
				bestIdx = idx
				bestReason = reason
			}
		}
		chosen := agents[bestIdx]
		decisions = append(decisions, routingDecision{
			TaskID: t.ID, TaskName: t.Title, AgentID: chosen.ID, AgentName: chosen.Name, Score: bestScore, Reason: bestReason,
		})
		utilized[chosen.ID] = true

		c.setStep(we, fmt.Sprintf("routing task %d/%d", i+1, len(tasks)), 0.2+0.6*float64(i+1)/float64(len(tasks)))
		outcomes = append(outcomes, c.startChild(ctx, we, chosen.ID, t.ID))
	}
	c.persistUpdate(ctx, we)

	results := map[string]any{
		"routing_decisions":  decisions,
		"successful_routing": successfulStarts(outcomes),
		"routing_efficiency": float64(successfulStarts(outcomes)) / float64(maxInt(len(outcomes), 1)),
		"agents_utilized":    len(utilized),
	}
	return outcomes, results, nil
}

func successfulStarts(outcomes []ChildOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Started {
			n++
		}
	}
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
