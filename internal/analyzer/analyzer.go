// Package analyzer implements WorkflowAnalyzer: a pure function that
// recommends a coordination pattern for a given set of agents and tasks.
// It has no side effects and no dependency on the store, event bus, or
// execution engine: identical input always produces identical output.
package analyzer

import (
	"strings"

	"github.com/aosanya/agentforge/internal/orchestrator"
)

var complexityIndicators = []string{"complex", "analyze", "optimize", "coordinate", "integrate"}

var objectiveKeywords = map[orchestrator.Pattern][]string{
	orchestrator.EvaluatorOptimizer: {"review", "optimize", "iterate"},
	orchestrator.Router:             {"route", "assign", "distribute"},
	orchestrator.Swarm:              {"collaborate", "swarm", "emergent"},
	orchestrator.Parallel:           {"parallel", "concurrent"},
	orchestrator.Sequential:         {"sequential", "step", "order"},
}

// TaskComplexity is one task's computed complexity score.
type TaskComplexity struct {
	TaskID               string  `json:"task_id"`
	ComplexityScore      float64 `json:"complexity_score"`
	RequiresCoordination bool    `json:"requires_coordination"`
}

// Analysis is WorkflowAnalyzer's full recommendation output.
type Analysis struct {
	RecommendedPattern orchestrator.Pattern      `json:"recommended_pattern"`
	Confidence         float64                   `json:"confidence"`
	Reasoning          string                    `json:"reasoning"`
	TaskComplexity     map[string]TaskComplexity `json:"task_complexity"`
	Risks              []string                  `json:"risks"`
	Suggestions        []string                  `json:"suggestions"`
}

// Analyze recommends a pattern for agents and tasks given an optional
// user objective string. It is pure: no I/O, no side
// effects, deterministic for identical input.
func Analyze(agents []orchestrator.AgentInfo, tasks []orchestrator.TaskInfo, objective string) Analysis {
	agentCount := len(agents)
	taskCount := len(tasks)

	complexities := make(map[string]TaskComplexity, taskCount)
	for _, t := range tasks {
		complexities[t.ID] = TaskComplexity{
			TaskID:               t.ID,
			ComplexityScore:      complexityScore(t.Description),
			RequiresCoordination: agentCount > 1,
		}
	}

	pattern := recommendPattern(agentCount, taskCount, complexities, objective)
	confidence := confidenceScore(pattern, agentCount, taskCount, objective)
	reasoning := reasoningFor(pattern, agentCount, taskCount, objective)
	risks := identifyRisks(agentCount, taskCount, complexities)
	suggestions := suggestionsFor(pattern, agentCount, taskCount)

	return Analysis{
		RecommendedPattern: pattern,
		Confidence:         confidence,
		Reasoning:          reasoning,
		TaskComplexity:     complexities,
		Risks:              risks,
		Suggestions:        suggestions,
	}
}

// complexityScore implements clamp(desc_len/200 +
// matches/10, 0, 1), defaulting to 0.5 when description is empty.
func complexityScore(description string) float64 {
	if description == "" {
		return 0.5
	}
	lower := strings.ToLower(description)
	matches := 0
	for _, word := range complexityIndicators {
		if strings.Contains(lower, word) {
			matches++
		}
	}
	score := float64(len(description))/200.0 + float64(matches)/10.0
	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}
	return score
}

func recommendPattern(agentCount, taskCount int, complexities map[string]TaskComplexity, objective string) orchestrator.Pattern {
	lower := strings.ToLower(objective)

	if containsAny(lower, "review", "optimize", "iterate") {
		return orchestrator.EvaluatorOptimizer
	}
	if containsAny(lower, "route", "assign", "distribute") {
		return orchestrator.Router
	}
	if containsAny(lower, "collaborate", "swarm", "emergent") {
		return orchestrator.Swarm
	}
	if containsAny(lower, "parallel", "concurrent") {
		return orchestrator.Parallel
	}
	if containsAny(lower, "sequential", "step", "order") {
		return orchestrator.Sequential
	}

	if agentCount == 1 {
		return orchestrator.Sequential
	}
	if agentCount > 5 && taskCount > 5 {
		return orchestrator.Orchestrator
	}
	if taskCount > agentCount*2 {
		return orchestrator.Router
	}
	if agentCount > 3 && allComplex(complexities, 0.7) {
		return orchestrator.Swarm
	}
	if noneNeedCoordination(complexities) {
		return orchestrator.Parallel
	}
	return orchestrator.Orchestrator
}

func confidenceScore(pattern orchestrator.Pattern, agentCount, taskCount int, objective string) float64 {
	confidence := 0.7
	lower := strings.ToLower(objective)

	if keywords, ok := objectiveKeywords[pattern]; ok {
		matches := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				matches++
			}
		}
		confidence += float64(matches) * 0.1
	}

	if pattern == orchestrator.Orchestrator && agentCount > 3 {
		confidence += 0.1
	}
	if pattern == orchestrator.Parallel && taskCount <= agentCount {
		confidence += 0.1
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func reasoningFor(pattern orchestrator.Pattern, agentCount, taskCount int, objective string) string {
	var base string
	switch pattern {
	case orchestrator.Orchestrator:
		base = "Recommended orchestrator pattern for coordination across agents and tasks requiring delegation and dependency management."
	case orchestrator.Parallel:
		base = "Recommended parallel pattern because tasks can be executed independently, maximizing throughput."
	case orchestrator.Router:
		base = "Recommended router pattern for distributing tasks by agent specialization."
	case orchestrator.EvaluatorOptimizer:
		base = "Recommended evaluator-optimizer pattern for iterative quality improvement with review cycles."
	case orchestrator.Swarm:
		base = "Recommended swarm pattern for collaborative problem-solving with emergent coordination."
	case orchestrator.Sequential:
		base = "Recommended sequential pattern for step-by-step execution with clear dependencies."
	case orchestrator.Adaptive:
		base = "Recommended adaptive pattern to switch strategy based on the agent and task shape."
	default:
		base = "Selected based on agent and task analysis."
	}
	if objective != "" {
		base += " User objective: \"" + objective + "\" aligns with this pattern's strengths."
	}
	return base
}

func identifyRisks(agentCount, taskCount int, complexities map[string]TaskComplexity) []string {
	var risks []string
	if agentCount > 5 {
		risks = append(risks, "High coordination overhead with large agent count")
	}
	if taskCount > 10 {
		risks = append(risks, "Complex task management with many concurrent tasks")
	}
	highComplexity := 0
	for _, c := range complexities {
		if c.ComplexityScore > 0.8 {
			highComplexity++
		}
	}
	if highComplexity > 3 {
		risks = append(risks, "Multiple high-complexity tasks may require extended execution time")
	}
	if agentCount == 1 && taskCount > 5 {
		risks = append(risks, "Single agent bottleneck for multiple tasks")
	}
	return risks
}

func suggestionsFor(pattern orchestrator.Pattern, agentCount, taskCount int) []string {
	var suggestions []string
	switch pattern {
	case orchestrator.Orchestrator:
		suggestions = append(suggestions,
			"Consider implementing task priority queues for optimal resource allocation",
			"Enable real-time performance monitoring for adaptive load balancing",
			"Set up quality gates at key coordination points",
		)
	case orchestrator.Swarm:
		suggestions = append(suggestions,
			"Enable agent-to-agent communication for emergent coordination",
			"Implement consensus mechanisms for collective decision making",
			"Set up performance metrics for swarm intelligence evaluation",
		)
	}
	if pattern == orchestrator.Parallel && agentCount < taskCount {
		suggestions = append(suggestions, "Consider increasing agent pool for better parallelization")
	}
	if agentCount > 3 {
		suggestions = append(suggestions, "Enable comprehensive communication logging for coordination analysis")
	}
	return suggestions
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func allComplex(complexities map[string]TaskComplexity, threshold float64) bool {
	if len(complexities) == 0 {
		return false
	}
	for _, c := range complexities {
		if c.ComplexityScore <= threshold {
			return false
		}
	}
	return true
}

func noneNeedCoordination(complexities map[string]TaskComplexity) bool {
	for _, c := range complexities {
		if c.RequiresCoordination {
			return false
		}
	}
	return true
}
