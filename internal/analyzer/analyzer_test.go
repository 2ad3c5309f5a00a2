package analyzer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aosanya/agentforge/internal/analyzer"
	"github.com/aosanya/agentforge/internal/orchestrator"
)

func TestAnalyzeIsDeterministic(t *testing.T) {
	agents := []orchestrator.AgentInfo{{ID: "a1", Role: "research"}, {ID: "a2", Role: "writer"}}
	tasks := []orchestrator.TaskInfo{
		{ID: "t1", Description: "gather and analyze complex data"},
		{ID: "t2", Description: "write summary report"},
	}

	first := analyzer.Analyze(agents, tasks, "please coordinate these")
	second := analyzer.Analyze(agents, tasks, "please coordinate these")
	assert.Equal(t, first, second)
}

func TestAnalyzeRecommendsSequentialForSingleAgent(t *testing.T) {
	agents := []orchestrator.AgentInfo{{ID: "a1"}}
	tasks := []orchestrator.TaskInfo{{ID: "t1"}, {ID: "t2"}}

	result := analyzer.Analyze(agents, tasks, "")
	assert.Equal(t, orchestrator.Sequential, result.RecommendedPattern)
}

func TestAnalyzeRecommendsRouterWhenTasksFarExceedAgents(t *testing.T) {
	agents := []orchestrator.AgentInfo{{ID: "a1"}, {ID: "a2"}}
	tasks := make([]orchestrator.TaskInfo, 5)
	for i := range tasks {
		tasks[i] = orchestrator.TaskInfo{ID: "t"}
	}

	result := analyzer.Analyze(agents, tasks, "")
	assert.Equal(t, orchestrator.Router, result.RecommendedPattern)
}

func TestAnalyzeRecommendsOrchestratorForLargeGroups(t *testing.T) {
	agents := make([]orchestrator.AgentInfo, 6)
	tasks := make([]orchestrator.TaskInfo, 6)
	for i := range agents {
		agents[i] = orchestrator.AgentInfo{ID: "a"}
	}
	for i := range tasks {
		tasks[i] = orchestrator.TaskInfo{ID: "t"}
	}

	result := analyzer.Analyze(agents, tasks, "")
	assert.Equal(t, orchestrator.Orchestrator, result.RecommendedPattern)
}

func TestAnalyzeObjectiveKeywordOverridesCountHeuristics(t *testing.T) {
	agents := []orchestrator.AgentInfo{{ID: "a1"}}
	tasks := []orchestrator.TaskInfo{{ID: "t1"}}

	result := analyzer.Analyze(agents, tasks, "please optimize and review this")
	assert.Equal(t, orchestrator.EvaluatorOptimizer, result.RecommendedPattern)
	assert.Greater(t, result.Confidence, 0.7)
}

func TestAnalyzeComplexityDefaultsToHalfWhenDescriptionMissing(t *testing.T) {
	agents := []orchestrator.AgentInfo{{ID: "a1"}, {ID: "a2"}}
	tasks := []orchestrator.TaskInfo{{ID: "t1"}}

	result := analyzer.Analyze(agents, tasks, "")
	assert.Equal(t, 0.5, result.TaskComplexity["t1"].ComplexityScore)
}

func TestAnalyzeFlagsSingleAgentBottleneckRisk(t *testing.T) {
	agents := []orchestrator.AgentInfo{{ID: "a1"}}
	tasks := make([]orchestrator.TaskInfo, 6)
	for i := range tasks {
		tasks[i] = orchestrator.TaskInfo{ID: "t"}
	}

	result := analyzer.Analyze(agents, tasks, "")
	assert.Contains(t, result.Risks, "Single agent bottleneck for multiple tasks")
}

func TestAnalyzeConfidenceNeverExceedsOne(t *testing.T) {
	agents := make([]orchestrator.AgentInfo, 4)
	for i := range agents {
		agents[i] = orchestrator.AgentInfo{ID: "a"}
	}
	tasks := []orchestrator.TaskInfo{{ID: "t1"}}

	result := analyzer.Analyze(agents, tasks, "parallel concurrent parallel concurrent")
	assert.LessOrEqual(t, result.Confidence, 1.0)
}
