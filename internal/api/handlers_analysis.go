package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aosanya/agentforge/internal/analyzer"
	"github.com/aosanya/agentforge/internal/orchestrator"
)

func (s *Server) setupAnalysisRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze", s.analyzeWorkflow)
}

type analyzeRequest struct {
	AgentIDs  []string `json:"agent_ids" binding:"required"`
	TaskIDs   []string `json:"task_ids" binding:"required"`
	Objective string   `json:"objective"`
}

// analyzeWorkflow recommends a coordination pattern for the given agents
// and tasks without starting any execution.
func (s *Server) analyzeWorkflow(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	agents, err := s.services.Store.GetAgents(ctx, req.AgentIDs)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	agentInfos := make([]orchestrator.AgentInfo, 0, len(agents))
	for _, a := range agents {
		agentInfos = append(agentInfos, toAgentInfo(a))
	}

	taskInfos := make([]orchestrator.TaskInfo, 0, len(req.TaskIDs))
	for _, taskID := range req.TaskIDs {
		t, err := s.services.Store.GetTask(ctx, taskID)
		if err != nil {
			HandleDomainError(c, err)
			return
		}
		taskInfos = append(taskInfos, toTaskInfo(t))
	}

	analysis := analyzer.Analyze(agentInfos, taskInfos, req.Objective)
	SuccessResponse(c, analysis)
}
