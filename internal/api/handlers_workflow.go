package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aosanya/agentforge/internal/agent"
	"github.com/aosanya/agentforge/internal/domainerr"
	"github.com/aosanya/agentforge/internal/orchestrator"
	"github.com/aosanya/agentforge/internal/task"
)

func (s *Server) setupWorkflowRoutes(rg *gin.RouterGroup) {
	workflows := rg.Group("/workflows")
	{
		workflows.POST("/:patternId/execute", s.executeWorkflow)
		workflows.GET("/executions/:id", s.getWorkflowExecution)
		workflows.GET("/:patternId/executions", s.listWorkflowExecutions)
		workflows.POST("/executions/:id/abort", s.abortWorkflowExecution)
	}
}

func (s *Server) executeWorkflow(c *gin.Context) {
	ctx := c.Request.Context()
	patternID := c.Param("patternId")

	pattern, err := s.services.Store.GetPattern(ctx, patternID)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	if pattern.Status != "active" {
		HandleDomainError(c, domainerr.NewConflict("pattern is not active", "activate the pattern before executing it"))
		return
	}

	agents, err := s.services.Store.GetAgents(ctx, pattern.AgentIDs)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	agentInfos := make([]orchestrator.AgentInfo, 0, len(agents))
	for _, a := range agents {
		agentInfos = append(agentInfos, toAgentInfo(a))
	}

	taskInfos := make([]orchestrator.TaskInfo, 0, len(pattern.TaskIDs))
	for _, taskID := range pattern.TaskIDs {
		t, err := s.services.Store.GetTask(ctx, taskID)
		if err != nil {
			HandleDomainError(c, err)
			return
		}
		taskInfos = append(taskInfos, toTaskInfo(t))
	}

	we, err := s.services.Core.ExecuteWorkflow(ctx, pattern, agentInfos, taskInfos)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	CreatedResponse(c, we)
}

func (s *Server) getWorkflowExecution(c *gin.Context) {
	we, err := s.services.Store.GetWorkflowExecution(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	SuccessResponse(c, we)
}

func (s *Server) listWorkflowExecutions(c *gin.Context) {
	execs, err := s.services.Store.ListWorkflowExecutions(c.Request.Context(), c.Param("patternId"))
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	SuccessListResponse(c, execs, 1, len(execs), len(execs))
}

func (s *Server) abortWorkflowExecution(c *gin.Context) {
	ctx := c.Request.Context()
	we, err := s.services.Store.GetWorkflowExecution(ctx, c.Param("id"))
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	s.services.Core.AbortWorkflowExecution(ctx, we, true)
	SuccessResponse(c, we)
}

func toAgentInfo(a *agent.Agent) orchestrator.AgentInfo {
	return orchestrator.AgentInfo{
		ID:           a.ID,
		Name:         a.Name,
		Role:         a.Role,
		Capabilities: a.Capabilities,
	}
}

func toTaskInfo(t *task.Task) orchestrator.TaskInfo {
	agentIDs := make([]string, 0, len(t.AssignedAgents))
	for _, aa := range t.AssignedAgents {
		agentIDs = append(agentIDs, aa.AgentID)
	}
	return orchestrator.TaskInfo{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		AssignedAgents: agentIDs,
	}
}
