package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aosanya/agentforge/internal/execution"
)

func (s *Server) setupExecutionRoutes(rg *gin.RouterGroup) {
	executions := rg.Group("/executions")
	{
		executions.POST("", s.startExecution)
		executions.GET("", s.listExecutions)
		executions.GET("/:id", s.getExecution)
		executions.POST("/:id/pause", s.pauseExecution)
		executions.POST("/:id/resume", s.resumeExecution)
		executions.POST("/:id/abort", s.abortExecution)
	}
	rg.GET("/system/status", s.systemStatus)
}

type startExecutionRequest struct {
	TaskID        string   `json:"task_id" binding:"required"`
	AgentIDs      []string `json:"agent_ids" binding:"required"`
	WorkDirectory string   `json:"work_directory"`
	ForceRestart  bool     `json:"force_restart"`
}

func (s *Server) startExecution(c *gin.Context) {
	var req startExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}

	result, err := s.services.Engine.StartTaskExecution(c.Request.Context(), execution.StartRequest{
		TaskID:        req.TaskID,
		AgentIDs:      req.AgentIDs,
		WorkDirectory: req.WorkDirectory,
		ForceRestart:  req.ForceRestart,
	})
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	CreatedResponse(c, result)
}

func (s *Server) listExecutions(c *gin.Context) {
	filters := execution.ExecutionFilters{
		TaskID:  c.Query("task_id"),
		AgentID: c.Query("agent_id"),
	}
	if status := c.Query("status"); status != "" {
		filters.Status = []execution.Status{execution.Status(status)}
	}

	execs, err := s.services.Engine.ListExecutions(c.Request.Context(), filters)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	SuccessListResponse(c, execs, 1, len(execs), len(execs))
}

func (s *Server) getExecution(c *gin.Context) {
	e, err := s.services.Engine.GetExecution(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	SuccessResponse(c, e)
}

func (s *Server) pauseExecution(c *gin.Context) {
	if err := s.services.Engine.PauseExecution(c.Request.Context(), c.Param("id")); err != nil {
		HandleDomainError(c, err)
		return
	}
	SuccessResponse(c, gin.H{"status": "paused"})
}

func (s *Server) resumeExecution(c *gin.Context) {
	if err := s.services.Engine.ResumeExecution(c.Request.Context(), c.Param("id")); err != nil {
		HandleDomainError(c, err)
		return
	}
	SuccessResponse(c, gin.H{"status": "running"})
}

func (s *Server) abortExecution(c *gin.Context) {
	if err := s.services.Engine.AbortExecution(c.Request.Context(), c.Param("id")); err != nil {
		HandleDomainError(c, err)
		return
	}
	SuccessResponse(c, gin.H{"status": "cancelled"})
}

func (s *Server) systemStatus(c *gin.Context) {
	status, err := s.services.Engine.GetSystemStatus(c.Request.Context())
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	SuccessResponse(c, status)
}
