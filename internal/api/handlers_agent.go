package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aosanya/agentforge/internal/agent"
	"github.com/aosanya/agentforge/internal/store"
)

func (s *Server) setupAgentRoutes(rg *gin.RouterGroup) {
	agents := rg.Group("/agents")
	{
		agents.POST("", s.createAgent)
		agents.GET("", s.listAgents)
		agents.GET("/:id", s.getAgent)
		agents.PUT("/:id", s.updateAgent)
		agents.DELETE("/:id", s.deleteAgent)
	}
}

type createAgentRequest struct {
	Name         string   `json:"name" binding:"required"`
	Role         string   `json:"role"`
	Description  string   `json:"description"`
	SystemPrompt string   `json:"system_prompt" binding:"required"`
	Capabilities []string `json:"capabilities"`
	Tools        []string `json:"tools"`
	Objectives   []string `json:"objectives"`
	Constraints  []string `json:"constraints"`
}

func (s *Server) createAgent(c *gin.Context) {
	var req createAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}

	a, err := agent.New(req.Name, req.Role, req.Description, req.SystemPrompt)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	if req.Capabilities != nil {
		a.Capabilities = req.Capabilities
	}
	if req.Tools != nil {
		a.Tools = req.Tools
	}
	if req.Objectives != nil {
		a.Objectives = req.Objectives
	}
	if req.Constraints != nil {
		a.Constraints = req.Constraints
	}

	if err := s.services.Store.CreateAgent(c.Request.Context(), a); err != nil {
		HandleDomainError(c, err)
		return
	}
	CreatedResponse(c, a)
}

func (s *Server) listAgents(c *gin.Context) {
	filters := store.AgentFilters{
		Status: agent.Status(c.Query("status")),
		Role:   c.Query("role"),
	}
	agents, err := s.services.Store.ListAgents(c.Request.Context(), filters)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	SuccessListResponse(c, agents, 1, len(agents), len(agents))
}

func (s *Server) getAgent(c *gin.Context) {
	a, err := s.services.Store.GetAgent(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	SuccessResponse(c, a)
}

type updateAgentRequest struct {
	Name              *string                `json:"name"`
	Role              *string                `json:"role"`
	Description       *string                `json:"description"`
	SystemPrompt      *string                `json:"system_prompt"`
	Capabilities      []string               `json:"capabilities"`
	Tools             []string               `json:"tools"`
	Objectives        []string               `json:"objectives"`
	Constraints       []string               `json:"constraints"`
	MemorySettings    map[string]interface{} `json:"memory_settings"`
	ExecutionSettings map[string]interface{} `json:"execution_settings"`
}

func (s *Server) updateAgent(c *gin.Context) {
	var req updateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	a, err := s.services.Store.GetAgent(ctx, c.Param("id"))
	if err != nil {
		HandleDomainError(c, err)
		return
	}

	if req.Name != nil {
		a.Name = *req.Name
	}
	if req.Role != nil {
		a.Role = *req.Role
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.SystemPrompt != nil {
		if len(*req.SystemPrompt) < 10 {
			ValidationError(c, `field "system_prompt" violates bound: must be at least 10 characters`, nil)
			return
		}
		a.SystemPrompt = *req.SystemPrompt
	}
	if req.Capabilities != nil {
		a.Capabilities = req.Capabilities
	}
	if req.Tools != nil {
		a.Tools = req.Tools
	}
	if req.Objectives != nil {
		a.Objectives = req.Objectives
	}
	if req.Constraints != nil {
		a.Constraints = req.Constraints
	}
	if req.MemorySettings != nil {
		a.MemorySettings = req.MemorySettings
	}
	if req.ExecutionSettings != nil {
		a.ExecutionSettings = req.ExecutionSettings
	}

	if err := s.services.Store.UpdateAgent(ctx, a); err != nil {
		HandleDomainError(c, err)
		return
	}
	SuccessResponse(c, a)
}

func (s *Server) deleteAgent(c *gin.Context) {
	force, _ := strconv.ParseBool(c.Query("force"))
	if err := s.services.Store.DeleteAgent(c.Request.Context(), c.Param("id"), force); err != nil {
		HandleDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
