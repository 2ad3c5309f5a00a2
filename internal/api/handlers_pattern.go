package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aosanya/agentforge/internal/domainerr"
	"github.com/aosanya/agentforge/internal/orchestrator"
	"github.com/aosanya/agentforge/internal/store"
)

func (s *Server) setupPatternRoutes(rg *gin.RouterGroup) {
	patterns := rg.Group("/patterns")
	{
		patterns.POST("", s.createPattern)
		patterns.GET("", s.listPatterns)
		patterns.PUT("/:id", s.updatePattern)
		patterns.DELETE("/:id", s.deletePattern)
	}
}

var validPatternTypes = map[orchestrator.Pattern]bool{
	orchestrator.Sequential:         true,
	orchestrator.Parallel:           true,
	orchestrator.Router:             true,
	orchestrator.EvaluatorOptimizer: true,
	orchestrator.Swarm:              true,
	orchestrator.Orchestrator:       true,
	orchestrator.Adaptive:           true,
}

type createPatternRequest struct {
	Name             string              `json:"name" binding:"required"`
	Description      string              `json:"description"`
	Type             orchestrator.Pattern `json:"workflow_type" binding:"required"`
	AgentIDs         []string            `json:"agent_ids"`
	TaskIDs          []string            `json:"task_ids"`
	Dependencies     []string            `json:"dependencies"`
	UserObjective    string              `json:"user_objective"`
	ProjectDirectory string              `json:"project_directory"`
}

func (s *Server) createPattern(c *gin.Context) {
	var req createPatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	if !validPatternTypes[req.Type] {
		HandleDomainError(c, domainerr.NewInvariant("workflow_type", "must be one of the seven coordination patterns"))
		return
	}

	now := time.Now().UTC()
	p := &orchestrator.WorkflowPattern{
		ID:               uuid.New().String(),
		Name:             req.Name,
		Description:      req.Description,
		Type:             req.Type,
		AgentIDs:         req.AgentIDs,
		TaskIDs:          req.TaskIDs,
		Dependencies:     req.Dependencies,
		Config:           orchestrator.DefaultConfig(),
		UserObjective:    req.UserObjective,
		ProjectDirectory: req.ProjectDirectory,
		Status:           "active",
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.services.Store.CreatePattern(c.Request.Context(), p); err != nil {
		HandleDomainError(c, err)
		return
	}
	CreatedResponse(c, p)
}

func (s *Server) listPatterns(c *gin.Context) {
	filters := store.PatternFilters{Status: c.Query("status")}
	patterns, err := s.services.Store.ListPatterns(c.Request.Context(), filters)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	SuccessListResponse(c, patterns, 1, len(patterns), len(patterns))
}

type updatePatternRequest struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	AgentIDs      []string `json:"agent_ids"`
	TaskIDs       []string `json:"task_ids"`
	Dependencies  []string `json:"dependencies"`
	Status        *string  `json:"status"`
	UserObjective *string  `json:"user_objective"`
}

func (s *Server) updatePattern(c *gin.Context) {
	var req updatePatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	p, err := s.services.Store.GetPattern(ctx, c.Param("id"))
	if err != nil {
		HandleDomainError(c, err)
		return
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.AgentIDs != nil {
		p.AgentIDs = req.AgentIDs
	}
	if req.TaskIDs != nil {
		p.TaskIDs = req.TaskIDs
	}
	if req.Dependencies != nil {
		p.Dependencies = req.Dependencies
	}
	if req.Status != nil {
		p.Status = *req.Status
	}
	if req.UserObjective != nil {
		p.UserObjective = *req.UserObjective
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.services.Store.UpdatePattern(ctx, p); err != nil {
		HandleDomainError(c, err)
		return
	}
	SuccessResponse(c, p)
}

func (s *Server) deletePattern(c *gin.Context) {
	force, _ := strconv.ParseBool(c.Query("force"))
	if err := s.services.Store.DeletePattern(c.Request.Context(), c.Param("id"), force); err != nil {
		HandleDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
