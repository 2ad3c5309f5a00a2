package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aosanya/agentforge/internal/store"
	"github.com/aosanya/agentforge/internal/task"
)

func (s *Server) setupTaskRoutes(rg *gin.RouterGroup) {
	tasks := rg.Group("/tasks")
	{
		tasks.POST("", s.createTask)
		tasks.GET("", s.listTasks)
		tasks.GET("/:id", s.getTask)
		tasks.PUT("/:id", s.updateTask)
		tasks.DELETE("/:id", s.deleteTask)
	}
}

type createTaskRequest struct {
	Title            string   `json:"title" binding:"required"`
	Description      string   `json:"description" binding:"required"`
	ExpectedOutput   string   `json:"expected_output"`
	Resources        []string `json:"resources"`
	Dependencies     []string `json:"dependencies"`
	Priority         string   `json:"priority"`
	EstimatedMinutes *int     `json:"estimated_minutes"`
}

func (s *Server) createTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}

	t, err := task.New(req.Title, req.Description)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	t.ExpectedOutput = req.ExpectedOutput
	if req.Resources != nil {
		t.Resources = req.Resources
	}
	if req.Dependencies != nil {
		t.Dependencies = req.Dependencies
	}
	if req.Priority != "" {
		t.Priority = task.Priority(req.Priority)
	}
	if req.EstimatedMinutes != nil {
		t.SetEstimatedMinutes(req.EstimatedMinutes)
	}

	if err := s.services.Store.CreateTask(c.Request.Context(), t); err != nil {
		HandleDomainError(c, err)
		return
	}
	CreatedResponse(c, t)
}

func (s *Server) listTasks(c *gin.Context) {
	filters := store.TaskFilters{}
	if status := c.Query("status"); status != "" {
		filters.Status = []task.Status{task.Status(status)}
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filters.Limit = limit
	}

	tasks, err := s.services.Store.ListTasks(c.Request.Context(), filters)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	SuccessListResponse(c, tasks, 1, len(tasks), len(tasks))
}

func (s *Server) getTask(c *gin.Context) {
	t, err := s.services.Store.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	SuccessResponse(c, t)
}

type updateTaskRequest struct {
	Title            *string  `json:"title"`
	Description      *string  `json:"description"`
	ExpectedOutput   *string  `json:"expected_output"`
	Resources        []string `json:"resources"`
	Dependencies     []string `json:"dependencies"`
	Priority         *string  `json:"priority"`
	EstimatedMinutes *int     `json:"estimated_minutes"`
}

func (s *Server) updateTask(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	t, err := s.services.Store.GetTask(ctx, c.Param("id"))
	if err != nil {
		HandleDomainError(c, err)
		return
	}

	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.ExpectedOutput != nil {
		t.ExpectedOutput = *req.ExpectedOutput
	}
	if req.Resources != nil {
		t.Resources = req.Resources
	}
	if req.Dependencies != nil {
		t.Dependencies = req.Dependencies
	}
	if req.Priority != nil {
		t.Priority = task.Priority(*req.Priority)
	}
	if req.EstimatedMinutes != nil {
		t.SetEstimatedMinutes(req.EstimatedMinutes)
	}

	if err := s.services.Store.UpdateTask(ctx, t); err != nil {
		HandleDomainError(c, err)
		return
	}
	SuccessResponse(c, t)
}

func (s *Server) deleteTask(c *gin.Context) {
	if err := s.services.Store.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		HandleDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
