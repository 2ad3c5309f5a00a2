// Package api implements the HTTP surface over agent/task/pattern CRUD,
// workflow execution, execution lifecycle control, and workflow analysis.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aosanya/agentforge/internal/domainerr"
)

// Response is the generic envelope returned by every endpoint.
type Response struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data,omitempty"`
	Error    *ErrorInfo  `json:"error,omitempty"`
	Metadata Metadata    `json:"metadata"`
}

// ErrorInfo describes a failed request.
type ErrorInfo struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Metadata carries request-tracing fields present on every response.
type Metadata struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ListResponse wraps a page of results with pagination info.
type ListResponse struct {
	Items      interface{}    `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}

// PaginationInfo describes one page of a list response.
type PaginationInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Error codes used in ErrorInfo.Code.
const (
	ErrorCodeBadRequest     = "bad_request"
	ErrorCodeNotFound       = "not_found"
	ErrorCodeConflict       = "conflict"
	ErrorCodeInvariant      = "invariant_violation"
	ErrorCodeTimeout        = "timeout"
	ErrorCodeInternal       = "internal_error"
	ErrorCodeServiceUnavail = "service_unavailable"
)

func newMetadata(c *gin.Context) Metadata {
	return Metadata{RequestID: getRequestID(c), Timestamp: time.Now().UTC()}
}

func getRequestID(c *gin.Context) string {
	if id, ok := c.Get("request_id"); ok {
		if s, ok := id.(string); ok && s != "" {
			return s
		}
	}
	return uuid.New().String()
}

// SuccessResponse writes a 200 response wrapping data.
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data, Metadata: newMetadata(c)})
}

// CreatedResponse writes a 201 response wrapping data.
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data, Metadata: newMetadata(c)})
}

// SuccessListResponse writes a 200 response wrapping a page of items.
func SuccessListResponse(c *gin.Context, items interface{}, page, perPage, total int) {
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: ListResponse{
			Items: items,
			Pagination: PaginationInfo{
				Page: page, PerPage: perPage, Total: total, TotalPages: totalPages,
			},
		},
		Metadata: newMetadata(c),
	})
}

func errorResponse(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, Response{
		Success:  false,
		Error:    &ErrorInfo{Code: code, Message: message, Details: details},
		Metadata: newMetadata(c),
	})
}

// BadRequestError writes a 400 response.
func BadRequestError(c *gin.Context, message string) {
	errorResponse(c, http.StatusBadRequest, ErrorCodeBadRequest, message, nil)
}

// NotFoundError writes a 404 response.
func NotFoundError(c *gin.Context, message string) {
	errorResponse(c, http.StatusNotFound, ErrorCodeNotFound, message, nil)
}

// ConflictError writes a 409 response.
func ConflictError(c *gin.Context, message string, details map[string]interface{}) {
	errorResponse(c, http.StatusConflict, ErrorCodeConflict, message, details)
}

// ValidationError writes a 422 response.
func ValidationError(c *gin.Context, message string, details map[string]interface{}) {
	errorResponse(c, http.StatusUnprocessableEntity, ErrorCodeInvariant, message, details)
}

// TimeoutError writes a 504 response.
func TimeoutError(c *gin.Context, details map[string]interface{}) {
	errorResponse(c, http.StatusGatewayTimeout, ErrorCodeTimeout, "deadline exceeded", details)
}

// InternalError writes a 500 response. The error id, not the underlying
// cause, is returned to the caller.
func InternalError(c *gin.Context, errorID string) {
	errorResponse(c, http.StatusInternalServerError, ErrorCodeInternal, "internal error", map[string]interface{}{
		"error_id": errorID,
	})
}

// ServiceUnavailableError writes a 503 response.
func ServiceUnavailableError(c *gin.Context, message string) {
	errorResponse(c, http.StatusServiceUnavailable, ErrorCodeServiceUnavail, message, nil)
}

// HandleDomainError inspects err and writes the matching response. Errors
// that are not *domainerr.Error are treated as opaque internal failures.
func HandleDomainError(c *gin.Context, err error) {
	de, ok := err.(*domainerr.Error)
	if !ok {
		InternalError(c, "")
		return
	}
	switch de.Kind {
	case domainerr.NotFound:
		NotFoundError(c, de.Message)
	case domainerr.Conflict:
		ConflictError(c, de.Message, de.Details)
	case domainerr.Invariant:
		ValidationError(c, de.Message, de.Details)
	case domainerr.Timeout:
		TimeoutError(c, de.Details)
	case domainerr.SubprocessFailure:
		ServiceUnavailableError(c, de.Message)
	default:
		InternalError(c, de.ErrorID)
	}
}

// PaginationParams is the parsed page/per_page query parameters.
type PaginationParams struct {
	Page    int
	PerPage int
}

// DefaultPaginationParams returns the page-1, 20-per-page default.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{Page: 1, PerPage: 20}
}

// GetOffset returns the zero-based offset for this page.
func (p PaginationParams) GetOffset() int {
	return (p.Page - 1) * p.PerPage
}

// HealthStatus is the /health response body.
type HealthStatus struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

// SystemInfo is the /api/v1/system/info response body.
type SystemInfo struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Environment string   `json:"environment"`
	Features    []string `json:"features"`
}
