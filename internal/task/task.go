// Package task defines the Task entity and the estimated-duration codec
// that maps a duration in minutes to and from a human-readable phrase.
package task

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/aosanya/agentforge/internal/domainerr"
)

var estimatedDurationDigits = regexp.MustCompile(`\d+`)

// Status represents the current lifecycle state of a task.
type Status string

const (
	// StatusPending indicates the task has no in-flight execution.
	StatusPending Status = "pending"
	// StatusInProgress indicates an execution is currently driving the task.
	StatusInProgress Status = "in_progress"
	// StatusCompleted is a terminal success state.
	StatusCompleted Status = "completed"
	// StatusFailed is a terminal failure state.
	StatusFailed Status = "failed"
	// StatusCancelled is a terminal cancellation state.
	StatusCancelled Status = "cancelled"
)

// Priority orders tasks for scheduling purposes.
type Priority string

const (
	// PriorityLow is the lowest scheduling priority.
	PriorityLow Priority = "low"
	// PriorityMedium is the default scheduling priority.
	PriorityMedium Priority = "medium"
	// PriorityHigh raises scheduling priority.
	PriorityHigh Priority = "high"
	// PriorityUrgent is the highest scheduling priority.
	PriorityUrgent Priority = "urgent"
)

// AssignedAgent is a task-agent assignment, ordered by AssignedAt.
type AssignedAgent struct {
	// AgentID is the assigned agent's id.
	AgentID string `json:"agent_id"`

	// RoleInTask is the agent's role on this task.
	RoleInTask string `json:"role_in_task"`

	// AssignedAt is when the assignment was made.
	AssignedAt time.Time `json:"assigned_at"`
}

// Task is a unit of work.
type Task struct {
	// ID is the task identifier.
	ID string `json:"id"`

	// Title is the task's short title (1..255 chars).
	Title string `json:"title"`

	// Description documents the work to be done (>= 1 char).
	Description string `json:"description"`

	// ExpectedOutput documents what a successful result looks like.
	ExpectedOutput string `json:"expected_output"`

	// Resources lists supporting resources for the task.
	Resources []string `json:"resources"`

	// Dependencies lists advisory predecessor task ids.
	Dependencies []string `json:"dependencies"`

	// Priority orders the task relative to others.
	Priority Priority `json:"priority"`

	// Deadline is an optional absolute completion deadline.
	Deadline *time.Time `json:"deadline,omitempty"`

	// estimatedMinutes backs EstimatedMinutes/SetEstimatedMinutes; the
	// persisted form is the phrase "N minutes".
	estimatedMinutes *int

	// Status is the task's current lifecycle state.
	Status Status `json:"status"`

	// Results holds free-form task output.
	Results map[string]interface{} `json:"results,omitempty"`

	// ErrorMessage holds the terminal failure message, if any.
	ErrorMessage string `json:"error_message,omitempty"`

	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the task was last modified.
	UpdatedAt time.Time `json:"updated_at"`

	// StartedAt is when the first execution began; non-nil implies
	// Status != pending.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the task reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// AssignedAgents lists assigned agents, ordered by assignment time.
	AssignedAgents []AssignedAgent `json:"assigned_agents"`
}

// New validates and constructs a new Task with server-assigned fields.
func New(title, description string) (*Task, error) {
	if len(title) < 1 || len(title) > 255 {
		return nil, domainerr.NewInvariant("title", "must be between 1 and 255 characters")
	}
	if len(description) < 1 {
		return nil, domainerr.NewInvariant("description", "must not be empty")
	}

	now := time.Now().UTC()
	return &Task{
		ID:             uuid.New().String(),
		Title:          title,
		Description:    description,
		Priority:       PriorityMedium,
		Status:         StatusPending,
		Resources:      []string{},
		Dependencies:   []string{},
		AssignedAgents: []AssignedAgent{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// IsTerminal reports whether the task has reached a terminal status.
func (t *Task) IsTerminal() bool {
	switch t.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// EstimatedMinutes returns the task's estimated duration in minutes, or nil
// if unset.
func (t *Task) EstimatedMinutes() *int {
	return t.estimatedMinutes
}

// SetEstimatedMinutes sets the task's estimated duration in minutes. A nil
// value clears it.
func (t *Task) SetEstimatedMinutes(minutes *int) {
	t.estimatedMinutes = minutes
}

// EncodeEstimatedDuration implements the "{N} minutes" write side of the
// estimated-duration codec. A nil input maps to "".
func EncodeEstimatedDuration(minutes *int) string {
	if minutes == nil {
		return ""
	}
	return fmt.Sprintf("%d minutes", *minutes)
}

// DecodeEstimatedDuration implements the read side of the codec: it
// extracts the first run of digits from the stored phrase and parses it as
// a base-10 integer. Empty/unparsable input maps to nil.
func DecodeEstimatedDuration(phrase string) *int {
	digits := estimatedDurationDigits.FindString(phrase)
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &n
}
