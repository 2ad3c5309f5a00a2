// Package agent defines the Agent entity: a named autonomous worker with a
// role, system prompt, capability/tool tags, and a status driven by the
// execution engine.
package agent

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/aosanya/agentforge/internal/domainerr"
)

// Status represents the current lifecycle state of an agent.
type Status string

const (
	// StatusIdle indicates the agent is not currently executing a task.
	StatusIdle Status = "idle"
	// StatusExecuting indicates the agent has a non-terminal execution.
	StatusExecuting Status = "executing"
	// StatusError indicates the agent's last transition failed.
	StatusError Status = "error"
	// StatusStopped indicates the agent has been administratively stopped.
	StatusStopped Status = "stopped"
)

// Agent is a named autonomous worker.
type Agent struct {
	// ID is the stable agent identifier.
	ID string `json:"id"`

	// Name is the agent's unique display name.
	Name string `json:"name"`

	// Role is the agent's functional role, e.g. "backend", "frontend".
	Role string `json:"role"`

	// Description documents the agent's purpose.
	Description string `json:"description"`

	// SystemPrompt is the agent's required system prompt (>= 10 chars).
	SystemPrompt string `json:"system_prompt"`

	// Capabilities is the set of capability tags the agent carries.
	Capabilities []string `json:"capabilities"`

	// Tools is the set of tool tags available to the agent.
	Tools []string `json:"tools"`

	// Objectives is the agent's ordered list of objectives.
	Objectives []string `json:"objectives"`

	// Constraints is the agent's ordered list of constraints.
	Constraints []string `json:"constraints"`

	// MemorySettings holds free-form memory configuration.
	MemorySettings map[string]interface{} `json:"memory_settings"`

	// ExecutionSettings holds free-form execution configuration.
	ExecutionSettings map[string]interface{} `json:"execution_settings"`

	// Status is the agent's current lifecycle state.
	Status Status `json:"status"`

	// CreatedAt is when the agent was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the agent was last modified.
	UpdatedAt time.Time `json:"updated_at"`

	// LastActive is when the agent last transitioned status.
	LastActive time.Time `json:"last_active"`
}

// New validates and constructs a new Agent with server-assigned fields.
// It returns an Invariant error if name or system prompt bounds are violated.
func New(name, role, description, systemPrompt string) (*Agent, error) {
	if name == "" {
		return nil, domainerr.NewInvariant("name", "must not be empty")
	}
	if len(systemPrompt) < 10 {
		return nil, domainerr.NewInvariant("system_prompt", "must be at least 10 characters")
	}

	now := time.Now().UTC()
	return &Agent{
		ID:                uuid.New().String(),
		Name:              name,
		Role:              role,
		Description:       description,
		SystemPrompt:      systemPrompt,
		Capabilities:      []string{},
		Tools:             []string{},
		Objectives:        []string{},
		Constraints:       []string{},
		MemorySettings:    map[string]interface{}{},
		ExecutionSettings: map[string]interface{}{},
		Status:            StatusIdle,
		CreatedAt:         now,
		UpdatedAt:         now,
		LastActive:        now,
	}, nil
}

// ValidateSettingsAgainstSchema validates MemorySettings/ExecutionSettings
// against an optional JSON schema (per agent role, supplied by the caller).
// A nil schema is a no-op pass.
func ValidateSettingsAgainstSchema(schema []byte, settings map[string]interface{}) error {
	if len(schema) == 0 {
		return nil
	}

	settingsBytes, err := json.Marshal(settings)
	if err != nil {
		return domainerr.NewInternal(err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(schema)
	docLoader := gojsonschema.NewBytesLoader(settingsBytes)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return domainerr.NewInternal(err)
	}
	if !result.Valid() {
		de := domainerr.NewInvariant("settings", "does not conform to schema")
		var msgs []string
		for _, re := range result.Errors() {
			msgs = append(msgs, re.String())
		}
		de.WithDetail("schema_errors", msgs)
		return de
	}
	return nil
}

// Touch marks the agent as active now without changing status.
func (a *Agent) Touch(now time.Time) {
	a.LastActive = now
}

// TransitionStatus moves the agent to a new status and stamps LastActive
// and UpdatedAt. The stores' execution paths (CreateExecution,
// ReleaseAgents) assign Status directly rather than calling this method.
func (a *Agent) TransitionStatus(status Status, now time.Time) {
	a.Status = status
	a.UpdatedAt = now
	a.LastActive = now
}
