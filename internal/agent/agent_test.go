package agent_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aosanya/agentforge/internal/agent"
	"github.com/aosanya/agentforge/internal/domainerr"
)

func TestNew(t *testing.T) {
	a, err := agent.New("Alice", "backend", "engineer", "You are Alice, a backend engineer.")
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "Alice", a.Name)
	assert.Equal(t, agent.StatusIdle, a.Status)
	assert.NotNil(t, a.MemorySettings)
	assert.NotNil(t, a.ExecutionSettings)
}

func TestNewRejectsEmptyName(t *testing.T) {
	_, err := agent.New("", "backend", "", "You are an engineer who writes code.")
	require.Error(t, err)
	assert.True(t, domainerr.Is(err, domainerr.Invariant))
}

func TestNewRejectsShortSystemPrompt(t *testing.T) {
	_, err := agent.New("Alice", "backend", "", "short")
	require.Error(t, err)
	assert.True(t, domainerr.Is(err, domainerr.Invariant))
}

func TestTransitionStatus(t *testing.T) {
	a, err := agent.New("Alice", "backend", "", "You are Alice, a backend engineer.")
	require.NoError(t, err)

	before := a.UpdatedAt
	time.Sleep(time.Millisecond)

	now := time.Now().UTC()
	a.TransitionStatus(agent.StatusExecuting, now)

	assert.Equal(t, agent.StatusExecuting, a.Status)
	assert.Equal(t, now, a.UpdatedAt)
	assert.Equal(t, now, a.LastActive)
	assert.True(t, a.UpdatedAt.After(before))
}

func TestValidateSettingsAgainstSchema(t *testing.T) {
	schema := []byte(`{
		"type": "object",
		"properties": {"max_tokens": {"type": "number"}},
		"required": ["max_tokens"]
	}`)

	err := agent.ValidateSettingsAgainstSchema(schema, map[string]interface{}{"max_tokens": 100})
	require.NoError(t, err)

	err = agent.ValidateSettingsAgainstSchema(schema, map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, domainerr.Is(err, domainerr.Invariant))
}

func TestValidateSettingsAgainstSchemaNilSchema(t *testing.T) {
	err := agent.ValidateSettingsAgainstSchema(nil, map[string]interface{}{"anything": true})
	require.NoError(t, err)
}
