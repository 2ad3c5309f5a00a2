package fallback_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aosanya/agentforge/internal/fallback"
)

func instant() *fallback.Responder {
	return &fallback.Responder{Clock: func() <-chan time.Time {
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}}
}

func TestRespondBackendRole(t *testing.T) {
	r := instant()
	res, err := r.Respond(context.Background(),
		fallback.AgentInfo{Name: "Alice", Role: "Backend Engineer"},
		fallback.TaskInfo{Title: "Build endpoint"})
	require.NoError(t, err)
	assert.Contains(t, res.AggregatedText, "Backend task 'Build endpoint'")
	assert.Equal(t, "fallback", res.ExecutionMethod)
	assert.Equal(t, "completed", res.Status)
}

func TestRespondFrontendRole(t *testing.T) {
	r := instant()
	res, err := r.Respond(context.Background(),
		fallback.AgentInfo{Name: "Bob", Role: "frontend"},
		fallback.TaskInfo{Title: "Build UI"})
	require.NoError(t, err)
	assert.Contains(t, res.AggregatedText, "Frontend task 'Build UI'")
}

func TestRespondTestRole(t *testing.T) {
	r := instant()
	res, err := r.Respond(context.Background(),
		fallback.AgentInfo{Name: "Carol", Role: "QA Tester"},
		fallback.TaskInfo{Title: "Write tests"})
	require.NoError(t, err)
	assert.Contains(t, res.AggregatedText, "Testing task 'Write tests'")
}

func TestRespondGenericRole(t *testing.T) {
	r := instant()
	res, err := r.Respond(context.Background(),
		fallback.AgentInfo{Name: "Dana", Role: "analyst"},
		fallback.TaskInfo{Title: "Analyze data"})
	require.NoError(t, err)
	assert.Equal(t, "Task 'Analyze data' completed by Dana.", res.AggregatedText)
}

func TestRespondHonorsCancellation(t *testing.T) {
	r := &fallback.Responder{Clock: func() <-chan time.Time {
		return time.After(time.Hour)
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Respond(ctx, fallback.AgentInfo{Name: "X", Role: "backend"}, fallback.TaskInfo{Title: "T"})
	require.Error(t, err)
}
