package eventbus_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aosanya/agentforge/internal/eventbus"
)

func TestPublishDeliversToMatchingTopic(t *testing.T) {
	bus := eventbus.New(nil)
	sub := bus.Subscribe(string(eventbus.TopicExecution))
	defer sub.Close()

	bus.Publish(eventbus.Event{Type: eventbus.TopicExecution, EventType: "started"})

	select {
	case ev := <-sub.Events():
		assert.Equal(t, "started", ev.EventType)
		assert.NotEmpty(t, ev.BroadcastID)
	case <-time.After(time.Second):
		t.Fatal("expected event delivery")
	}
}

func TestPublishSkipsNonMatchingTopic(t *testing.T) {
	bus := eventbus.New(nil)
	sub := bus.Subscribe(string(eventbus.TopicTask))
	defer sub.Close()

	bus.Publish(eventbus.Event{Type: eventbus.TopicExecution, EventType: "started"})

	select {
	case <-sub.Events():
		t.Fatal("did not expect delivery for a non-matching topic")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWildcardSubscriptionReceivesAllTopics(t *testing.T) {
	bus := eventbus.New(nil)
	sub := bus.Subscribe(eventbus.Wildcard)
	defer sub.Close()

	bus.Publish(eventbus.Event{Type: eventbus.TopicAgent, EventType: "created"})
	first := <-sub.Events()

	bus.Publish(eventbus.Event{Type: eventbus.TopicWorkflow, EventType: "completed"})
	second := <-sub.Events()
	assert.Equal(t, "created", first.EventType)
	assert.Equal(t, "completed", second.EventType)
}

func TestFailedDeliveryDropsSubscription(t *testing.T) {
	bus := eventbus.New(nil)
	sub := bus.Subscribe(string(eventbus.TopicSystem))

	require.Equal(t, 1, bus.SubscriberCount())

	// Fill the subscription's single-event buffer, then publish again so
	// the second delivery observes a full channel and is dropped.
	bus.Publish(eventbus.Event{Type: eventbus.TopicSystem, EventType: "first"})
	bus.Publish(eventbus.Event{Type: eventbus.TopicSystem, EventType: "second"})

	assert.Eventually(t, func() bool {
		return bus.SubscriberCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestCloseIsIdempotent(t *testing.T) {
	bus := eventbus.New(nil)
	sub := bus.Subscribe(eventbus.Wildcard)

	sub.Close()
	assert.NotPanics(t, func() { sub.Close() })
	assert.Equal(t, 0, bus.SubscriberCount())
}
