// Package eventbus implements an in-process publish/subscribe fan-out:
// subscribers register filter tags, Publish
// broadcasts to every live subscription whose tags include the event's
// topic or the wildcard "all", and a subscription whose delivery fails is
// dropped. There is no replay, persistence, or backpressure beyond each
// subscription's single-event buffer.
package eventbus

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Topic is one of the event type discriminators a subscription filters on.
type Topic string

const (
	// TopicSystem carries system-level events.
	TopicSystem Topic = "system_event"
	// TopicAgent carries agent lifecycle events.
	TopicAgent Topic = "agent_event"
	// TopicTask carries task lifecycle events.
	TopicTask Topic = "task_event"
	// TopicExecution carries execution lifecycle events.
	TopicExecution Topic = "execution_event"
	// TopicWorkflow carries workflow-run lifecycle events.
	TopicWorkflow Topic = "workflow_event"

	// Wildcard matches every topic when present in a subscription's tags.
	Wildcard = "all"
)

// Event is the JSON-shaped payload broadcast to subscribers.
type Event struct {
	Type            Topic          `json:"type"`
	EventType       string         `json:"event_type"`
	Timestamp       time.Time      `json:"timestamp"`
	BroadcastID     string         `json:"broadcast_id"`
	ServerTimestamp time.Time      `json:"server_timestamp"`
	Payload         map[string]any `json:"payload"`
}

// Subscription is a live subscriber's handle. Events reads from Events()
// until the subscription is closed (either by the caller or by the bus
// after a failed delivery).
type Subscription struct {
	id     string
	tags   map[string]bool
	events chan Event
	bus    *Bus
	once   sync.Once
}

// Events returns the channel of events delivered to this subscription.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close unregisters the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s.id)
		close(s.events)
	})
}

// Bus is the in-process event bus. The zero value is not usable; use New.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[string]*Subscription
	logger        *log.Logger
}

// New creates an empty Bus.
func New(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Bus{
		subscriptions: make(map[string]*Subscription),
		logger:        logger,
	}
}

// Subscribe registers a new subscription matching the given filter tags
// (topics, or the Wildcard to receive everything). The subscription owns a
// single-event buffer.
func (b *Bus) Subscribe(tags ...string) *Subscription {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}

	sub := &Subscription{
		id:     uuid.New().String(),
		tags:   set,
		events: make(chan Event, 1),
	}
	sub.bus = b

	b.mu.Lock()
	b.subscriptions[sub.id] = sub
	b.mu.Unlock()

	return sub
}

// Publish delivers event to every live subscription whose tags include
// event.Type or the Wildcard. Delivery is fire-and-forget: a subscription
// whose buffer is full is considered failed and is closed and removed.
// BroadcastID and ServerTimestamp are stamped here if unset.
func (b *Bus) Publish(event Event) {
	if event.BroadcastID == "" {
		event.BroadcastID = uuid.New().String()
	}
	if event.ServerTimestamp.IsZero() {
		event.ServerTimestamp = time.Now().UTC()
	}

	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		if sub.tags[string(event.Type)] || sub.tags[Wildcard] {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		select {
		case sub.events <- event:
		default:
			b.logger.WithFields(log.Fields{
				"subscription_id": sub.id,
				"event_type":      event.Type,
			}).Warn("subscriber delivery failed, dropping subscription")
			sub.Close()
		}
	}
}

// SubscriberCount reports the number of live subscriptions, for diagnostics.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}

func (b *Bus) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscriptions, id)
}
