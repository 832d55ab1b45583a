// Package events implements the in-process event bus that the
// orchestrator (C10) publishes on after every capability operation, so
// cache invalidation and UI refreshes never depend on polling. Delivery
// is best-effort, not at-least-once: see Bus.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates every notification SkillMeat's components emit.
type EventType string

const (
	ArtifactImported EventType = "artifact.imported"
	ArtifactUpdated  EventType = "artifact.updated"
	ArtifactRemoved  EventType = "artifact.removed"

	CompositeResolved EventType = "composite.resolved"
	CompositeCycle    EventType = "composite.cycle_rejected"

	DeploymentPlanned EventType = "deployment.planned"
	DeploymentApplied EventType = "deployment.applied"
	DeploymentFailed  EventType = "deployment.failed"
	DeploymentDrifted EventType = "deployment.drift_detected"

	SyncStarted          EventType = "sync.started"
	SyncCompleted        EventType = "sync.completed"
	SyncConflictDetected EventType = "sync.conflict_detected"

	SnapshotCreated  EventType = "snapshot.created"
	SnapshotRestored EventType = "snapshot.restored"

	MemoryCandidateCreated EventType = "memory.candidate_created"
	MemoryPromoted         EventType = "memory.promoted"
	MemoryDeprecated       EventType = "memory.deprecated"

	ContextPackBuilt EventType = "context.pack_built"
)

// Event is a single notification carried on the bus.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Handler processes one delivered event.
type Handler func(event Event)

// Subscription tracks one registered handler's delivery channel.
type Subscription struct {
	ID      string
	Filter  func(Event) bool
	Handler Handler
	Channel chan Event
	cancel  context.CancelFunc
}

// Metrics summarizes bus activity for /healthz-style introspection.
type Metrics struct {
	EventsPublished  int64
	EventsDelivered  int64
	SubscriberCount  int
	DroppedEvents    int64
	ProcessingTimeMs int64
}

// Bus is an in-process pub/sub dispatcher with a replay buffer.
// Delivery to a slow subscriber is best-effort: a full channel drops the
// event for that subscriber rather than blocking Publish, and a dropped
// event is not redelivered (RecentEvents still returns it while it is in
// the buffer).
type Bus struct {
	subscribers map[string]*Subscription
	mu          sync.RWMutex
	buffer      []Event
	bufferSize  int
	metrics     *Metrics
}

func NewBus(bufferSize int) *Bus {
	return &Bus{
		subscribers: make(map[string]*Subscription),
		buffer:      make([]Event, 0, bufferSize),
		bufferSize:  bufferSize,
		metrics:     &Metrics{},
	}
}

func (b *Bus) Publish(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	b.addToBuffer(event)

	for _, sub := range b.subscribers {
		if sub.Filter == nil || sub.Filter(event) {
			select {
			case sub.Channel <- event:
				b.metrics.EventsDelivered++
			default:
				b.metrics.DroppedEvents++
			}
		}
	}
	b.metrics.EventsPublished++
}

func (b *Bus) Subscribe(filter func(Event) bool, handler Handler) *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{
		ID:      uuid.NewString(),
		Filter:  filter,
		Handler: handler,
		Channel: make(chan Event, 100),
		cancel:  cancel,
	}

	b.mu.Lock()
	b.subscribers[sub.ID] = sub
	b.metrics.SubscriberCount = len(b.subscribers)
	b.mu.Unlock()

	go b.run(ctx, sub)
	return sub
}

func (b *Bus) SubscribeToType(t EventType, handler Handler) *Subscription {
	return b.Subscribe(func(e Event) bool { return e.Type == t }, handler)
}

func (b *Bus) SubscribeToTypes(types []EventType, handler Handler) *Subscription {
	set := make(map[EventType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return b.Subscribe(func(e Event) bool { return set[e.Type] }, handler)
}

func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	delete(b.subscribers, sub.ID)
	b.metrics.SubscriberCount = len(b.subscribers)
	b.mu.Unlock()

	sub.cancel()
	close(sub.Channel)
}

func (b *Bus) run(ctx context.Context, sub *Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-sub.Channel:
			start := time.Now()
			sub.Handler(event)
			b.metrics.ProcessingTimeMs += time.Since(start).Milliseconds()
		}
	}
}

func (b *Bus) addToBuffer(event Event) {
	if len(b.buffer) >= b.bufferSize {
		b.buffer = b.buffer[1:]
	}
	b.buffer = append(b.buffer, event)
}

func (b *Bus) RecentEvents(count int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if count > len(b.buffer) {
		count = len(b.buffer)
	}
	start := len(b.buffer) - count
	if start < 0 {
		start = 0
	}
	result := make([]Event, count)
	copy(result, b.buffer[start:])
	return result
}

func (b *Bus) GetMetrics() Metrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return *b.metrics
}

func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subscribers {
		sub.cancel()
		close(sub.Channel)
		delete(b.subscribers, id)
	}
	b.buffer = make([]Event, 0, b.bufferSize)
	b.metrics = &Metrics{}
}
