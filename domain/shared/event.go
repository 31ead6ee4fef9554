package shared

import (
	"fmt"
	"sync"
	"time"
)

// DomainEvent is an immutable fact raised by an aggregate.
type DomainEvent interface {
	EventID() string
	EventName() string
	EventVersion() int
	OccurredOn() time.Time
	GetAggregateID() string
}

// EventMetadata carries the envelope fields every event serializes with.
// Embedding it in an event struct flattens these fields into the event's JSON.
type EventMetadata struct {
	ID          string    `json:"eventId"`
	Type        string    `json:"eventType"`
	Version     int       `json:"eventVersion"`
	AggregateID string    `json:"aggregateId"`
	Occurred    time.Time `json:"occurredOn"`
}

// NewEventMetadata stamps a fresh event id and a UTC timestamp.
func NewEventMetadata(eventType, aggregateID string, occurredOn time.Time) EventMetadata {
	return EventMetadata{
		ID:          NewUUID(),
		Type:        eventType,
		Version:     1,
		AggregateID: aggregateID,
		Occurred:    occurredOn.UTC(),
	}
}

func (m EventMetadata) EventID() string        { return m.ID }
func (m EventMetadata) EventName() string      { return m.Type }
func (m EventMetadata) EventVersion() int      { return m.Version }
func (m EventMetadata) OccurredOn() time.Time  { return m.Occurred }
func (m EventMetadata) GetAggregateID() string { return m.AggregateID }

type DomainEventPublisher interface {
	Publish(event DomainEvent) error
	Subscribe(eventName string, handler EventHandler) error
	Unsubscribe(eventName string, handler EventHandler) error
}

type EventHandler interface {
	Handle(event DomainEvent) error
	Name() string
}

type EventPublishResult struct {
	EventName   string    `json:"event_name"`
	EventID     string    `json:"event_id"`
	Success     bool      `json:"success"`
	Message     string    `json:"message,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

func ValidateEvent(event DomainEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	if event.EventName() == "" {
		return fmt.Errorf("event name cannot be empty")
	}

	if event.EventID() == "" {
		return fmt.Errorf("event ID cannot be empty")
	}

	aggregateID := event.GetAggregateID()
	if aggregateID == "" {
		return fmt.Errorf("aggregate ID cannot be empty")
	}

	occurredOn := event.OccurredOn()
	if occurredOn.IsZero() {
		return fmt.Errorf("occurred on time cannot be zero")
	}

	return nil
}

const maxPublishHistory = 1000

// EventBus is the in-process publisher. Handlers run synchronously in
// subscription order; a failing handler does not stop the others.
type EventBus struct {
	handlers  map[string][]EventHandler
	wildcard  []EventHandler
	mu        sync.RWMutex
	history   []EventPublishResult
	muHistory sync.Mutex
}

// AllEvents subscribes a handler to every event name.
const AllEvents = "*"

func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[string][]EventHandler),
		history:  make([]EventPublishResult, 0),
	}
}

func (bus *EventBus) Publish(event DomainEvent) error {
	if err := ValidateEvent(event); err != nil {
		return err
	}

	bus.mu.RLock()
	handlers := make([]EventHandler, 0, len(bus.handlers[event.EventName()])+len(bus.wildcard))
	handlers = append(handlers, bus.handlers[event.EventName()]...)
	handlers = append(handlers, bus.wildcard...)
	bus.mu.RUnlock()

	result := EventPublishResult{
		EventName:   event.EventName(),
		EventID:     event.EventID(),
		Success:     true,
		PublishedAt: time.Now(),
	}

	if len(handlers) == 0 {
		result.Message = "no handlers registered for this event"
		bus.record(result)
		return nil
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler.Handle(event); err != nil {
			errs = append(errs, fmt.Errorf("handler %s: %w", handler.Name(), err))
		}
	}
	if len(errs) > 0 {
		result.Success = false
		result.Message = fmt.Sprintf("%d handlers failed", len(errs))
		bus.record(result)
		return fmt.Errorf("event %s: %d handlers failed: %v", event.EventName(), len(errs), errs)
	}

	bus.record(result)
	return nil
}

func (bus *EventBus) record(result EventPublishResult) {
	bus.muHistory.Lock()
	defer bus.muHistory.Unlock()
	bus.history = append(bus.history, result)
	if len(bus.history) > maxPublishHistory {
		bus.history = bus.history[len(bus.history)-maxPublishHistory:]
	}
}

func (bus *EventBus) Subscribe(eventName string, handler EventHandler) error {
	if eventName == "" {
		return fmt.Errorf("event name cannot be empty")
	}

	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	existing := bus.handlers[eventName]
	if eventName == AllEvents {
		existing = bus.wildcard
	}
	for _, h := range existing {
		if h.Name() == handler.Name() {
			return fmt.Errorf("handler %s already subscribed to %s", handler.Name(), eventName)
		}
	}

	if eventName == AllEvents {
		bus.wildcard = append(bus.wildcard, handler)
		return nil
	}
	bus.handlers[eventName] = append(bus.handlers[eventName], handler)
	return nil
}

func (bus *EventBus) Unsubscribe(eventName string, handler EventHandler) error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if eventName == AllEvents {
		bus.wildcard = removeHandler(bus.wildcard, handler)
		return nil
	}
	if handlers, exists := bus.handlers[eventName]; exists {
		bus.handlers[eventName] = removeHandler(handlers, handler)
	}
	return nil
}

func removeHandler(handlers []EventHandler, handler EventHandler) []EventHandler {
	for i, h := range handlers {
		if h.Name() == handler.Name() {
			return append(handlers[:i:i], handlers[i+1:]...)
		}
	}
	return handlers
}

func (bus *EventBus) GetPublishHistory() []EventPublishResult {
	bus.muHistory.Lock()
	defer bus.muHistory.Unlock()

	history := make([]EventPublishResult, len(bus.history))
	copy(history, bus.history)
	return history
}

type FuncHandler struct {
	name string
	fn   func(DomainEvent) error
}

func NewFuncHandler(name string, fn func(DomainEvent) error) *FuncHandler {
	if name == "" {
		name = fmt.Sprintf("func-handler-%d", time.Now().UnixNano())
	}
	return &FuncHandler{
		name: name,
		fn:   fn,
	}
}

func (h *FuncHandler) Handle(event DomainEvent) error {
	return h.fn(event)
}

func (h *FuncHandler) Name() string {
	return h.name
}

var _ DomainEventPublisher = (*EventBus)(nil)
