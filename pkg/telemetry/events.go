package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a close lifecycle event.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// Period is the associated close period, if applicable.
	Period string `json:"period,omitempty"`

	// TaskID is the associated task, if applicable.
	TaskID string `json:"task_id,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for close event types.
const (
	EventTypeCloseInitialized  = "close.initialized"
	EventTypeTaskStatusChanged = "task.status_changed"
	EventTypeHealthAssessed    = "close.health_assessed"
	EventTypePolicyViolation   = "policy.violation"
	EventTypeOperationFailed   = "operation.failed"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher delivers close events to subscribers.
// Delivery is synchronous on the publishing goroutine.
type EventPublisher struct {
	config      EventsConfig
	subscribers []subscriberEntry
	filters     []EventFilter
	now         func() time.Time
	mu          sync.RWMutex
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	return &EventPublisher{
		config:      cfg,
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		now:         time.Now,
	}, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if ep == nil || !ep.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = ep.now()
	}

	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, filter := range ep.filters {
		if !filter(event) {
			return nil
		}
	}

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
	return nil
}

// PublishCloseInitialized publishes a close initialized event.
func (ep *EventPublisher) PublishCloseInitialized(period string, totalTasks, closeDays int) error {
	return ep.Publish(Event{
		Type:    EventTypeCloseInitialized,
		Source:  "builder",
		Period:  period,
		Message: fmt.Sprintf("Close %s initialized with %d tasks over %d days", period, totalTasks, closeDays),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"total_tasks": totalTasks,
			"close_days":  closeDays,
		},
	})
}

// PublishTaskStatusChanged publishes a task status change event.
func (ep *EventPublisher) PublishTaskStatusChanged(taskID, newStatus, changedBy string) error {
	data := map[string]interface{}{
		"new_status": newStatus,
	}
	if changedBy != "" {
		data["changed_by"] = changedBy
	}
	return ep.Publish(Event{
		Type:    EventTypeTaskStatusChanged,
		Source:  "tracker",
		TaskID:  taskID,
		Message: fmt.Sprintf("Task %s moved to %s", taskID, newStatus),
		Level:   EventLevelInfo,
		Data:    data,
	})
}

// PublishHealthAssessed publishes a health verdict. Anything but ON_TRACK is a warning.
func (ep *EventPublisher) PublishHealthAssessed(period, health string, completionPct float64) error {
	level := EventLevelInfo
	if health != "ON_TRACK" {
		level = EventLevelWarning
	}
	return ep.Publish(Event{
		Type:    EventTypeHealthAssessed,
		Source:  "progress",
		Period:  period,
		Message: fmt.Sprintf("Close %s is %s at %.1f%% complete", period, health, completionPct),
		Level:   level,
		Data: map[string]interface{}{
			"health":                health,
			"completion_percentage": completionPct,
		},
	})
}

// PublishPolicyViolation publishes a close-control violation event.
func (ep *EventPublisher) PublishPolicyViolation(period, policyName, reason string) error {
	return ep.Publish(Event{
		Type:    EventTypePolicyViolation,
		Source:  "policy_engine",
		Period:  period,
		Message: fmt.Sprintf("Close control %s violated for %s: %s", policyName, period, reason),
		Level:   EventLevelWarning,
		Data: map[string]interface{}{
			"policy": policyName,
			"reason": reason,
		},
	})
}

// PublishOperationFailed publishes a failed operation event.
func (ep *EventPublisher) PublishOperationFailed(operation, errorType, reason string) error {
	return ep.Publish(Event{
		Type:    EventTypeOperationFailed,
		Source:  "dispatcher",
		Message: fmt.Sprintf("Operation %s failed: %s", operation, reason),
		Level:   EventLevelError,
		Data: map[string]interface{}{
			"operation": operation,
			"type":      errorType,
		},
	})
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// LogSubscriber returns a subscriber that writes events to the logger.
func LogSubscriber(l *Logger) EventSubscriber {
	return func(event Event) {
		e := l.zlog.Info()
		switch event.Level {
		case EventLevelWarning:
			e = l.zlog.Warn()
		case EventLevelError:
			e = l.zlog.Error()
		}
		e = e.Str("event_id", event.ID).Str("event_type", event.Type)
		if event.Period != "" {
			e = e.Str("period", event.Period)
		}
		if event.TaskID != "" {
			e = e.Str("task_id", event.TaskID)
		}
		e.Fields(event.Data).Msg(event.Message)
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByPeriod creates a filter that only allows events for a specific period.
func FilterByPeriod(period string) EventFilter {
	return func(event Event) bool {
		return event.Period == period
	}
}
