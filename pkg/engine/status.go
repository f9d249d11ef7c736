package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TaskStatus represents the state of a close task instance.
type TaskStatus string

const (
	// TaskStatusNotStarted indicates no work has begun on the task.
	TaskStatusNotStarted TaskStatus = "NOT_STARTED"

	// TaskStatusInProgress indicates the task is being worked.
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"

	// TaskStatusCompleted indicates the task is done.
	TaskStatusCompleted TaskStatus = "COMPLETED"

	// TaskStatusBlocked indicates a person or external process marked the task blocked.
	// It is never derived from the dependency graph.
	TaskStatusBlocked TaskStatus = "BLOCKED"
)

// AllTaskStatuses lists the valid statuses in display order.
var AllTaskStatuses = []TaskStatus{
	TaskStatusNotStarted,
	TaskStatusInProgress,
	TaskStatusCompleted,
	TaskStatusBlocked,
}

// Validate checks if the task status is valid.
func (s TaskStatus) Validate() error {
	switch s {
	case TaskStatusNotStarted, TaskStatusInProgress, TaskStatusCompleted, TaskStatusBlocked:
		return nil
	default:
		return fmt.Errorf("%w: %s. Valid: %s", ErrInvalidStatus, string(s), validStatusList())
	}
}

// IsDone returns true if the task no longer holds up its dependents.
func (s TaskStatus) IsDone() bool {
	return s == TaskStatusCompleted
}

// ParseTaskStatus converts a raw string into a TaskStatus.
// Matching is exact; "completed" is not accepted for "COMPLETED".
func ParseTaskStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(raw)
	if err := s.Validate(); err != nil {
		return "", err
	}
	return s, nil
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (s TaskStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (s *TaskStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = TaskStatus(str)
	return s.Validate()
}

func validStatusList() string {
	names := make([]string, len(AllTaskStatuses))
	for i, s := range AllTaskStatuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// HealthStatus is the overall verdict for a close period.
type HealthStatus string

const (
	// HealthOnTrack means nothing is blocked or late and at least half the tasks are done.
	HealthOnTrack HealthStatus = "ON_TRACK"

	// HealthNeedsAttention means some tasks are late or completion is below half.
	HealthNeedsAttention HealthStatus = "NEEDS_ATTENTION"

	// HealthAtRisk means tasks are blocked or more than three are late.
	HealthAtRisk HealthStatus = "AT_RISK"
)

// Message returns the human-readable explanation for the verdict.
func (h HealthStatus) Message() string {
	switch h {
	case HealthAtRisk:
		return "Close is at risk due to blocked or late tasks"
	case HealthNeedsAttention:
		return "Close needs attention - some tasks behind schedule"
	default:
		return "Close is on track"
	}
}

// Score maps the verdict onto a gauge value (2=on track, 1=needs attention, 0=at risk).
func (h HealthStatus) Score() float64 {
	switch h {
	case HealthOnTrack:
		return 2
	case HealthNeedsAttention:
		return 1
	default:
		return 0
	}
}
