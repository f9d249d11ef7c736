package engine

import (
	"strings"
	"time"
)

// StatusTracker validates and timestamps task status changes.
//
// It computes the delta to persist and never reads the task's current status,
// so any status may move to any other.
type StatusTracker struct {
	now Clock
}

// NewStatusTracker creates a tracker. A nil clock uses time.Now.
func NewStatusTracker(now Clock) *StatusTracker {
	if now == nil {
		now = time.Now
	}
	return &StatusTracker{now: now}
}

// UpdateStatus builds the status update record for a task.
// COMPLETED updates additionally carry the completion time and completer.
func (t *StatusTracker) UpdateStatus(taskID, newStatus string, notes, completedBy *string) (*StatusUpdate, error) {
	if strings.TrimSpace(taskID) == "" {
		return nil, NewValidationError("task_id is required", nil).WithCode(ErrCodeMissingField)
	}

	status, err := ParseTaskStatus(newStatus)
	if err != nil {
		return nil, NewValidationError("status update rejected", err).
			WithCode(ErrCodeInvalidStatus).
			WithTask(taskID)
	}

	now := t.now()
	update := &StatusUpdate{
		TaskID:    taskID,
		NewStatus: status,
		Notes:     notes,
		UpdatedAt: now,
	}
	if status == TaskStatusCompleted {
		update.CompletedAt = &now
		update.CompletedBy = completedBy
	}
	return update, nil
}
