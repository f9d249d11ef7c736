package engine

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskTemplate is a static definition of one close task and its declared dependencies.
type TaskTemplate struct {
	// Name is the unique key of the template within its catalog.
	Name string `json:"name"`

	// Category groups templates for ownership and reporting (e.g., "RECONCILIATION").
	Category string `json:"category"`

	// Day is the 1-based close day the task is scheduled on (T+Day).
	Day int `json:"day"`

	// DependsOn lists the names of templates that must complete first.
	DependsOn []string `json:"dependencies"`
}

// TaskInstance is a period-specific, identifier-bearing occurrence of a template.
type TaskInstance struct {
	// ID is the opaque unique identifier of the task.
	ID string `json:"id"`

	// Name is the template name.
	Name string `json:"name"`

	// Category is the template category.
	Category string `json:"category"`

	// ScheduledDay is the close day the task is due on.
	ScheduledDay int `json:"scheduled_day"`

	// DueDate is the business day matching ScheduledDay.
	DueDate *Date `json:"due_date"`

	// DependencyIDs are the resolved dependency identifiers.
	// Dependencies on templates excluded from the close are absent.
	DependencyIDs []string `json:"dependencies"`

	// DependencyNames are the declared dependency names, kept for display.
	DependencyNames []string `json:"dependency_names"`

	// AssignedTo is the owner looked up by category, if any.
	AssignedTo *string `json:"assigned_to"`

	// Status is the initial task status.
	Status TaskStatus `json:"status"`

	// Notes are free-form notes on the task.
	Notes *string `json:"notes"`

	// CreatedAt is when the instance was built.
	CreatedAt time.Time `json:"created_at"`
}

// ScheduleDay is the set of tasks due on one close day.
type ScheduleDay struct {
	// Day is the 1-based close day.
	Day int `json:"-"`

	// Label is the display label (e.g., "T+1").
	Label string `json:"day"`

	// Date is the business day for this close day.
	Date *Date `json:"date"`

	// Tasks are the task instances scheduled on this day, in catalog order.
	Tasks []*TaskInstance `json:"tasks"`
}

// CloseSummary counts the tasks of a close instance.
type CloseSummary struct {
	TotalTasks      int            `json:"total_tasks"`
	TasksByCategory map[string]int `json:"tasks_by_category"`
	TasksByDay      map[string]int `json:"tasks_by_day"`
}

// CloseInstance is a concrete close process for one period.
// It is an immutable result value; status changes happen against the store.
type CloseInstance struct {
	Period        string          `json:"period"`
	PeriodEndDate Date            `json:"period_end_date"`
	CloseDays     int             `json:"close_days"`
	Schedule      []ScheduleDay   `json:"schedule"`
	AllTasks      []*TaskInstance `json:"all_tasks"`
	Summary       CloseSummary    `json:"summary"`
}

// TaskRow is a task as currently persisted in the store.
type TaskRow struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Category      string     `json:"category"`
	ScheduledDay  int        `json:"scheduled_day"`
	Status        TaskStatus `json:"status"`
	DueDate       *Date      `json:"due_date"`
	CompletedAt   *string    `json:"completed_at"`
	AssignedTo    *string    `json:"assigned_to"`
	DependencyIDs []string   `json:"dependency_ids,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
}

// StatusUpdate is the delta to persist for a task status change.
type StatusUpdate struct {
	TaskID      string     `json:"task_id"`
	NewStatus   TaskStatus `json:"new_status"`
	Notes       *string    `json:"notes"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CompletedBy *string    `json:"completed_by"`
}

// MarshalJSON writes completed_at and completed_by only for COMPLETED
// updates. completed_by is null when no completer was given.
func (u StatusUpdate) MarshalJSON() ([]byte, error) {
	type update struct {
		TaskID    string     `json:"task_id"`
		NewStatus TaskStatus `json:"new_status"`
		Notes     *string    `json:"notes"`
		UpdatedAt time.Time  `json:"updated_at"`
	}
	base := update{TaskID: u.TaskID, NewStatus: u.NewStatus, Notes: u.Notes, UpdatedAt: u.UpdatedAt}
	if u.NewStatus != TaskStatusCompleted {
		return json.Marshal(base)
	}
	return json.Marshal(struct {
		update
		CompletedAt *time.Time `json:"completed_at"`
		CompletedBy *string    `json:"completed_by"`
	}{base, u.CompletedAt, u.CompletedBy})
}

// DayLabel returns the display label for a close day.
func DayLabel(day int) string {
	return fmt.Sprintf("T+%d", day)
}
