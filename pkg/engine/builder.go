package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultCloseDays is the close length used when none is requested.
const DefaultCloseDays = 5

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

// IDGenerator allocates opaque task identifiers.
type IDGenerator func() string

// Builder instantiates close processes for periods from a catalog.
type Builder struct {
	catalog *Catalog
	now     Clock
	newID   IDGenerator
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithClock overrides the clock used for CreatedAt stamps.
func WithClock(c Clock) BuilderOption {
	return func(b *Builder) {
		b.now = c
	}
}

// WithIDGenerator overrides task identifier allocation.
func WithIDGenerator(g IDGenerator) BuilderOption {
	return func(b *Builder) {
		b.newID = g
	}
}

// NewBuilder creates a builder over the given catalog.
func NewBuilder(catalog *Catalog, opts ...BuilderOption) *Builder {
	b := &Builder{
		catalog: catalog,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Catalog returns the catalog the builder instantiates from.
func (b *Builder) Catalog() *Catalog {
	return b.catalog
}

// Initialize builds the close instance for a period.
//
// Templates scheduled after closeDays are skipped, and dependencies on them
// are dropped from DependencyIDs while staying visible in DependencyNames.
// assignees maps categories to owners and may be nil.
func (b *Builder) Initialize(period, periodEndDate string, closeDays int, assignees map[string]string) (*CloseInstance, error) {
	end, err := ParseDate(periodEndDate)
	if err != nil {
		return nil, NewValidationError("invalid period_end_date", err).
			WithCode(ErrCodeInvalidDate).
			WithPeriod(period)
	}
	if closeDays < 1 {
		return nil, NewValidationError(fmt.Sprintf("close_days must be at least 1, got %d", closeDays), nil).
			WithPeriod(period)
	}

	days := ComputeBusinessDays(end, closeDays)
	createdAt := b.now()

	ids := make(map[string]string, b.catalog.Len())
	tasks := make([]*TaskInstance, 0, b.catalog.CountThrough(closeDays))
	byDay := make(map[int][]*TaskInstance, closeDays)

	for _, t := range b.catalog.templates {
		if t.Day > closeDays {
			continue
		}

		id := b.newID()
		ids[t.Name] = id

		depIDs := make([]string, 0, len(t.DependsOn))
		for _, dep := range t.DependsOn {
			if depID, ok := ids[dep]; ok {
				depIDs = append(depIDs, depID)
			}
		}

		task := &TaskInstance{
			ID:              id,
			Name:            t.Name,
			Category:        t.Category,
			ScheduledDay:    t.Day,
			DependencyIDs:   depIDs,
			DependencyNames: append([]string{}, t.DependsOn...),
			Status:          TaskStatusNotStarted,
			CreatedAt:       createdAt,
		}
		if due, ok := days.Date(t.Day); ok {
			task.DueDate = &due
		}
		if owner, ok := assignees[t.Category]; ok {
			task.AssignedTo = &owner
		}

		tasks = append(tasks, task)
		byDay[t.Day] = append(byDay[t.Day], task)
	}

	schedule := make([]ScheduleDay, 0, closeDays)
	summary := CloseSummary{
		TotalTasks:      len(tasks),
		TasksByCategory: make(map[string]int),
		TasksByDay:      make(map[string]int, closeDays),
	}
	for day := 1; day <= closeDays; day++ {
		entry := ScheduleDay{
			Day:   day,
			Label: DayLabel(day),
			Tasks: byDay[day],
		}
		if entry.Tasks == nil {
			entry.Tasks = []*TaskInstance{}
		}
		if date, ok := days.Date(day); ok {
			entry.Date = &date
		}
		schedule = append(schedule, entry)
		summary.TasksByDay[entry.Label] = len(entry.Tasks)
	}
	for _, task := range tasks {
		summary.TasksByCategory[task.Category]++
	}

	return &CloseInstance{
		Period:        period,
		PeriodEndDate: end,
		CloseDays:     closeDays,
		Schedule:      schedule,
		AllTasks:      tasks,
		Summary:       summary,
	}, nil
}
