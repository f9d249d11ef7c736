package engine

import (
	"testing"
	"time"
)

func datePtr(year int, month time.Month, day int) *Date {
	d := NewDate(year, month, day)
	return &d
}

func TestGetProgress_Empty(t *testing.T) {
	p := GetProgress("2025-01", nil, NewDate(2025, time.February, 5))

	if p.Progress.TotalTasks != 0 {
		t.Errorf("Expected 0 tasks, got %d", p.Progress.TotalTasks)
	}
	if p.Progress.CompletionPercentage != 0 {
		t.Errorf("Expected 0%% completion, got %f", p.Progress.CompletionPercentage)
	}
	if p.Health.Status != HealthOnTrack {
		t.Errorf("Expected ON_TRACK, got %s", p.Health.Status)
	}
	if p.Tasks == nil || p.LateTasks == nil {
		t.Error("Expected empty, non-nil task lists")
	}
	for _, s := range AllTaskStatuses {
		if n, ok := p.StatusBreakdown[string(s)]; !ok || n != 0 {
			t.Errorf("Expected breakdown %s=0, got %d (present=%v)", s, n, ok)
		}
	}
}

func TestAssessHealth_VerdictTable(t *testing.T) {
	tests := []struct {
		name       string
		blocked    int
		late       int
		completion float64
		want       HealthStatus
	}{
		{"blocked task", 1, 0, 90, HealthAtRisk},
		{"one late task", 0, 1, 90, HealthNeedsAttention},
		{"over half done", 0, 0, 55, HealthOnTrack},
		{"under half done", 0, 0, 40, HealthNeedsAttention},
		{"four late tasks", 0, 4, 90, HealthAtRisk},
		{"three late tasks", 0, 3, 90, HealthNeedsAttention},
		{"exactly half", 0, 0, 50, HealthOnTrack},
		{"blocked outranks late", 2, 2, 10, HealthAtRisk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := AssessHealth(tt.blocked, tt.late, 10, tt.completion)
			if h.Status != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, h.Status)
			}
			if h.Message != tt.want.Message() {
				t.Errorf("Expected message %q, got %q", tt.want.Message(), h.Message)
			}
			if h.RiskFactors.BlockedTasks != tt.blocked || h.RiskFactors.LateTasks != tt.late {
				t.Errorf("Unexpected risk factors: %+v", h.RiskFactors)
			}
		})
	}
}

func TestAssessHealth_CompletionBelowTarget(t *testing.T) {
	if !AssessHealth(0, 0, 10, 79.9).RiskFactors.CompletionBelowTarget {
		t.Error("Expected 79.9% to be below target")
	}
	h := AssessHealth(0, 0, 10, 80)
	if h.RiskFactors.CompletionBelowTarget {
		t.Error("Expected 80% to meet target")
	}
	if h.Status != HealthOnTrack {
		t.Errorf("Target flag must not affect the verdict, got %s", h.Status)
	}
}

func TestGetProgress_Rows(t *testing.T) {
	today := NewDate(2025, time.February, 5)
	completedAt := "2025-02-03T17:00:00Z"

	rows := []TaskRow{
		{ID: "1", Name: "cash", Category: "CASH", ScheduledDay: 1, Status: TaskStatusCompleted,
			DueDate: datePtr(2025, time.February, 3), CompletedAt: &completedAt},
		{ID: "2", Name: "payroll", Category: "PAYROLL", ScheduledDay: 1, Status: TaskStatusInProgress,
			DueDate: datePtr(2025, time.February, 3)},
		{ID: "3", Name: "bank", Category: "RECONCILIATION", ScheduledDay: 2, Status: TaskStatusNotStarted,
			DueDate: datePtr(2025, time.February, 4)},
		{ID: "4", Name: "bs recs", Category: "RECONCILIATION", ScheduledDay: 3, Status: TaskStatusNotStarted,
			DueDate: datePtr(2025, time.February, 5)},
		{ID: "5", Name: "no date", Category: "OTHER", ScheduledDay: 3, Status: TaskStatusNotStarted},
	}

	p := GetProgress("2025-01", rows, today)

	if p.Progress.TotalTasks != 5 || p.Progress.Completed != 1 || p.Progress.InProgress != 1 || p.Progress.NotStarted != 3 {
		t.Errorf("Unexpected counts: %+v", p.Progress)
	}
	if p.Progress.CompletionPercentage != 20 {
		t.Errorf("Expected 20%% completion, got %f", p.Progress.CompletionPercentage)
	}

	// Due today is not late; completed tasks are never late.
	if p.LateTaskCount != 2 {
		t.Fatalf("Expected 2 late tasks, got %d", p.LateTaskCount)
	}
	if p.LateTasks[0].ID != "2" || p.LateTasks[1].ID != "3" {
		t.Errorf("Unexpected late tasks: %+v", p.LateTasks)
	}
	if p.Tasks[0].IsLate || !p.Tasks[1].IsLate || p.Tasks[3].IsLate || p.Tasks[4].IsLate {
		t.Errorf("Unexpected lateness flags: %+v", p.Tasks)
	}
	if p.Tasks[0].CompletedAt == nil || *p.Tasks[0].CompletedAt != completedAt {
		t.Error("Expected completed_at to carry through")
	}

	if p.Health.Status != HealthNeedsAttention {
		t.Errorf("Expected NEEDS_ATTENTION, got %s", p.Health.Status)
	}
	if !p.Health.RiskFactors.CompletionBelowTarget {
		t.Error("Expected completion below target")
	}
}

func TestCompletionPercentage(t *testing.T) {
	if got := CompletionPercentage(0, 0); got != 0 {
		t.Errorf("Expected 0, got %f", got)
	}
	if got := CompletionPercentage(27, 27); got != 100 {
		t.Errorf("Expected 100, got %f", got)
	}
	if got := CompletionPercentage(1, 4); got != 25 {
		t.Errorf("Expected 25, got %f", got)
	}
}
