package engine

import (
	"reflect"
	"testing"
)

func TestIdentifyBlockers_CompletedDependency(t *testing.T) {
	rows := []TaskRow{
		{ID: "a", Name: "cash", Category: "CASH", ScheduledDay: 1, Status: TaskStatusCompleted},
		{ID: "b", Name: "bank", Category: "RECONCILIATION", ScheduledDay: 2, Status: TaskStatusBlocked,
			DependencyIDs: []string{"a"}},
	}

	report := IdentifyBlockers("2025-01", rows)

	if report.BlockedCount != 1 {
		t.Fatalf("Expected 1 blocked task, got %d", report.BlockedCount)
	}
	blocked := report.BlockedTasks[0]
	if blocked.BlockingTasks == nil || len(blocked.BlockingTasks) != 0 {
		t.Errorf("Expected empty blocking tasks, got %v", blocked.BlockingTasks)
	}
	if blocked.BlockerCount != 0 {
		t.Errorf("Expected blocker count 0, got %d", blocked.BlockerCount)
	}
	if len(report.CriticalBlockers) != 0 {
		t.Errorf("Expected no critical blockers, got %v", report.CriticalBlockers)
	}
}

func TestIdentifyBlockers_CriticalBlockers(t *testing.T) {
	rows := []TaskRow{
		{ID: "tb", Name: "trial balance", Category: "REPORTING", ScheduledDay: 3, Status: TaskStatusInProgress},
		{ID: "eq", Name: "equity", Category: "EQUITY", ScheduledDay: 4, Status: TaskStatusNotStarted},
		{ID: "ar", Name: "ar recs", Category: "RECONCILIATION", ScheduledDay: 2, Status: TaskStatusNotStarted},
		{ID: "tax", Name: "tax", Category: "TAX", ScheduledDay: 4, Status: TaskStatusBlocked,
			DependencyIDs: []string{"ar", "tb"}},
		{ID: "flux", Name: "flux", Category: "ANALYSIS", ScheduledDay: 3, Status: TaskStatusBlocked,
			DependencyIDs: []string{"ar", "tb", "tb"}},
		{ID: "fs", Name: "draft fs", Category: "REPORTING", ScheduledDay: 4, Status: TaskStatusBlocked,
			DependencyIDs: []string{"tb", "eq", "missing"}},
	}

	report := IdentifyBlockers("2025-01", rows)

	if report.BlockedCount != 3 {
		t.Fatalf("Expected 3 blocked tasks, got %d", report.BlockedCount)
	}

	fs := report.BlockedTasks[2]
	if fs.BlockerCount != 2 {
		t.Errorf("Expected unresolvable ids to be ignored, got %d blockers", fs.BlockerCount)
	}

	want := []CriticalBlocker{
		{TaskID: "tb", TaskName: "trial balance", Status: TaskStatusInProgress, BlockingCount: 3},
		{TaskID: "ar", TaskName: "ar recs", Status: TaskStatusNotStarted, BlockingCount: 2},
	}
	if !reflect.DeepEqual(want, report.CriticalBlockers) {
		t.Errorf("Expected critical blockers %+v, got %+v", want, report.CriticalBlockers)
	}

	wantRecs := []string{"Priority: Complete 'trial balance' - it is blocking 3 other tasks"}
	if !reflect.DeepEqual(wantRecs, report.Recommendations) {
		t.Errorf("Expected recommendations %v, got %v", wantRecs, report.Recommendations)
	}
}

func TestIdentifyBlockers_CriticalBlockerTiesKeepFirstCitation(t *testing.T) {
	rows := []TaskRow{
		{ID: "x", Name: "x", Category: "A", Status: TaskStatusNotStarted},
		{ID: "y", Name: "y", Category: "A", Status: TaskStatusNotStarted},
		{ID: "b1", Name: "b1", Category: "B", Status: TaskStatusBlocked, DependencyIDs: []string{"y", "x"}},
		{ID: "b2", Name: "b2", Category: "B", Status: TaskStatusBlocked, DependencyIDs: []string{"x", "y"}},
	}

	report := IdentifyBlockers("2025-01", rows)

	if len(report.CriticalBlockers) != 2 {
		t.Fatalf("Expected 2 critical blockers, got %d", len(report.CriticalBlockers))
	}
	if report.CriticalBlockers[0].TaskID != "y" || report.CriticalBlockers[1].TaskID != "x" {
		t.Errorf("Expected first-citation order [y x], got %+v", report.CriticalBlockers)
	}
}

func TestIdentifyBlockers_WaitingOnIsAdvisory(t *testing.T) {
	rows := []TaskRow{
		{ID: "a", Name: "cash", Category: "CASH", Status: TaskStatusInProgress},
		{ID: "b", Name: "bank", Category: "RECONCILIATION", Status: TaskStatusNotStarted, DependencyIDs: []string{"a"}},
		{ID: "c", Name: "ready", Category: "OTHER", Status: TaskStatusNotStarted},
	}

	report := IdentifyBlockers("2025-01", rows)

	if report.BlockedCount != 0 {
		t.Errorf("Expected no blocked tasks to be derived, got %d", report.BlockedCount)
	}
	if len(report.WaitingTasks) != 1 {
		t.Fatalf("Expected 1 waiting task, got %d", len(report.WaitingTasks))
	}
	if !reflect.DeepEqual([]string{"cash"}, report.WaitingTasks[0].WaitingOn) {
		t.Errorf("Expected waiting on [cash], got %v", report.WaitingTasks[0].WaitingOn)
	}
	if rows[1].Status != TaskStatusNotStarted {
		t.Error("Row status must not change")
	}

	want := []string{"No significant blockers identified"}
	if !reflect.DeepEqual(want, report.Recommendations) {
		t.Errorf("Expected %v, got %v", want, report.Recommendations)
	}
}

func TestIdentifyBlockers_Recommendations(t *testing.T) {
	rows := []TaskRow{
		{ID: "1", Name: "one", Category: "RECONCILIATION", Status: TaskStatusBlocked},
		{ID: "2", Name: "two", Category: "TAX", Status: TaskStatusBlocked},
		{ID: "3", Name: "three", Category: "TAX", Status: TaskStatusBlocked},
		{ID: "4", Name: "four", Category: "TAX", Status: TaskStatusBlocked},
	}

	report := IdentifyBlockers("2025-01", rows)

	want := []string{
		"Consider parallel processing or additional resources to accelerate blocked tasks",
		"Multiple reconciliation tasks blocked - consider expediting data availability",
	}
	if !reflect.DeepEqual(want, report.Recommendations) {
		t.Errorf("Expected %v, got %v", want, report.Recommendations)
	}
}

func TestIdentifyBlockers_Empty(t *testing.T) {
	report := IdentifyBlockers("2025-01", nil)

	if report.BlockedTasks == nil || report.CriticalBlockers == nil || report.WaitingTasks == nil {
		t.Error("Expected empty, non-nil lists")
	}
	if len(report.Recommendations) != 1 {
		t.Errorf("Expected a single recommendation, got %v", report.Recommendations)
	}
}
