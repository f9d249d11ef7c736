package engine

import (
	"reflect"
	"testing"
)

func TestCatalog_CriticalPath_Default(t *testing.T) {
	report := DefaultCatalog().CriticalPath("2025-01")

	want := []string{
		"Record cash receipts and disbursements",
		"Complete bank reconciliation",
		"Complete all balance sheet reconciliations",
		"Post reconciliation adjustments",
		"Run preliminary trial balance",
		"Post tax provision entries",
		"Generate draft financial statements",
		"Perform detailed flux analysis",
		"Management review of financials",
		"Post final adjustments",
		"Finalize financial statements",
		"Lock period in system",
		"Distribute reporting package",
		"Conduct close retrospective",
	}

	if !reflect.DeepEqual(want, report.CriticalPath) {
		t.Errorf("Unexpected critical path.\nwant: %v\ngot:  %v", want, report.CriticalPath)
	}
	if report.PathLength != 14 {
		t.Errorf("Expected path length 14, got %d", report.PathLength)
	}
	if report.MinimumCloseDays != 5 {
		t.Errorf("Expected minimum close days 5, got %d", report.MinimumCloseDays)
	}
	if report.Period != "2025-01" {
		t.Errorf("Expected period to be echoed, got %s", report.Period)
	}

	first := report.CriticalPathTasks[0]
	if first.Sequence != 1 || first.ScheduledDay != 1 || first.Category != "CASH" {
		t.Errorf("Unexpected first step: %+v", first)
	}
	last := report.CriticalPathTasks[13]
	if last.Sequence != 14 || last.TaskName != "Conduct close retrospective" || last.ScheduledDay != 5 {
		t.Errorf("Unexpected last step: %+v", last)
	}
	if len(report.AccelerationOpportunities) != 4 {
		t.Errorf("Expected 4 acceleration opportunities, got %d", len(report.AccelerationOpportunities))
	}
}

func TestCatalog_CriticalPath_MinimumCloseDaysIsCatalogMax(t *testing.T) {
	catalog, err := NewCatalog([]TaskTemplate{
		{Name: "a", Category: "X", Day: 1},
		{Name: "b", Category: "X", Day: 7, DependsOn: []string{"a"}},
		{Name: "c", Category: "X", Day: 3},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	for _, period := range []string{"2025-01", "2025-02"} {
		report := catalog.CriticalPath(period)
		if report.MinimumCloseDays != 7 {
			t.Errorf("Expected minimum close days 7, got %d", report.MinimumCloseDays)
		}
		if !reflect.DeepEqual([]string{"a", "b"}, report.CriticalPath) {
			t.Errorf("Expected [a b], got %v", report.CriticalPath)
		}
	}
}

func TestCatalog_CriticalPath_TieBreak(t *testing.T) {
	// Two equal-length chains into each final task; the first found wins.
	catalog, err := NewCatalog([]TaskTemplate{
		{Name: "left root", Category: "X", Day: 1},
		{Name: "right root", Category: "X", Day: 1},
		{Name: "left", Category: "X", Day: 2, DependsOn: []string{"left root"}},
		{Name: "right", Category: "X", Day: 2, DependsOn: []string{"right root"}},
		{Name: "final one", Category: "X", Day: 3, DependsOn: []string{"left", "right"}},
		{Name: "final two", Category: "X", Day: 3, DependsOn: []string{"right", "left"}},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := []string{"left root", "left", "final one"}
	if got := catalog.CriticalPath("p").CriticalPath; !reflect.DeepEqual(want, got) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestCatalog_CriticalPath_Diamond(t *testing.T) {
	catalog, err := NewCatalog([]TaskTemplate{
		{Name: "root", Category: "X", Day: 1},
		{Name: "short", Category: "X", Day: 2, DependsOn: []string{"root"}},
		{Name: "long 1", Category: "X", Day: 2, DependsOn: []string{"root"}},
		{Name: "long 2", Category: "X", Day: 2, DependsOn: []string{"long 1"}},
		{Name: "end", Category: "X", Day: 3, DependsOn: []string{"short", "long 2"}},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := []string{"root", "long 1", "long 2", "end"}
	if got := catalog.CriticalPath("p").CriticalPath; !reflect.DeepEqual(want, got) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestAccelerationOpportunities_ReturnsCopy(t *testing.T) {
	ops := AccelerationOpportunities()
	ops[0] = "changed"

	report := DefaultCatalog().CriticalPath("2025-01")
	report.AccelerationOpportunities[1] = "changed too"

	again := AccelerationOpportunities()
	if again[0] != "Automate depreciation and amortization entries" || again[1] != "Pre-reconcile accounts during the month" {
		t.Errorf("Expected the standing suggestions to be unchanged, got %v", again)
	}
}
