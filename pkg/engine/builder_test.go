package engine

import (
	"fmt"
	"testing"
	"time"
)

var fixedNow = time.Date(2025, time.February, 5, 9, 30, 0, 0, time.UTC)

func sequentialIDs() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("task-%02d", n)
	}
}

func newTestBuilder() *Builder {
	return NewBuilder(DefaultCatalog(),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(sequentialIDs()),
	)
}

func TestBuilder_Initialize_TaskCounts(t *testing.T) {
	catalog := DefaultCatalog()

	for closeDays := 1; closeDays <= 5; closeDays++ {
		instance, err := NewBuilder(catalog).Initialize("2025-01", "2025-01-31", closeDays, nil)
		if err != nil {
			t.Fatalf("closeDays=%d: expected no error, got: %v", closeDays, err)
		}

		want := 0
		for _, tpl := range catalog.Templates() {
			if tpl.Day <= closeDays {
				want++
			}
		}

		if len(instance.AllTasks) != want {
			t.Errorf("closeDays=%d: expected %d tasks, got %d", closeDays, want, len(instance.AllTasks))
		}
		if instance.Summary.TotalTasks != want {
			t.Errorf("closeDays=%d: expected summary total %d, got %d", closeDays, want, instance.Summary.TotalTasks)
		}
		if len(instance.Schedule) != closeDays {
			t.Errorf("closeDays=%d: expected %d schedule days, got %d", closeDays, closeDays, len(instance.Schedule))
		}
	}
}

func TestBuilder_Initialize_DependencyResolution(t *testing.T) {
	catalog := DefaultCatalog()

	for closeDays := 1; closeDays <= 5; closeDays++ {
		instance, err := NewBuilder(catalog).Initialize("2025-01", "2025-01-31", closeDays, nil)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		for _, task := range instance.AllTasks {
			if len(task.DependencyIDs) > len(task.DependencyNames) {
				t.Errorf("%s: %d dependency ids exceed %d names",
					task.Name, len(task.DependencyIDs), len(task.DependencyNames))
			}

			allIncluded := true
			for _, dep := range task.DependencyNames {
				tpl, ok := catalog.Lookup(dep)
				if !ok || tpl.Day > closeDays {
					allIncluded = false
				}
			}
			if allIncluded != (len(task.DependencyIDs) == len(task.DependencyNames)) {
				t.Errorf("closeDays=%d %s: allIncluded=%v but ids=%d names=%d",
					closeDays, task.Name, allIncluded, len(task.DependencyIDs), len(task.DependencyNames))
			}
		}
	}
}

func TestBuilder_Initialize_DropsExcludedDependencies(t *testing.T) {
	catalog, err := NewCatalog([]TaskTemplate{
		{Name: "late prep", Category: "PREP", Day: 3},
		{Name: "early task", Category: "WORK", Day: 1, DependsOn: []string{"late prep"}},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	instance, err := NewBuilder(catalog).Initialize("2025-01", "2025-01-31", 2, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(instance.AllTasks) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(instance.AllTasks))
	}
	task := instance.AllTasks[0]
	if len(task.DependencyIDs) != 0 {
		t.Errorf("Expected excluded dependency to be dropped, got %v", task.DependencyIDs)
	}
	if len(task.DependencyNames) != 1 || task.DependencyNames[0] != "late prep" {
		t.Errorf("Expected dependency name to remain visible, got %v", task.DependencyNames)
	}
}

func TestBuilder_Initialize_Instances(t *testing.T) {
	assignees := map[string]string{
		"RECONCILIATION": "alice@example.com",
		"REPORTING":      "bob@example.com",
	}

	instance, err := newTestBuilder().Initialize("2025-01", "2025-01-31", 5, assignees)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	ids := map[string]string{}
	seen := map[string]bool{}
	for _, task := range instance.AllTasks {
		if seen[task.ID] {
			t.Errorf("Duplicate task id %s", task.ID)
		}
		seen[task.ID] = true
		ids[task.Name] = task.ID

		if task.Status != TaskStatusNotStarted {
			t.Errorf("%s: expected NOT_STARTED, got %s", task.Name, task.Status)
		}
		if !task.CreatedAt.Equal(fixedNow) {
			t.Errorf("%s: expected created at %s, got %s", task.Name, fixedNow, task.CreatedAt)
		}
		if task.DueDate == nil {
			t.Errorf("%s: expected a due date", task.Name)
		}
	}

	bank := instance.AllTasks[6]
	if bank.Name != "Complete bank reconciliation" {
		t.Fatalf("Unexpected task order: %s", bank.Name)
	}
	if len(bank.DependencyIDs) != 1 || bank.DependencyIDs[0] != ids["Record cash receipts and disbursements"] {
		t.Errorf("Expected bank reconciliation to depend on cash receipts id, got %v", bank.DependencyIDs)
	}
	if bank.AssignedTo == nil || *bank.AssignedTo != "alice@example.com" {
		t.Errorf("Expected RECONCILIATION owner alice@example.com, got %v", bank.AssignedTo)
	}
	if bank.DueDate.String() != "2025-02-04" {
		t.Errorf("Expected due date 2025-02-04, got %s", bank.DueDate)
	}

	payroll := instance.AllTasks[1]
	if payroll.AssignedTo != nil {
		t.Errorf("Expected no owner for PAYROLL, got %s", *payroll.AssignedTo)
	}
}

func TestBuilder_Initialize_ScheduleAndSummary(t *testing.T) {
	instance, err := newTestBuilder().Initialize("2025-01", "2025-01-31", 5, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	wantDates := []string{"2025-02-03", "2025-02-04", "2025-02-05", "2025-02-06", "2025-02-07"}
	wantCounts := []int{6, 6, 5, 5, 5}
	for i, day := range instance.Schedule {
		if day.Day != i+1 {
			t.Errorf("Schedule[%d]: expected day %d, got %d", i, i+1, day.Day)
		}
		if day.Label != DayLabel(i+1) {
			t.Errorf("Schedule[%d]: expected label %s, got %s", i, DayLabel(i+1), day.Label)
		}
		if day.Date == nil || day.Date.String() != wantDates[i] {
			t.Errorf("Schedule[%d]: expected date %s, got %v", i, wantDates[i], day.Date)
		}
		if len(day.Tasks) != wantCounts[i] {
			t.Errorf("Schedule[%d]: expected %d tasks, got %d", i, wantCounts[i], len(day.Tasks))
		}
		if instance.Summary.TasksByDay[day.Label] != wantCounts[i] {
			t.Errorf("Summary %s: expected %d, got %d", day.Label, wantCounts[i], instance.Summary.TasksByDay[day.Label])
		}
	}

	if instance.Summary.TasksByCategory["RECONCILIATION"] != 4 {
		t.Errorf("Expected 4 RECONCILIATION tasks, got %d", instance.Summary.TasksByCategory["RECONCILIATION"])
	}
	if instance.Summary.TasksByCategory["REPORTING"] != 4 {
		t.Errorf("Expected 4 REPORTING tasks, got %d", instance.Summary.TasksByCategory["REPORTING"])
	}
	if instance.PeriodEndDate.String() != "2025-01-31" {
		t.Errorf("Expected period end 2025-01-31, got %s", instance.PeriodEndDate)
	}
}

func TestBuilder_Initialize_LongerThanCatalog(t *testing.T) {
	instance, err := newTestBuilder().Initialize("2025-01", "2025-01-31", 7, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(instance.AllTasks) != 27 {
		t.Errorf("Expected 27 tasks, got %d", len(instance.AllTasks))
	}
	if len(instance.Schedule) != 7 {
		t.Fatalf("Expected 7 schedule days, got %d", len(instance.Schedule))
	}
	last := instance.Schedule[6]
	if len(last.Tasks) != 0 || last.Tasks == nil {
		t.Errorf("Expected empty task list on T+7, got %v", last.Tasks)
	}
	if last.Date.String() != "2025-02-11" {
		t.Errorf("Expected T+7 on 2025-02-11, got %s", last.Date)
	}
}

func TestBuilder_Initialize_InvalidInput(t *testing.T) {
	b := newTestBuilder()

	_, err := b.Initialize("2025-01", "2025-02-30", 5, nil)
	if err == nil {
		t.Fatal("Expected error for invalid date")
	}
	if !IsValidation(err) {
		t.Errorf("Expected validation error, got: %v", err)
	}

	_, err = b.Initialize("2025-01", "2025-01-31", 0, nil)
	if err == nil {
		t.Fatal("Expected error for zero close days")
	}
	if !IsValidation(err) {
		t.Errorf("Expected validation error, got: %v", err)
	}
}
