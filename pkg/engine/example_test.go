package engine_test

import (
	"fmt"
	"log"
	"time"

	"github.com/ledgerworks/closeflow/pkg/engine"
)

// Example demonstrates initializing a three-day close from a custom catalog.
func Example_initialize() {
	catalog, err := engine.NewCatalog([]engine.TaskTemplate{
		{Name: "Record cash", Category: "CASH", Day: 1},
		{Name: "Bank reconciliation", Category: "RECONCILIATION", Day: 2, DependsOn: []string{"Record cash"}},
		{Name: "Trial balance", Category: "REPORTING", Day: 3, DependsOn: []string{"Bank reconciliation"}},
		{Name: "Lock period", Category: "CLOSE", Day: 4, DependsOn: []string{"Trial balance"}},
	})
	if err != nil {
		log.Fatal(err)
	}

	builder := engine.NewBuilder(catalog)
	instance, err := builder.Initialize("2025-01", "2025-01-31", 3, map[string]string{
		"RECONCILIATION": "alice",
	})
	if err != nil {
		log.Fatal(err)
	}

	for _, day := range instance.Schedule {
		fmt.Printf("%s %s:", day.Label, day.Date)
		for _, task := range day.Tasks {
			fmt.Printf(" %s (%d deps)", task.Name, len(task.DependencyIDs))
		}
		fmt.Println()
	}
	fmt.Println("Total:", instance.Summary.TotalTasks)

	// Output:
	// T+1 2025-02-03: Record cash (0 deps)
	// T+2 2025-02-04: Bank reconciliation (1 deps)
	// T+3 2025-02-05: Trial balance (1 deps)
	// Total: 3
}

// Example demonstrates scoring close progress from store rows.
func Example_progress() {
	due := engine.NewDate(2025, time.February, 3)
	rows := []engine.TaskRow{
		{ID: "1", Name: "Record cash", Status: engine.TaskStatusCompleted, DueDate: &due},
		{ID: "2", Name: "Post payroll", Status: engine.TaskStatusInProgress, DueDate: &due},
	}

	p := engine.GetProgress("2025-01", rows, engine.NewDate(2025, time.February, 4))

	fmt.Printf("%.0f%% complete, %d late\n", p.Progress.CompletionPercentage, p.LateTaskCount)
	fmt.Println(p.Health.Status, "-", p.Health.Message)

	// Output:
	// 50% complete, 1 late
	// NEEDS_ATTENTION - Close needs attention - some tasks behind schedule
}

// Example demonstrates the critical path of the standard catalog.
func Example_criticalPath() {
	report := engine.DefaultCatalog().CriticalPath("2025-01")

	fmt.Println("Tasks on critical path:", report.PathLength)
	fmt.Println("Starts with:", report.CriticalPath[0])
	fmt.Println("Minimum close days:", report.MinimumCloseDays)

	// Output:
	// Tasks on critical path: 14
	// Starts with: Record cash receipts and disbursements
	// Minimum close days: 5
}
