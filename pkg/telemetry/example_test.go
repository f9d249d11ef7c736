package telemetry_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerworks/closeflow/pkg/telemetry"
)

// Example_instrumentedOperation demonstrates wrapping a close operation.
func Example_instrumentedOperation() {
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Level = "error"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	ic := telemetry.StartOperation(ctx, "get_close_progress",
		telemetry.AttrPeriod.String("2025-01"),
	)
	ic.Logger.WithPeriod("2025-01").Debug("Reading close tasks")
	ic.End(nil)

	fmt.Println("Operation instrumentation complete")
	// Output: Operation instrumentation complete
}

// Example_closeMetrics demonstrates recording close metrics.
func Example_closeMetrics() {
	m, err := telemetry.NewMetrics(telemetry.DefaultConfig().Metrics)
	if err != nil {
		panic(err)
	}

	m.RecordOperation("identify_blockers", "success", 12*time.Millisecond)
	m.RecordStoreQuery("sqlite", 3*time.Millisecond, nil)
	m.RecordStoreRetry("http")
	m.RecordTasksInitialized(map[string]int{"CASH": 2, "PAYROLL": 1})
	m.SetCloseHealth("2025-01", 0.5, 40, 0, 1)
	m.RecordError("ValidationError", "INVALID_STATUS")

	fmt.Println("Metrics recorded successfully")
	// Output: Metrics recorded successfully
}

// Example_eventFiltering demonstrates subscribing to close events.
func Example_eventFiltering() {
	events, _ := telemetry.NewEventPublisher(telemetry.EventsConfig{Enabled: true})

	events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Attention: %s\n", event.Message)
	}, telemetry.FilterByLevel(telemetry.EventLevelWarning))

	events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Status: %s\n", event.Message)
	}, telemetry.FilterByType(telemetry.EventTypeTaskStatusChanged))

	_ = events.PublishCloseInitialized("2025-01", 27, 5)
	_ = events.PublishTaskStatusChanged("task-1", "COMPLETED", "alice")
	_ = events.PublishHealthAssessed("2025-01", "AT_RISK", 12.5)

	// Output:
	// Status: Task task-1 moved to COMPLETED
	// Attention: Close 2025-01 is AT_RISK at 12.5% complete
}

// Example_errorRecording demonstrates classifying a failed operation.
func Example_errorRecording() {
	tel := telemetry.Noop()
	ctx := tel.WithContext(context.Background())

	ic := telemetry.StartOperation(ctx, "update_task_status")
	err := errors.New("SQL execution timeout")
	ic.Logger.WithError(err).Error("Operation failed")
	tel.Metrics.RecordError("ExecutionError", "TIMEOUT")
	ic.End(err)

	fmt.Println("Error recording complete")
	// Output: Error recording complete
}
