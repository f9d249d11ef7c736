// Package telemetry provides observability instrumentation for closeflow.
//
// The package bundles structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus) and close lifecycle events behind a
// single Telemetry value that travels in the context.
//
// # Usage
//
// Initialize telemetry at startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// Tests and library callers that want nothing recorded use telemetry.Noop().
//
// # Structured Logging
//
// Logs go to stderr by default. Stdout carries the invocation envelope and
// must stay clean.
//
//	logger := tel.Logger.NewComponentLogger("closeops")
//	logger = logger.WithPeriod("2025-01").WithTaskID(taskID)
//	logger.Info("Task status updated")
//
// # Tracing
//
// Every dispatched operation runs under a span named close.<operation>;
// store queries run under store.query with the driver and statement attached.
// Retries show up as store.retry span events.
//
//	ic := telemetry.StartOperation(ctx, "get_close_progress",
//	    telemetry.AttrPeriod.String(period))
//	defer func() { ic.End(err) }()
//
// Exporters: "otlp" (gRPC), "stdout" (pretty-printed to stderr) and "none".
//
// # Metrics
//
// Key metrics exposed:
//
//   - closeflow_operations_total{operation,status}
//   - closeflow_operation_duration_seconds{operation}
//   - closeflow_store_queries_total{driver,status}
//   - closeflow_store_query_duration_seconds{driver}
//   - closeflow_store_retries_total{driver}
//   - closeflow_tasks_initialized_total{category}
//   - closeflow_status_updates_total{status}
//   - closeflow_close_health{period}
//   - closeflow_close_completion_percent{period}
//   - closeflow_blocked_tasks{period}
//   - closeflow_late_tasks{period}
//   - closeflow_policy_violations_total{policy}
//   - closeflow_errors_by_class_total{class}
//
// The serve command mounts Metrics.Handler at /metrics. A disabled Metrics
// value is safe to call and records nothing.
//
// # Events
//
// The EventPublisher delivers close lifecycle events (initialized, status
// changed, health assessed, policy violation, operation failed) to
// subscribers synchronously. LogSubscriber writes them to a logger.
package telemetry
