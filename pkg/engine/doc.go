// Package engine provides the month-end close dependency and scheduling engine.
//
// # Overview
//
// A close is the multi-day sequence of accounting tasks performed after a
// fiscal period ends. The engine models it as a directed acyclic graph of task
// templates and answers six questions about it:
//
//  1. Initialize - Lay the catalog onto business days for a period (Builder)
//  2. Status - Validate and timestamp a task status change (StatusTracker)
//  3. Progress - Score completion and close health (GetProgress)
//  4. Blockers - Find unresolved prerequisites of blocked tasks (IdentifyBlockers)
//  5. Calendar - Render the day-by-day schedule (BuildCalendar, RenderText)
//  6. Critical path - Find the longest dependency chain (Catalog.CriticalPath)
//
// # Catalog
//
// A Catalog is built once at process start and shared read-only:
//
//	catalog, err := engine.NewCatalog(templates)
//	if err != nil {
//	    // duplicate names, unknown dependencies, cycles...
//	}
//	builder := engine.NewBuilder(catalog)
//
// NewCatalog topologically sorts templates (keeping declaration order where it
// is already valid) and rejects cycles with the offending path.
//
// # Business Days
//
// Close days are numbered T+1, T+2, ... and map to the weekdays following the
// period end. Weekends are skipped; holidays are not considered.
//
// # Store
//
// Task state lives in an external store reached through QueryExecutor.
// The analyzers (GetProgress, IdentifyBlockers) are pure functions over rows
// fetched from it. Stores that also implement InstanceRecorder or
// StatusRecorder can persist initialized instances and status updates.
//
// # Error Classification
//
// Errors are classified for the invocation envelope:
//
//   - ValidationError: missing or malformed input
//   - NotFoundError: referenced period or task is absent
//   - ExecutionError: the store query failed or timed out
//   - InternalError: anything unexpected
//
// Use IsValidation, IsNotFound, IsExecution, IsInternal or ErrorType to inspect them.
package engine
