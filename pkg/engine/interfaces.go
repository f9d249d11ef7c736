package engine

import (
	"context"
)

// QueryResult is the tabular result of a store query.
type QueryResult struct {
	// Columns are the result column names, in order.
	Columns []string `json:"columns"`

	// Rows hold one value per column. Values are JSON-compatible scalars.
	Rows [][]interface{} `json:"rows"`
}

// QueryExecutor is the single capability the engine needs from the external store.
// Implementations own their timeout and retry policy.
type QueryExecutor interface {
	// ExecuteQuery runs a parameterized statement and returns its rows.
	ExecuteQuery(ctx context.Context, statement string, args ...interface{}) (*QueryResult, error)
}

// InstanceRecorder is implemented by stores that can persist a freshly built close instance.
type InstanceRecorder interface {
	// RecordCloseInstance stores the period and all its task instances.
	RecordCloseInstance(ctx context.Context, instance *CloseInstance) error
}

// StatusRecorder is implemented by stores that can persist status updates.
type StatusRecorder interface {
	// ApplyStatusUpdate writes the update. It returns a NotFound error when the task is absent.
	ApplyStatusUpdate(ctx context.Context, update *StatusUpdate) error
}
