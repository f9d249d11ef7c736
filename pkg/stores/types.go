package stores

import (
	"context"
	"database/sql"
	"time"

	"github.com/ledgerworks/closeflow/pkg/engine"
)

// Driver names reported in logs, metrics and spans.
const (
	DriverSQLite = "sqlite"
	DriverHTTP   = "http"
)

// timestampLayout is how timestamps are written to TEXT columns.
const timestampLayout = time.RFC3339Nano

// FiscalPeriod is a close period as persisted in the store.
type FiscalPeriod struct {
	ID            string    `json:"id"`
	PeriodName    string    `json:"period_name"`
	PeriodEndDate string    `json:"period_end_date"`
	CloseDays     int       `json:"close_days"`
	TaskCount     int       `json:"task_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// StatusHistoryEntry is one recorded status change of a task.
type StatusHistoryEntry struct {
	ID        int64     `json:"id"`
	TaskID    string    `json:"task_id"`
	Status    string    `json:"status"`
	Notes     *string   `json:"notes,omitempty"`
	ChangedBy *string   `json:"changed_by,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

// Store defines the interface for the local persistence layer.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Query capability used by the close operations
	engine.QueryExecutor

	// Close lifecycle writes
	engine.InstanceRecorder
	engine.StatusRecorder

	// Period operations
	GetFiscalPeriod(ctx context.Context, periodName string) (*FiscalPeriod, error)
	ListFiscalPeriods(ctx context.Context, limit, offset int) ([]*FiscalPeriod, error)
	DeleteFiscalPeriod(ctx context.Context, periodName string) error

	// History operations
	ListStatusHistory(ctx context.Context, taskID string, limit, offset int) ([]*StatusHistoryEntry, error)

	// Utility
	HealthCheck(ctx context.Context) error
}

// Observer receives per-query timing from a store.
// The telemetry Metrics type satisfies it.
type Observer interface {
	RecordStoreQuery(driver string, duration time.Duration, err error)
	RecordStoreRetry(driver string)
}

type nopObserver struct{}

func (nopObserver) RecordStoreQuery(string, time.Duration, error) {}
func (nopObserver) RecordStoreRetry(string)                       {}
