package stores

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ledgerworks/closeflow/pkg/engine"
	"github.com/ledgerworks/closeflow/pkg/telemetry"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const memoryPath = ":memory:"

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db       *sql.DB
	cfg      Config
	logger   zerolog.Logger
	observer Observer
	tracer   *telemetry.Tracer
	now      func() time.Time
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config, opts ...Option) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	// Every connection to :memory: is its own database.
	if cfg.Path == memoryPath {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
	}

	o := applyOptions(opts)
	return &SQLiteStore{
		cfg:      cfg,
		logger:   o.logger.With().Str("component", "sqlite_store").Logger(),
		observer: o.observer,
		tracer:   o.tracer,
		now:      o.now,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	s.logger.Debug().Str("path", s.cfg.Path).Msg("SQLite store opened")
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
}

// CommitTx commits a transaction
func (s *SQLiteStore) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}

// RollbackTx rolls back a transaction
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error {
	return tx.Rollback()
}

// ExecuteQuery runs a parameterized statement and returns its rows as JSON-compatible values.
func (s *SQLiteStore) ExecuteQuery(ctx context.Context, statement string, args ...interface{}) (*engine.QueryResult, error) {
	if s.db == nil {
		return nil, engine.NewInternalError("database not initialized", nil)
	}

	ctx, span := s.tracer.StartStoreSpan(ctx, DriverSQLite, engine.QueryExcerpt(statement))
	defer span.End()

	start := s.now()
	result, err := s.query(ctx, statement, args...)
	s.observer.RecordStoreQuery(DriverSQLite, s.now().Sub(start), err)

	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Debug().Err(err).Str("statement", engine.QueryExcerpt(statement)).Msg("Query failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("db.rows", len(result.Rows)))
	return result, nil
}

func (s *SQLiteStore) query(ctx context.Context, statement string, args ...interface{}) (*engine.QueryResult, error) {
	rows, err := s.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, classifyQueryError(ctx, statement, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, classifyQueryError(ctx, statement, err)
	}

	result := &engine.QueryResult{
		Columns: columns,
		Rows:    [][]interface{}{},
	}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, classifyQueryError(ctx, statement, err)
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyQueryError(ctx, statement, err)
	}

	return result, nil
}

// normalizeValue maps driver values onto what a JSON API would return.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(timestampLayout)
	default:
		return val
	}
}

func classifyQueryError(ctx context.Context, statement string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return engine.NewExecutionError("SQL execution timeout", statement, err).WithCode(engine.ErrCodeTimeout)
	}
	return engine.NewExecutionError("SQL execution failed", statement, err)
}

// RecordCloseInstance stores the fiscal period and all of its task instances in one transaction.
func (s *SQLiteStore) RecordCloseInstance(ctx context.Context, instance *engine.CloseInstance) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return engine.NewExecutionError("failed to begin transaction", "", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT id FROM fiscal_periods WHERE period_name = ?`, instance.Period).Scan(&existing)
	switch {
	case err == nil:
		return engine.NewValidationError(
			fmt.Sprintf("close tasks already initialized for period %s", instance.Period), nil,
		).WithPeriod(instance.Period)
	case !errors.Is(err, sql.ErrNoRows):
		return engine.NewExecutionError("failed to look up fiscal period", "", err)
	}

	periodID := uuid.New().String()
	now := s.now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO fiscal_periods (id, period_name, period_end_date, close_days, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, periodID, instance.Period, instance.PeriodEndDate.String(), instance.CloseDays, now.Format(timestampLayout))
	if err != nil {
		return engine.NewExecutionError("failed to create fiscal period", "", err)
	}

	insertTask, err := tx.PrepareContext(ctx, `
		INSERT INTO close_tasks (
			id, fiscal_period_id, task_name, task_category, scheduled_day, status,
			due_date, dependency_task_ids, dependency_names, assigned_to, notes,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return engine.NewExecutionError("failed to prepare task insert", "", err)
	}
	defer insertTask.Close()

	for _, task := range instance.AllTasks {
		depIDs, err := json.Marshal(nonNil(task.DependencyIDs))
		if err != nil {
			return engine.NewInternalError("failed to encode dependency ids", err)
		}
		depNames, err := json.Marshal(nonNil(task.DependencyNames))
		if err != nil {
			return engine.NewInternalError("failed to encode dependency names", err)
		}

		var dueDate *string
		if task.DueDate != nil {
			d := task.DueDate.String()
			dueDate = &d
		}

		createdAt := task.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		ts := createdAt.UTC().Format(timestampLayout)

		_, err = insertTask.ExecContext(ctx,
			task.ID,
			periodID,
			task.Name,
			task.Category,
			task.ScheduledDay,
			string(task.Status),
			dueDate,
			string(depIDs),
			string(depNames),
			task.AssignedTo,
			task.Notes,
			ts,
			ts,
		)
		if err != nil {
			return engine.NewExecutionError(fmt.Sprintf("failed to create task %q", task.Name), "", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return engine.NewExecutionError("failed to commit close instance", "", err)
	}

	s.logger.Info().
		Str("period", instance.Period).
		Int("tasks", len(instance.AllTasks)).
		Msg("Close instance recorded")
	return nil
}

// ApplyStatusUpdate writes a status change and appends it to the task's history.
// Leaving COMPLETED clears the completion stamp.
func (s *SQLiteStore) ApplyStatusUpdate(ctx context.Context, update *engine.StatusUpdate) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return engine.NewExecutionError("failed to begin transaction", "", err)
	}
	defer func() { _ = tx.Rollback() }()

	updatedAt := update.UpdatedAt.UTC().Format(timestampLayout)

	var completedAt *string
	if update.CompletedAt != nil {
		c := update.CompletedAt.UTC().Format(timestampLayout)
		completedAt = &c
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE close_tasks
		SET status = ?,
		    notes = COALESCE(?, notes),
		    completed_at = ?,
		    completed_by = ?,
		    updated_at = ?
		WHERE id = ?
	`, string(update.NewStatus), update.Notes, completedAt, update.CompletedBy, updatedAt, update.TaskID)
	if err != nil {
		return engine.NewExecutionError("failed to update task status", "", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return engine.NewExecutionError("failed to get rows affected", "", err)
	}
	if rows == 0 {
		return engine.NewNotFoundError(fmt.Sprintf("task not found: %s", update.TaskID), nil).
			WithTask(update.TaskID)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO task_status_history (task_id, status, notes, changed_by, changed_at)
		VALUES (?, ?, ?, ?, ?)
	`, update.TaskID, string(update.NewStatus), update.Notes, update.CompletedBy, updatedAt)
	if err != nil {
		return engine.NewExecutionError("failed to record status history", "", err)
	}

	if err := tx.Commit(); err != nil {
		return engine.NewExecutionError("failed to commit status update", "", err)
	}
	return nil
}

// GetFiscalPeriod retrieves a period by name along with its task count.
func (s *SQLiteStore) GetFiscalPeriod(ctx context.Context, periodName string) (*FiscalPeriod, error) {
	query := `
		SELECT fp.id, fp.period_name, fp.period_end_date, fp.close_days, fp.created_at,
		       (SELECT COUNT(*) FROM close_tasks ct WHERE ct.fiscal_period_id = fp.id)
		FROM fiscal_periods fp
		WHERE fp.period_name = ?
	`

	period, err := scanFiscalPeriod(s.db.QueryRowContext(ctx, query, periodName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.NewNotFoundError(fmt.Sprintf("period not found: %s", periodName), nil).
			WithPeriod(periodName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fiscal period: %w", err)
	}

	return period, nil
}

// ListFiscalPeriods lists periods, latest period end first.
func (s *SQLiteStore) ListFiscalPeriods(ctx context.Context, limit, offset int) ([]*FiscalPeriod, error) {
	query := `
		SELECT fp.id, fp.period_name, fp.period_end_date, fp.close_days, fp.created_at,
		       (SELECT COUNT(*) FROM close_tasks ct WHERE ct.fiscal_period_id = fp.id)
		FROM fiscal_periods fp
		ORDER BY fp.period_end_date DESC, fp.period_name DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list fiscal periods: %w", err)
	}
	defer rows.Close()

	periods := []*FiscalPeriod{}
	for rows.Next() {
		period, err := scanFiscalPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fiscal period: %w", err)
		}
		periods = append(periods, period)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fiscal periods: %w", err)
	}

	return periods, nil
}

// DeleteFiscalPeriod deletes a period and, by cascade, its tasks and history.
func (s *SQLiteStore) DeleteFiscalPeriod(ctx context.Context, periodName string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM fiscal_periods WHERE period_name = ?`, periodName)
	if err != nil {
		return fmt.Errorf("failed to delete fiscal period: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return engine.NewNotFoundError(fmt.Sprintf("period not found: %s", periodName), nil).
			WithPeriod(periodName)
	}

	return nil
}

// ListStatusHistory lists a task's status changes, oldest first.
func (s *SQLiteStore) ListStatusHistory(ctx context.Context, taskID string, limit, offset int) ([]*StatusHistoryEntry, error) {
	query := `
		SELECT id, task_id, status, notes, changed_by, changed_at
		FROM task_status_history
		WHERE task_id = ?
		ORDER BY id ASC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, taskID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	defer rows.Close()

	entries := []*StatusHistoryEntry{}
	for rows.Next() {
		entry := &StatusHistoryEntry{}
		var changedAt string
		err := rows.Scan(
			&entry.ID,
			&entry.TaskID,
			&entry.Status,
			&entry.Notes,
			&entry.ChangedBy,
			&changedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		if entry.ChangedAt, err = time.Parse(timestampLayout, changedAt); err != nil {
			return nil, fmt.Errorf("failed to parse changed_at: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status history: %w", err)
	}

	return entries, nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFiscalPeriod(row rowScanner) (*FiscalPeriod, error) {
	period := &FiscalPeriod{}
	var createdAt string
	err := row.Scan(
		&period.ID,
		&period.PeriodName,
		&period.PeriodEndDate,
		&period.CloseDays,
		&createdAt,
		&period.TaskCount,
	)
	if err != nil {
		return nil, err
	}
	if period.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return period, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
