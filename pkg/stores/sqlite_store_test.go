package stores

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerworks/closeflow/pkg/engine"
)

var fixedNow = time.Date(2025, 2, 3, 9, 30, 0, 0, time.UTC)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	}, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err, "failed to create store")

	ctx := context.Background()
	require.NoError(t, store.Init(ctx), "failed to initialize store")
	require.NoError(t, store.Migrate(ctx), "failed to migrate store")

	t.Cleanup(func() { _ = store.Close() })
	return store
}

// buildInstance initializes the standard catalog for January 2025.
func buildInstance(t *testing.T) *engine.CloseInstance {
	t.Helper()

	builder := engine.NewBuilder(engine.DefaultCatalog(),
		engine.WithClock(func() time.Time { return fixedNow }))
	instance, err := builder.Initialize("2025-01", "2025-01-31", 5, map[string]string{
		"RECONCILIATION": "alice",
	})
	require.NoError(t, err)
	return instance
}

func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: ":memory:"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Init(ctx))
	require.NoError(t, store.HealthCheck(ctx))
	require.NoError(t, store.Close())
}

func TestNewSQLiteStore_RequiresPath(t *testing.T) {
	_, err := NewSQLiteStore(Config{})
	assert.Error(t, err)
}

func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, table := range []string{"fiscal_periods", "close_tasks", "task_status_history"} {
		_, err := store.ExecuteQuery(ctx, "SELECT COUNT(*) FROM "+table)
		assert.NoError(t, err, "table %s does not exist or is not accessible", table)
	}

	// Migrating twice is a no-op.
	require.NoError(t, store.Migrate(ctx))
}

func TestRecordCloseInstance(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	instance := buildInstance(t)

	require.NoError(t, store.RecordCloseInstance(ctx, instance))

	period, err := store.GetFiscalPeriod(ctx, "2025-01")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-31", period.PeriodEndDate)
	assert.Equal(t, 5, period.CloseDays)
	assert.Equal(t, 27, period.TaskCount)
	assert.True(t, period.CreatedAt.Equal(fixedNow))

	bank := findTask(t, instance, "Complete bank reconciliation")
	result, err := store.ExecuteQuery(ctx, `
		SELECT task_category, scheduled_day, status, due_date, assigned_to, dependency_task_ids
		FROM close_tasks WHERE id = ?`, bank.ID)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	row := result.Rows[0]
	assert.Equal(t, "RECONCILIATION", row[0])
	assert.Equal(t, int64(2), row[1])
	assert.Equal(t, "NOT_STARTED", row[2])
	assert.Equal(t, "2025-02-04", row[3])
	assert.Equal(t, "alice", row[4])

	var deps []string
	require.NoError(t, json.Unmarshal([]byte(row[5].(string)), &deps))
	assert.Equal(t, bank.DependencyIDs, deps)
}

func TestRecordCloseInstance_Twice(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordCloseInstance(ctx, buildInstance(t)))

	err := store.RecordCloseInstance(ctx, buildInstance(t))
	require.Error(t, err)
	assert.True(t, engine.IsValidation(err), "expected validation error, got %v", err)
}

func TestApplyStatusUpdate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	instance := buildInstance(t)
	require.NoError(t, store.RecordCloseInstance(ctx, instance))

	taskID := instance.AllTasks[0].ID
	tracker := engine.NewStatusTracker(func() time.Time { return fixedNow.Add(time.Hour) })

	notes := "waiting on bank feed"
	update, err := tracker.UpdateStatus(taskID, "IN_PROGRESS", &notes, nil)
	require.NoError(t, err)
	require.NoError(t, store.ApplyStatusUpdate(ctx, update))

	by := "bob"
	update, err = tracker.UpdateStatus(taskID, "COMPLETED", nil, &by)
	require.NoError(t, err)
	require.NoError(t, store.ApplyStatusUpdate(ctx, update))

	result, err := store.ExecuteQuery(ctx,
		`SELECT status, notes, completed_at, completed_by FROM close_tasks WHERE id = ?`, taskID)
	require.NoError(t, err)
	row := result.Rows[0]
	assert.Equal(t, "COMPLETED", row[0])
	assert.Equal(t, notes, row[1], "notes are kept when the update carries none")
	assert.Equal(t, fixedNow.Add(time.Hour).Format(time.RFC3339Nano), row[2])
	assert.Equal(t, "bob", row[3])

	history, err := store.ListStatusHistory(ctx, taskID, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "IN_PROGRESS", history[0].Status)
	assert.Equal(t, "COMPLETED", history[1].Status)
	require.NotNil(t, history[1].ChangedBy)
	assert.Equal(t, "bob", *history[1].ChangedBy)

	// Reopening clears the completion stamp.
	update, err = tracker.UpdateStatus(taskID, "IN_PROGRESS", nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.ApplyStatusUpdate(ctx, update))

	result, err = store.ExecuteQuery(ctx, `SELECT completed_at FROM close_tasks WHERE id = ?`, taskID)
	require.NoError(t, err)
	assert.Nil(t, result.Rows[0][0])
}

func TestApplyStatusUpdate_UnknownTask(t *testing.T) {
	store := setupTestStore(t)

	err := store.ApplyStatusUpdate(context.Background(), &engine.StatusUpdate{
		TaskID:    "missing",
		NewStatus: engine.TaskStatusCompleted,
		UpdatedAt: fixedNow,
	})
	require.Error(t, err)
	assert.True(t, engine.IsNotFound(err))

	history, err := store.ListStatusHistory(context.Background(), "missing", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestExecuteQuery_Failure(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.ExecuteQuery(context.Background(), "SELECT * FROM no_such_table")
	require.Error(t, err)
	assert.True(t, engine.IsExecution(err))
	assert.Contains(t, err.Error(), "Query: SELECT * FROM no_such_table")
}

func TestExecuteQuery_EmptyResult(t *testing.T) {
	store := setupTestStore(t)

	result, err := store.ExecuteQuery(context.Background(),
		"SELECT id FROM fiscal_periods WHERE period_name = ?", "2030-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, result.Columns)
	assert.NotNil(t, result.Rows)
	assert.Empty(t, result.Rows)
}

func TestFiscalPeriods_ListAndDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	builder := engine.NewBuilder(engine.DefaultCatalog())
	for _, p := range []struct{ period, end string }{
		{"2025-01", "2025-01-31"},
		{"2025-02", "2025-02-28"},
	} {
		instance, err := builder.Initialize(p.period, p.end, 3, nil)
		require.NoError(t, err)
		require.NoError(t, store.RecordCloseInstance(ctx, instance))
	}

	periods, err := store.ListFiscalPeriods(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, "2025-02", periods[0].PeriodName)

	require.NoError(t, store.DeleteFiscalPeriod(ctx, "2025-02"))

	// Tasks go with their period.
	result, err := store.ExecuteQuery(ctx, `
		SELECT COUNT(*) FROM close_tasks ct
		JOIN fiscal_periods fp ON ct.fiscal_period_id = fp.id
		WHERE fp.period_name = ?`, "2025-02")
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Rows[0][0])

	_, err = store.GetFiscalPeriod(ctx, "2025-02")
	assert.True(t, engine.IsNotFound(err))

	err = store.DeleteFiscalPeriod(ctx, "2025-02")
	assert.True(t, engine.IsNotFound(err))
}

func TestTransactions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO fiscal_periods (id, period_name, period_end_date, close_days, created_at)
		VALUES ('p1', '2025-03', '2025-03-31', 5, ?)`, fixedNow.Format(time.RFC3339Nano))
	require.NoError(t, err)
	require.NoError(t, store.RollbackTx(tx))

	_, err = store.GetFiscalPeriod(ctx, "2025-03")
	assert.True(t, engine.IsNotFound(err), "rolled back period must not exist")

	tx, err = store.BeginTx(ctx)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO fiscal_periods (id, period_name, period_end_date, close_days, created_at)
		VALUES ('p1', '2025-03', '2025-03-31', 5, ?)`, fixedNow.Format(time.RFC3339Nano))
	require.NoError(t, err)
	require.NoError(t, store.CommitTx(tx))

	_, err = store.GetFiscalPeriod(ctx, "2025-03")
	assert.NoError(t, err)
}

type recordingObserver struct {
	queries []error
	retries int
}

func (r *recordingObserver) RecordStoreQuery(_ string, _ time.Duration, err error) {
	r.queries = append(r.queries, err)
}

func (r *recordingObserver) RecordStoreRetry(string) { r.retries++ }

func TestExecuteQuery_Observed(t *testing.T) {
	obs := &recordingObserver{}
	store, err := NewSQLiteStore(Config{Path: ":memory:"}, WithObserver(obs))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Init(ctx))
	defer store.Close()

	_, _ = store.ExecuteQuery(ctx, "SELECT 1")
	_, _ = store.ExecuteQuery(ctx, "SELECT * FROM nowhere")

	require.Len(t, obs.queries, 2)
	assert.NoError(t, obs.queries[0])
	assert.Error(t, obs.queries[1])
}

func findTask(t *testing.T, instance *engine.CloseInstance, name string) *engine.TaskInstance {
	t.Helper()
	for _, task := range instance.AllTasks {
		if task.Name == name {
			return task
		}
	}
	t.Fatalf("task %q not found", name)
	return nil
}
