package stores_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ledgerworks/closeflow/pkg/engine"
	"github.com/ledgerworks/closeflow/pkg/stores"
)

// ExampleNewSQLiteStore demonstrates creating and initializing a new SQLite store.
func ExampleNewSQLiteStore() {
	store, err := stores.NewSQLiteStore(stores.Config{
		Path:            ":memory:", // Use in-memory database for example
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}
	if err := store.Migrate(ctx); err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	fmt.Println("Store initialized successfully")
	// Output: Store initialized successfully
}

// ExampleSQLiteStore_RecordCloseInstance demonstrates persisting a close and updating a task.
func ExampleSQLiteStore_RecordCloseInstance() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	instance, err := engine.NewBuilder(engine.DefaultCatalog()).
		Initialize("2025-01", "2025-01-31", 2, nil)
	if err != nil {
		log.Fatal(err)
	}
	if err := store.RecordCloseInstance(ctx, instance); err != nil {
		log.Fatal(err)
	}

	update, _ := engine.NewStatusTracker(nil).
		UpdateStatus(instance.AllTasks[0].ID, "COMPLETED", nil, nil)
	if err := store.ApplyStatusUpdate(ctx, update); err != nil {
		log.Fatal(err)
	}

	result, _ := store.ExecuteQuery(ctx, `
		SELECT ct.status, COUNT(*)
		FROM close_tasks ct
		JOIN fiscal_periods fp ON ct.fiscal_period_id = fp.id
		WHERE fp.period_name = ?
		GROUP BY ct.status
		ORDER BY ct.status`, "2025-01")
	for _, row := range result.Rows {
		fmt.Printf("%s: %d\n", row[0], row[1])
	}

	// Output:
	// COMPLETED: 1
	// NOT_STARTED: 11
}
