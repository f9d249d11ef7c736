// Package stores provides the persistence layer for closeflow.
//
// Two stores satisfy engine.QueryExecutor:
//
//   - SQLiteStore keeps fiscal periods, close tasks and task status history in a
//     local SQLite database (WAL mode, embedded migrations). It also records
//     freshly initialized close instances and status updates.
//   - HTTPClient posts parameterized statements to a workspace SQL API with a
//     per-request timeout and bounded exponential-backoff retry on 5xx and
//     transport failures.
//
// Both report query timing through an Observer and trace each query as a
// store.query span.
package stores
