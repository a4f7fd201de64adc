// Package store provides SQLite access for nlsql: a resolution history log
// and execution of emitted SQL against a user database.
//
// The history log is append-only. Listing orders by created_at then id with
// COLLATE BINARY, so output is stable across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
