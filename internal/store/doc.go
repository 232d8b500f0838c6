// Package store manages the connection to the target relational database.
//
// A Store pairs a *sql.DB with the dialect statements must be generated
// for. Statement execution goes through the ExecQuerier interface, which
// both *sql.DB and *sql.Tx satisfy, so transaction management stays with
// the caller.
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - MaxOpenConns=1: Single writer
//
// Result rows are returned as []map[string]any keyed by column name, with
// []byte values converted to strings so rows can be rendered and written
// back without driver-specific handling.
package store
