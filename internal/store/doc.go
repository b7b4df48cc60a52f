// Package store provides SQLite-backed snapshot storage for tables.
//
// A saved table is three sets of rows:
//   - tables: name, snapshot version, save sequence
//   - columns: header labels (JSON array), order, prenatal flag
//   - cells: index plus the tagged binary value encoding from internal/value
//
// Saving replaces the whole snapshot of one table inside a transaction.
// Loading rebuilds a table.Snapshot that table.Registry.Restore turns back
// into a live table with the same column orders.
//
// The store is a collaborator at the serialization boundary. Live tables
// never read from it and a save is not tied to any table version.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Columns and cells cascade with their table
package store
