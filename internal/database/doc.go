// Package database provides SQLite-based storage for walk history.
//
// This package implements the HistoryDB, which stores:
//   - Batch runs with their summary counts
//   - One row per walk with its path and stop reason
//   - The full batch report as JSON for later rendering
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. JSON functions let us query paths without a page table
// 4. WAL mode provides good concurrent read performance
package database
