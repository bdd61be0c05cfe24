// Package database provides the SQLite-backed crawl state store.
//
// StateDB keeps the frontier snapshot as three tables (visited, pending,
// failed) next to a meta table carrying the schema version, and records a
// row per crawl run. A snapshot is always rewritten wholesale inside one
// transaction, so a crash mid-save leaves the previous snapshot intact.
//
// The driver is modernc.org/sqlite (no cgo); statements are built with
// squirrel.
package database
