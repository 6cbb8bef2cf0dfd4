// Package db implements the domain repository interfaces on top of a SQLite
// database accessed through sqlx. Schema management is handled by goose with
// migrations embedded in the binary.
//
// The package keeps its own row types (dbRun, dbLog, ...) and converts to and
// from the domain types at the repository boundary.
package db
