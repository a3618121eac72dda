// Package database manages the SQLite credential store connection.
//
// It wraps database/sql with WAL-mode pragmas tuned for SQLite's
// single-writer model, restrictive file permissions, and an embedded
// migration runner. User accounts are the only data kept here; device
// state lives in the DynamoDB-backed store (internal/device).
package database
