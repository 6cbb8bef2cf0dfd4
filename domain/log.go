package domain

import (
	"time"

	"github.com/google/uuid"
)

// Log is a structured log entry persisted alongside runs. Entries can be
// attributed to a run, to a hook, or to neither (launcher-level messages).
type Log struct {
	ID        uuid.UUID      // Unique identifier for the log entry.
	Timestamp time.Time      // The time at which the log entry was created.
	Level     string         // The severity level of the log.
	Message   string         // The main content of the log message.
	Context   map[string]any // A map of additional key-value data for structured logging.
	RunID     *uuid.UUID     // An optional ID of an associated run.
	HookID    *uuid.UUID     // An optional ID of an associated hook.
}

// LogRepository defines the persistence operations for log entries.
type LogRepository interface {
	// InsertLog saves a new log entry.
	InsertLog(log *Log) error

	// GetLogs retrieves all log entries.
	GetLogs() ([]*Log, error)

	// GetRunLogs retrieves the log entries attributed to a single run.
	GetRunLogs(runID uuid.UUID) ([]*Log, error)
}
