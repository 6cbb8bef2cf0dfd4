// Package core provides fundamental utilities shared across showrunner.
// This file contains option functions for customizing log entries.
package core

import (
	"github.com/google/uuid"

	"showrunner/domain"
)

// LogWithContext is an option to add a context map to a log entry.
func LogWithContext(context map[string]any) func(log *domain.Log) error {
	return func(log *domain.Log) error {
		log.Context = context
		return nil
	}
}

// LogWithRunID is an option to associate a log entry with a run ID.
func LogWithRunID(id uuid.UUID) func(log *domain.Log) error {
	return func(log *domain.Log) error {
		log.RunID = &id
		return nil
	}
}

// LogWithHookID is an option to associate a log entry with a hook ID.
func LogWithHookID(id uuid.UUID) func(log *domain.Log) error {
	return func(log *domain.Log) error {
		log.HookID = &id
		return nil
	}
}
