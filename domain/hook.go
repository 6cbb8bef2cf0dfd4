package domain

import (
	"time"

	"github.com/google/uuid"
)

// Hook is a stored Lua launch hook. The source is executed around each launch:
// on_launch before the driver starts, on_finish after it exits.
type Hook struct {
	ID          uuid.UUID // Unique identifier for the hook.
	Name        string    // Unique hook name.
	Description string    // What the hook does.
	Author      string    // Hook author.
	Source      string    // Lua source code.
	Enabled     bool      // Disabled hooks are kept but never executed.
	AddedAt     time.Time // When the hook was registered.
}

// HookRepository defines the persistence operations for launch hooks and
// their per-hook settings.
type HookRepository interface {
	// CreateHook registers a new hook. Names are unique.
	CreateHook(name, description, author, source string) (uuid.UUID, error)

	// GetHooks retrieves all registered hooks.
	GetHooks() ([]*Hook, error)

	// GetHook retrieves a hook by name.
	GetHook(name string) (*Hook, error)

	// UpdateHookSource replaces the Lua source of an existing hook.
	UpdateHookSource(name, source string) error

	// SetHookEnabled toggles a hook without removing it.
	SetHookEnabled(name string, enabled bool) error

	// RemoveHook deletes a hook by name.
	RemoveHook(name string) error

	// GetHookSettings retrieves the settings map of a hook.
	GetHookSettings(id uuid.UUID) (map[string]any, error)

	// SetHookSettings replaces the settings map of a hook.
	SetHookSettings(id uuid.UUID, settings map[string]any) error
}
