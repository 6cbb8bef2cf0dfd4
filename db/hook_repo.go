package db

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"showrunner/domain"
)

var _ domain.HookRepository = (*Repository)(nil)

// dbHook represents a launch hook as stored in the database.
type dbHook struct {
	ID          uuid.UUID `db:"id"`          // Unique identifier for the hook.
	Name        string    `db:"name"`        // Unique hook name.
	Description string    `db:"description"` // What the hook does.
	Author      string    `db:"author"`      // Hook author.
	Source      string    `db:"source"`      // Lua source code.
	Enabled     bool      `db:"enabled"`     // Whether the hook runs on launches.
	Settings    Metadata  `db:"settings"`    // Per-hook settings as JSON.
	AddedAt     time.Time `db:"added_at"`    // When the hook was registered.
}

// toDomainHook converts a dbHook to a domain.Hook.
func toDomainHook(dbHook *dbHook) *domain.Hook {
	return &domain.Hook{
		ID:          dbHook.ID,
		Name:        dbHook.Name,
		Description: dbHook.Description,
		Author:      dbHook.Author,
		Source:      dbHook.Source,
		Enabled:     dbHook.Enabled,
		AddedAt:     dbHook.AddedAt,
	}
}

// CreateHook registers a new hook in the database.
func (repo *Repository) CreateHook(name, description, author, source string) (uuid.UUID, error) {
	hookUUID, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generating uuid: %w", err)
	}

	query := `INSERT INTO hook (id, name, description, author, source, enabled, added_at) VALUES (?,?,?,?,?,?,?)`

	_, err = repo.dbConn.Exec(query, hookUUID, name, description, author, source, false, time.Now().UTC())
	if err != nil {
		return uuid.Nil, fmt.Errorf("creating new hook %s: %w", name, err)
	}

	return hookUUID, nil
}

// GetHooks retrieves all hooks from the database.
func (repo *Repository) GetHooks() ([]*domain.Hook, error) {
	var dbHooks []*dbHook
	query := `SELECT id, name, description, author, source, enabled, settings, added_at FROM hook`

	err := repo.dbConn.Select(&dbHooks, query)
	if err != nil {
		return nil, fmt.Errorf("getting hooks: %w", err)
	}

	domainHooks := make([]*domain.Hook, len(dbHooks))
	for i, dbHook := range dbHooks {
		domainHooks[i] = toDomainHook(dbHook)
	}
	return domainHooks, nil
}

// GetHook retrieves a hook by name.
func (repo *Repository) GetHook(name string) (*domain.Hook, error) {
	var dbHook dbHook
	query := `SELECT id, name, description, author, source, enabled, settings, added_at FROM hook WHERE name = ?`

	err := repo.dbConn.Get(&dbHook, query, name)
	if err != nil {
		return nil, fmt.Errorf("getting hook %s: %w", name, err)
	}

	return toDomainHook(&dbHook), nil
}

// UpdateHookSource replaces the Lua source of an existing hook.
func (repo *Repository) UpdateHookSource(name, source string) error {
	query := `UPDATE hook SET source = ? WHERE name = ?`

	result, err := repo.dbConn.Exec(query, source, name)
	if err != nil {
		return fmt.Errorf("updating hook source: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("fetching rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("no hook found with name %s", name)
	}

	return nil
}

// SetHookEnabled toggles a hook without removing it.
func (repo *Repository) SetHookEnabled(name string, enabled bool) error {
	query := `UPDATE hook SET enabled = ? WHERE name = ?`

	result, err := repo.dbConn.Exec(query, enabled, name)
	if err != nil {
		return fmt.Errorf("toggling hook %s: %w", name, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("fetching rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("no hook found with name %s", name)
	}

	return nil
}

// RemoveHook deletes a hook by name.
func (repo *Repository) RemoveHook(name string) error {
	query := `DELETE FROM hook WHERE name = ?`

	result, err := repo.dbConn.Exec(query, name)
	if err != nil {
		return fmt.Errorf("deleting hook %s: %w", name, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("fetching rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("no hook with name %s", name)
	}

	return nil
}

// GetHookSettings retrieves the settings map of a hook.
func (repo *Repository) GetHookSettings(id uuid.UUID) (map[string]any, error) {
	var settings Metadata
	query := `SELECT settings FROM hook WHERE id = ?`

	err := repo.dbConn.Get(&settings, query, id)
	if err != nil {
		return nil, fmt.Errorf("getting settings for hook %s: %w", id, err)
	}

	return map[string]any(settings), nil
}

// SetHookSettings replaces the settings map of a hook.
func (repo *Repository) SetHookSettings(id uuid.UUID, settings map[string]any) error {
	query := `UPDATE hook SET settings = ? WHERE id = ?`

	result, err := repo.dbConn.Exec(query, Metadata(settings), id)
	if err != nil {
		return fmt.Errorf("setting settings for hook %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("fetching rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("no hook found with ID %s", id)
	}

	return nil
}
