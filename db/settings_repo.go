package db

import (
	"encoding/json"
	"fmt"

	"showrunner/domain"
)

var _ domain.SettingsRepository = (*Repository)(nil)

// GetDefaultOverrides implements the domain.SettingsRepository interface.
// It retrieves the workspace default overrides from the 'app' table,
// which are stored as a JSON string, and unmarshals them into a map.
func (repo *Repository) GetDefaultOverrides() (map[string]string, error) {
	var overridesString string
	query := `SELECT default_overrides FROM app LIMIT 1`
	err := repo.dbConn.Get(&overridesString, query)

	if err != nil {
		return nil, fmt.Errorf("getting default overrides: %w", err)
	}

	var overrides map[string]string
	err = json.Unmarshal([]byte(overridesString), &overrides)

	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal default overrides JSON: %w", err)
	}

	return overrides, nil
}

// SetDefaultOverrides implements the domain.SettingsRepository interface.
// It marshals the provided override map into a JSON string and updates the
// 'default_overrides' column in the 'app' table.
func (repo *Repository) SetDefaultOverrides(overrides map[string]string) error {
	marshalledOverrides, err := json.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("failed to marshal default overrides: %w", err)
	}

	query := `UPDATE app SET default_overrides = ?`
	_, err = repo.dbConn.Exec(query, marshalledOverrides)

	if err != nil {
		return fmt.Errorf("failed to update default overrides: %w", err)
	}

	return nil
}

// UpdateWorkspaceID implements the domain.SettingsRepository interface.
// It updates the workspace identifier in the 'app' table of the database.
func (repo *Repository) UpdateWorkspaceID(id string) error {
	query := `UPDATE app SET workspace_id = ?`
	_, err := repo.dbConn.Exec(query, id)

	if err != nil {
		return fmt.Errorf("updating workspace id %s: %w", id, err)
	}

	return nil
}
