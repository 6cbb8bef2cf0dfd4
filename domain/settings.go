package domain

// SettingsRepository defines the interface for workspace-level settings that
// outlive a single launcher process.
type SettingsRepository interface {
	// GetDefaultOverrides retrieves the dotted-key overrides applied to every
	// launch before recipe and command-line overrides.
	GetDefaultOverrides() (map[string]string, error)

	// SetDefaultOverrides replaces the workspace default overrides.
	SetDefaultOverrides(overrides map[string]string) error

	// UpdateWorkspaceID saves the workspace identifier so run databases can be
	// matched back to the workspace that produced them.
	UpdateWorkspaceID(id string) error
}
