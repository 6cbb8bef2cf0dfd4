// Package showrunner provides a launch orchestrator for an external
// training/eval driver, with Lua hook support, override gating, and SQLite
// database storage. It is designed to be decoupled from CLI or GUI
// implementations and provides methods to load handlers for building
// experiment-management tools on top of the driver.
//
// The core functionality includes:
//   - Driver invocation with config-override assembly and environment construction
//   - Lua-based hook system for pre/post-launch processing
//   - Guard-based filtering of config overrides
//   - SQLite database storage for runs, captured output, and logs
//   - Recipe files replacing hand-written launch scripts
//   - HTML run reports
package showrunner

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"showrunner/domain"
	"showrunner/hooks"
)

const recipeSuffix = ".yaml" // Recipe file extension

// Repository defines the methods consumed by the launcher to interact with the
// SQLite backend. It provides an abstraction layer for all database operations
// including run storage, output capture, hook management, logging, and
// workspace settings.
type Repository interface {
	domain.RunRepository
	domain.LogRepository
	domain.HookRepository
	domain.SettingsRepository
	Close() error
}

// Launcher is the main struct that orchestrates all launch functionality
// including override assembly, hook execution, driver invocation, and database
// operations. It serves as the central coordinator for showrunner.
type Launcher struct {
	ConfigDir      string                            // The configuration directory (defaults to the showrunner folder under the user configuration directory)
	Config         *Config                           // The showrunner configuration (separate from any frontend config)
	Repo           Repository                        // DB Repository Interface
	DBWriteChannel chan domain.StoreItem             // DB Write Channel
	Guard          *Guard                            // Override gate configuration
	Hooks          []*hooks.Runtime                  // Slice of loaded hooks
	Defaults       map[string]string                 // Workspace default overrides, applied before recipe and CLI overrides
	OnRun          func(run *domain.Run) error       // Function to be ran on each run state change - used by frontends to track launches
	OnOutput       func(line *domain.OutputLine) error // Function to be ran on each captured driver output line
	OnLog          func(log *domain.Log) error       // Function to be ran on each log entry
	Logger         *slog.Logger                      // Process-local structured logger
}

// New creates a new Launcher instance with default configuration and applies
// any provided options. It initializes the database write channel, the hook
// slice, the default-allow guard, and the logger.
//
// Parameters:
//   - options: Variadic list of option functions to configure the launcher
//
// Returns:
//   - *Launcher: Configured launcher instance
//   - error: Configuration error if any option fails
func New(options ...func(*Launcher) error) (*Launcher, error) {
	launcher := &Launcher{
		DBWriteChannel: make(chan domain.StoreItem, 10),
		Guard:          NewGuard(true),
		Hooks:          make([]*hooks.Runtime, 0),
		Defaults:       make(map[string]string),
		Logger:         slog.Default(),
	}
	err := launcher.WithOptions(options...)
	if err != nil {
		return nil, err
	}
	return launcher, nil
}

// GetHook returns the loaded hook runtime with the given name.
func (launcher *Launcher) GetHook(name string) (*hooks.Runtime, bool) {
	for _, hook := range launcher.Hooks {
		if hook.Data.Name == name {
			return hook, true
		}
	}
	return nil, false
}

// SyncDefaults reloads the workspace default overrides from the repository.
func (launcher *Launcher) SyncDefaults() error {
	defaults, err := launcher.Repo.GetDefaultOverrides()
	if err != nil {
		return fmt.Errorf("getting default overrides : %w", err)
	}
	launcher.Defaults = defaults
	return nil
}

// GetWorkspaceDir returns the directory holding the run database and reports.
// It falls back to the config dir when no workspace dir is configured.
func (launcher *Launcher) GetWorkspaceDir() (string, error) {
	if launcher.Config != nil && launcher.Config.WorkspaceDir != "" {
		return launcher.Config.WorkspaceDir, nil
	}
	if launcher.ConfigDir != "" {
		return launcher.ConfigDir, nil
	}
	return "", fmt.Errorf("launcher has no configured workspace")
}

// GetHookRepo exposes the hook repository to the Lua runtime.
func (launcher *Launcher) GetHookRepo() (domain.HookRepository, error) {
	if launcher.Repo == nil {
		return nil, fmt.Errorf("launcher has no repository")
	}
	return launcher.Repo, nil
}

// flushMarker is an internal channel item used to wait until every item sent
// before it has been written to the database.
type flushMarker struct {
	done chan struct{}
}

func (marker flushMarker) GetType() string {
	return "flush"
}

// WriteToDB consumes the write channel and persists each item. It is meant to
// run as a goroutine for the lifetime of the launcher.
func (launcher *Launcher) WriteToDB() {
	for storeItem := range launcher.DBWriteChannel {
		switch castItem := storeItem.(type) {
		case *domain.OutputLine:
			err := launcher.Repo.AppendOutput(castItem)
			if err != nil {
				launcher.Logger.Error("appending output line", "run", castItem.RunID, "error", err)
			}
			if launcher.OnOutput != nil {
				if err := launcher.OnOutput(castItem); err != nil {
					launcher.Logger.Error("running output handler", "error", err)
				}
			}
		case *domain.Log:
			err := launcher.Repo.InsertLog(castItem)
			if err != nil {
				launcher.Logger.Error("inserting log", "error", err)
			}
			if launcher.OnLog != nil {
				if err := launcher.OnLog(castItem); err != nil {
					launcher.Logger.Error("running log handler", "error", err)
				}
			}
		case flushMarker:
			close(castItem.done)
		default:
			launcher.Logger.Error("unknown store item", "type", storeItem.GetType())
		}
	}
}

// Flush blocks until every item queued on the write channel before the call
// has been persisted.
func (launcher *Launcher) Flush() {
	marker := flushMarker{done: make(chan struct{})}
	launcher.DBWriteChannel <- marker
	<-marker.done
}

// WriteLog queues a structured log entry on the write channel. The level must
// be one of DEBUG, INFO, WARN, ERROR, FATAL.
func (launcher *Launcher) WriteLog(level string, message string, options ...func(log *domain.Log) error) error {
	switch level {
	case "DEBUG":
	case "INFO":
	case "WARN":
	case "ERROR":
	case "FATAL":
	default:
		return fmt.Errorf("level should be either: debug, info, warn, error, fatal")
	}
	uuid, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating new uuid : %w", err)
	}
	log := &domain.Log{
		ID:        uuid,
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	}
	for _, option := range options {
		err := option(log)
		if err != nil {
			return fmt.Errorf("applying log option : %w", err)
		}
	}
	launcher.DBWriteChannel <- log
	return nil
}

// Close shuts the write channel down and closes the repository.
func (launcher *Launcher) Close() error {
	close(launcher.DBWriteChannel)
	if launcher.Repo != nil {
		if err := launcher.Repo.Close(); err != nil {
			return fmt.Errorf("closing repository : %w", err)
		}
	}
	return nil
}
