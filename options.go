package showrunner

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/viper"

	"showrunner/domain"
	"showrunner/hooks"
)

// WithOptions applies a series of configuration functions to the launcher instance.
// Each option function can modify the launcher configuration and return an error if it fails.
//
// Parameters:
//   - options: Variadic list of configuration functions
//
// Returns:
//   - error: First error encountered from any option function
func (launcher *Launcher) WithOptions(options ...func(*Launcher) error) error {
	for _, option := range options {
		err := option(launcher)
		if err != nil {
			return fmt.Errorf("applying option on showrunner : %w", err)
		}
	}
	return nil
}

// WithConfigDir configures the launcher to use the specified configuration directory.
// It creates the directory if it doesn't exist and initializes the configuration file using Viper.
//
// Parameters:
//   - appConfigDir: Path to the configuration directory
//
// Returns:
//   - func(*Launcher) error: Configuration function that sets up the config directory
func WithConfigDir(appConfigDir string) func(*Launcher) error {
	return func(launcher *Launcher) error {
		_, err := os.ReadDir(appConfigDir)
		if err != nil {
			if os.IsNotExist(err) {
				launcher.Logger.Info("creating config dir", "dir", appConfigDir)
				err := os.MkdirAll(appConfigDir, 0700)
				if err != nil {
					return fmt.Errorf("creating config dir %s: %w", appConfigDir, err)
				}
			} else {
				return fmt.Errorf("checking if directory exists %s: %w", appConfigDir, err)
			}
		}
		// At this point, the directory exists or was created successfully
		launcher.ConfigDir = appConfigDir

		// VIPER
		v := viper.New()
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(appConfigDir)
		v.SetDefault("first_run", true)
		v.SetDefault("config_dir", appConfigDir)
		v.SetDefault("workspace_dir", appConfigDir)
		v.SetDefault("python_bin", "python")
		v.SetDefault("init_method", "tcp://localhost:9999")
		err = v.ReadInConfig()
		if err != nil {
			// need to check if the error is config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				// Config file is not found
				err = v.SafeWriteConfig()
				if err != nil {
					return fmt.Errorf("writing config file : %w", err)
				}
			} else {
				return fmt.Errorf("reading config file : %w", err)
			}
		}
		if err := v.Unmarshal(&launcher.Config); err != nil {
			return fmt.Errorf("unmarshalling config to struct : %w", err)
		}

		launcher.Config.viper = v
		launcher.Config.HostOS = runtime.GOOS
		// Rewrite entire file from struct
		err = v.WriteConfig()
		if err != nil {
			return fmt.Errorf("writing config after unmarshalling : %w", err)
		}
		return nil
	}
}

// WithHook loads a single stored hook into the launcher, preparing its Lua
// state against the launcher's services.
func WithHook(hook *domain.Hook, options ...func(*hooks.Runtime) error) func(*Launcher) error {
	return func(launcher *Launcher) error {
		if _, ok := launcher.GetHook(hook.Name); !ok {
			runtime := &hooks.Runtime{Data: hook}
			err := runtime.PrepareState(launcher, options)
			if err != nil {
				return fmt.Errorf("preparing hook %s : %w", hook.Name, err)
			}
			launcher.Hooks = append(launcher.Hooks, runtime)
		}
		return nil
	}
}

// WithHooks loads every enabled hook from the given slice. Disabled hooks are
// skipped but kept in the database.
func WithHooks(hookData []*domain.Hook, options ...func(*hooks.Runtime) error) func(*Launcher) error {
	return func(launcher *Launcher) error {
		launcher.Hooks = make([]*hooks.Runtime, 0, len(hookData))
		for _, hook := range hookData {
			if !hook.Enabled {
				continue
			}
			if err := WithHook(hook, options...)(launcher); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithGuard sets the override gate used on every launch.
func WithGuard(guard *Guard) func(*Launcher) error {
	return func(launcher *Launcher) error {
		if guard == nil {
			return errors.New("guard cannot be nil")
		}
		launcher.Guard = guard
		return nil
	}
}

// WithLogger sets the structured logger used for process-local diagnostics.
func WithLogger(logger *slog.Logger) func(*Launcher) error {
	return func(launcher *Launcher) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		launcher.Logger = logger
		return nil
	}
}

// WithRunHandler takes a handler function that will be executed on each run state change
func WithRunHandler(handler func(run *domain.Run) error) func(*Launcher) error {
	return func(launcher *Launcher) error {
		if launcher.OnRun != nil {
			return errors.New("launcher already has a run handler defined")
		}
		launcher.OnRun = handler
		return nil
	}
}

// WithOutputHandler takes a handler function that will be executed on each captured output line
func WithOutputHandler(handler func(line *domain.OutputLine) error) func(*Launcher) error {
	return func(launcher *Launcher) error {
		if launcher.OnOutput != nil {
			return errors.New("launcher already has an output handler defined")
		}
		launcher.OnOutput = handler
		return nil
	}
}

// WithLogHandler takes a handler function that will be executed on each Log
func WithLogHandler(handler func(log *domain.Log) error) func(*Launcher) error {
	return func(launcher *Launcher) error {
		if launcher.OnLog != nil {
			return errors.New("launcher already has a log handler defined")
		}
		launcher.OnLog = handler
		return nil
	}
}

// WithRepo will take the Repository interface, replacing and closing any previous one,
// and sync the workspace default overrides
func WithRepo(repo Repository) func(*Launcher) error {
	return func(launcher *Launcher) error {
		// First we need to check if there is a repo
		if launcher.Repo != nil {
			if err := launcher.Repo.Close(); err != nil {
				return err
			}
			launcher.Repo = nil
		}
		launcher.Repo = repo
		err := launcher.SyncDefaults()
		if err != nil {
			launcher.Logger.Warn("syncing default overrides", "error", err)
		}
		return nil
	}
}
