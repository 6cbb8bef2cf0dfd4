package showrunner

import (
	"errors"
	"fmt"
	"runtime"
	"slices"

	"github.com/spf13/viper"
)

type FrameworkPathConfig struct {
	OS   string `mapstructure:"os"`   // OS for the given path
	Path string `mapstructure:"path"` // Directory appended to PYTHONPATH
}

type Config struct {
	viper         *viper.Viper
	ConfigDir     string                `mapstructure:"config_dir"`     // Current config dir
	HostOS        string                `mapstructure:"host_os"`        // Operating system identifier
	PythonBin     string                `mapstructure:"python_bin"`     // Python interpreter used to launch the driver
	DriverDir     string                `mapstructure:"driver_dir"`     // Root of the driver checkout (working dir for tools/run_net.py)
	InitMethod    string                `mapstructure:"init_method"`    // Default distributed init method URL
	WorkspaceDir  string                `mapstructure:"workspace_dir"`  // Directory holding the run database and reports
	FrameworkDirs []FrameworkPathConfig `mapstructure:"framework_dirs"` // Per-OS PYTHONPATH extensions
}

func (cfg *Config) AddFrameworkPath(path, os string) error {
	switch os {
	case "darwin", "linux", "windows":
		cfg.FrameworkDirs = append(cfg.FrameworkDirs, FrameworkPathConfig{OS: os, Path: path})
		cfg.viper.Set("framework_dirs", cfg.FrameworkDirs)
		if err := cfg.viper.WriteConfig(); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
		if err := cfg.viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("unmarshalling config to struct : %w", err)
		}
	default:
		return errors.New("invalid os string")
	}
	return nil
}

func (cfg *Config) DeleteFrameworkPath(path, os string) error {
	frameworkPath := FrameworkPathConfig{OS: os, Path: path}
	cfg.FrameworkDirs = slices.DeleteFunc(cfg.FrameworkDirs, func(c FrameworkPathConfig) bool {
		return c.OS == frameworkPath.OS && c.Path == frameworkPath.Path
	})
	cfg.viper.Set("framework_dirs", cfg.FrameworkDirs)
	if err := cfg.viper.WriteConfig(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	if err := cfg.viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshalling config to struct : %w", err)
	}
	return nil
}

// PythonPath returns the PYTHONPATH extensions configured for the current
// operating system, in configuration order.
func (cfg *Config) PythonPath() []string {
	dirs := make([]string, 0, len(cfg.FrameworkDirs))
	for _, frameworkDir := range cfg.FrameworkDirs {
		if frameworkDir.OS == runtime.GOOS {
			dirs = append(dirs, frameworkDir.Path)
		}
	}
	return dirs
}
