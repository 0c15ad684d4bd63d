// Package paths resolves where mealbook keeps its configuration, its meal
// store and its exported workbooks.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// Names used for defaults. The data and export directories are relative to
// the working directory.
const (
	AppName              = "mealbook"
	DefaultDataDirName   = ".mealbook-db"
	DefaultExportDirName = "trackers"
)

// Environment variable overrides.
const (
	EnvConfigDir = "MEALBOOK_CONFIG_DIR"
	EnvDataDir   = "MEALBOOK_DATA_DIR"
	EnvExportDir = "MEALBOOK_EXPORT_DIR"
)

// platformDir can be swapped in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// DefaultConfigDir returns the per-user configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/mealbook (fallback ~/.config/mealbook)
// Others:  os.UserConfigDir()/mealbook
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName), nil
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// ResolveConfigDir applies flag > MEALBOOK_CONFIG_DIR > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir applies flag > config value > MEALBOOK_DATA_DIR >
// ./.mealbook-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	return resolveCWD(flag, configValue, EnvDataDir, DefaultDataDirName)
}

// ResolveExportDir applies flag > config value > MEALBOOK_EXPORT_DIR >
// ./trackers.
func ResolveExportDir(flag, configValue string) (string, error) {
	return resolveCWD(flag, configValue, EnvExportDir, DefaultExportDirName)
}

func resolveCWD(flag, configValue, env, name string) (string, error) {
	for _, v := range []string{flag, configValue, os.Getenv(env)} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, name), nil
}
