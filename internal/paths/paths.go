// Package paths resolves where desk keeps its configuration and its local
// backend data.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// appDir is the directory name used under the platform config and data
// roots.
const appDir = "marketdesk"

// Project-local directory names. A project directory containing one of them
// takes precedence over the platform defaults.
const (
	LocalConfigDirName = ".marketdesk"
	LocalDataDirName   = ".marketdesk-db"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "MARKETDESK_CONFIG_DIR"
	EnvDataDir   = "MARKETDESK_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/marketdesk (fallback ~/.config/marketdesk)
// macOS:   ~/Library/Application Support/marketdesk
// Windows: %APPDATA%/marketdesk
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir), nil
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/marketdesk (fallback ~/.local/share/marketdesk)
// macOS:   ~/Library/Application Support/marketdesk/data
// Windows: %APPDATA%/marketdesk/data
func DefaultDataDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir, "data"), nil
}

func xdgDir(env, fallback string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, appDir), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, appDir), nil
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > MARKETDESK_CONFIG_DIR env > ./.marketdesk if it
// exists > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	if local, ok := localDir(LocalConfigDirName); ok {
		return local, nil
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > MARKETDESK_DATA_DIR env > configValue > ./.marketdesk-db if it
// exists > DefaultDataDir().
func ResolveDataDir(flag, configValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if local, ok := localDir(LocalDataDirName); ok {
		return local, nil
	}
	return DefaultDataDir()
}

// localDir reports whether name exists as a directory under the working
// directory and returns its absolute path.
func localDir(name string) (string, bool) {
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", false
	}
	dir := filepath.Join(cwd, name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return dir, true
}
