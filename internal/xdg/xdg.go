// Package xdg provides helpers to resolve XDG Base Directory paths for impyla.
// It implements the XDG Base Directory specification for determining where the
// diagnostic log, the last results document and the extracted helper scripts live.
//
// The package handles fallback to traditional locations when XDG environment
// variables are not set and creates the directories with private permissions.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "impyla"

// StateDir returns the XDG state directory for impyla.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.local/state/impyla when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	return resolve("XDG_STATE_HOME", ".local", "state")
}

// DataDir returns the XDG data directory for impyla.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.local/share/impyla when XDG_DATA_HOME is unset.
func DataDir() (string, error) {
	return resolve("XDG_DATA_HOME", ".local", "share")
}

func resolve(env string, fallback ...string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(append([]string{home}, fallback...)...)
	}
	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
