// Package config loads the tool settings of vagrant-ninja: where target
// directories go, which provisioning tool binary to run and how to log.
//
// Settings come from, in increasing precedence: built-in defaults, the
// settings file, VAGRANT_NINJA_* environment variables and command-line
// flags.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// AppName names the config directory.
const AppName = "vagrant-ninja"

// SettingsFileName is the settings file looked up in ConfigDir.
const SettingsFileName = "settings.yaml"

// ConfigDir returns $XDG_CONFIG_HOME/vagrant-ninja, falling back to
// ~/.config/vagrant-ninja.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName), nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
