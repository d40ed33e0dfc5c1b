package app

import (
	"os"
	"path/filepath"
)

// DefaultConfigPath returns the config file location: SHELFKEEP_CONFIG_PATH
// if set, otherwise ~/.config/shelfkeep.toml.
func DefaultConfigPath() string {
	if p := os.Getenv("SHELFKEEP_CONFIG_PATH"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "shelfkeep.toml"
	}
	return filepath.Join(home, ".config", "shelfkeep.toml")
}

// DefaultBaseDir returns the data directory: SHELFKEEP_HOME if set, otherwise
// ~/.local/share/shelfkeep.
func DefaultBaseDir() string {
	if p := os.Getenv("SHELFKEEP_HOME"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "shelfkeep"
	}
	return filepath.Join(home, ".local", "share", "shelfkeep")
}
