// Package paths locates the gateway's on-disk configuration file using the
// XDG base directory conventions.
package paths

import (
	"os"
	"path/filepath"
)

func homeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	h, _ := os.UserHomeDir()
	return h
}

func xdgDir(envVar, fallbackSuffix string) string {
	if v := os.Getenv(envVar); v != "" {
		return filepath.Join(v, "mcpgateway")
	}
	return filepath.Join(homeDir(), fallbackSuffix, "mcpgateway")
}

// ConfigDir returns the gateway config directory ($XDG_CONFIG_HOME/mcpgateway).
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// ConfigFile returns the path to the upstream descriptor file, servers.toml.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "servers.toml")
}

// EnsureDir creates a directory and its parents if needed.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0700)
}
