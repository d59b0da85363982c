package paths

import (
	"path/filepath"
	"testing"
)

func TestConfigDirPrefersXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/config-home")

	got := ConfigDir()
	want := filepath.Join("/tmp/config-home", "mcpgateway")
	if got != want {
		t.Fatalf("ConfigDir() = %q, want %q", got, want)
	}
}

func TestConfigDirFallsBackToHomeDotConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/tmp/home")

	got := ConfigDir()
	want := filepath.Join("/tmp/home", ".config", "mcpgateway")
	if got != want {
		t.Fatalf("ConfigDir() = %q, want %q", got, want)
	}
}

func TestConfigFileJoinsServersToml(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/config-home")

	got := ConfigFile()
	want := filepath.Join("/tmp/config-home", "mcpgateway", "servers.toml")
	if got != want {
		t.Fatalf("ConfigFile() = %q, want %q", got, want)
	}
}
