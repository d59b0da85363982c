package config

import (
	"testing"
	"time"
)

func TestLoadSettingsDefaults(t *testing.T) {
	s := LoadSettings()
	want := DefaultSettings()
	if s != want {
		t.Fatalf("LoadSettings() = %+v, want defaults %+v", s, want)
	}
}

func TestLoadSettingsHonorsEnvOverrides(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("CACHE_TTL_SECONDS", "60")
	t.Setenv("CACHE_MAX_SIZE", "50")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("RETRY_INITIAL_DELAY_MS", "200")
	t.Setenv("RETRY_MAX_DELAY_MS", "2000")
	t.Setenv("MAX_CONCURRENT_OPERATIONS", "4")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "DEBUG")

	s := LoadSettings()
	if s.CacheEnabled {
		t.Fatal("CacheEnabled = true, want false")
	}
	if s.CacheTTL != 60*time.Second {
		t.Fatalf("CacheTTL = %v, want 60s", s.CacheTTL)
	}
	if s.CacheMaxSize != 50 {
		t.Fatalf("CacheMaxSize = %d, want 50", s.CacheMaxSize)
	}
	if s.RetryMaxAttempts != 5 {
		t.Fatalf("RetryMaxAttempts = %d, want 5", s.RetryMaxAttempts)
	}
	if s.RetryInitialDelay != 200*time.Millisecond {
		t.Fatalf("RetryInitialDelay = %v, want 200ms", s.RetryInitialDelay)
	}
	if s.RetryMaxDelay != 2000*time.Millisecond {
		t.Fatalf("RetryMaxDelay = %v, want 2000ms", s.RetryMaxDelay)
	}
	if s.MaxConcurrentOperations != 4 {
		t.Fatalf("MaxConcurrentOperations = %d, want 4", s.MaxConcurrentOperations)
	}
	if s.MetricsEnabled {
		t.Fatal("MetricsEnabled = true, want false")
	}
	if s.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want %q", s.LogLevel, "debug")
	}
}

func TestUpstreamEnabledDefaultsTrue(t *testing.T) {
	if !UpstreamEnabled("serena") {
		t.Fatal("UpstreamEnabled(serena) = false, want true")
	}
}

func TestUpstreamEnabledHonorsExplicitDisable(t *testing.T) {
	t.Setenv("SERENA_ENABLED", "false")
	if UpstreamEnabled("serena") {
		t.Fatal("UpstreamEnabled(serena) = true, want false")
	}
}

func TestUpstreamEnabledRequiresTavilyAPIKey(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")
	if UpstreamEnabled("tavily") {
		t.Fatal("UpstreamEnabled(tavily) = true, want false without TAVILY_API_KEY")
	}

	t.Setenv("TAVILY_API_KEY", "secret")
	if !UpstreamEnabled("tavily") {
		t.Fatal("UpstreamEnabled(tavily) = false, want true with TAVILY_API_KEY set")
	}
}

func TestUpstreamCommandOverride(t *testing.T) {
	if _, ok := UpstreamCommandOverride("serena"); ok {
		t.Fatal("UpstreamCommandOverride(serena) ok = true, want false")
	}

	t.Setenv("SERENA_COMMAND", "custom-serena-launcher")
	got, ok := UpstreamCommandOverride("serena")
	if !ok || got != "custom-serena-launcher" {
		t.Fatalf("UpstreamCommandOverride(serena) = (%q, %v), want (%q, true)", got, ok, "custom-serena-launcher")
	}
}
