package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings holds the tunables recognized from the environment per the
// gateway's external interface (cache, retry, batch concurrency, metrics,
// log level). Every field has a documented default.
type Settings struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	CacheMaxSize int

	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration

	MaxConcurrentOperations int

	MetricsEnabled bool

	LogLevel string
}

// DefaultSettings returns the documented defaults, used when no environment
// override is present.
func DefaultSettings() Settings {
	return Settings{
		CacheEnabled:            true,
		CacheTTL:                300 * time.Second,
		CacheMaxSize:            1000,
		RetryMaxAttempts:        3,
		RetryInitialDelay:       1000 * time.Millisecond,
		RetryMaxDelay:           10000 * time.Millisecond,
		MaxConcurrentOperations: 10,
		MetricsEnabled:          true,
		LogLevel:                "info",
	}
}

// LoadSettings reads Settings from the process environment, falling back to
// DefaultSettings for anything unset or unparsable.
func LoadSettings() Settings {
	s := DefaultSettings()

	s.CacheEnabled = envBool("CACHE_ENABLED", s.CacheEnabled)
	s.CacheTTL = envSeconds("CACHE_TTL_SECONDS", s.CacheTTL)
	s.CacheMaxSize = envInt("CACHE_MAX_SIZE", s.CacheMaxSize)

	s.RetryMaxAttempts = envInt("RETRY_MAX_ATTEMPTS", s.RetryMaxAttempts)
	s.RetryInitialDelay = envMillis("RETRY_INITIAL_DELAY_MS", s.RetryInitialDelay)
	s.RetryMaxDelay = envMillis("RETRY_MAX_DELAY_MS", s.RetryMaxDelay)

	s.MaxConcurrentOperations = envInt("MAX_CONCURRENT_OPERATIONS", s.MaxConcurrentOperations)

	s.MetricsEnabled = envBool("METRICS_ENABLED", s.MetricsEnabled)

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))); v != "" {
		s.LogLevel = v
	}

	return s
}

// UpstreamEnabled reports whether the named upstream is enabled, honoring
// "<UPSTREAM>_ENABLED" (default true) and the tavily-specific requirement
// that TAVILY_API_KEY be set.
func UpstreamEnabled(name string) bool {
	key := strings.ToUpper(name) + "_ENABLED"
	if !envBool(key, true) {
		return false
	}
	if strings.EqualFold(name, "tavily") && strings.TrimSpace(os.Getenv("TAVILY_API_KEY")) == "" {
		return false
	}
	return true
}

// UpstreamCommandOverride returns "<UPSTREAM>_COMMAND" if set.
func UpstreamCommandOverride(name string) (string, bool) {
	v := os.Getenv(strings.ToUpper(name) + "_COMMAND")
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envSeconds(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(n) * time.Second
}

func envMillis(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(n) * time.Millisecond
}
