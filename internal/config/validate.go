package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Validate checks the descriptor file's invariants and returns actionable,
// joined errors.
func Validate(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	names := make([]string, 0, len(cfg.Upstreams))
	for name := range cfg.Upstreams {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		errs = append(errs, validateUpstream(name, cfg.Upstreams[name])...)
	}
	return errors.Join(errs...)
}

func validateUpstream(name string, desc UpstreamDescriptor) []error {
	var errs []error

	if strings.TrimSpace(desc.Command) == "" {
		errs = append(errs, fmt.Errorf("servers.%s: missing command", name))
	}

	if desc.WarmupDelay != "" {
		if _, err := time.ParseDuration(desc.WarmupDelay); err != nil {
			errs = append(errs, fmt.Errorf("servers.%s.warmup_delay: invalid duration %q: %w", name, desc.WarmupDelay, err))
		}
	}

	return errs
}
