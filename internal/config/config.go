package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
	"github.com/lydakis/mcp-aggregating-gateway/internal/paths"
)

var envVarRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads the upstream descriptor file and returns the parsed Config.
// If the file does not exist, it returns an empty Config (no error): a
// gateway with zero upstreams declared by file is still valid, and then
// spawns no upstreams. Environment variables only disable file-declared
// upstreams or override their command; they do not add new ones.
func Load() (*Config, error) {
	return LoadFrom(paths.ConfigFile())
}

// LoadFrom reads and parses a descriptor file at the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Upstreams: make(map[string]UpstreamDescriptor)}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Upstreams == nil {
		cfg.Upstreams = make(map[string]UpstreamDescriptor)
	}
	for name, desc := range cfg.Upstreams {
		desc.Name = name
		desc = expandDescriptorEnvVars(desc)
		cfg.Upstreams[name] = desc
	}
	return &cfg, nil
}

// ExampleConfigPath returns the default descriptor file path (for help text).
func ExampleConfigPath() string {
	return paths.ConfigFile()
}

func expandDescriptorEnvVars(desc UpstreamDescriptor) UpstreamDescriptor {
	desc.Command = expandEnvVars(desc.Command)
	if desc.Args != nil {
		args := make([]string, len(desc.Args))
		for i, a := range desc.Args {
			args[i] = expandEnvVars(a)
		}
		desc.Args = args
	}
	if desc.Env != nil {
		env := make(map[string]string, len(desc.Env))
		for k, v := range desc.Env {
			env[k] = expandEnvVars(v)
		}
		desc.Env = env
	}
	return desc
}

func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarRe.FindStringSubmatch(match)[1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}
