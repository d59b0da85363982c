package config

// UpstreamDescriptor describes how to launch and reach one upstream MCP
// server. Immutable after construction.
type UpstreamDescriptor struct {
	Name        string            `toml:"-"`
	Command     string            `toml:"command"`
	Args        []string          `toml:"args"`
	Env         map[string]string `toml:"env"`
	WarmupDelay string            `toml:"warmup_delay"`
}

// Config is the top-level gateway configuration loaded from the upstream
// descriptor file.
type Config struct {
	Upstreams map[string]UpstreamDescriptor `toml:"servers"`
}
