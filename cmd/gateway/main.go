package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lydakis/mcp-aggregating-gateway/internal/cache"
	"github.com/lydakis/mcp-aggregating-gateway/internal/config"
	"github.com/lydakis/mcp-aggregating-gateway/internal/dispatch"
	"github.com/lydakis/mcp-aggregating-gateway/internal/gateway"
	"github.com/lydakis/mcp-aggregating-gateway/internal/metrics"
	"github.com/lydakis/mcp-aggregating-gateway/internal/registry"
	"github.com/lydakis/mcp-aggregating-gateway/internal/retry"
	"github.com/lydakis/mcp-aggregating-gateway/internal/upstream"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	for _, arg := range args {
		switch arg {
		case "--version":
			fmt.Println(version)
			return 0
		case "--help", "-h":
			printUsage()
			return 0
		case "--list-operations":
			return runListOperations()
		case "--validate-config":
			return runValidateConfig()
		default:
			fmt.Fprintf(os.Stderr, "mcp-aggregating-gateway: unknown flag %s\n", arg)
			printUsage()
			return 1
		}
	}
	return runServe()
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: mcp-aggregating-gateway [flags]

Flags:
  --list-operations   print every (category, operation) this gateway can route and exit
  --validate-config   validate the upstream descriptor file and exit
  --version           print the version and exit
  --help              print this message and exit

With no flags, serves the aggregating gateway over stdio.`)
}

func runListOperations() int {
	reg := registry.New(registry.Default())
	for _, category := range reg.Categories() {
		for _, op := range reg.ListOperations(category) {
			fmt.Printf("%s.%s\n", category, op)
		}
	}
	return 0
}

func runValidateConfig() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcp-aggregating-gateway: %v\n", err)
		return 1
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "mcp-aggregating-gateway: invalid config: %v\n", err)
		return 1
	}
	fmt.Println("config ok")
	return 0
}

func runServe() int {
	settings := config.LoadSettings()
	logger := newLogger(settings.LogLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("loading config", "error", err)
		return 1
	}
	if err := config.Validate(cfg); err != nil {
		logger.Error("invalid config", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clients, cleanup := spawnUpstreams(ctx, cfg, settings, logger)
	defer cleanup()

	reg := registry.New(registry.Default())
	respCache := cache.New(settings.CacheTTL, settings.CacheMaxSize, settings.CacheEnabled)
	defer respCache.Close()
	metricsLog := metrics.New(settings.MetricsEnabled)
	policy := retry.Policy{
		MaxAttempts:  settings.RetryMaxAttempts,
		InitialDelay: settings.RetryInitialDelay,
		MaxDelay:     settings.RetryMaxDelay,
		Multiplier:   2,
	}

	d := dispatch.New(reg, clients, respCache, metricsLog, policy, settings.MaxConcurrentOperations, logger)
	srv := gateway.New(d, reg, metricsLog, logger)

	logger.Info("gateway serving", "upstreams", len(clients))
	if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		logger.Error("serve exited", "error", err)
		return 1
	}
	return 0
}

// spawnUpstreams spawns every enabled upstream described in cfg, honoring
// per-upstream command overrides from the environment. Upstreams that fail
// to spawn are logged and omitted rather than failing the whole gateway:
// their operations surface as SERVER_UNAVAILABLE at dispatch time.
func spawnUpstreams(ctx context.Context, cfg *config.Config, settings config.Settings, logger *slog.Logger) (map[string]dispatch.Client, func()) {
	clients := make(map[string]dispatch.Client, len(cfg.Upstreams))
	spawned := make([]*upstream.Client, 0, len(cfg.Upstreams))

	for name, desc := range cfg.Upstreams {
		if !config.UpstreamEnabled(name) {
			logger.Info("upstream disabled, skipping", "upstream", name)
			continue
		}
		if override, ok := config.UpstreamCommandOverride(name); ok {
			desc.Command = override
		}

		spawnCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		client, err := upstream.Spawn(spawnCtx, desc, logger)
		cancel()
		if err != nil {
			logger.Error("spawning upstream failed", "upstream", name, "error", err)
			continue
		}
		clients[name] = client
		spawned = append(spawned, client)
	}

	cleanup := func() {
		for _, c := range spawned {
			if err := c.Disconnect(); err != nil {
				logger.Warn("disconnecting upstream", "error", err)
			}
		}
	}
	return clients, cleanup
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}
