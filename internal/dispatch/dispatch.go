// Package dispatch implements end-to-end operation routing: validate the
// requested operation against the registry, serve from cache when
// possible, call the upstream under a retry policy, compact the result,
// and record a metrics entry for every outcome.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lydakis/mcp-aggregating-gateway/internal/batch"
	"github.com/lydakis/mcp-aggregating-gateway/internal/cache"
	"github.com/lydakis/mcp-aggregating-gateway/internal/compact"
	"github.com/lydakis/mcp-aggregating-gateway/internal/metrics"
	"github.com/lydakis/mcp-aggregating-gateway/internal/registry"
	"github.com/lydakis/mcp-aggregating-gateway/internal/retry"
	"github.com/lydakis/mcp-aggregating-gateway/internal/upstream"
)

// Meta is the metadata block attached to every BridgeResult.
type Meta struct {
	Upstream       string
	OperationName  string
	DurationMs     int64
	Cached         bool
	TokensEstimate int
}

// BridgeResult is the outcome of one dispatched operation. Exactly one of
// Body or Err is populated according to Success.
type BridgeResult struct {
	Success bool
	Body    json.RawMessage
	Err     *Error
	Meta    Meta
}

// BatchItem is one entry of a batch_operations request.
type BatchItem struct {
	Category  string
	Operation string
	Params    map[string]any
}

// Client is the subset of *upstream.Client the dispatcher depends on.
// Defined here so tests can substitute a fake without spawning a process.
type Client interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
	State() upstream.State
}

// Dispatcher ties the registry, upstream clients, cache, retry policy, and
// metrics log together.
type Dispatcher struct {
	registry *registry.Registry
	clients  map[string]Client
	cache    *cache.Cache
	metrics  *metrics.Log
	policy   retry.Policy
	logger   *slog.Logger
	gate     *batch.Gate
}

// New builds a Dispatcher. clients maps upstream name to a Ready (or not
// yet spawned) client; an absent or Closed entry surfaces as
// SERVER_UNAVAILABLE rather than panicking.
func New(reg *registry.Registry, clients map[string]Client, c *cache.Cache, log *metrics.Log, policy retry.Policy, maxConcurrent int, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		registry: reg,
		clients:  clients,
		cache:    c,
		metrics:  log,
		policy:   policy,
		logger:   logger,
		gate:     batch.NewGate(maxConcurrent),
	}
}

// Dispatch routes a single (category, operation) call. Upstream failures
// and compaction or marshaling errors surface as a BridgeResult with
// Success=false; a cache key that cannot be built only skips the cache.
func (d *Dispatcher) Dispatch(ctx context.Context, category, operation string, params map[string]any) BridgeResult {
	start := time.Now()

	mapping, ok := d.registry.Resolve(category, operation)
	if !ok {
		return d.record(BridgeResult{
			Success: false,
			Err:     &Error{Code: CodeInvalidOperation, Message: fmt.Sprintf("unknown operation %s.%s", category, operation)},
			Meta:    Meta{OperationName: operation},
		})
	}

	client, ok := d.clients[mapping.Upstream]
	if !ok || client.State() != upstream.Ready {
		return d.record(BridgeResult{
			Success: false,
			Err:     &Error{Code: CodeServerUnavailable, Message: fmt.Sprintf("upstream %s is unavailable", mapping.Upstream)},
			Meta:    Meta{Upstream: mapping.Upstream, OperationName: operation},
		})
	}

	var cacheKey string
	if mapping.Cacheable {
		if key, err := cache.Key(mapping.Upstream, mapping.Tool, params); err == nil {
			cacheKey = key
			if body, hit := d.cache.Get(key); hit {
				return d.record(BridgeResult{
					Success: true,
					Body:    body,
					Meta:    Meta{Upstream: mapping.Upstream, OperationName: operation, Cached: true},
				})
			}
		}
	}

	executor := retry.New(d.policy, d.logger)
	outcome := executor.Do(ctx, func(ctx context.Context) (any, error) {
		return client.CallTool(ctx, mapping.Tool, params)
	})
	duration := time.Since(start)

	if !outcome.Success {
		return d.record(BridgeResult{
			Success: false,
			Err:     &Error{Code: CodeExecutionError, Message: outcome.Err.Error()},
			Meta:    Meta{Upstream: mapping.Upstream, OperationName: operation, DurationMs: duration.Milliseconds()},
		})
	}

	toolResult, _ := outcome.Value.(*mcp.CallToolResult)
	compacted, err := compact.Result(toolResult)
	if err != nil {
		return d.record(BridgeResult{
			Success: false,
			Err:     &Error{Code: CodeInternalError, Message: err.Error()},
			Meta:    Meta{Upstream: mapping.Upstream, OperationName: operation, DurationMs: duration.Milliseconds()},
		})
	}

	body, err := json.Marshal(compacted)
	if err != nil {
		return d.record(BridgeResult{
			Success: false,
			Err:     &Error{Code: CodeInternalError, Message: err.Error()},
			Meta:    Meta{Upstream: mapping.Upstream, OperationName: operation, DurationMs: duration.Milliseconds()},
		})
	}
	tokens := compact.EstimateTokens(len(body))

	if mapping.Cacheable && cacheKey != "" {
		d.cache.Set(cacheKey, body)
	}

	return d.record(BridgeResult{
		Success: true,
		Body:    body,
		Meta: Meta{
			Upstream:       mapping.Upstream,
			OperationName:  operation,
			DurationMs:     duration.Milliseconds(),
			TokensEstimate: tokens,
		},
	})
}

// DispatchBatch fans a batch_operations request out through the
// concurrency gate. Results preserve input order; the batch never
// short-circuits on the first failure.
func (d *Dispatcher) DispatchBatch(ctx context.Context, items []BatchItem) ([]BridgeResult, batch.Summary) {
	outcomes, _ := batch.Execute(d.gate, items, func(item BatchItem) (any, error) {
		return d.Dispatch(ctx, item.Category, item.Operation, item.Params), nil
	})

	results := make([]BridgeResult, len(outcomes))
	summary := batch.Summary{Total: len(outcomes)}
	for i, o := range outcomes {
		if o.Err != nil {
			results[i] = BridgeResult{
				Success: false,
				Err:     &Error{Code: CodeExecutionError, Message: o.Err.Error()},
			}
		} else {
			results[i] = o.Value.(BridgeResult)
		}
		if results[i].Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	return results, summary
}

func (d *Dispatcher) record(result BridgeResult) BridgeResult {
	d.metrics.Append(metrics.Record{
		Upstream:       result.Meta.Upstream,
		Operation:      result.Meta.OperationName,
		DurationMs:     result.Meta.DurationMs,
		TokensEstimate: result.Meta.TokensEstimate,
		Cached:         result.Meta.Cached,
		Success:        result.Success,
		Timestamp:      time.Now(),
	})
	return result
}
