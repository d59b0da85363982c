package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lydakis/mcp-aggregating-gateway/internal/cache"
	"github.com/lydakis/mcp-aggregating-gateway/internal/metrics"
	"github.com/lydakis/mcp-aggregating-gateway/internal/registry"
	"github.com/lydakis/mcp-aggregating-gateway/internal/retry"
	"github.com/lydakis/mcp-aggregating-gateway/internal/upstream"
)

type fakeClient struct {
	state   upstream.State
	calls   int32
	sleep   time.Duration
	callFn  func(name string, args map[string]any) (*mcp.CallToolResult, error)
}

func (f *fakeClient) State() upstream.State { return f.state }

func (f *fakeClient) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.sleep > 0 {
		time.Sleep(f.sleep)
	}
	if f.callFn != nil {
		return f.callFn(name, args)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "ok"}}}, nil
}

func testRegistry() *registry.Registry {
	return registry.New([]registry.Mapping{
		{Category: "code_operations", Operation: "findSymbol", Upstream: "serena", Tool: "find_symbol", Cacheable: true},
		{Category: "code_operations", Operation: "editFile", Upstream: "serena", Tool: "replace_lines", Cacheable: false},
		{Category: "web_research", Operation: "search", Upstream: "tavily", Tool: "tavily-search", Cacheable: true},
	})
}

func fastRetryPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func TestDispatchUnknownOperationIsInvalid(t *testing.T) {
	d := New(testRegistry(), map[string]Client{}, cache.New(time.Minute, 10, true), metrics.New(true), fastRetryPolicy(), 4, nil)
	result := d.Dispatch(context.Background(), "code_operations", "nope", nil)
	if result.Success {
		t.Fatal("Dispatch() succeeded, want failure for unknown operation")
	}
	if result.Err.Code != CodeInvalidOperation {
		t.Fatalf("Code = %v, want %v", result.Err.Code, CodeInvalidOperation)
	}
}

func TestDispatchMissingUpstreamIsUnavailable(t *testing.T) {
	d := New(testRegistry(), map[string]Client{}, cache.New(time.Minute, 10, true), metrics.New(true), fastRetryPolicy(), 4, nil)
	result := d.Dispatch(context.Background(), "code_operations", "findSymbol", nil)
	if result.Success {
		t.Fatal("Dispatch() succeeded, want failure for absent upstream")
	}
	if result.Err.Code != CodeServerUnavailable {
		t.Fatalf("Code = %v, want %v", result.Err.Code, CodeServerUnavailable)
	}
}

func TestDispatchNotReadyClientIsUnavailable(t *testing.T) {
	clients := map[string]Client{"serena": &fakeClient{state: upstream.Spawned}}
	d := New(testRegistry(), clients, cache.New(time.Minute, 10, true), metrics.New(true), fastRetryPolicy(), 4, nil)
	result := d.Dispatch(context.Background(), "code_operations", "findSymbol", nil)
	if result.Success || result.Err.Code != CodeServerUnavailable {
		t.Fatalf("Dispatch() = %+v, want SERVER_UNAVAILABLE", result)
	}
}

func TestDispatchSuccessfulUncachedCall(t *testing.T) {
	client := &fakeClient{state: upstream.Ready}
	clients := map[string]Client{"serena": client}
	d := New(testRegistry(), clients, cache.New(time.Minute, 10, true), metrics.New(true), fastRetryPolicy(), 4, nil)

	result := d.Dispatch(context.Background(), "code_operations", "findSymbol", map[string]any{"name_path": "User"})
	if !result.Success {
		t.Fatalf("Dispatch() failed: %+v", result.Err)
	}
	if result.Meta.Upstream != "serena" || result.Meta.Cached {
		t.Fatalf("Meta = %+v, want upstream=serena cached=false", result.Meta)
	}
	if result.Meta.TokensEstimate <= 0 {
		t.Fatal("TokensEstimate should be > 0 for a successful call")
	}
}

func TestDispatchCacheHitSkipsSecondUpstreamCall(t *testing.T) {
	client := &fakeClient{state: upstream.Ready}
	clients := map[string]Client{"serena": client}
	d := New(testRegistry(), clients, cache.New(time.Minute, 10, true), metrics.New(true), fastRetryPolicy(), 4, nil)

	params := map[string]any{"name_path": "User"}
	first := d.Dispatch(context.Background(), "code_operations", "findSymbol", params)
	if !first.Success || first.Meta.Cached {
		t.Fatalf("first Dispatch() = %+v, want uncached success", first)
	}

	second := d.Dispatch(context.Background(), "code_operations", "findSymbol", params)
	if !second.Success || !second.Meta.Cached {
		t.Fatalf("second Dispatch() = %+v, want cached success", second)
	}
	if second.Meta.DurationMs != 0 {
		t.Fatalf("cached DurationMs = %d, want 0", second.Meta.DurationMs)
	}
	if atomic.LoadInt32(&client.calls) != 1 {
		t.Fatalf("upstream calls = %d, want exactly 1", client.calls)
	}
}

func TestDispatchCacheKeyIgnoresArgumentOrder(t *testing.T) {
	client := &fakeClient{state: upstream.Ready}
	clients := map[string]Client{"serena": client}
	d := New(testRegistry(), clients, cache.New(time.Minute, 10, true), metrics.New(true), fastRetryPolicy(), 4, nil)

	d.Dispatch(context.Background(), "code_operations", "findSymbol", map[string]any{"a": 1, "b": 2})
	second := d.Dispatch(context.Background(), "code_operations", "findSymbol", map[string]any{"b": 2, "a": 1})
	if !second.Meta.Cached {
		t.Fatal("Dispatch() with reordered keys should hit cache")
	}
}

func TestDispatchNonCacheableOperationNeverCaches(t *testing.T) {
	client := &fakeClient{state: upstream.Ready}
	clients := map[string]Client{"serena": client}
	c := cache.New(time.Minute, 10, true)
	d := New(testRegistry(), clients, c, metrics.New(true), fastRetryPolicy(), 4, nil)

	d.Dispatch(context.Background(), "code_operations", "editFile", map[string]any{"path": "a.go"})
	d.Dispatch(context.Background(), "code_operations", "editFile", map[string]any{"path": "a.go"})

	if c.Size() != 0 {
		t.Fatalf("cache Size() = %d, want 0 for non-cacheable operation", c.Size())
	}
	if atomic.LoadInt32(&client.calls) != 2 {
		t.Fatalf("upstream calls = %d, want 2 (never cached)", client.calls)
	}
}

func TestDispatchRetriesTransientFailureThenFails(t *testing.T) {
	client := &fakeClient{state: upstream.Ready, callFn: func(name string, args map[string]any) (*mcp.CallToolResult, error) {
		return nil, errors.New("connection timeout")
	}}
	clients := map[string]Client{"tavily": client}
	d := New(testRegistry(), clients, cache.New(time.Minute, 10, true), metrics.New(true), fastRetryPolicy(), 4, nil)

	result := d.Dispatch(context.Background(), "web_research", "search", map[string]any{"query": "mcp"})
	if result.Success {
		t.Fatal("Dispatch() succeeded, want failure after exhausting retries")
	}
	if result.Err.Code != CodeExecutionError {
		t.Fatalf("Code = %v, want %v", result.Err.Code, CodeExecutionError)
	}
	if atomic.LoadInt32(&client.calls) != 3 {
		t.Fatalf("upstream calls = %d, want 3 (maxAttempts)", client.calls)
	}
}

func TestDispatchBatchPreservesOrderAndMixedOutcomes(t *testing.T) {
	failing := &fakeClient{state: upstream.Ready, callFn: func(name string, args map[string]any) (*mcp.CallToolResult, error) {
		return nil, errors.New("invalid request")
	}}
	ok := &fakeClient{state: upstream.Ready}
	clients := map[string]Client{"serena": ok, "tavily": failing}
	d := New(testRegistry(), clients, cache.New(time.Minute, 10, true), metrics.New(true), fastRetryPolicy(), 4, nil)

	items := []BatchItem{
		{Category: "code_operations", Operation: "findSymbol", Params: map[string]any{"name_path": "A"}},
		{Category: "web_research", Operation: "search", Params: map[string]any{"query": "B"}},
		{Category: "code_operations", Operation: "findSymbol", Params: map[string]any{"name_path": "C"}},
	}
	results, summary := d.DispatchBatch(context.Background(), items)

	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if !results[0].Success || results[1].Success || !results[2].Success {
		t.Fatalf("results = %+v, want [true,false,true]", results)
	}
	if summary.Succeeded != 2 || summary.Failed != 1 {
		t.Fatalf("summary = %+v, want succeeded=2 failed=1", summary)
	}
}

func TestDispatchBatchOfBatchIsInvalid(t *testing.T) {
	d := New(testRegistry(), map[string]Client{}, cache.New(time.Minute, 10, true), metrics.New(true), fastRetryPolicy(), 4, nil)
	items := []BatchItem{{Category: "batch", Operation: "whatever"}}
	results, summary := d.DispatchBatch(context.Background(), items)
	if len(results) != 1 || results[0].Success {
		t.Fatalf("results = %+v, want a single failed entry", results)
	}
	if results[0].Err.Code != CodeInvalidOperation {
		t.Fatalf("Code = %v, want %v", results[0].Err.Code, CodeInvalidOperation)
	}
	if summary.Failed != 1 {
		t.Fatalf("summary.Failed = %d, want 1", summary.Failed)
	}
}
