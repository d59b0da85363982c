// Package gateway implements the agent-facing side of the aggregating
// gateway: the JSON-RPC server loop, the meta-tool schemas, and the result
// envelope the dispatcher's outcomes are rendered into.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lydakis/mcp-aggregating-gateway/internal/dispatch"
	"github.com/lydakis/mcp-aggregating-gateway/internal/metrics"
	"github.com/lydakis/mcp-aggregating-gateway/internal/registry"
	"github.com/lydakis/mcp-aggregating-gateway/internal/transport"
)

const serverName = "mcp-aggregating-gateway"
const serverVersion = "0.1.0"

// Server speaks JSON-RPC over newline-delimited stdio to the agent,
// translating tools/list and tools/call into registry lookups and
// dispatcher calls.
type Server struct {
	dispatcher   *dispatch.Dispatcher
	registry     *registry.Registry
	metricsLog   *metrics.Log
	logger       *slog.Logger
	tools        []mcp.Tool
	toolCategory map[string]string
}

// New builds a Server. logger may be nil.
func New(d *dispatch.Dispatcher, reg *registry.Registry, metricsLog *metrics.Log, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		dispatcher:   d,
		registry:     reg,
		metricsLog:   metricsLog,
		logger:       logger,
		tools:        BuildTools(reg),
		toolCategory: toolNameToCategory(),
	}
}

// Serve reads framed JSON-RPC requests from r and writes responses to w
// until r is exhausted or ctx is done.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := transport.NewFrameReader(r, s.logger)
	writer := transport.NewFrameWriter(w)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		raw, err := reader.ReadFrame()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading agent frame: %w", err)
		}

		var req transport.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			s.logger.Warn("malformed agent request", "error", err)
			continue
		}
		if req.IsNotification() {
			s.logger.Debug("ignoring agent notification", "method", req.Method)
			continue
		}

		resp := s.handle(ctx, req)
		if err := writer.WriteFrame(resp); err != nil {
			return fmt.Errorf("writing agent response: %w", err)
		}
	}
}

func (s *Server) handle(ctx context.Context, req transport.Request) (resp transport.Response) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("recovered panic handling agent request", "method", req.Method, "panic", r)
			resp = transport.NewErrorResponse(req.ID, transport.CodeInternalError, fmt.Sprintf("internal error: %v", r))
		}
	}()

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "metrics/summary":
		return s.handleMetricsSummary(req)
	default:
		return transport.NewErrorResponse(req.ID, transport.CodeMethodNotFound, "method not found: "+req.Method)
	}
}

func (s *Server) handleInitialize(req transport.Request) transport.Response {
	result := mcp.InitializeResult{
		ProtocolVersion: transport.ProtocolVersion,
		Capabilities: mcp.ServerCapabilities{Tools: &struct {
			ListChanged bool `json:"listChanged,omitempty"`
		}{}},
		ServerInfo: mcp.Implementation{Name: serverName, Version: serverVersion},
	}
	resp, err := transport.NewResultResponse(req.ID, result)
	if err != nil {
		return transport.NewErrorResponse(req.ID, transport.CodeInternalError, err.Error())
	}
	return resp
}

func (s *Server) handleToolsList(req transport.Request) transport.Response {
	resp, err := transport.NewResultResponse(req.ID, mcp.ListToolsResult{Tools: s.tools})
	if err != nil {
		return transport.NewErrorResponse(req.ID, transport.CodeInternalError, err.Error())
	}
	return resp
}

func (s *Server) handleMetricsSummary(req transport.Request) transport.Response {
	resp, err := transport.NewResultResponse(req.ID, s.metricsLog.Summarize())
	if err != nil {
		return transport.NewErrorResponse(req.ID, transport.CodeInternalError, err.Error())
	}
	return resp
}

func (s *Server) handleToolsCall(ctx context.Context, req transport.Request) transport.Response {
	var params mcp.CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResult(req.ID, validationEnvelope("", "malformed tools/call params: "+err.Error()))
	}

	if params.Name == batchToolName {
		return s.handleBatchCall(ctx, req, params)
	}

	category, ok := s.toolCategory[params.Name]
	if !ok {
		return s.errorResult(req.ID, validationEnvelope(params.Name, "unknown tool: "+params.Name))
	}

	args, _ := params.Arguments.(map[string]any)
	operation, _ := args["operation"].(string)
	if operation == "" {
		return s.errorResult(req.ID, validationEnvelope(params.Name, "missing required field \"operation\""))
	}
	opParams, _ := args["params"].(map[string]any)

	result := s.dispatcher.Dispatch(ctx, category, operation, opParams)
	return s.toolResultResponse(req.ID, FromBridgeResult(result), !result.Success)
}

func (s *Server) handleBatchCall(ctx context.Context, req transport.Request, params mcp.CallToolParams) transport.Response {
	args, _ := params.Arguments.(map[string]any)
	rawOps, _ := args["operations"].([]any)
	if rawOps == nil {
		return s.errorResult(req.ID, validationEnvelope(batchToolName, "missing required field \"operations\""))
	}

	items := make([]dispatch.BatchItem, 0, len(rawOps))
	for _, raw := range rawOps {
		entry, ok := raw.(map[string]any)
		if !ok {
			return s.errorResult(req.ID, validationEnvelope(batchToolName, "each batch operation must be an object"))
		}
		category, _ := entry["category"].(string)
		operation, _ := entry["operation"].(string)
		opParams, _ := entry["params"].(map[string]any)
		if category == "" || operation == "" {
			return s.errorResult(req.ID, validationEnvelope(batchToolName, "each batch operation requires category and operation"))
		}
		items = append(items, dispatch.BatchItem{Category: category, Operation: operation, Params: opParams})
	}

	results, summary := s.dispatcher.DispatchBatch(ctx, items)
	data := BatchData{
		Results: make([]BatchResultItem, len(results)),
		Summary: BatchSummary{Total: summary.Total, Succeeded: summary.Succeeded, Failed: summary.Failed, DurationMs: summary.Duration.Milliseconds()},
	}
	for i, r := range results {
		item := BatchResultItem{
			Success: r.Success,
			Metadata: EnvelopeMetadata{
				ServerName:     r.Meta.Upstream,
				OperationName:  r.Meta.OperationName,
				DurationMs:     r.Meta.DurationMs,
				Cached:         r.Meta.Cached,
				TokensEstimate: r.Meta.TokensEstimate,
			},
		}
		if r.Success {
			item.Data = r.Body
		} else {
			item.Error = &EnvelopeError{Message: r.Err.Message, Code: string(r.Err.Code)}
		}
		data.Results[i] = item
	}

	envelope := Envelope{Success: summary.Failed == 0, Data: data}
	return s.toolResultResponse(req.ID, envelope, summary.Failed > 0)
}

func (s *Server) toolResultResponse(id any, envelope Envelope, isError bool) transport.Response {
	body, err := json.Marshal(envelope)
	if err != nil {
		return transport.NewErrorResponse(id, transport.CodeInternalError, err.Error())
	}
	result := mcp.CallToolResult{
		IsError: isError,
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(body)}},
	}
	resp, err := transport.NewResultResponse(id, result)
	if err != nil {
		return transport.NewErrorResponse(id, transport.CodeInternalError, err.Error())
	}
	return resp
}

func (s *Server) errorResult(id any, envelope Envelope) transport.Response {
	return s.toolResultResponse(id, envelope, true)
}
