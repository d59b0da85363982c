package upstream

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lydakis/mcp-aggregating-gateway/internal/transport"
)

// helperEnv gates TestUpstreamHelperProcess so it does nothing under a
// normal `go test` run. Other tests in this package re-exec the test
// binary with this variable set and use it as a disposable upstream.
const helperEnv = "GO_WANT_GATEWAY_UPSTREAM_HELPER"

// TestUpstreamHelperProcess speaks just enough of the protocol to exercise
// Client: initialize, tools/list with a single "echo" tool, and tools/call
// echoing back its "message" argument as text content. Setting HANG=1
// makes it accept tools/call requests without ever answering them, to
// exercise timeout and disconnect handling.
func TestUpstreamHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	hang := os.Getenv("HANG") == "1"

	reader := transport.NewFrameReader(os.Stdin, nil)
	writer := transport.NewFrameWriter(os.Stdout)

	for {
		raw, err := reader.ReadFrame()
		if err != nil {
			return
		}
		var req transport.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			continue
		}
		if req.IsNotification() {
			continue
		}

		switch req.Method {
		case "initialize":
			result := mcp.InitializeResult{
				ProtocolVersion: transport.ProtocolVersion,
				ServerInfo:      mcp.Implementation{Name: "helper", Version: "0.0.1"},
			}
			if resp, err := transport.NewResultResponse(req.ID, result); err == nil {
				_ = writer.WriteFrame(resp)
			}
		case "tools/list":
			result := mcp.ListToolsResult{
				Tools: []mcp.Tool{{Name: "echo", Description: "echoes its message argument"}},
			}
			if resp, err := transport.NewResultResponse(req.ID, result); err == nil {
				_ = writer.WriteFrame(resp)
			}
		case "tools/call":
			if hang {
				continue
			}
			var params mcp.CallToolParams
			_ = json.Unmarshal(req.Params, &params)
			args, _ := params.Arguments.(map[string]any)
			message, _ := args["message"].(string)
			result := mcp.CallToolResult{
				Content: []mcp.Content{mcp.TextContent{Type: "text", Text: message}},
			}
			if resp, err := transport.NewResultResponse(req.ID, result); err == nil {
				_ = writer.WriteFrame(resp)
			}
		}
	}
}
