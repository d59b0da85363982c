// Package compact shrinks upstream tool results before they are cached or
// returned to the agent: whitespace is collapsed in text content, and
// oversized results are replaced with a single truncated text item.
package compact

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// maxBodyBytes is the serialized-content size above which a result is
// truncated rather than returned whole.
const maxBodyBytes = 50_000

// truncatedKeepBytes is how much of the original serialized content is
// kept, verbatim, ahead of the truncation marker.
const truncatedKeepBytes = 49_900

// Result compacts an upstream CallToolResult: text items are
// whitespace-collapsed, then the whole content array is truncated if its
// serialized form exceeds maxBodyBytes.
func Result(result *mcp.CallToolResult) (*mcp.CallToolResult, error) {
	if result == nil {
		return nil, nil
	}
	out := *result
	out.Content = collapseContent(result.Content)

	serialized, err := json.Marshal(out.Content)
	if err != nil {
		return nil, fmt.Errorf("serializing content for size check: %w", err)
	}
	if len(serialized) <= maxBodyBytes {
		return &out, nil
	}

	kept := serialized
	if len(kept) > truncatedKeepBytes {
		kept = kept[:truncatedKeepBytes]
	}
	text := fmt.Sprintf("[Response truncated - original size: %d bytes]\n%s\n[... truncated]", len(serialized), kept)
	out.Content = []mcp.Content{mcp.TextContent{Type: "text", Text: text}}
	return &out, nil
}

func collapseContent(content []mcp.Content) []mcp.Content {
	if content == nil {
		return nil
	}
	out := make([]mcp.Content, len(content))
	for i, c := range content {
		if text, ok := c.(mcp.TextContent); ok {
			text.Text = CollapseWhitespace(text.Text)
			out[i] = text
			continue
		}
		out[i] = c
	}
	return out
}

// SerializedLength returns the byte length of v marshaled as JSON, used
// both for the truncation threshold and for token estimation.
func SerializedLength(v any) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

// EstimateTokens converts a serialized byte length into the gateway's
// coarse token estimate: ceil(len/4).
func EstimateTokens(serializedLen int) int {
	if serializedLen <= 0 {
		return 0
	}
	return (serializedLen + 3) / 4
}
