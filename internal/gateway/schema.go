package gateway

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lydakis/mcp-aggregating-gateway/internal/registry"
)

// categoryToolNames maps a registry category to the meta-tool name
// advertised for it. The batch tool has no registry category of its own;
// it is handled as a special case in the dispatch layer.
var categoryToolNames = map[string]string{
	registry.CategoryCode:          "code_operations",
	registry.CategoryDocumentation: "documentation_lookup",
	registry.CategoryBrowser:       "browser_testing",
	registry.CategoryWebResearch:   "web_research",
	registry.CategoryUIComponents:  "ui_components",
}

const batchToolName = "batch_operations"

// toolNameToCategory is the inverse of categoryToolNames, built once at
// startup.
func toolNameToCategory() map[string]string {
	inverted := make(map[string]string, len(categoryToolNames))
	for cat, name := range categoryToolNames {
		inverted[name] = cat
	}
	return inverted
}

// BuildTools returns the advertised meta-tool set: one enumerating tool
// per registry category plus the batch tool.
func BuildTools(reg *registry.Registry) []mcp.Tool {
	tools := make([]mcp.Tool, 0, len(categoryToolNames)+1)
	for _, category := range reg.Categories() {
		name, ok := categoryToolNames[category]
		if !ok {
			continue
		}
		tools = append(tools, mcp.Tool{
			Name:        name,
			Description: "Invoke a " + category + " operation",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"operation": map[string]any{
						"type": "string",
						"enum": reg.ListOperations(category),
					},
					"params": map[string]any{"type": "object"},
				},
				Required: []string{"operation", "params"},
			},
		})
	}
	tools = append(tools, mcp.Tool{
		Name:        batchToolName,
		Description: "Invoke several operations concurrently, all-settled",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"operations": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"category":  map[string]any{"type": "string"},
							"operation": map[string]any{"type": "string"},
							"params":    map[string]any{"type": "object"},
						},
						"required": []string{"category", "operation"},
					},
				},
			},
			Required: []string{"operations"},
		},
	})
	return tools
}
