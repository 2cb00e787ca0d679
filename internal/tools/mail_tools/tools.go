package mail_tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/aiemployee/mailgate/internal/server"
)

// RegisterMailTools registers all mail tools with the MCP server.
// When the server context is read-only, only search and thread
// retrieval are exposed.
func RegisterMailTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := RegisterReadTools(s, sc); err != nil {
		return fmt.Errorf("failed to register read tools: %w", err)
	}

	if sc.ReadOnly() {
		return nil
	}

	if err := RegisterEmailTools(s, sc); err != nil {
		return fmt.Errorf("failed to register email tools: %w", err)
	}

	return nil
}

// toolResultJSON renders v as an indented JSON tool result.
func toolResultJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
