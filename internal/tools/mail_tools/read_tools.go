package mail_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/aiemployee/mailgate/internal/server"
	"github.com/aiemployee/mailgate/internal/service"
)

// RegisterReadTools registers search and thread retrieval. These are
// always available, read-only mode included.
func RegisterReadTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// Search tool
	searchTool := mcp.NewTool("gmail_search_messages",
		mcp.WithDescription("Search Gmail messages matching a query"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Gmail search query (e.g., 'in:inbox', 'from:user@example.com')"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description(fmt.Sprintf("Maximum number of results to return (default: %d)", service.DefaultSearchMax)),
		),
	)

	s.AddTool(searchTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSearchMessages(ctx, request, sc)
	})

	// Thread retrieval tool
	getThreadTool := mcp.NewTool("gmail_get_thread",
		mcp.WithDescription("Fetch a Gmail thread with the metadata headers of each message"),
		mcp.WithString("threadId",
			mcp.Required(),
			mcp.Description("The ID of the thread to fetch"),
		),
	)

	s.AddTool(getThreadTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetThread(ctx, request, sc)
	})

	return nil
}

func handleSearchMessages(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return mcp.NewToolResultError("'query' field is required"), nil
	}

	in := service.SearchInput{Query: query}
	if maxVal, ok := args["maxResults"].(float64); ok {
		in.Max = int64(maxVal)
	}

	out, err := sc.Mail().Search(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to search messages: %v", err)), nil
	}
	return toolResultJSON(out)
}

func handleGetThread(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	threadID, ok := args["threadId"].(string)
	if !ok || threadID == "" {
		return mcp.NewToolResultError("'threadId' field is required"), nil
	}

	out, err := sc.Mail().Thread(ctx, threadID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to fetch thread: %v", err)), nil
	}
	return toolResultJSON(out)
}
