package mail_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/aiemployee/mailgate/internal/server"
	"github.com/aiemployee/mailgate/internal/service"
)

// RegisterEmailTools registers the write tools: send, reply and draft.
func RegisterEmailTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// Send email tool
	sendEmailTool := mcp.NewTool("gmail_send_email",
		mcp.WithDescription("Send an email through Gmail"),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Plain text email body"),
		),
		mcp.WithString("cc",
			mcp.Description("CC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("bcc",
			mcp.Description("BCC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("htmlBody",
			mcp.Description("Optional HTML alternative for the body"),
		),
		mcp.WithString("replyTo",
			mcp.Description("Optional Reply-To address"),
		),
	)

	s.AddTool(sendEmailTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSendEmail(ctx, request, sc)
	})

	// Reply tool
	replyEmailTool := mcp.NewTool("gmail_reply_email",
		mcp.WithDescription("Reply to an existing Gmail thread. The recipient and subject are derived from the thread."),
		mcp.WithString("threadId",
			mcp.Required(),
			mcp.Description("The ID of the thread to reply to"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Plain text reply body"),
		),
		mcp.WithString("cc",
			mcp.Description("CC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("bcc",
			mcp.Description("BCC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("htmlBody",
			mcp.Description("Optional HTML alternative for the body"),
		),
	)

	s.AddTool(replyEmailTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleReplyEmail(ctx, request, sc)
	})

	// Draft tool
	draftEmailTool := mcp.NewTool("gmail_draft_email",
		mcp.WithDescription("Create a Gmail draft without sending it"),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Plain text email body"),
		),
		mcp.WithString("cc",
			mcp.Description("CC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("bcc",
			mcp.Description("BCC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("htmlBody",
			mcp.Description("Optional HTML alternative for the body"),
		),
	)

	s.AddTool(draftEmailTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleDraftEmail(ctx, request, sc)
	})

	return nil
}

// sendInputFromArgs builds a SendInput from tool arguments, reporting
// the first missing required field.
func sendInputFromArgs(args map[string]interface{}) (service.SendInput, string) {
	to, ok := args["to"].(string)
	if !ok || to == "" {
		return service.SendInput{}, "'to' field is required"
	}
	subject, ok := args["subject"].(string)
	if !ok || subject == "" {
		return service.SendInput{}, "'subject' field is required"
	}
	body, ok := args["body"].(string)
	if !ok || body == "" {
		return service.SendInput{}, "'body' field is required"
	}

	in := service.SendInput{To: to, Subject: subject, Body: body}
	if cc, ok := args["cc"].(string); ok {
		in.Cc = cc
	}
	if bcc, ok := args["bcc"].(string); ok {
		in.Bcc = bcc
	}
	if html, ok := args["htmlBody"].(string); ok {
		in.HTMLBody = html
	}
	if replyTo, ok := args["replyTo"].(string); ok {
		in.ReplyTo = replyTo
	}
	return in, ""
}

func handleSendEmail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	in, missing := sendInputFromArgs(request.GetArguments())
	if missing != "" {
		return mcp.NewToolResultError(missing), nil
	}

	out, err := sc.Mail().Send(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to send email: %v", err)), nil
	}
	return toolResultJSON(out)
}

func handleReplyEmail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	threadID, ok := args["threadId"].(string)
	if !ok || threadID == "" {
		return mcp.NewToolResultError("'threadId' field is required"), nil
	}
	body, ok := args["body"].(string)
	if !ok || body == "" {
		return mcp.NewToolResultError("'body' field is required"), nil
	}

	in := service.ReplyInput{ThreadID: threadID, Body: body}
	if cc, ok := args["cc"].(string); ok {
		in.Cc = cc
	}
	if bcc, ok := args["bcc"].(string); ok {
		in.Bcc = bcc
	}
	if html, ok := args["htmlBody"].(string); ok {
		in.HTMLBody = html
	}

	out, err := sc.Mail().Reply(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to reply: %v", err)), nil
	}
	return toolResultJSON(out)
}

func handleDraftEmail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	in, missing := sendInputFromArgs(request.GetArguments())
	if missing != "" {
		return mcp.NewToolResultError(missing), nil
	}

	out, err := sc.Mail().Draft(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create draft: %v", err)), nil
	}
	return toolResultJSON(out)
}
