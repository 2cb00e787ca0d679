// Package mail_tools exposes the mail service operations as MCP tools
// for AI assistants: sending, replying, drafting, searching and thread
// retrieval. Write tools are withheld when the server runs read-only.
package mail_tools
