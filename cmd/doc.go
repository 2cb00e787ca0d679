// Package cmd implements the command-line interface for mailgate.
//
// This package provides the following commands:
//   - serve: Start the MCP server to provide Gmail tools for AI assistants
//   - run: Execute a single mail action and print a JSON result envelope
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd
