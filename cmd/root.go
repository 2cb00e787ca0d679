package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the mailgate application
var rootCmd = &cobra.Command{
	Use:   "mailgate",
	Short: "Gmail gateway for AI agents",
	Long: `mailgate lets an AI agent send, draft and reply to Gmail messages
through a rate-limited, validated pipeline.

It can run as:
  - An MCP (Model Context Protocol) server for AI assistants (default)
  - A one-shot CLI executing a single mail action (run)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mailgate version %s\n" .Version}}`)

	// If no subcommand is provided, start the MCP server by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newVersionCmd())
}
