// Package app provides the entry point for the waldur-mcp command-line application.
package app

import (
	"github.com/spf13/cobra"

	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:               "waldur-mcp",
	DisableAutoGenTag: true,
	Short:             "waldur-mcp is an MCP server for the Waldur cloud management platform",
	Long: `waldur-mcp is an MCP (Model Context Protocol) server for the Waldur cloud management platform.
It lets an LLM client discover Waldur API endpoints via semantic search over the OpenAPI schema,
authenticate users through the OIDC device authorisation flow, and read or modify Waldur resources
through a curated set of tools.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
}

// NewRootCmd creates a new root command for the Waldur MCP CLI.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
