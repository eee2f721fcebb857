// Package main is the entry point for the Waldur MCP server.
package main

import (
	"os"

	"github.com/TanyaKushwahaa/claude-mcp-waldur/cmd/waldur-mcp/app"
	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/logger"
)

func main() {
	// Initialize the logger
	logger.Initialize()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
