package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/auth"
	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/config"
	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/embeddings"
	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/logger"
	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/mcptools"
	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/prompts"
	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/retriever"
	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/versions"
	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/waldur"
)

// DefaultMCPPort is the default port for the streamable HTTP transport.
const DefaultMCPPort = "8000"

var (
	serveTransport string
	servePort      string
	serveHost      string
)

// newServeCommand creates the 'serve' subcommand
func newServeCommand() *cobra.Command {
	defaultPort := DefaultMCPPort
	if envPort := os.Getenv("MCP_PORT"); envPort != "" {
		defaultPort = envPort
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Waldur MCP server",
		Long: `Start an MCP (Model Context Protocol) server exposing the Waldur tool set.
The server provides tools to discover Waldur API endpoints via semantic search, authenticate users
through the OIDC device authorisation flow, and read or modify Waldur resources.

By default the server speaks MCP over stdio for use with a local MCP host. With
--transport streamable-http it listens on --host:--port instead. The port can also be set via
the MCP_PORT environment variable.`,
		RunE: serveCmdFunc,
	}

	cmd.Flags().StringVar(&serveTransport, "transport", "stdio", "Transport to use (stdio or streamable-http)")
	cmd.Flags().StringVar(&servePort, "port", defaultPort, "Port to listen on (can also be set via MCP_PORT env var)")
	cmd.Flags().StringVar(&serveHost, "host", "localhost", "Host to listen on")

	return cmd
}

// serveCmdFunc is the main function for the serve command
func serveCmdFunc(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	cfg := config.GetConfig()
	if err := cfg.Validate(); err != nil {
		// Tools that need the missing settings fail per call; the server
		// itself still starts so the rest of the tool set stays usable.
		logger.Warnf("Incomplete configuration: %v", err)
	}

	versionInfo := versions.GetVersionInfo()
	mcpServer := server.NewMCPServer(
		"waldur-mcp",
		versionInfo.Version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)

	handler, err := newWaldurHandler(cfg)
	if err != nil {
		return fmt.Errorf("failed to create Waldur handler: %w", err)
	}
	handler.RegisterTools(mcpServer)
	prompts.Register(mcpServer)

	if serveTransport == "stdio" {
		logger.Infof("Starting Waldur MCP server %s on stdio", versionInfo.Version)
		return server.ServeStdio(mcpServer)
	}

	addr := fmt.Sprintf("%s:%s", serveHost, servePort)
	streamableServer := server.NewStreamableHTTPServer(
		mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithHTTPContextFunc(func(_ context.Context, _ *http.Request) context.Context {
			return ctx
		}),
	)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           streamableServer,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
	}

	go func() {
		logger.Infof("Starting Waldur MCP server on http://%s/mcp", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("MCP server error: %v", err)
			cancel()
		}
	}()

	select {
	case <-sigChan:
	case <-ctx.Done():
	}
	logger.Info("Shutting down MCP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return httpServer.Shutdown(shutdownCtx)
}

// newWaldurHandler wires the collaborators behind the tool set.
func newWaldurHandler(cfg *config.Config) (*mcptools.Handler, error) {
	waldurClient := waldur.NewClient(cfg.WaldurBaseURL, cfg.VerifySSL)

	embedder, err := embeddings.NewManager(&embeddings.Config{
		BackendType: cfg.EmbeddingBackend,
		BaseURL:     cfg.EmbeddingBaseURL,
		Model:       cfg.EmbeddingModel,
		EnableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding manager: %w", err)
	}

	ret := retriever.New(retriever.Options{
		CacheDir: cfg.CacheDir(),
	}, embedder)

	authenticator := auth.NewAuthenticator(auth.Config{
		ClientID:       cfg.ClientID,
		DiscoveryURL:   cfg.DiscoveryURL,
		DeviceEndpoint: cfg.DeviceEndpoint,
		TokenEndpoint:  cfg.TokenEndpoint,
		VerifySSL:      cfg.VerifySSL,
	}, waldurClient)

	return mcptools.NewHandler(waldurClient, ret, authenticator), nil
}
