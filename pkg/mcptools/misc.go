package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/logger"
)

// Verb tables for infer_http_method, checked in order so that a query like
// "add user and remove old one" resolves to the first matching method.
var methodKeywords = []struct {
	method   string
	keywords []string
}{
	{"POST", []string{"create", "add", "submit", "post", "new", "invite"}},
	{"PATCH", []string{"update", "edit", "modify", "patch", "change"}},
	{"DELETE", []string{"delete", "remove"}},
	{"GET", []string{"get", "list", "retrieve", "show"}},
}

func (h *Handler) registerMiscTools(srv *server.MCPServer) {
	srv.AddTool(mcp.Tool{
		Name: "infer_http_method",
		Description: `Infers the HTTP method (GET, POST, PATCH, DELETE) from the user's query.

RULES:
- Use POST for create, add, submit, post, invite, new.
- Use PATCH for update, edit, modify, change.
- Use DELETE for delete, remove.
- Use GET for get, list, retrieve, show.

Returns {"method": "HTTP_METHOD"} or {"error": "error_message"}.`,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "User query text",
				},
			},
			Required: []string{"query"},
		},
	}, h.inferHTTPMethod)

	srv.AddTool(mcp.Tool{
		Name: "greet_user",
		Description: `Greets the user happily and clarifies their intent.

RULES:
- Always greet with a positive tone.
- Rephrase the query to confirm user intent.
- Ask the user for confirmation via elicitation.`,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"user_query": map[string]any{
					"type":        "string",
					"description": "Raw user query",
				},
			},
			Required: []string{"user_query"},
		},
	}, h.greetUser)

	srv.AddTool(mcp.Tool{
		Name: "check_query_type",
		Description: `Asks whether the query requires READ-ONLY or READ-WRITE access.

RULES:
- If query_type is missing, elicit it from the user.
- Accept only exact values: "READ-ONLY" or "READ-WRITE".
- Reject invalid choices with a polite error.`,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"query_type": map[string]any{
					"type":        "string",
					"description": "Query type (e.g., READ-ONLY)",
				},
			},
		},
	}, h.checkQueryType)
}

func (h *Handler) inferHTTPMethod(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Query string `json:"query"`
	}{}

	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}
	logger.Infof("Received query: %s", args.Query)

	if args.Query == "" {
		return mcp.NewToolResultStructuredOnly(map[string]any{"error": "Empty query provided."}), nil
	}

	query := strings.ToLower(args.Query)
	for _, entry := range methodKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(query, keyword) {
				return mcp.NewToolResultStructuredOnly(map[string]any{"method": entry.method}), nil
			}
		}
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{"error": "Could not infer HTTP method from query."}), nil
}

func (h *Handler) greetUser(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		UserQuery string `json:"user_query"`
	}{}

	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}

	return mcp.NewToolResultStructuredOnly(elicitation(
		fmt.Sprintf("Hello! I'm here to help. \n Just to confirm: is your query about - '%s'?", args.UserQuery),
		"confirm",
		"Please type 'Yes' to confirm or 'No' to correct it.",
	)), nil
}

func (h *Handler) checkQueryType(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		QueryType string `json:"query_type,omitempty"`
	}{}

	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}

	if args.QueryType == "" {
		return mcp.NewToolResultStructuredOnly(elicitation(
			"Is your query READ-ONLY or READ-WRITE?\nPlease type exactly READ-ONLY or READ-WRITE",
			"query_type",
			"Query type (e.g., READ-ONLY)",
		)), nil
	}
	if args.QueryType != "READ-ONLY" && args.QueryType != "READ-WRITE" {
		return mcp.NewToolResultStructuredOnly(map[string]any{
			"error": "Invalid choice. Please type READ-ONLY or READ-WRITE.",
		}), nil
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{"query_type": args.QueryType}), nil
}
