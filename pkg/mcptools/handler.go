// Package mcptools exposes the Waldur tool set over the Model Context
// Protocol. Each tool is a thin pass-through: it builds a request from the
// model's structured intent, calls the Waldur API, and translates the
// outcome into a human-readable message or an elicitation prompt.
package mcptools

import (
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/auth"
	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/retriever"
	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/waldur"
)

// Handler holds the collaborators shared by all tool handlers.
type Handler struct {
	waldur        *waldur.Client
	retriever     *retriever.Retriever
	authenticator *auth.Authenticator
}

// NewHandler creates a Handler.
func NewHandler(waldurClient *waldur.Client, ret *retriever.Retriever, authenticator *auth.Authenticator) *Handler {
	return &Handler{
		waldur:        waldurClient,
		retriever:     ret,
		authenticator: authenticator,
	}
}

// RegisterTools registers every tool on the MCP server.
func (h *Handler) RegisterTools(srv *server.MCPServer) {
	h.registerRetrieveTool(srv)
	h.registerGetTools(srv)
	h.registerWriteTools(srv)
	h.registerAuthTool(srv)
	h.registerMiscTools(srv)
	h.registerOpenPortalTools(srv)
}

// parsedIntent is the structured intent the model assembles before calling
// a write or bulk-read tool.
type parsedIntent struct {
	Token      string         `json:"WALDUR_API_TOKEN"`
	Email      string         `json:"email,omitempty"`
	UserAccess string         `json:"user_access,omitempty"`
	Method     string         `json:"method"`
	HTTPMethod string         `json:"http_method"`
	Payload    map[string]any `json:"payload"`
}

// elicitation builds the structured prompt asking the user for one string
// field. The MCP host renders it and replays the answer into the next call.
func elicitation(message, field, description string) map[string]any {
	return map[string]any{
		"type": "elicitation/create",
		"params": map[string]any{
			"message": message,
			"requestedSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					field: map[string]any{
						"type":        "string",
						"description": description,
					},
				},
				"required": []string{field},
			},
		},
	}
}

// connectionMessage reports a transport-level failure. These are always
// surfaced to the user and never retried, and must not be confused with a
// "no results" outcome from the retrieval subsystem.
func connectionMessage(err error) string {
	return fmt.Sprintf("Error connecting to the server: %v", err)
}

// statusCode extracts the HTTP status from a Waldur API error, or 0 when
// the failure happened before a status was received.
func statusCode(err error) int {
	var statusErr *waldur.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 0
}

const (
	authFailedMessage   = "Authentication failed. Please check your Waldur API token."
	accessDeniedMessage = "Access denied. You don't have permission for this operation."
	notStaffMessage     = "Access denied. you are not a staff user. Claude, no sneaky overrides allowed."
)

// intentSchema is the shared input schema for tools taking a parsed intent.
func intentSchema(extraProps map[string]any, extraRequired ...string) mcp.ToolInputSchema {
	props := map[string]any{
		"parsed_intent": map[string]any{
			"type": "object",
			"description": "Parsed intent with keys WALDUR_API_TOKEN, email, user_access, " +
				"method, http_method, and payload",
			"properties": map[string]any{
				"WALDUR_API_TOKEN": map[string]any{"type": "string", "description": "Waldur API token"},
				"email":            map[string]any{"type": "string", "description": "User email"},
				"user_access": map[string]any{
					"type":        "string",
					"description": "Either 'staff' or 'not a staff' (only these two values are valid)",
				},
				"method":      map[string]any{"type": "string", "description": "API resource (e.g. 'projects')"},
				"http_method": map[string]any{"type": "string", "description": "HTTP method"},
				"payload":     map[string]any{"type": "object", "description": "Request payload"},
			},
			"required": []string{"WALDUR_API_TOKEN", "method", "http_method"},
		},
	}
	for k, v := range extraProps {
		props[k] = v
	}
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: props,
		Required:   append([]string{"parsed_intent"}, extraRequired...),
	}
}
