package mcptools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func (h *Handler) registerAuthTool(srv *server.MCPServer) {
	srv.AddTool(mcp.Tool{
		Name: "get_waldur_api_token",
		Description: `Obtains a Waldur API token using the OIDC device authorisation flow.

Steps:
1. Request device code from Keycloak.
2. Show user verification URL and code.
3. Prompt user to complete authorisation in browser and confirm when done.
4. Exchange completed device authorisation for a Waldur API token.

Use authorised="no" initially (user not authorised yet), and "yes" once the user has completed
the browser authorisation process. The raw token is not shown to the user; only the result of
authorisation is displayed.`,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"authorised": map[string]any{
					"type":        "string",
					"description": "\"yes\" or \"no\" ONLY. Use \"no\" until the user confirms browser authorisation.",
				},
			},
		},
	}, h.getWaldurAPIToken)
}

// getWaldurAPIToken drives one step of the device authorization
// conversation, turning the outcome into a message or elicitation.
func (h *Handler) getWaldurAPIToken(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Authorised string `json:"authorised,omitempty"`
	}{}

	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}

	outcome, err := h.authenticator.Authorize(ctx, args.Authorised)
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Trouble connecting to the server: %v", err)), nil
	}

	switch {
	case outcome.PromptAuthorization:
		return mcp.NewToolResultStructuredOnly(elicitation(
			fmt.Sprintf("Please authorise yourself in your browser. Visit %s \nEnter code %s \n"+
				"The tool will automatically receive your OIDC token once authorised.",
				outcome.VerificationURI, outcome.UserCode),
			"OIDC_TOKEN",
			"OIDC token for device authorisation",
		)), nil
	case outcome.PromptRetry:
		return mcp.NewToolResultStructuredOnly(elicitation(
			fmt.Sprintf("You haven't completed authorisation yet. Please visit %s and enter code %s. "+
				"Then try again with 'yes'.", outcome.VerificationURI, outcome.UserCode),
			"retry",
			"Type 'yes' after completing authorisation",
		)), nil
	default:
		return mcp.NewToolResultText(outcome.Message), nil
	}
}
