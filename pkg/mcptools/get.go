package mcptools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/waldur"
)

func (h *Handler) registerGetTools(srv *server.MCPServer) {
	srv.AddTool(mcp.Tool{
		Name: "get_uuid",
		Description: `Retrieves the UUID of an entity (e.g., project, customer, or user) given its short_name.

Entity types include: projects, customers, users, customer-credits, project-credits, roles,
slurm-allocations, slurm-jobs, user-invitations, invoice, marketplace-service-providers, etc.
Returns a UUID string or an elicitation object if parameters are missing.`,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"WALDUR_API_TOKEN": map[string]any{
					"type":        "string",
					"description": "Waldur API token",
				},
				"short_name": map[string]any{
					"type":        "string",
					"description": "Short name of the entity (different from name)",
				},
				"entity": map[string]any{
					"type":        "string",
					"description": "Type of entity, e.g., projects, customers, users",
				},
			},
			Required: []string{"WALDUR_API_TOKEN"},
		},
	}, h.getUUID)

	srv.AddTool(mcp.Tool{
		Name: "get_from_waldur",
		Description: `Makes a Waldur GET call using the parsed intent, walking every page of the result.

FIELD FILTERING (RECOMMENDED FOR TOKEN EFFICIENCY):
By default this tool returns only essential fields to minimise token usage.
To request specific fields, include them in payload: {"field": ["uuid", "name", "email"]}.
ALWAYS use field filtering when you only need specific information.

FILTERING & SEARCH PARAMETERS:
- Most resources support filtering by "name" (partial match, case-insensitive).
- To filter by related resources, use the resource name (singular) with UUID:
  projects by organization: {"customer": "uuid"}; resources by project: {"project": "uuid"}.

PARSING HIERARCHICAL NAMES:
When users mention "Project X in Organisation Y", search for the organisation first, then the
project within it. DO NOT concatenate names into a single search.

ERROR HANDLING:
If a resource is not found, inform the user and ask for clarification. NEVER assume or
hallucinate data. If the API is unreachable, state this clearly.`,
		InputSchema: intentSchema(nil),
	}, h.getFromWaldur)
}

// getUUID resolves an entity's UUID by short name, eliciting missing
// parameters from the user.
func (h *Handler) getUUID(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Token     string `json:"WALDUR_API_TOKEN"`
		ShortName string `json:"short_name,omitempty"`
		Entity    string `json:"entity,omitempty"`
	}{}

	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}

	if args.Token == "" {
		return mcp.NewToolResultText("Missing Waldur API token."), nil
	}

	if args.Entity == "" {
		return mcp.NewToolResultStructuredOnly(elicitation(
			"For which entity do you want the UUID?",
			"entity",
			"The name of the entity (e.g., projects)",
		)), nil
	}

	if (args.Entity == "projects" || args.Entity == "customers") && args.ShortName == "" {
		return mcp.NewToolResultStructuredOnly(elicitation(
			fmt.Sprintf("Please provide the short name of the %s.", args.Entity),
			"short_name",
			fmt.Sprintf("The short name of the %s (e.g., bri-sci-pro)", args.Entity),
		)), nil
	}

	uuid, err := h.waldur.LookupUUID(ctx, args.Token, args.Entity, args.ShortName)
	if err != nil {
		return mcp.NewToolResultText(h.lookupErrorMessage(err, args.Entity, args.ShortName)), nil
	}
	return mcp.NewToolResultText(uuid), nil
}

func (*Handler) lookupErrorMessage(err error, entity, shortName string) string {
	switch {
	case errors.Is(err, waldur.ErrUnknownEntity):
		return fmt.Sprintf("Sorry, I do not recognise the entity type '%s'.", entity)
	case errors.Is(err, waldur.ErrNoUUIDField):
		return fmt.Sprintf("I found %s but it has no UUID field.", entity)
	case errors.Is(err, waldur.ErrNotFound):
		if shortName != "" {
			return fmt.Sprintf("No %s found with short_name '%s'.", entity, shortName)
		}
		return fmt.Sprintf("No %s found matching the criteria.", entity)
	}
	switch statusCode(err) {
	case 401:
		return authFailedMessage
	case 403:
		return accessDeniedMessage
	case 0:
		return connectionMessage(err)
	default:
		return fmt.Sprintf("API returned status error: %d.", statusCode(err))
	}
}

// getFromWaldur makes a paginated GET call, injecting essential fields when
// the model did not ask for specific ones.
func (h *Handler) getFromWaldur(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		ParsedIntent parsedIntent `json:"parsed_intent"`
	}{}

	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}
	intent := args.ParsedIntent

	payload := intent.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	// Hybrid logic: inject essentials only when the model didn't pick fields.
	if _, ok := payload["field"]; !ok {
		if fields, known := waldur.EssentialFields[intent.Method]; known {
			payload["field"] = fields
		}
	}

	result, err := h.waldur.GetAll(ctx, intent.Token, intent.Method, payload)
	if err != nil {
		switch statusCode(err) {
		case 401:
			return mcp.NewToolResultText(authFailedMessage), nil
		case 403:
			return mcp.NewToolResultText(accessDeniedMessage), nil
		case 0:
			return mcp.NewToolResultText(connectionMessage(err)), nil
		default:
			return mcp.NewToolResultText(fmt.Sprintf("API error: %d.", statusCode(err))), nil
		}
	}

	out, err := result.JSONString()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}
