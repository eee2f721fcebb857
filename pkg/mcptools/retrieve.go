package mcptools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func (h *Handler) registerRetrieveTool(srv *server.MCPServer) {
	srv.AddTool(mcp.Tool{
		Name: "retrieve_api_endpoint",
		Description: `Finds the most relevant Waldur API endpoint for a given query.

NOTE:
- Use short, action-based phrases (not full sentences).
- Avoid long descriptive text.

Recognized Entities:
The following are the main entities in the API schema. Use them as targets when interpreting the query.
Try to leave s at the end as some are plural and some singular; if you keep s at the end then you might miss some:
- customers
- projects
- users
- marketplace
- marketplace-orders
- marketplace-resource
- marketplace-plans
- marketplace-service-providers
- marketplace-provider-offerings
- marketplace-offering-permissions
- user-invitations
- roles
- support
- billing

Example queries (use these styles):
- "add user to project"
- "create marketplace-offering"
- "delete customer"
- "list support requests"
- "update user roles"
- "terminate marketplace-resources"

Avoid full sentences like:
- "get all users with detailed information"
- "I want to register a new service provider"`,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Short, keyword-rich phrase (e.g., 'add user to project')",
				},
				"method": map[string]any{
					"type":        "string",
					"description": "HTTP method ('GET', 'POST', 'PATCH', 'DELETE')",
				},
				"target_entity": map[string]any{
					"type":        "string",
					"description": "Entity like 'customers', 'projects', etc.",
				},
			},
			Required: []string{"query", "method", "target_entity"},
		},
	}, h.retrieveAPIEndpoint)
}

// retrieveAPIEndpoint runs the two-stage retrieval pipeline: semantic
// recall over the embedded schema, then strict verb + entity filtering.
func (h *Handler) retrieveAPIEndpoint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Query        string `json:"query"`
		Method       string `json:"method"`
		TargetEntity string `json:"target_entity"`
	}{}

	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}

	response, err := h.retriever.Retrieve(ctx, args.Query, args.Method, args.TargetEntity)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to retrieve API endpoints: %v", err)), nil
	}

	return mcp.NewToolResultStructuredOnly(response), nil
}
