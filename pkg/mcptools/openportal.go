package mcptools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tidwall/gjson"
)

func (h *Handler) registerOpenPortalTools(srv *server.MCPServer) {
	srv.AddTool(mcp.Tool{
		Name: "get_project_short_name",
		Description: `Retrieves the short name of a project.

RULES:
- Use ONLY the given endpoint ("project_short_name").
- DO NOT try to fetch project data by any other means.
- Keep responses short and relevant.`,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"WALDUR_API_TOKEN": map[string]any{"type": "string", "description": "Waldur API token"},
				"project_name": map[string]any{
					"type":        "string",
					"description": "Project name (e.g., \"Maths research\")",
				},
				"customer_name": map[string]any{
					"type":        "string",
					"description": "Customer/organization name (e.g., \"Bangor University\")",
				},
			},
			Required: []string{"WALDUR_API_TOKEN", "project_name", "customer_name"},
		},
	}, h.getProjectShortName)

	srv.AddTool(mcp.Tool{
		Name: "get_customer_spend_info",
		Description: `Retrieves customer spending information from Waldur.

RULES:
- If customer is missing, request it from the user via elicitation.
- Use ONLY the given endpoint ("customer_spend_info").
- DO NOT try to fetch customer data by any other means.
- Keep responses short and relevant.`,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"WALDUR_API_TOKEN": map[string]any{"type": "string", "description": "Waldur API token"},
				"customer": map[string]any{
					"type":        "string",
					"description": "Customer name (e.g., \"Bristol University\")",
				},
			},
			Required: []string{"WALDUR_API_TOKEN"},
		},
	}, h.getCustomerSpendInfo)

	srv.AddTool(mcp.Tool{
		Name: "get_user_info",
		Description: `Retrieves user information in a human-friendly format.

RULES:
- Use ONLY the given URL endpoint ("whoami").
- DO NOT try to fetch user data by any other means.
- DO NOT provide more information than what this tool returns.
- Keep responses short and relevant.`,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"WALDUR_API_TOKEN": map[string]any{"type": "string", "description": "Waldur API token"},
				"email": map[string]any{
					"type":        "string",
					"description": "Email (e.g., \"nd@example.com\")",
				},
			},
			Required: []string{"WALDUR_API_TOKEN", "email"},
		},
	}, h.getUserInfo)

	srv.AddTool(mcp.Tool{
		Name: "get_project_users",
		Description: `Retrieves information about users in a given project.

RULES:
- Use ONLY the given URL endpoint ("list_project_users").
- DO NOT try to fetch project membership by any other means.
- DO NOT provide more information than what this tool returns.
- Keep responses short and relevant.`,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"WALDUR_API_TOKEN": map[string]any{"type": "string", "description": "Waldur API token"},
				"project_name": map[string]any{
					"type":        "string",
					"description": "Project name (e.g., \"Maths research\")",
				},
			},
			Required: []string{"WALDUR_API_TOKEN", "project_name"},
		},
	}, h.getProjectUsers)
}

func (h *Handler) getProjectShortName(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Token        string `json:"WALDUR_API_TOKEN"`
		ProjectName  string `json:"project_name"`
		CustomerName string `json:"customer_name"`
	}{}

	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}

	data, err := h.waldur.ProjectShortName(ctx, args.Token, args.ProjectName, args.CustomerName)
	if err != nil {
		switch statusCode(err) {
		case 401:
			return mcp.NewToolResultText(authFailedMessage), nil
		case 0:
			return mcp.NewToolResultText(fmt.Sprintf("Trouble connecting to the server: %v", err)), nil
		default:
			return mcp.NewToolResultText(fmt.Sprintf(
				"The project '%s' or customer '%s' does not exist.", args.ProjectName, args.CustomerName)), nil
		}
	}

	var values []string
	data.ForEach(func(_, value gjson.Result) bool {
		values = append(values, value.String())
		return true
	})
	return mcp.NewToolResultText(fmt.Sprintf(
		"Here is the shortname of the project %s in the organization %s: %v.",
		args.ProjectName, args.CustomerName, values)), nil
}

func (h *Handler) getCustomerSpendInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Token    string `json:"WALDUR_API_TOKEN"`
		Customer string `json:"customer,omitempty"`
	}{}

	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}

	if args.Customer == "" {
		return mcp.NewToolResultStructuredOnly(elicitation(
			"Which customer would you like spending info for?",
			"customer",
			"The name of the customer or institution (e.g., ABC University)",
		)), nil
	}

	data, err := h.waldur.CustomerSpendInfo(ctx, args.Token, args.Customer)
	if err != nil {
		switch statusCode(err) {
		case 401:
			return mcp.NewToolResultText(authFailedMessage), nil
		case 403:
			return mcp.NewToolResultText(accessDeniedMessage), nil
		case 404:
			return mcp.NewToolResultText(fmt.Sprintf("Customer '%s' not found.", args.Customer)), nil
		case 0:
			return mcp.NewToolResultText(fmt.Sprintf(
				"Problem connecting to the server. Please try again later. Error: %v", err)), nil
		default:
			return mcp.NewToolResultText(fmt.Sprintf("API returned status error: %d.", statusCode(err))), nil
		}
	}
	return mcp.NewToolResultText(data.Raw), nil
}

func (h *Handler) getUserInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Token string `json:"WALDUR_API_TOKEN"`
		Email string `json:"email"`
	}{}

	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}

	if args.Token == "" {
		return mcp.NewToolResultText("Missing Waldur API token."), nil
	}
	if args.Email == "" {
		return mcp.NewToolResultText("Missing required parameter: email."), nil
	}

	data, err := h.waldur.Whoami(ctx, args.Token, args.Email)
	if err != nil {
		switch statusCode(err) {
		case 401:
			return mcp.NewToolResultText(authFailedMessage), nil
		case 403:
			return mcp.NewToolResultText(accessDeniedMessage), nil
		case 404:
			return mcp.NewToolResultText("Resource not found."), nil
		case 0:
			return mcp.NewToolResultText(fmt.Sprintf("Trouble connecting to the server: %v", err)), nil
		default:
			return mcp.NewToolResultText(fmt.Sprintf("API returned status error: %d.", statusCode(err))), nil
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf("Here is the user information: %s.", data.Raw)), nil
}

func (h *Handler) getProjectUsers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Token       string `json:"WALDUR_API_TOKEN"`
		ProjectName string `json:"project_name"`
	}{}

	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}

	if args.Token == "" {
		return mcp.NewToolResultText("Missing Waldur API token."), nil
	}
	if args.ProjectName == "" {
		return mcp.NewToolResultText("Missing required parameter: project name."), nil
	}

	data, err := h.waldur.ProjectUsers(ctx, args.Token, args.ProjectName)
	if err != nil {
		switch statusCode(err) {
		case 401:
			return mcp.NewToolResultText("Invalid token."), nil
		case 0:
			return mcp.NewToolResultText(fmt.Sprintf("Trouble connecting to the server: %v", err)), nil
		default:
			return mcp.NewToolResultText(fmt.Sprintf(
				"Authentication failed. Please check your Waldur API token. Error: %d.", statusCode(err))), nil
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf("Here is the project users information: %s.", data.Raw)), nil
}
