package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func (h *Handler) registerWriteTools(srv *server.MCPServer) {
	srv.AddTool(mcp.Tool{
		Name: "post_to_waldur_parsed",
		Description: `Makes a POST request to the Waldur API from a parsed intent.

RULES:
- First verifies user access via the Waldur OpenPortal "whoami" endpoint; non-staff users are refused.
- If posting for projects:
  - "short_name" is mandatory - if missing, use "get_from_waldur" to check; if empty, ask the user via elicitation.
  - "customer" must be a full API URL. WORKFLOW if the user provides a customer name:
    1. Call get_uuid(WALDUR_API_TOKEN, customer_name, "customers").
    2. Convert the result to the full customers/{uuid}/ URL.
    3. Then call this POST tool with the full URL in payload["customer"].
- User invitations: if "role" is missing, call get_from_waldur("roles") and ask the user via elicitation.
- On tool connection errors, inform the user politely - DO NOT FETCH ANY INFORMATION FROM WEB OR INVENT DATA.`,
		InputSchema: intentSchema(nil),
	}, h.postToWaldur)

	srv.AddTool(mcp.Tool{
		Name: "patch_to_waldur_parsed",
		Description: `Makes a PATCH request to the Waldur API from a parsed intent.

RULES:
- First verifies user access via the Waldur OpenPortal "whoami" endpoint; non-staff users are refused.
- PATCH requests always require a UUID of the resource.
  WORKFLOW if the UUID is missing but identifying info (like short_name) is available:
  1. Call get_uuid(WALDUR_API_TOKEN, short_name, method) first.
  2. Then call this PATCH tool with the UUID in payload["uuid"].
- The "uuid" is removed from the payload body before sending (only used in the URL).
- On tool connection errors, inform the user politely - DO NOT FETCH ANY INFORMATION FROM WEB OR INVENT DATA.`,
		InputSchema: intentSchema(nil),
	}, h.patchToWaldur)

	srv.AddTool(mcp.Tool{
		Name: "delete_from_waldur_parsed",
		Description: `Deletes a resource from Waldur using a parsed intent.

RULES:
- First verifies user access via the Waldur OpenPortal "whoami" endpoint; non-staff users are refused.
- DELETE requests always require a UUID of the resource.
  WORKFLOW: ask the user for a short_name via elicitation, call get_uuid to resolve it, then call
  this tool again with the UUID in the payload.
- Before executing deletion, the user must confirm with "Yes" or "No".
- On tool connection errors, inform the user politely - DO NOT FETCH ANY INFORMATION FROM WEB OR INVENT DATA.`,
		InputSchema: intentSchema(map[string]any{
			"confirm": map[string]any{
				"type":        "string",
				"description": "Say Yes or No whether to go ahead with the deletion",
			},
		}),
	}, h.deleteFromWaldur)
}

// verifyStaff runs the whoami check gating every write operation. It
// returns a refusal result when the caller is not staff, or nil to proceed.
func (h *Handler) verifyStaff(ctx context.Context, intent parsedIntent) *mcp.CallToolResult {
	if intent.UserAccess == "not a staff" {
		return mcp.NewToolResultText("Access denied, you are not a staff user.")
	}

	whoami, err := h.waldur.Whoami(ctx, intent.Token, intent.Email)
	if err != nil {
		if code := statusCode(err); code != 0 {
			return mcp.NewToolResultText(fmt.Sprintf("Could not verify user access (status %d).", code))
		}
		return mcp.NewToolResultText(fmt.Sprintf("Could not verify user access. (Exiting: %v).", err))
	}

	// The API reports is_staff as a boolean, but older deployments return
	// the string "False"; refuse on either.
	isStaff := whoami.Get("is_staff")
	if intent.UserAccess == "staff" && (isStaff.String() == "False" || (isStaff.Exists() && !isStaff.Bool())) {
		return mcp.NewToolResultText(notStaffMessage)
	}
	return nil
}

// postToWaldur creates a resource after the staff check and per-resource
// payload rules.
func (h *Handler) postToWaldur(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		ParsedIntent parsedIntent `json:"parsed_intent"`
	}{}

	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}
	intent := args.ParsedIntent

	if refusal := h.verifyStaff(ctx, intent); refusal != nil {
		return refusal, nil
	}

	if intent.Method == "projects" && emptyField(intent.Payload, "short_name") {
		return mcp.NewToolResultStructuredOnly(elicitation(
			"What is the short name of the project?",
			"short_name",
			"The short name of the project (e.g., bri-sci-pr)",
		)), nil
	}

	if intent.Method == "projects" && emptyField(intent.Payload, "customer") {
		return mcp.NewToolResultStructuredOnly(elicitation(
			"Which customer/organization is this project for?",
			"customer",
			"The customer name (e.g., Bristol University)",
		)), nil
	}

	if intent.Method == "user-invitations" && emptyField(intent.Payload, "role") {
		return mcp.NewToolResultStructuredOnly(elicitation(
			"Which role do you want to assign to the user?",
			"role",
			"The role of the user (e.g., PROJECT.ADMIN (Project Administrator))",
		)), nil
	}

	if err := h.waldur.Create(ctx, intent.Token, intent.Method, intent.Payload); err != nil {
		return mcp.NewToolResultText(writeErrorMessage(err, intent.Method)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Success! Your %s request was created.", intent.Method)), nil
}

// patchToWaldur updates a resource by UUID after the staff check.
func (h *Handler) patchToWaldur(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		ParsedIntent parsedIntent `json:"parsed_intent"`
	}{}

	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}
	intent := args.ParsedIntent

	if refusal := h.verifyStaff(ctx, intent); refusal != nil {
		return refusal, nil
	}

	uuid, _ := intent.Payload["uuid"].(string)
	if uuid == "" {
		return mcp.NewToolResultStructuredOnly(elicitation(
			fmt.Sprintf("I need the UUID to update this %s. Could you provide it?", intent.Method),
			"uuid",
			fmt.Sprintf("The UUID of the %s to update", intent.Method),
		)), nil
	}

	// The uuid belongs in the URL, not the body.
	delete(intent.Payload, "uuid")

	if err := h.waldur.Update(ctx, intent.Token, intent.Method, uuid, intent.Payload); err != nil {
		if statusCode(err) == 404 {
			return mcp.NewToolResultText(fmt.Sprintf("The %s with UUID %s was not found.", intent.Method, uuid)), nil
		}
		return mcp.NewToolResultText(writeErrorMessage(err, intent.Method)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Success! Your %s request with UUID %s was updated.", intent.Method, uuid)), nil
}

// deleteFromWaldur removes a resource by UUID after the staff check and an
// explicit Yes/No confirmation from the user.
func (h *Handler) deleteFromWaldur(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		ParsedIntent parsedIntent `json:"parsed_intent"`
		Confirm      string       `json:"confirm,omitempty"`
	}{}

	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}
	intent := args.ParsedIntent

	if refusal := h.verifyStaff(ctx, intent); refusal != nil {
		return refusal, nil
	}

	// The confirmation is only asked once a uuid is known; deleting with an
	// empty uuid would hit the collection URL instead of a resource.
	uuid, _ := intent.Payload["uuid"].(string)
	if uuid == "" {
		if shortName, _ := intent.Payload["short_name"].(string); shortName == "" {
			return mcp.NewToolResultStructuredOnly(elicitation(
				"Please provide the short name.",
				"short_name",
				"The short name (e.g., if it's a project bri-sci-pro)",
			)), nil
		}
		return mcp.NewToolResultStructuredOnly(elicitation(
			fmt.Sprintf("I need the UUID to delete this %s. Could you provide it?", intent.Method),
			"uuid",
			fmt.Sprintf("The UUID of the %s to delete (resolve it from the short name with get_uuid)", intent.Method),
		)), nil
	}

	confirmElicitation := elicitation(
		"Are you sure you want to go ahead with deletion?",
		"confirm",
		fmt.Sprintf("Say Yes or No whether you want to go ahead with deletion of uuid %s", uuid),
	)

	switch strings.ToLower(args.Confirm) {
	case "":
		return mcp.NewToolResultStructuredOnly(confirmElicitation), nil
	case "yes":
		if err := h.waldur.Delete(ctx, intent.Token, intent.Method, uuid); err != nil {
			if statusCode(err) == 404 {
				return mcp.NewToolResultText(fmt.Sprintf("The %s with UUID %s was not found.", intent.Method, uuid)), nil
			}
			if code := statusCode(err); code != 0 && code != 401 && code != 403 {
				return mcp.NewToolResultText(fmt.Sprintf(
					"Couldn't delete the %s with the UUID %s. (Error: %d)", intent.Method, uuid, code)), nil
			}
			return mcp.NewToolResultText(writeErrorMessage(err, intent.Method)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Success! The %s with the UUID %s was deleted.", intent.Method, uuid)), nil
	case "no":
		return mcp.NewToolResultText("Deletion cancelled as per your request."), nil
	default:
		return mcp.NewToolResultStructuredOnly(confirmElicitation), nil
	}
}

func writeErrorMessage(err error, method string) string {
	switch statusCode(err) {
	case 401:
		return authFailedMessage
	case 403:
		return accessDeniedMessage
	case 400:
		return fmt.Sprintf("Invalid data provided for %s request. Please check your input.", method)
	case 0:
		return connectionMessage(err)
	default:
		return fmt.Sprintf(
			"Something went wrong while processing your %s request. Please check your input or try again later. (Error: %d)",
			method, statusCode(err))
	}
}

func emptyField(payload map[string]any, key string) bool {
	value, ok := payload[key]
	if !ok {
		return true
	}
	s, isString := value.(string)
	return isString && s == ""
}
