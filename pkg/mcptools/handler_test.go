package mcptools

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/waldur"
)

func callRequest(args map[string]any) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	return request
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func structuredResult(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	structured, ok := result.StructuredContent.(map[string]any)
	require.True(t, ok, "expected structured map content, got %T", result.StructuredContent)
	return structured
}

func TestStatusCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 403, statusCode(&waldur.StatusError{Code: 403}))
	assert.Equal(t, 404, statusCode(fmt.Errorf("wrapped: %w", &waldur.StatusError{Code: 404})))
	assert.Equal(t, 0, statusCode(errors.New("connection refused")))
	assert.Equal(t, 0, statusCode(nil))
}

func TestElicitationShape(t *testing.T) {
	t.Parallel()

	got := elicitation("Which customer?", "customer", "The customer name")
	assert.Equal(t, "elicitation/create", got["type"])

	params, ok := got["params"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Which customer?", params["message"])

	schema, ok := params["requestedSchema"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"customer"}, schema["required"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	field, ok := props["customer"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "The customer name", field["description"])
}

func TestIntentSchema(t *testing.T) {
	t.Parallel()

	schema := intentSchema(nil)
	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, []string{"parsed_intent"}, schema.Required)
	assert.Contains(t, schema.Properties, "parsed_intent")

	extended := intentSchema(map[string]any{
		"confirm": map[string]any{"type": "string"},
	}, "confirm")
	assert.Equal(t, []string{"parsed_intent", "confirm"}, extended.Required)
	assert.Contains(t, extended.Properties, "confirm")
	assert.Contains(t, extended.Properties, "parsed_intent")
}
