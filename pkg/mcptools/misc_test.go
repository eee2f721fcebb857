package mcptools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferHTTPMethod(t *testing.T) {
	t.Parallel()

	h := NewHandler(nil, nil, nil)

	tests := []struct {
		name  string
		query string
		want  map[string]any
	}{
		{name: "create", query: "Create a new project", want: map[string]any{"method": "POST"}},
		{name: "invite", query: "invite Emma to the project", want: map[string]any{"method": "POST"}},
		{name: "update", query: "update the project name", want: map[string]any{"method": "PATCH"}},
		{name: "remove", query: "remove this user", want: map[string]any{"method": "DELETE"}},
		{name: "list", query: "list all customers", want: map[string]any{"method": "GET"}},
		{name: "empty", query: "", want: map[string]any{"error": "Empty query provided."}},
		{name: "no match", query: "hello there", want: map[string]any{"error": "Could not infer HTTP method from query."}},
		{name: "first table wins", query: "add user and remove old one", want: map[string]any{"method": "POST"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result, err := h.inferHTTPMethod(context.Background(), callRequest(map[string]any{"query": tt.query}))
			require.NoError(t, err)
			assert.Equal(t, tt.want, structuredResult(t, result))
		})
	}
}

func TestGreetUser(t *testing.T) {
	t.Parallel()

	h := NewHandler(nil, nil, nil)
	result, err := h.greetUser(context.Background(), callRequest(map[string]any{
		"user_query": "add Emma to my project",
	}))
	require.NoError(t, err)

	structured := structuredResult(t, result)
	assert.Equal(t, "elicitation/create", structured["type"])
	params := structured["params"].(map[string]any)
	assert.Contains(t, params["message"], "'add Emma to my project'")
}

func TestCheckQueryType(t *testing.T) {
	t.Parallel()

	h := NewHandler(nil, nil, nil)

	// Missing type elicits the choice from the user.
	result, err := h.checkQueryType(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, "elicitation/create", structuredResult(t, result)["type"])

	result, err = h.checkQueryType(context.Background(), callRequest(map[string]any{"query_type": "READ-ONLY"}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"query_type": "READ-ONLY"}, structuredResult(t, result))

	result, err = h.checkQueryType(context.Background(), callRequest(map[string]any{"query_type": "read-only"}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"error": "Invalid choice. Please type READ-ONLY or READ-WRITE."},
		structuredResult(t, result))
}
