package mcptools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/embeddings"
	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/retriever"
)

const retrieveTestSchema = `openapi: 3.0.0
paths:
  /api/projects/:
    get:
      summary: List projects
      description: Lists all projects.
    post:
      summary: Create project
      description: Creates a new project.
`

func newRetrieveHandler(t *testing.T) *Handler {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, retrieveTestSchema)
	}))
	t.Cleanup(srv.Close)

	embedder, err := embeddings.NewManager(&embeddings.Config{
		BackendType: embeddings.BackendTypePlaceholder,
		Dimension:   32,
	})
	require.NoError(t, err)

	ret := retriever.New(retriever.Options{SchemaURL: srv.URL, CacheDir: t.TempDir()}, embedder)
	return NewHandler(nil, ret, nil)
}

func TestRetrieveAPIEndpoint(t *testing.T) {
	t.Parallel()

	h := newRetrieveHandler(t)
	result, err := h.retrieveAPIEndpoint(context.Background(), callRequest(map[string]any{
		"query":         "create project",
		"method":        "POST",
		"target_entity": "projects",
	}))
	require.NoError(t, err)

	response, ok := result.StructuredContent.(*retriever.Response)
	require.True(t, ok, "expected retriever response, got %T", result.StructuredContent)
	require.Len(t, response.Results, 1)
	assert.Equal(t, "/api/projects/", response.Results[0].Path)
	assert.Equal(t, "POST", response.Results[0].Verb)
}

func TestRetrieveAPIEndpoint_NoMatch(t *testing.T) {
	t.Parallel()

	h := newRetrieveHandler(t)
	result, err := h.retrieveAPIEndpoint(context.Background(), callRequest(map[string]any{
		"query":         "list zebras",
		"method":        "GET",
		"target_entity": "zebras",
	}))
	require.NoError(t, err)

	response, ok := result.StructuredContent.(*retriever.Response)
	require.True(t, ok)
	assert.Empty(t, response.Results)
	assert.NotEmpty(t, response.Message)
}
