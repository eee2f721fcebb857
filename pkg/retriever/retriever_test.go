package retriever

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/embeddings"
)

func newTestEmbedder(t *testing.T) *embeddings.Manager {
	t.Helper()
	manager, err := embeddings.NewManager(&embeddings.Config{
		BackendType: embeddings.BackendTypePlaceholder,
		Dimension:   32,
	})
	require.NoError(t, err)
	return manager
}

func newSchemaServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		_, _ = w.Write([]byte(testSchema))
	}))
	t.Cleanup(srv.Close)
	return srv, &fetches
}

func TestRetrieve_FiltersByVerbAndEntity(t *testing.T) {
	t.Parallel()

	srv, _ := newSchemaServer(t)
	r := New(Options{SchemaURL: srv.URL, CacheDir: t.TempDir()}, newTestEmbedder(t))

	resp, err := r.Retrieve(context.Background(), "create project", "POST", "projects")
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "/api/projects/", resp.Results[0].Path)
	assert.Equal(t, "POST", resp.Results[0].Verb)
	assert.Empty(t, resp.Message)
}

func TestRetrieve_LooseEntityMatch(t *testing.T) {
	t.Parallel()

	srv, _ := newSchemaServer(t)
	r := New(Options{SchemaURL: srv.URL, CacheDir: t.TempDir()}, newTestEmbedder(t))

	// A singular entity matches its plural path: the check is a substring
	// match after a path separator, not segment-exact.
	resp, err := r.Retrieve(context.Background(), "list projects", "GET", "project")
	require.NoError(t, err)
	paths := make([]string, 0, len(resp.Results))
	for _, res := range resp.Results {
		paths = append(paths, res.Path)
	}
	assert.Contains(t, paths, "/api/projects/")

	// The separator requirement keeps hyphenated resources separate:
	// "projects" does not match "/api/user-projects/".
	resp, err = r.Retrieve(context.Background(), "list projects", "GET", "projects")
	require.NoError(t, err)
	paths = paths[:0]
	for _, res := range resp.Results {
		paths = append(paths, res.Path)
	}
	assert.Contains(t, paths, "/api/projects/")
	assert.NotContains(t, paths, "/api/user-projects/")

	resp, err = r.Retrieve(context.Background(), "list user projects", "GET", "user-projects")
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "/api/user-projects/", resp.Results[0].Path)
}

func TestRetrieve_NoMatchMessage(t *testing.T) {
	t.Parallel()

	srv, _ := newSchemaServer(t)
	r := New(Options{SchemaURL: srv.URL, CacheDir: t.TempDir()}, newTestEmbedder(t))

	resp, err := r.Retrieve(context.Background(), "list zebras", "GET", "zebras")
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Equal(t, "No relevant API endpoint found for: 'list zebras'. Try simplifying the query.", resp.Message)
}

func TestRetrieve_ResultsSortedByScore(t *testing.T) {
	t.Parallel()

	srv, _ := newSchemaServer(t)
	r := New(Options{SchemaURL: srv.URL, CacheDir: t.TempDir()}, newTestEmbedder(t))

	resp, err := r.Retrieve(context.Background(), "list projects", "GET", "projects")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	for i := 1; i < len(resp.Results); i++ {
		assert.LessOrEqual(t, resp.Results[i-1].Score, resp.Results[i].Score)
	}
}

func TestRetrieve_ConcurrentColdStartBuildsOnce(t *testing.T) {
	t.Parallel()

	srv, fetches := newSchemaServer(t)
	r := New(Options{SchemaURL: srv.URL, CacheDir: t.TempDir()}, newTestEmbedder(t))

	var group errgroup.Group
	for i := 0; i < 8; i++ {
		group.Go(func() error {
			_, err := r.Retrieve(context.Background(), "create project", "POST", "projects")
			return err
		})
	}
	require.NoError(t, group.Wait())
	assert.Equal(t, int32(1), fetches.Load())
}

func TestRetrieve_CacheReusedAcrossInstances(t *testing.T) {
	t.Parallel()

	srv, fetches := newSchemaServer(t)
	cacheDir := t.TempDir()

	first := New(Options{SchemaURL: srv.URL, CacheDir: cacheDir}, newTestEmbedder(t))
	_, err := first.Retrieve(context.Background(), "create project", "POST", "projects")
	require.NoError(t, err)
	require.Equal(t, int32(1), fetches.Load())

	// A fresh instance with the same cache dir loads everything from disk.
	second := New(Options{SchemaURL: srv.URL, CacheDir: cacheDir}, newTestEmbedder(t))
	resp, err := second.Retrieve(context.Background(), "create project", "POST", "projects")
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, int32(1), fetches.Load())
}

func TestRetrieve_RebuildOnHashMismatch(t *testing.T) {
	t.Parallel()

	srv, _ := newSchemaServer(t)
	cacheDir := t.TempDir()

	first := New(Options{SchemaURL: srv.URL, CacheDir: cacheDir}, newTestEmbedder(t))
	_, err := first.Retrieve(context.Background(), "create project", "POST", "projects")
	require.NoError(t, err)

	// Corrupt the hash stamp. The next instance must rebuild instead of
	// serving the stale artifacts.
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, schemaHashFile), []byte("stale"), 0600))

	second := New(Options{SchemaURL: srv.URL, CacheDir: cacheDir}, newTestEmbedder(t))
	resp, err := second.Retrieve(context.Background(), "create project", "POST", "projects")
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	stamp, err := os.ReadFile(filepath.Join(cacheDir, schemaHashFile))
	require.NoError(t, err)
	assert.NotEqual(t, "stale", string(stamp))
}

func TestRetrieve_SchemaUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	r := New(Options{SchemaURL: srv.URL, CacheDir: t.TempDir()}, newTestEmbedder(t))
	_, err := r.Retrieve(context.Background(), "create project", "POST", "projects")
	assert.ErrorIs(t, err, ErrSchemaUnavailable)

	// A failed build leaves nothing cached, so a later call retries.
	_, err = r.Retrieve(context.Background(), "create project", "POST", "projects")
	assert.ErrorIs(t, err, ErrSchemaUnavailable)
}

func TestFilterResults(t *testing.T) {
	t.Parallel()

	candidates := []Result{
		{Path: "/api/projects/", Verb: "GET", Score: 0.3},
		{Path: "/api/projects/", Verb: "POST", Score: 0.1},
		{Path: "/api/projects/{uuid}/", Verb: "GET", Score: 0.2},
		{Path: "/api/user-projects/", Verb: "GET", Score: 0.25},
		{Path: "/api/customers/", Verb: "GET", Score: 0.05},
	}

	tests := []struct {
		name       string
		verb       string
		entity     string
		maxResults int
		wantPaths  []string
	}{
		{
			name:       "verb and entity match sorted by score",
			verb:       "get",
			entity:     "projects",
			maxResults: 10,
			wantPaths:  []string{"/api/projects/{uuid}/", "/api/projects/"},
		},
		{
			name:       "separator keeps hyphenated resources apart",
			verb:       "get",
			entity:     "user-projects",
			maxResults: 10,
			wantPaths:  []string{"/api/user-projects/"},
		},
		{
			name:       "verb is case-insensitive",
			verb:       "Post",
			entity:     "projects",
			maxResults: 10,
			wantPaths:  []string{"/api/projects/"},
		},
		{
			name:       "singular entity matches plural path",
			verb:       "get",
			entity:     "customer",
			maxResults: 10,
			wantPaths:  []string{"/api/customers/"},
		},
		{
			name:       "max results truncates",
			verb:       "get",
			entity:     "project",
			maxResults: 1,
			wantPaths:  []string{"/api/projects/{uuid}/"},
		},
		{
			name:       "no match",
			verb:       "delete",
			entity:     "projects",
			maxResults: 10,
			wantPaths:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := filterResults(candidates, tt.verb, tt.entity, tt.maxResults)
			paths := make([]string, 0, len(got))
			for _, res := range got {
				paths = append(paths, res.Path)
			}
			assert.Equal(t, tt.wantPaths, paths)
		})
	}
}
