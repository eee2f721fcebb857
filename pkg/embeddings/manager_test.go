package embeddings

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholderBackend_Deterministic(t *testing.T) {
	t.Parallel()

	backend := NewPlaceholderBackend(16)

	first, err := backend.Embed("create project")
	require.NoError(t, err)
	second, err := backend.Embed("create project")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 16)

	other, err := backend.Embed("delete customer")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestPlaceholderBackend_EmbedBatch(t *testing.T) {
	t.Parallel()

	backend := NewPlaceholderBackend(8)
	vecs, err := backend.EmbedBatch([]string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	single, err := backend.Embed("a")
	require.NoError(t, err)
	assert.Equal(t, single, vecs[0])
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	vec := []float32{3, 4}
	Normalize(vec)

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
	assert.InDelta(t, 0.6, float64(vec[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(vec[1]), 1e-6)
}

func TestNormalize_ZeroVector(t *testing.T) {
	t.Parallel()

	vec := []float32{0, 0, 0}
	Normalize(vec)
	assert.Equal(t, []float32{0, 0, 0}, vec)
}

func TestManager_GeneratesNormalizedEmbeddings(t *testing.T) {
	t.Parallel()

	manager, err := NewManager(&Config{BackendType: BackendTypePlaceholder, Dimension: 16})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	vecs, err := manager.GenerateEmbedding([]string{"create project", "delete customer"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	for _, vec := range vecs {
		var sum float64
		for _, v := range vec {
			sum += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
	}
}

func TestManager_EmptyInput(t *testing.T) {
	t.Parallel()

	manager, err := NewManager(&Config{BackendType: BackendTypePlaceholder, Dimension: 16})
	require.NoError(t, err)

	_, err = manager.GenerateEmbedding(nil)
	assert.Error(t, err)
}

func TestManager_CacheHits(t *testing.T) {
	t.Parallel()

	manager, err := NewManager(&Config{
		BackendType: BackendTypePlaceholder,
		Dimension:   16,
		EnableCache: true,
	})
	require.NoError(t, err)

	first, err := manager.GenerateEmbedding([]string{"create project"})
	require.NoError(t, err)
	second, err := manager.GenerateEmbedding([]string{"create project"})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stats := manager.CacheStats()
	assert.Equal(t, true, stats["enabled"])
	assert.Equal(t, 1, stats["hits"])
	assert.Equal(t, 1, stats["misses"])
}

func TestManager_UnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := NewManager(&Config{BackendType: "bogus"})
	assert.Error(t, err)
}

func TestManager_DefaultsToPlaceholder(t *testing.T) {
	t.Parallel()

	manager, err := NewManager(&Config{})
	require.NoError(t, err)
	assert.Equal(t, 768, manager.Dimension())
}
