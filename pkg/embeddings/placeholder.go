package embeddings

// PlaceholderBackend is a deterministic hash-based backend for testing.
// It produces stable vectors for a given text without any model inference.
type PlaceholderBackend struct {
	dimension int
}

// NewPlaceholderBackend creates a placeholder backend with the given dimension.
func NewPlaceholderBackend(dimension int) *PlaceholderBackend {
	return &PlaceholderBackend{dimension: dimension}
}

// Embed generates a deterministic hash-based embedding for the given text.
func (p *PlaceholderBackend) Embed(text string) ([]float32, error) {
	return p.generate(text), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (p *PlaceholderBackend) EmbedBatch(texts []string) ([][]float32, error) {
	embedded := make([][]float32, len(texts))
	for i, text := range texts {
		embedded[i] = p.generate(text)
	}
	return embedded, nil
}

// Dimension returns the embedding dimension.
func (p *PlaceholderBackend) Dimension() int {
	return p.dimension
}

// Close closes the backend (no-op for placeholder).
func (*PlaceholderBackend) Close() error {
	return nil
}

func (p *PlaceholderBackend) generate(text string) []float32 {
	embedding := make([]float32, p.dimension)

	hash := 0
	for _, c := range text {
		hash = (hash*31 + int(c)) % 1000000
	}

	for i := range embedding {
		hash = (hash*1103515245 + 12345) % 1000000
		embedding[i] = float32(hash) / 1000000.0
	}

	return embedding
}
