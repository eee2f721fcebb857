// Package retriever implements semantic retrieval of Waldur API endpoints.
//
// The pipeline has four stages: the schema loader fetches (or reads from
// cache) the OpenAPI description, the chunk synthesizer turns each
// (path, verb) operation into a retrieval-ready text record, the vector
// index embeds those records and supports exact k-nearest-neighbor search,
// and the retrieval pipeline filters and ranks candidates for a query.
// Embeddings and the index are persisted under the cache directory together
// with a content hash of the schema so that a schema change forces a rebuild.
package retriever

import "errors"

var (
	// ErrSchemaUnavailable indicates the OpenAPI schema could not be
	// obtained from cache or network.
	ErrSchemaUnavailable = errors.New("api schema unavailable")

	// ErrEmbeddingFailure indicates the embedding computation failed.
	ErrEmbeddingFailure = errors.New("embedding computation failed")
)

// Parameter is one operation parameter as declared in the schema.
type Parameter struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// EndpointDefinition is one HTTP verb on one path, as declared in the
// OpenAPI document. Immutable once loaded.
type EndpointDefinition struct {
	Path        string      `json:"path"`
	Verb        string      `json:"verb"`
	Summary     string      `json:"summary"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
}

// Chunk is the retrieval unit derived 1:1 from an EndpointDefinition.
// EmbeddingText is a pure deterministic function of the definition and the
// static intent-keyword table.
type Chunk struct {
	Path          string      `json:"path"`
	Verb          string      `json:"verb"`
	Summary       string      `json:"summary"`
	Description   string      `json:"description"`
	Parameters    []Parameter `json:"parameters"`
	EntityHint    string      `json:"entity_hint"`
	EmbeddingText string      `json:"embedding_text"`
}

// EmbeddedChunk is a Chunk plus its embedding vector. The slice of embedded
// chunks is the source of truth for slot-to-chunk mapping and must stay
// positionally aligned with the persisted index.
type EmbeddedChunk struct {
	Chunk     Chunk     `json:"chunk"`
	Embedding []float32 `json:"embedding"`
}

// Result is one retrieved endpoint. Score is the squared Euclidean distance
// between the query and the chunk embedding; lower is more relevant.
type Result struct {
	Path        string  `json:"path"`
	Verb        string  `json:"method"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// Response is the retrieval tool response. Message is set exactly when
// Results is empty; an empty result set is a normal outcome, not an error.
type Response struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Message string   `json:"message,omitempty"`
}
