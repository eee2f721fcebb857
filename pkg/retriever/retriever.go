package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/embeddings"
	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/logger"
)

const (
	// DefaultK is the recall-stage candidate count. Generous on purpose:
	// the verb+entity filter is strict and would over-prune a small
	// candidate set.
	DefaultK = 20

	// DefaultMaxResults bounds the final result list.
	DefaultMaxResults = 10

	// maxConcurrentEmbeds bounds how many query embeddings run at once so
	// model inference cannot stall every concurrent caller.
	maxConcurrentEmbeds = 4
)

// Options configures a Retriever.
type Options struct {
	// SchemaURL is where the OpenAPI schema is fetched from on a cache miss.
	SchemaURL string

	// CacheDir holds the cached schema and the derived artifacts.
	CacheDir string

	// K is the recall-stage candidate count (default DefaultK).
	K int

	// MaxResults bounds the final result list (default DefaultMaxResults).
	MaxResults int
}

// Retriever owns all retrieval state: the synthesized chunks, their
// embeddings, and the nearest-neighbor index. State is built lazily exactly
// once and is read-only afterwards; concurrent cold-start calls share a
// single build via singleflight.
type Retriever struct {
	opts     Options
	embedder *embeddings.Manager

	buildGroup singleflight.Group
	embedSem   *semaphore.Weighted

	mu       sync.RWMutex
	chunks   []Chunk
	embedded []EmbeddedChunk
	index    *FlatIndex
}

// New creates a Retriever. The embedding manager must use the same backend
// for index builds and queries; mixing embedding functions across a
// persisted index and a new query silently degrades relevance.
func New(opts Options, embedder *embeddings.Manager) *Retriever {
	if opts.SchemaURL == "" {
		opts.SchemaURL = DefaultSchemaURL
	}
	if opts.K <= 0 {
		opts.K = DefaultK
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	return &Retriever{
		opts:     opts,
		embedder: embedder,
		embedSem: semaphore.NewWeighted(maxConcurrentEmbeds),
	}
}

// Retrieve finds the endpoints most relevant to a short natural-language
// query, then filters them by HTTP verb and target entity. An empty result
// set is a normal outcome and is reported through Response.Message;
// ErrSchemaUnavailable and ErrEmbeddingFailure propagate as errors.
func (r *Retriever) Retrieve(ctx context.Context, query, verb, targetEntity string) (*Response, error) {
	if err := r.ensureReady(ctx); err != nil {
		return nil, err
	}

	candidates, err := r.recall(ctx, query, r.opts.K)
	if err != nil {
		return nil, err
	}

	results := filterResults(candidates, verb, targetEntity, r.opts.MaxResults)
	if len(results) == 0 {
		return &Response{
			Query:   query,
			Results: []Result{},
			Message: fmt.Sprintf("No relevant API endpoint found for: '%s'. Try simplifying the query.", query),
		}, nil
	}
	return &Response{Query: query, Results: results}, nil
}

// ensureReady builds or loads the chunks, embeddings, and index exactly
// once. On failure nothing is cached, so the next call retries the build.
func (r *Retriever) ensureReady(ctx context.Context) error {
	r.mu.RLock()
	ready := r.index != nil
	r.mu.RUnlock()
	if ready {
		return nil
	}

	_, err, _ := r.buildGroup.Do("build", func() (any, error) {
		// Re-check under the build lock: a concurrent caller may have
		// finished the build while this one waited.
		r.mu.RLock()
		ready := r.index != nil
		r.mu.RUnlock()
		if ready {
			return nil, nil
		}
		return nil, r.buildOrLoad(ctx)
	})
	return err
}

// buildOrLoad populates the retriever state from the cache when the
// persisted artifacts match the current schema snapshot, or embeds every
// chunk and builds a fresh index otherwise.
func (r *Retriever) buildOrLoad(ctx context.Context) error {
	defs, schemaBytes, err := LoadSchema(ctx, r.opts.SchemaURL, r.opts.CacheDir)
	if err != nil {
		return err
	}
	chunks := SynthesizeChunks(defs)
	hash := schemaHash(schemaBytes)

	if idx, embedded, ok := loadArtifacts(r.opts.CacheDir, hash); ok {
		logger.Infof("Loaded %d embedded chunks and index from cache", len(embedded))
		r.install(chunks, embedded, idx)
		return nil
	}

	if len(chunks) == 0 {
		return fmt.Errorf("%w: schema contains no recognized endpoints", ErrSchemaUnavailable)
	}

	logger.Infof("Embedding %d chunks (this runs once per schema snapshot)", len(chunks))
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.EmbeddingText
	}
	vectors, err := r.embedder.GenerateEmbedding(texts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmbeddingFailure, err)
	}

	embedded := make([]EmbeddedChunk, len(chunks))
	for i, chunk := range chunks {
		embedded[i] = EmbeddedChunk{Chunk: chunk, Embedding: vectors[i]}
	}

	idx := NewFlatIndex(len(vectors[0]))
	if err := idx.Add(vectors...); err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	if err := saveArtifacts(r.opts.CacheDir, idx, embedded, hash); err != nil {
		return err
	}

	r.install(chunks, embedded, idx)
	return nil
}

func (r *Retriever) install(chunks []Chunk, embedded []EmbeddedChunk, idx *FlatIndex) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = chunks
	r.embedded = embedded
	r.index = idx
}

// recall embeds the query and returns up to k candidates by semantic
// distance, best first. Sentinel slots from an underfilled index are
// dropped here.
func (r *Retriever) recall(ctx context.Context, query string, k int) ([]Result, error) {
	queryVec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	idx := r.index
	embedded := r.embedded
	r.mu.RUnlock()

	hits, err := idx.Search(queryVec, k)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		if hit.Slot == NoMatchSlot {
			continue
		}
		chunk := embedded[hit.Slot].Chunk
		results = append(results, Result{
			Path:        chunk.Path,
			Verb:        chunk.Verb,
			Description: chunk.Description,
			Score:       float64(hit.Distance),
		})
	}
	return results, nil
}

// embedQuery runs the embedding computation off the caller's path, bounded
// by a weighted semaphore so a burst of queries cannot serialize every
// concurrent caller behind model inference. The caller suspends on the
// result channel rather than busy-waiting.
func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if err := r.embedSem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailure, err)
	}

	type embedResult struct {
		vec []float32
		err error
	}
	ch := make(chan embedResult, 1)

	go func() {
		defer r.embedSem.Release(1)
		vecs, err := r.embedder.GenerateEmbedding([]string{query})
		if err != nil {
			ch <- embedResult{err: err}
			return
		}
		ch <- embedResult{vec: vecs[0]}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailure, ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailure, res.err)
		}
		return res.vec, nil
	}
}

// filterResults keeps candidates whose verb matches exactly
// (case-insensitive) and whose path contains the target entity preceded by a
// path separator, then sorts ascending by score and truncates. The entity
// match is a deliberate substring check, not segment-exact: "project"
// matches "/api/projects/". Callers are documented to drop trailing plurals
// when unsure.
func filterResults(candidates []Result, verb, targetEntity string, maxResults int) []Result {
	verb = strings.ToLower(verb)
	needle := "/" + strings.ToLower(targetEntity)

	kept := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		if strings.ToLower(c.Verb) != verb {
			continue
		}
		if !strings.Contains(strings.ToLower(c.Path), needle) {
			continue
		}
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score < kept[j].Score
	})

	if len(kept) > maxResults {
		kept = kept[:maxResults]
	}
	return kept
}
