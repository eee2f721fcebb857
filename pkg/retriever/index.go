package retriever

import (
	"encoding/gob"
	"fmt"
	"os"
	"sort"
)

// NoMatchSlot is the sentinel slot returned when the index holds fewer
// vectors than the requested neighbor count.
const NoMatchSlot = -1

// Hit is one nearest-neighbor search result: the positional slot of the
// matched vector and its squared Euclidean distance to the query.
type Hit struct {
	Slot     int
	Distance float32
}

// FlatIndex is an exact-search nearest-neighbor index over fixed-dimension
// vectors. It owns no chunk data; the embedded-chunk list maps slots back to
// chunks and must stay positionally aligned with the index across save/load
// cycles. The index is immutable after Add and safe for concurrent searches.
type FlatIndex struct {
	Dimension int
	Vectors   [][]float32
}

// NewFlatIndex creates an empty index for vectors of the given dimension.
func NewFlatIndex(dimension int) *FlatIndex {
	return &FlatIndex{Dimension: dimension}
}

// Add appends vectors to the index in order.
func (idx *FlatIndex) Add(vectors ...[]float32) error {
	for _, vec := range vectors {
		if len(vec) != idx.Dimension {
			return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vec), idx.Dimension)
		}
		idx.Vectors = append(idx.Vectors, vec)
	}
	return nil
}

// Count returns the number of indexed vectors.
func (idx *FlatIndex) Count() int {
	return len(idx.Vectors)
}

// Search returns the k nearest neighbors of the query by squared Euclidean
// distance, best first. When fewer than k vectors exist, the tail is padded
// with NoMatchSlot sentinels so the result always has length k.
func (idx *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(query) != idx.Dimension {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), idx.Dimension)
	}

	hits := make([]Hit, 0, len(idx.Vectors))
	for slot, vec := range idx.Vectors {
		hits = append(hits, Hit{Slot: slot, Distance: squaredL2(query, vec)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	for len(hits) < k {
		hits = append(hits, Hit{Slot: NoMatchSlot})
	}
	return hits, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// WriteFile persists the index to path in gob encoding.
func (idx *FlatIndex) WriteFile(path string) error {
	f, err := os.Create(path) // #nosec G304 - path comes from app config
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(idx); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	return nil
}

// ReadIndexFile loads a persisted index from path.
func ReadIndexFile(path string) (*FlatIndex, error) {
	f, err := os.Open(path) // #nosec G304 - path comes from app config
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()

	var idx FlatIndex
	if err := gob.NewDecoder(f).Decode(&idx); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	return &idx, nil
}
