package retriever

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/logger"
)

// Cache artifact file names under the cache directory. All three are
// derived and re-derivable; deleting them forces a full rebuild.
const (
	embeddedChunksFile = "embedded_chunks.json"
	indexFile          = "index.bin"
	schemaHashFile     = "schema.sha256"
)

// schemaHash returns the hex content hash used to tie cached artifacts to a
// specific schema snapshot.
func schemaHash(schemaBytes []byte) string {
	sum := sha256.Sum256(schemaBytes)
	return hex.EncodeToString(sum[:])
}

// loadArtifacts returns the persisted index and embedded chunks if both
// exist and were built from a schema with the given content hash. A hash
// mismatch means the schema changed since the artifacts were built; the
// caller must rebuild rather than silently serve stale results.
func loadArtifacts(cacheDir, wantHash string) (*FlatIndex, []EmbeddedChunk, bool) {
	storedHash, err := os.ReadFile(filepath.Join(cacheDir, schemaHashFile)) // #nosec G304
	if err != nil {
		return nil, nil, false
	}
	if string(storedHash) != wantHash {
		logger.Infof("Schema content hash changed; rebuilding embeddings and index")
		return nil, nil, false
	}

	idx, err := ReadIndexFile(filepath.Join(cacheDir, indexFile))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warnf("Failed to load cached index: %v", err)
		}
		return nil, nil, false
	}

	raw, err := os.ReadFile(filepath.Join(cacheDir, embeddedChunksFile)) // #nosec G304
	if err != nil {
		return nil, nil, false
	}
	var embedded []EmbeddedChunk
	if err := json.Unmarshal(raw, &embedded); err != nil {
		logger.Warnf("Failed to decode cached embedded chunks: %v", err)
		return nil, nil, false
	}

	if idx.Count() != len(embedded) {
		logger.Warnf("Cached index size %d does not match embedded chunk count %d; rebuilding",
			idx.Count(), len(embedded))
		return nil, nil, false
	}

	return idx, embedded, true
}

// saveArtifacts persists the embedded chunks, the index, and the schema
// content hash. The chunks and the index are built together and must be
// invalidated together; the hash stamp covers both.
func saveArtifacts(cacheDir string, idx *FlatIndex, embedded []EmbeddedChunk, hash string) error {
	if err := os.MkdirAll(cacheDir, 0750); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	raw, err := json.Marshal(embedded)
	if err != nil {
		return fmt.Errorf("failed to encode embedded chunks: %w", err)
	}
	if err := os.WriteFile(filepath.Join(cacheDir, embeddedChunksFile), raw, 0600); err != nil {
		return fmt.Errorf("failed to write embedded chunks: %w", err)
	}

	if err := idx.WriteFile(filepath.Join(cacheDir, indexFile)); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(cacheDir, schemaHashFile), []byte(hash), 0600); err != nil {
		return fmt.Errorf("failed to write schema hash: %w", err)
	}
	return nil
}
