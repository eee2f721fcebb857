package retriever

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/logger"
)

// DefaultSchemaURL is the published Waldur OpenAPI schema.
const DefaultSchemaURL = "https://docs.waldur.com/latest/API/waldur-openapi-schema.yaml"

// schemaCacheFile is the name of the cached schema copy inside the cache dir.
const schemaCacheFile = "waldur-openapi-schema.yaml"

const schemaFetchTimeout = 60 * time.Second

// recognizedVerbs are the only HTTP verbs considered when walking the
// schema's paths section. Anything else is silently skipped.
var recognizedVerbs = map[string]bool{
	"get":    true,
	"post":   true,
	"put":    true,
	"patch":  true,
	"delete": true,
}

// LoadSchema obtains the OpenAPI schema document and extracts its endpoint
// definitions in document order. A cached copy under cacheDir is preferred;
// on a cache miss the document is fetched from sourceURL, parsed, and the
// fetched bytes are written to the cache verbatim. Caching the document
// unmodified keeps a cache-hit load byte-identical to the fetch that
// produced it, so definitions come out in the same order either way and the
// content hash stamped on derived artifacts stays stable. The returned bytes
// are that document.
func LoadSchema(ctx context.Context, sourceURL, cacheDir string) ([]EndpointDefinition, []byte, error) {
	cachePath := filepath.Join(cacheDir, schemaCacheFile)

	raw, err := os.ReadFile(cachePath) // #nosec G304 - cacheDir comes from app config
	if err == nil {
		defs, perr := parseSchema(raw)
		if perr != nil {
			return nil, nil, fmt.Errorf("%w: cached schema at %s is malformed: %v", ErrSchemaUnavailable, cachePath, perr)
		}
		logger.Debugf("Loaded %d endpoint definitions from cached schema", len(defs))
		return defs, raw, nil
	}

	raw, err = fetchSchema(ctx, sourceURL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSchemaUnavailable, err)
	}

	defs, err := parseSchema(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: fetched schema is malformed: %v", ErrSchemaUnavailable, err)
	}

	if err := os.MkdirAll(cacheDir, 0750); err != nil {
		return nil, nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(cachePath, raw, 0600); err != nil {
		return nil, nil, fmt.Errorf("failed to cache schema: %w", err)
	}

	logger.Infof("Fetched and cached API schema (%d endpoint definitions)", len(defs))
	return defs, raw, nil
}

func fetchSchema(ctx context.Context, sourceURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, schemaFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schema from %s: %w", sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("schema fetch returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema body: %w", err)
	}
	return raw, nil
}

// parseSchema walks the document's paths section with the yaml node API so
// that endpoint definitions come out in document order. Map-based decoding
// would randomize slot order across runs.
func parseSchema(raw []byte) ([]EndpointDefinition, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("failed to parse schema document: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("schema document is empty")
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("schema document is not a mapping")
	}

	paths := mappingValue(doc, "paths")
	if paths == nil || paths.Kind != yaml.MappingNode {
		return nil, nil
	}

	var defs []EndpointDefinition
	for i := 0; i+1 < len(paths.Content); i += 2 {
		path := paths.Content[i].Value
		item := paths.Content[i+1]
		if item.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(item.Content); j += 2 {
			verb := item.Content[j].Value
			if !recognizedVerbs[verb] {
				continue
			}
			def, err := decodeOperation(path, verb, item.Content[j+1])
			if err != nil {
				return nil, err
			}
			defs = append(defs, def)
		}
	}
	return defs, nil
}

func decodeOperation(path, verb string, node *yaml.Node) (EndpointDefinition, error) {
	var op struct {
		Summary     string      `yaml:"summary"`
		Description string      `yaml:"description"`
		Parameters  []Parameter `yaml:"parameters"`
	}
	if err := node.Decode(&op); err != nil {
		return EndpointDefinition{}, fmt.Errorf("failed to decode operation %s %s: %w", verb, path, err)
	}
	return EndpointDefinition{
		Path:        path,
		Verb:        verb,
		Summary:     op.Summary,
		Description: op.Description,
		Parameters:  op.Parameters,
	}, nil
}

func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}
