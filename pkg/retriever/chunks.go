package retriever

import (
	"fmt"
	"strings"
)

// intentKeywords maps each HTTP verb to keywords describing the caller
// intents it serves. The keywords are embedded alongside the endpoint text
// so that action-oriented queries ("add user", "remove project") land near
// the right verb.
var intentKeywords = map[string]string{
	"post":   "create add new insert register assign link provision",
	"put":    "update modify replace edit overwrite",
	"patch":  "update modify partial change adjust",
	"delete": "remove delete destroy unlink detach",
	"get":    "retrieve get fetch list read show search",
}

// SynthesizeChunks converts endpoint definitions into retrieval-ready
// chunks. It is a pure function: no I/O, no randomness, and the embedding
// text of each chunk is byte-identical across runs for the same input.
func SynthesizeChunks(defs []EndpointDefinition) []Chunk {
	chunks := make([]Chunk, 0, len(defs))
	for _, def := range defs {
		chunks = append(chunks, synthesizeChunk(def))
	}
	return chunks
}

func synthesizeChunk(def EndpointDefinition) Chunk {
	verb := strings.ToLower(def.Verb)

	// Entity hint: second path segment. This is a heuristic, not
	// authoritative; downstream filtering must tolerate wrong hints.
	segments := strings.Split(strings.Trim(def.Path, "/"), "/")
	entityHint := ""
	if len(segments) > 1 {
		entityHint = segments[1]
	}

	paramTexts := make([]string, 0, len(def.Parameters))
	for _, param := range def.Parameters {
		paramTexts = append(paramTexts, fmt.Sprintf("param: %s — %s", param.Name, param.Description))
	}

	// The exact concatenation order and token boundaries are pinned by
	// tests: this text is the only feature engineering in the retrieval
	// system, and it must reproduce identically so cached embeddings stay
	// valid.
	embeddingText := strings.TrimSpace(fmt.Sprintf(
		"%s %s %s %s %s Entity: %s Intent: %s",
		strings.ToUpper(verb),
		def.Path,
		def.Summary,
		def.Description,
		strings.Join(paramTexts, " "),
		entityHint,
		intentKeywords[verb],
	))

	return Chunk{
		Path:          def.Path,
		Verb:          strings.ToUpper(verb),
		Summary:       def.Summary,
		Description:   def.Description,
		Parameters:    def.Parameters,
		EntityHint:    entityHint,
		EmbeddingText: embeddingText,
	}
}
