package embeddings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/logger"
)

// OpenAICompatibleBackend implements the Backend interface against any
// OpenAI-compatible /v1/embeddings endpoint (OpenAI, vLLM, Ollama v1 API).
type OpenAICompatibleBackend struct {
	baseURL   string
	model     string
	dimension int
	apiKey    string
	client    *http.Client
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// NewOpenAICompatibleBackend creates a backend for an OpenAI-compatible
// embeddings API. The API key, if required, is read from OPENAI_API_KEY.
func NewOpenAICompatibleBackend(baseURL, model string, dimension int) (*OpenAICompatibleBackend, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}

	logger.Infof("Initializing OpenAI-compatible backend (model: %s, url: %s)", model, baseURL)

	return &OpenAICompatibleBackend{
		baseURL:   strings.TrimRight(baseURL, "/"),
		model:     model,
		dimension: dimension,
		apiKey:    os.Getenv("OPENAI_API_KEY"),
		client:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Embed generates an embedding for a single text.
func (b *OpenAICompatibleBackend) Embed(text string) ([]float32, error) {
	embedded, err := b.EmbedBatch([]string{text})
	if err != nil {
		return nil, err
	}
	return embedded[0], nil
}

// EmbedBatch generates embeddings for multiple texts in a single request.
func (b *OpenAICompatibleBackend) EmbedBatch(texts []string) ([][]float32, error) {
	reqBody := openAIEmbedRequest{
		Model: b.model,
		Input: texts,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, b.baseURL+"/v1/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call embeddings API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embeddings API returned status %d: %s", resp.StatusCode, string(body))
	}

	var embedResp openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(embedResp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embedResp.Data))
	}

	embedded := make([][]float32, len(texts))
	for _, item := range embedResp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		embedded[item.Index] = vec
	}

	return embedded, nil
}

// Dimension returns the embedding dimension.
func (b *OpenAICompatibleBackend) Dimension() int {
	return b.dimension
}

// Close releases any resources.
func (*OpenAICompatibleBackend) Close() error {
	return nil
}
