// Package config contains the definition of the application config structure
// and logic required to load and validate it.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Config represents the configuration of the application.
type Config struct {
	// WaldurBaseURL is the base URL of the Waldur API, including the
	// /api/ suffix (e.g. https://waldur.example.com/api/).
	WaldurBaseURL string `mapstructure:"waldur_base_url"`

	// DataPath is the directory used for derived artifacts (cached schema,
	// embeddings, vector index). Defaults to the XDG data home.
	DataPath string `mapstructure:"mcp_data_path"`

	// VerifySSL controls TLS certificate verification on outgoing calls.
	VerifySSL bool `mapstructure:"verify_ssl"`

	// ClientID is the OAuth2 client used for the device authorization flow.
	ClientID string `mapstructure:"client_id"`

	// DiscoveryURL is the OIDC discovery document URL.
	DiscoveryURL string `mapstructure:"discovery_url"`

	// TokenEndpoint is the fallback token endpoint when discovery is unavailable.
	TokenEndpoint string `mapstructure:"token_endpoint"`

	// DeviceEndpoint is the fallback device authorization endpoint.
	DeviceEndpoint string `mapstructure:"device_endpoint"`

	// EmbeddingBackend selects the embedding backend ("ollama",
	// "openai", or "placeholder").
	EmbeddingBackend string `mapstructure:"embedding_backend"`

	// EmbeddingBaseURL is the base URL of the embedding service.
	EmbeddingBaseURL string `mapstructure:"embedding_base_url"`

	// EmbeddingModel is the embedding model name.
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// CacheDir returns the directory for derived retrieval artifacts.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataPath, "cache")
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	for _, key := range []string{
		"waldur_base_url",
		"mcp_data_path",
		"verify_ssl",
		"client_id",
		"discovery_url",
		"token_endpoint",
		"device_endpoint",
		"embedding_backend",
		"embedding_base_url",
		"embedding_model",
	} {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	v.SetDefault("verify_ssl", false)
	v.SetDefault("embedding_backend", "ollama")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.DataPath == "" {
		cfg.DataPath = filepath.Join(xdg.DataHome, "waldur-mcp")
	}

	return &cfg, nil
}

// Validate reports which required settings are missing. A nil return means
// the configuration is complete enough to serve all tools.
func (c *Config) Validate() error {
	var missing []string
	if c.WaldurBaseURL == "" {
		missing = append(missing, "WALDUR_BASE_URL")
	}
	if c.ClientID == "" {
		missing = append(missing, "CLIENT_ID")
	}
	if c.DiscoveryURL == "" {
		missing = append(missing, "DISCOVERY_URL")
	}
	if c.TokenEndpoint == "" {
		missing = append(missing, "TOKEN_ENDPOINT")
	}
	if c.DeviceEndpoint == "" {
		missing = append(missing, "DEVICE_ENDPOINT")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}
