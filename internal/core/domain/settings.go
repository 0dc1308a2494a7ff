package domain

// AIProvider identifies an embedding provider
type AIProvider string

const (
	AIProviderOpenAI AIProvider = "openai"
	// AIProviderLocal is the in-process hashing embedder, no network
	AIProviderLocal AIProvider = "local"
)

// RequiresAPIKey returns true if the provider needs credentials
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// EmbeddingSettings configures the embedding service
type EmbeddingSettings struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
	APIKey   string     `json:"-"` // Never serialize to JSON
	BaseURL  string     `json:"base_url,omitempty"`

	// Dimensions overrides the model default, used by the local embedder
	Dimensions int `json:"dimensions,omitempty"`

	// RequestsPerSecond throttles provider calls, zero means unlimited
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`

	// MaxRetries is the number of attempts per provider call
	MaxRetries int `json:"max_retries,omitempty"`
}

// IsConfigured returns true if embedding settings are properly configured
func (e *EmbeddingSettings) IsConfigured() bool {
	if e.Provider == "" {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}
