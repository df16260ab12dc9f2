// Package embedding provides factory functions for creating embedding
// providers from runtime settings.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/embedding/mock"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for provider connectivity validation.
const pingTimeout = 5 * time.Second

// Settings selects and configures an embedding provider at runtime.
type Settings struct {
	// Provider is one of the SupportedProviders IDs.
	Provider string

	// BaseURL overrides the provider's API base URL.
	BaseURL string

	// APIKey authenticates remote providers.
	APIKey string

	// Model is the embedding model name.
	Model string

	// Dimensions overrides the model's default vector size.
	Dimensions int
}

// SupportedProviders returns the provider IDs the factory can build.
func SupportedProviders() []string {
	return []string{ollama.ProviderID, openai.ProviderID, mock.ProviderID}
}

// NewProvider creates the embedding provider selected by settings.
// An unsupported provider ID fails with domain.ErrUnknownProvider.
func NewProvider(settings Settings) (driven.EmbeddingProvider, error) {
	switch settings.Provider {
	case ollama.ProviderID:
		return ollama.New(ollama.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case openai.ProviderID:
		return openai.New(openai.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	case mock.ProviderID:
		return mock.New(settings.Dimensions), nil

	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, settings.Provider)
	}
}

// NewValidatedProvider creates a provider and validates connectivity
// before handing it out. On ping failure the provider is closed and an
// error returned, so a misconfigured provider never becomes active.
func NewValidatedProvider(ctx context.Context, settings Settings) (driven.EmbeddingProvider, error) {
	provider, err := NewProvider(settings)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := provider.Ping(pingCtx); err != nil {
		provider.Close()
		return nil, fmt.Errorf("%w: provider %s unreachable: %w",
			domain.ErrEmbeddingUnavailable, settings.Provider, err)
	}

	return provider, nil
}
