package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/embedding/mock"
	"github.com/custodia-labs/lexrag/internal/core/domain"
)

func TestNewProvider_Mock(t *testing.T) {
	provider, err := NewProvider(Settings{Provider: "mock", Dimensions: 16})
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, "mock", provider.ID())
	assert.Equal(t, 16, provider.Dimensions())
}

func TestNewProvider_Ollama(t *testing.T) {
	provider, err := NewProvider(Settings{Provider: "ollama"})
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, "ollama", provider.ID())
	assert.Equal(t, 768, provider.Dimensions())
	assert.Equal(t, "nomic-embed-text", provider.ModelName())
}

func TestNewProvider_OpenAIRequiresKey(t *testing.T) {
	_, err := NewProvider(Settings{Provider: "openai"})
	assert.Error(t, err)
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := NewProvider(Settings{Provider: "anthropic"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
}

func TestNewValidatedProvider_MockAlwaysReachable(t *testing.T) {
	provider, err := NewValidatedProvider(context.Background(), Settings{Provider: mock.ProviderID})
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, mock.ProviderID, provider.ID())
}

func TestSupportedProviders(t *testing.T) {
	ids := SupportedProviders()
	assert.ElementsMatch(t, []string{"ollama", "openai", "mock"}, ids)
}

func TestMockEmbedDeterministic(t *testing.T) {
	provider := mock.New(32)
	defer provider.Close()

	ctx := context.Background()
	first, err := provider.Embed(ctx, "artikel 7:658 BW")
	require.NoError(t, err)
	second, err := provider.Embed(ctx, "artikel 7:658 BW")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 32)

	other, err := provider.Embed(ctx, "ander artikel")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestMockEmbedBatchOrderPreserving(t *testing.T) {
	provider := mock.New(8)
	defer provider.Close()

	ctx := context.Background()
	texts := []string{"een", "twee", "drie"}
	batch, err := provider.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, text := range texts {
		single, err := provider.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i], "batch element %d should match single embed", i)
	}
}
