package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iris-analytics/iris/internal/config"
)

func TestNewModelUnsupportedProvider(t *testing.T) {
	cfg := config.Config{LLMProvider: "carrier-pigeon"}
	_, err := NewModel(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")
}

func TestNewModelMissingKeys(t *testing.T) {
	_, err := NewModel(context.Background(), config.Config{LLMProvider: config.ProviderOpenAI})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OpenAI API key required")

	_, err = NewModel(context.Background(), config.Config{LLMProvider: config.ProviderAnthropic})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Anthropic API key required")
}

func TestNewModelOllama(t *testing.T) {
	// Ollama construction is offline; only calls hit the server.
	m, err := NewModel(context.Background(), config.Config{
		LLMProvider: config.ProviderOllama,
		LLMModel:    "llama3.1",
		OllamaHost:  "http://localhost:11434",
	})
	require.NoError(t, err)
	assert.Equal(t, "llama3.1", m.Model())
}
