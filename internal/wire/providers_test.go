package wire

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-chatbot-api/internal/config"
)

func TestProvideMistralClientOptional(t *testing.T) {
	cfg := &config.Config{}
	assert.Nil(t, ProvideMistralClientOptional(context.Background(), cfg))

	cfg.LLM.Mistral.APIKey = "test-key"
	cfg.RAG.MaxRetries = 7
	cfg.RAG.BaseDelay = 3 * time.Second

	client := ProvideMistralClientOptional(context.Background(), cfg)
	require.NotNil(t, client)
}
