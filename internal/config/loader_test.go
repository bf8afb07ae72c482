package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("CHATBOT_TEST_HOST", "db.internal")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "set variable",
			input: "host: ${CHATBOT_TEST_HOST}",
			want:  "host: db.internal",
		},
		{
			name:  "unset variable with default",
			input: "port: ${CHATBOT_TEST_PORT:5432}",
			want:  "port: 5432",
		},
		{
			name:  "set variable wins over default",
			input: "host: ${CHATBOT_TEST_HOST:fallback}",
			want:  "host: db.internal",
		},
		{
			name:  "unset variable without default stays as-is",
			input: "key: ${CHATBOT_TEST_MISSING}",
			want:  "key: ${CHATBOT_TEST_MISSING}",
		},
		{
			name:  "empty default",
			input: "password: ${CHATBOT_TEST_PASSWORD:}",
			want:  "password: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnv(tt.input))
		})
	}
}

func TestRAGEnabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.RAGEnabled())

	cfg.LLM.Mistral.APIKey = "key"
	assert.False(t, cfg.RAGEnabled(), "milvus host still missing")

	cfg.Vector.Milvus.Host = "localhost"
	assert.True(t, cfg.RAGEnabled())

	cfg.LLM.Mistral.APIKey = ""
	assert.False(t, cfg.RAGEnabled(), "api key missing again")
}
