package mistral

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-chatbot-api/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *[]time.Duration) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(&config.MistralConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	}, RetryPolicy{MaxAttempts: 5, BaseDelay: 2 * time.Millisecond})

	var sleeps []time.Duration
	client.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return client, &sleeps
}

func TestClient_Embed(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	})

	vec, err := client.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestClient_Generate(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi there"}}]}`))
	})

	out, err := client.Generate(context.Background(), "be helpful", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
}

func TestClient_RetryOn429(t *testing.T) {
	var calls int
	client, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)

	// 5 次尝试，间隔按 2ms 起步逐次翻倍
	assert.Equal(t, 5, calls)
	assert.Equal(t, []time.Duration{
		2 * time.Millisecond,
		4 * time.Millisecond,
		8 * time.Millisecond,
		16 * time.Millisecond,
	}, *sleeps)
}

func TestClient_RetryRecoversAfter429(t *testing.T) {
	var calls int
	client, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"data":[{"embedding":[1]}]}`))
	})

	vec, err := client.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Millisecond, 4 * time.Millisecond}, *sleeps)
}

func TestClient_NoRetryOnAPIError(t *testing.T) {
	var calls int
	client, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	})

	_, err := client.Generate(context.Background(), "sys", "user")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "boom", apiErr.Body)

	assert.Equal(t, 1, calls)
	assert.Empty(t, *sleeps)
}

func TestClient_MissingAPIKey(t *testing.T) {
	client := NewClient(&config.MistralConfig{}, DefaultRetryPolicy())

	_, err := client.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: 2 * time.Second}

	assert.Equal(t, 2*time.Second, p.Delay(0))
	assert.Equal(t, 4*time.Second, p.Delay(1))
	assert.Equal(t, 8*time.Second, p.Delay(2))
	assert.Equal(t, 16*time.Second, p.Delay(3))
}
