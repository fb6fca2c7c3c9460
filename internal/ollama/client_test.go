package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() *RetryConfig {
	return &RetryConfig{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func embedServer(t *testing.T, dimension int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)

		var req EmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Model)
		assert.NotEmpty(t, req.Prompt)

		json.NewEncoder(w).Encode(EmbedResponse{Embedding: make([]float32, dimension)})
	}))
}

func TestEmbed_ReturnsConfiguredDimension(t *testing.T) {
	ts := embedServer(t, 768)
	defer ts.Close()

	c := NewClient(Config{BaseURL: ts.URL, Retry: fastRetry()})
	vec, err := c.Embed(context.Background(), "What is the return policy?")

	require.NoError(t, err)
	assert.Len(t, vec, 768)
}

func TestEmbed_RejectsWrongDimension(t *testing.T) {
	for _, dim := range []int{0, 1, 767, 769, 1536} {
		ts := embedServer(t, dim)
		c := NewClient(Config{BaseURL: ts.URL, Retry: fastRetry()})

		_, err := c.Embed(context.Background(), "question")
		ts.Close()

		require.Error(t, err, "dimension %d must be rejected", dim)
		assert.ErrorIs(t, err, ErrEmbedding)
	}
}

func TestEmbed_EmptyText(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://localhost:0", Retry: fastRetry()})
	_, err := c.Embed(context.Background(), "   ")

	assert.ErrorIs(t, err, ErrEmbedding)
}

func TestEmbed_MalformedJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer ts.Close()

	c := NewClient(Config{BaseURL: ts.URL, Retry: fastRetry()})
	_, err := c.Embed(context.Background(), "question")

	assert.ErrorIs(t, err, ErrEmbedding)
}

func TestEmbed_ServiceUnreachable(t *testing.T) {
	ts := httptest.NewServer(nil)
	ts.Close() // connection refused from now on

	c := NewClient(Config{BaseURL: ts.URL, Retry: fastRetry()})
	_, err := c.Embed(context.Background(), "question")

	assert.ErrorIs(t, err, ErrEmbedding)
}

func TestGenerate_ReturnsResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)

		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)

		json.NewEncoder(w).Encode(GenerateResponse{Response: "The answer is 30 days.", Done: true})
	}))
	defer ts.Close()

	c := NewClient(Config{BaseURL: ts.URL, Retry: fastRetry()})
	out, err := c.Generate(context.Background(), "prompt")

	require.NoError(t, err)
	assert.Equal(t, "The answer is 30 days.", out)
}

func TestGenerate_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusNotFound)
	}))
	defer ts.Close()

	c := NewClient(Config{BaseURL: ts.URL, Retry: fastRetry()})
	_, err := c.Generate(context.Background(), "prompt")

	assert.ErrorIs(t, err, ErrGeneration)
}

func TestRetry_TransientServerErrors(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(EmbedResponse{Embedding: make([]float32, 768)})
	}))
	defer ts.Close()

	c := NewClient(Config{BaseURL: ts.URL, Retry: fastRetry()})
	vec, err := c.Embed(context.Background(), "question")

	require.NoError(t, err)
	assert.Len(t, vec, 768)
	assert.Equal(t, int32(3), hits.Load())
}

func TestRetry_PermanentErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer ts.Close()

	c := NewClient(Config{BaseURL: ts.URL, Retry: fastRetry()})
	_, err := c.Embed(context.Background(), "question")

	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRetry_ZeroRetriesMeansSingleAttempt(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := NewClient(Config{
		BaseURL: ts.URL,
		Retry:   &RetryConfig{MaxRetries: 0, InitialInterval: time.Millisecond},
	})
	_, err := c.Embed(context.Background(), "question")

	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load(), "zero retries must make exactly one attempt")
}

func TestNewClient_NilRetryUsesDefaultPolicy(t *testing.T) {
	c := NewClient(Config{})
	assert.Equal(t, DefaultRetryConfig(), c.retry)
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, Timeout: time.Hour})

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Allow())
		b.Failure()
	}

	assert.ErrorIs(t, b.Allow(), ErrBreakerOpen)
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Millisecond})

	b.Failure()
	require.ErrorIs(t, b.Allow(), ErrBreakerOpen)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, b.Allow()) // half-open test request
	b.Success()

	assert.NoError(t, b.Allow())
}

func TestMissingModels(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		json.NewEncoder(w).Encode(ListModelsResponse{Models: []ModelInfo{
			{Name: "nomic-embed-text:latest"},
			{Name: "llama3.2:3b"},
		}})
	}))
	defer ts.Close()

	c := NewClient(Config{
		BaseURL:       ts.URL,
		EmbedModel:    "nomic-embed-text",
		GenerateModel: "deepseek-r1",
		Retry:         fastRetry(),
	})

	missing, err := c.MissingModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"deepseek-r1"}, missing)
}
