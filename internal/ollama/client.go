package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrEmbedding marks failures of the embedding service: unreachable host,
// malformed response, or a vector of the wrong dimension.
var ErrEmbedding = errors.New("embedding failed")

// ErrGeneration marks failures of the generation service.
var ErrGeneration = errors.New("generation failed")

// Client wraps Ollama API interactions
type Client struct {
	baseURL       string
	embedModel    string
	generateModel string
	dimension     int

	httpClient      *http.Client
	embedTimeout    time.Duration
	generateTimeout time.Duration

	retry   RetryConfig
	breaker *Breaker
}

// Config configures the Ollama client. Retry is a pointer so that a zero
// MaxRetries can be expressed; nil means the default policy.
type Config struct {
	BaseURL         string
	EmbedModel      string
	GenerateModel   string
	Dimension       int
	EmbedTimeout    time.Duration
	GenerateTimeout time.Duration
	Retry           *RetryConfig
}

// NewClient creates a new Ollama client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "nomic-embed-text"
	}
	if cfg.GenerateModel == "" {
		cfg.GenerateModel = "deepseek-r1"
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 768
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = 30 * time.Second
	}
	if cfg.GenerateTimeout <= 0 {
		// generation on local hardware can be slow
		cfg.GenerateTimeout = 5 * time.Minute
	}
	retry := DefaultRetryConfig()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}
	if retry.MaxRetries < 0 {
		retry.MaxRetries = 0
	}
	return &Client{
		baseURL:         cfg.BaseURL,
		embedModel:      cfg.EmbedModel,
		generateModel:   cfg.GenerateModel,
		dimension:       cfg.Dimension,
		httpClient:      &http.Client{},
		embedTimeout:    cfg.EmbedTimeout,
		generateTimeout: cfg.GenerateTimeout,
		retry:           retry,
		breaker:         NewBreaker(DefaultBreakerConfig()),
	}
}

// Dimension returns the configured embedding dimension
func (c *Client) Dimension() int {
	return c.dimension
}

// GenerateRequest represents a generation request
type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// GenerateResponse represents a generation response
type GenerateResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
}

// Generate sends prompt to the generation model and returns the raw output.
// The returned text may still contain the model's reasoning block; stripping
// it is the caller's concern.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.generateTimeout)
	defer cancel()

	req := GenerateRequest{
		Model:  c.generateModel,
		Prompt: prompt,
		Stream: false,
	}

	body, err := c.postJSON(ctx, "/api/generate", req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	var genResp GenerateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrGeneration, err)
	}

	return genResp.Response, nil
}

// postJSON executes a POST with retry and circuit breaking and returns the
// response body.
func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := c.breaker.Allow(); err != nil {
		return nil, err
	}

	body, err := c.retry.Do(ctx, func(ctx context.Context) ([]byte, error) {
		return c.postOnce(ctx, path, jsonData)
	})
	if err != nil {
		c.breaker.Failure()
		return nil, err
	}
	c.breaker.Success()
	return body, nil
}

func (c *Client) postOnce(ctx context.Context, path string, jsonData []byte) ([]byte, error) {
	url := c.baseURL + path

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: string(body)}
	}

	return body, nil
}

// statusError carries the HTTP status so the retry policy can distinguish
// transient server errors from permanent ones.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ollama API error: %d - %s", e.code, e.body)
}
