package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// EmbedRequest represents an embedding request
type EmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// EmbedResponse represents an embedding response
type EmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed generates an embedding vector for the given text. A vector whose
// length differs from the configured dimension is rejected: storing or
// querying with a wrong-size vector would corrupt the index, so the
// enclosing operation must abort instead.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmbedding)
	}

	ctx, cancel := context.WithTimeout(ctx, c.embedTimeout)
	defer cancel()

	req := EmbedRequest{
		Model:  c.embedModel,
		Prompt: text,
	}

	body, err := c.postJSON(ctx, "/api/embeddings", req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	var embResp EmbedResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrEmbedding, err)
	}

	if len(embResp.Embedding) != c.dimension {
		return nil, fmt.Errorf("%w: got vector of length %d, want %d",
			ErrEmbedding, len(embResp.Embedding), c.dimension)
	}

	return embResp.Embedding, nil
}
