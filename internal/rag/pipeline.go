package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/helpdesk-ai/helpdesk/internal/access"
)

// ErrNoQuestion is returned when the conversation contains no user message.
var ErrNoQuestion = errors.New("conversation contains no user message")

// Message is one conversation message from the calling UI.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Embedder is the slice of the embedding service the pipeline needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// AuditLog records answered questions. Appends are best-effort and must
// never fail the turn.
type AuditLog interface {
	Append(question, answer string)
}

// Pipeline runs one query turn: resolve the caller's collection, embed the
// question, retrieve context, synthesize an answer, and log it.
//
// Stages run strictly in order. Authorization and embedding failures are
// fatal for the turn; retrieval failures degrade to an empty context inside
// the retriever; generation failures are fatal.
type Pipeline struct {
	resolver    access.Resolver
	embedder    Embedder
	retriever   *Retriever
	synthesizer *Synthesizer
	audit       AuditLog
}

// NewPipeline creates a new query pipeline
func NewPipeline(
	resolver access.Resolver,
	embedder Embedder,
	retriever *Retriever,
	synthesizer *Synthesizer,
	audit AuditLog,
) *Pipeline {
	return &Pipeline{
		resolver:    resolver,
		embedder:    embedder,
		retriever:   retriever,
		synthesizer: synthesizer,
		audit:       audit,
	}
}

// Answer answers the latest user message in the conversation on behalf of
// email. The pipeline is stateless; concurrent turns are independent.
func (p *Pipeline) Answer(ctx context.Context, email string, messages []Message) (string, error) {
	question := latestUserMessage(messages)
	if question == "" {
		return "", ErrNoQuestion
	}

	collection, err := p.resolver.Resolve(email)
	if err != nil {
		return "", err
	}

	queryVector, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("failed to embed question: %w", err)
	}

	results := p.retriever.Retrieve(ctx, collection, queryVector)

	answer, err := p.synthesizer.Synthesize(ctx, results, question)
	if err != nil {
		return "", fmt.Errorf("failed to synthesize answer: %w", err)
	}

	if p.audit != nil {
		p.audit.Append(question, answer)
	}

	return answer, nil
}

// latestUserMessage returns the content of the last user-role message, or
// the last message of any role when none is marked as user.
func latestUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	if len(messages) > 0 {
		return messages[len(messages)-1].Content
	}
	return ""
}
