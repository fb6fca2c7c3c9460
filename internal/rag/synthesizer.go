package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/helpdesk-ai/helpdesk/internal/index"
)

// noContext is the stand-in context when retrieval produced nothing.
const noContext = "No relevant documents found."

// fallbackAnswer is returned when the model produces no text at all.
const fallbackAnswer = "I don't know."

const (
	thinkStart = "<think>"
	thinkEnd   = "</think>"
)

// Generator is the slice of the generation service the synthesizer needs.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Synthesizer turns retrieved context and a question into a user-facing
// answer.
type Synthesizer struct {
	generator Generator
}

// NewSynthesizer creates a new synthesizer
func NewSynthesizer(generator Generator) *Synthesizer {
	return &Synthesizer{generator: generator}
}

// BuildContext numbers the retrieved chunks for the prompt. Zero chunks
// yield the literal no-documents marker so the model is told, in band, that
// it has nothing to ground on.
func BuildContext(results []index.SearchResult) string {
	if len(results) == 0 {
		return noContext
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("(%d) %s", i+1, r.Text)
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt assembles the constrained instruction prompt.
func BuildPrompt(docContext, question string) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant that answers customer service questions from account documents. Answer based only on the provided context.\n")
	b.WriteString("- Answer directly and do not include any reasoning or explanations.\n")
	b.WriteString("- Do not include \"<think>\" or any thoughts, just provide the final answer only.\n")
	b.WriteString("- If the context does not contain the answer, reply exactly \"I don't know.\"\n")
	b.WriteString("\n---- CONTEXT ----\n")
	b.WriteString(docContext)
	b.WriteString("\n---- END CONTEXT ----\n")
	b.WriteString("\nQUESTION: ")
	b.WriteString(question)
	b.WriteString("\nANSWER: ")
	return b.String()
}

// StripReasoning removes the model's delimited reasoning segment, if any.
// The generation contract allows zero or one such segment; raw model output
// is never shown to end users.
func StripReasoning(s string) string {
	start := strings.Index(s, thinkStart)
	if start < 0 {
		return strings.TrimSpace(s)
	}
	end := strings.Index(s[start:], thinkEnd)
	if end < 0 {
		// unterminated block: everything after the marker is deliberation
		return strings.TrimSpace(s[:start])
	}
	return strings.TrimSpace(s[:start] + s[start+end+len(thinkEnd):])
}

// Synthesize builds the prompt from the retrieved results and the question,
// runs generation, and post-processes the raw output into the user-visible
// answer.
func (s *Synthesizer) Synthesize(ctx context.Context, results []index.SearchResult, question string) (string, error) {
	prompt := BuildPrompt(BuildContext(results), question)

	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	answer := StripReasoning(raw)
	if answer == "" {
		return fallbackAnswer, nil
	}
	return answer, nil
}
