package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-ai/helpdesk/internal/index"
)

type fakeGenerator struct {
	out     string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.out, g.err
}

func TestStripReasoning(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "reasoning block before answer",
			in:   "<think>reasoning here</think>The answer is 30 days.",
			want: "The answer is 30 days.",
		},
		{
			name: "no reasoning block",
			in:   "The answer is 30 days.",
			want: "The answer is 30 days.",
		},
		{
			name: "unterminated block",
			in:   "Partial answer.<think>still going",
			want: "Partial answer.",
		},
		{
			name: "block in the middle",
			in:   "Yes.<think>why though</think> Returns take 30 days.",
			want: "Yes. Returns take 30 days.",
		},
		{
			name: "only reasoning",
			in:   "<think>nothing useful</think>",
			want: "",
		},
		{
			name: "surrounding whitespace",
			in:   "  <think>hm</think>\nThe answer is 30 days.\n",
			want: "The answer is 30 days.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripReasoning(tt.in))
		})
	}
}

func TestBuildContext_NumbersDocuments(t *testing.T) {
	got := BuildContext([]index.SearchResult{
		{Text: "Returns are accepted within 30 days.", Score: 0.91},
		{Text: "Shipping takes five days.", Score: 0.44},
	})

	assert.Equal(t, "(1) Returns are accepted within 30 days.\n\n(2) Shipping takes five days.", got)
}

func TestBuildContext_EmptyResults(t *testing.T) {
	assert.Equal(t, "No relevant documents found.", BuildContext(nil))
}

func TestBuildPrompt_ContainsContextAndQuestion(t *testing.T) {
	prompt := BuildPrompt("(1) Some context.", "What is the return policy?")

	assert.Contains(t, prompt, "---- CONTEXT ----\n(1) Some context.\n---- END CONTEXT ----")
	assert.Contains(t, prompt, "QUESTION: What is the return policy?")
	assert.Contains(t, prompt, "ANSWER: ")
}

func TestSynthesize_StripsReasoning(t *testing.T) {
	gen := &fakeGenerator{out: "<think>reasoning here</think>The answer is 30 days."}
	s := NewSynthesizer(gen)

	answer, err := s.Synthesize(context.Background(), []index.SearchResult{{Text: "doc"}}, "question")

	require.NoError(t, err)
	assert.Equal(t, "The answer is 30 days.", answer)
}

func TestSynthesize_EmptyContextUsesPlaceholder(t *testing.T) {
	gen := &fakeGenerator{out: "I don't know."}
	s := NewSynthesizer(gen)

	answer, err := s.Synthesize(context.Background(), nil, "What is the return policy?")

	require.NoError(t, err)
	assert.Equal(t, "I don't know.", answer)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "---- CONTEXT ----\nNo relevant documents found.\n---- END CONTEXT ----")
}

func TestSynthesize_EmptyGenerationFallsBack(t *testing.T) {
	gen := &fakeGenerator{out: "<think>all deliberation, no answer</think>"}
	s := NewSynthesizer(gen)

	answer, err := s.Synthesize(context.Background(), nil, "question")

	require.NoError(t, err)
	assert.Equal(t, "I don't know.", answer)
}

func TestSynthesize_GenerationErrorIsFatal(t *testing.T) {
	genErr := errors.New("service down")
	s := NewSynthesizer(&fakeGenerator{err: genErr})

	_, err := s.Synthesize(context.Background(), nil, "question")
	assert.ErrorIs(t, err, genErr)
}
