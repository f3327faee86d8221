package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groundedResult(t *testing.T) *RetrievalResult {
	t.Helper()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &RetrievalResult{
		GroundedInContext: true,
		Chunks: []ScoredChunk{
			{Chunk: candidate(1, 0, "notes.pdf", base, unitVec(0.9)), Score: 0.9},
			{Chunk: candidate(1, 2, "notes.pdf", base, unitVec(0.7)), Score: 0.7},
		},
	}
}

func TestOrchestrator_Answer(t *testing.T) {
	ctx := context.Background()

	t.Run("grounded answer cites every retained chunk", func(t *testing.T) {
		var gotDirective, gotMessage string
		gen := &fakeGenerator{fn: func(_ context.Context, directive, message string) (string, error) {
			gotDirective = directive
			gotMessage = message
			return "Cosine compares angles [1].", nil
		}}
		o := NewOrchestrator(gen, nil)
		result := groundedResult(t)

		answer := o.Answer(ctx, "what is cosine?", result, nil)
		require.NotNil(t, answer)
		assert.Equal(t, LabelFromContext, answer.Label)
		assert.True(t, strings.HasPrefix(answer.Text, "[From your notes]"))
		assert.Contains(t, answer.Text, "Cosine compares angles [1].")

		require.Len(t, answer.Citations, len(result.Chunks))
		assert.Equal(t, "notes.pdf#0", answer.Citations[0].DisplayName)
		assert.Equal(t, "notes.pdf#2", answer.Citations[1].DisplayName)
		assert.InDelta(t, 0.9, answer.Citations[0].Score, 1e-9)

		assert.Contains(t, gotDirective, "ONLY")
		assert.Contains(t, gotMessage, "[1] notes.pdf#0")
		assert.Contains(t, gotMessage, "[2] notes.pdf#2")
		assert.Contains(t, gotMessage, "what is cosine?")
	})

	t.Run("ungrounded result falls back with no citations", func(t *testing.T) {
		var gotMessage string
		gen := &fakeGenerator{fn: func(_ context.Context, directive, message string) (string, error) {
			gotMessage = message
			return "General answer.", nil
		}}
		o := NewOrchestrator(gen, nil)

		answer := o.Answer(ctx, "unrelated question", &RetrievalResult{GroundedInContext: false}, nil)
		assert.Equal(t, LabelFromGeneral, answer.Label)
		assert.True(t, strings.HasPrefix(answer.Text, "[General knowledge]"))
		assert.Empty(t, answer.Citations)
		assert.NotNil(t, answer.Citations)
		assert.Equal(t, "unrelated question", gotMessage)
	})

	t.Run("retrieval error forces the fallback path", func(t *testing.T) {
		gen := &fakeGenerator{fn: func(_ context.Context, directive, message string) (string, error) {
			assert.NotContains(t, message, "Context passages")
			return "General answer.", nil
		}}
		o := NewOrchestrator(gen, nil)

		answer := o.Answer(ctx, "q", nil, errors.New("embed query: upstream 503"))
		assert.Equal(t, LabelFromGeneral, answer.Label)
		assert.Empty(t, answer.Citations)
	})

	t.Run("generator failure yields the fixed apology", func(t *testing.T) {
		gen := &fakeGenerator{fn: func(context.Context, string, string) (string, error) {
			return "", errors.New("timeout")
		}}
		o := NewOrchestrator(gen, nil)

		answer := o.Answer(ctx, "q", groundedResult(t), nil)
		assert.Equal(t, LabelFromGeneral, answer.Label)
		assert.Contains(t, answer.Text, "Sorry, I could not generate an answer right now. Please try again.")
		assert.Empty(t, answer.Citations)
		assert.NotNil(t, answer.Citations)
	})

	t.Run("citations present only when grounded", func(t *testing.T) {
		gen := &fakeGenerator{fn: func(context.Context, string, string) (string, error) {
			return "ok", nil
		}}
		o := NewOrchestrator(gen, nil)

		grounded := o.Answer(ctx, "q", groundedResult(t), nil)
		assert.Equal(t, LabelFromContext, grounded.Label)
		assert.NotEmpty(t, grounded.Citations)

		ungrounded := o.Answer(ctx, "q", &RetrievalResult{}, nil)
		assert.Equal(t, LabelFromGeneral, ungrounded.Label)
		assert.Empty(t, ungrounded.Citations)
	})
}
