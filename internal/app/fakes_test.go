package app

import (
	"context"
	"time"

	"groundnote/internal/model"
)

type fakeEmbedder struct {
	fn func(ctx context.Context, text string) ([]float32, error)
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.fn(ctx, text)
}

func constEmbedder(vec []float32) *fakeEmbedder {
	return &fakeEmbedder{fn: func(context.Context, string) ([]float32, error) {
		return vec, nil
	}}
}

type fakeGenerator struct {
	fn func(ctx context.Context, systemDirective, userMessage string) (string, error)
}

func (f *fakeGenerator) Complete(ctx context.Context, systemDirective, userMessage string) (string, error) {
	return f.fn(ctx, systemDirective, userMessage)
}

func candidate(docID uint, index int, name string, created time.Time, vec []float32) model.CandidateChunk {
	c := model.Chunk{
		ID:         docID*100 + uint(index),
		DocumentID: docID,
		Index:      index,
		Content:    "content of " + name,
		TokenCount: 3,
	}
	c.SetEmbedding(vec)
	return model.CandidateChunk{
		Chunk:        c,
		DocumentName: name,
		DocCreatedAt: created,
	}
}
