package app

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"groundnote/internal/model"
)

// RetrievalEngine ranks a session's completed chunks against a query by
// cosine similarity. topK and threshold are boot-time configuration,
// validated before the engine exists.
type RetrievalEngine struct {
	embedder  Embedder
	topK      int
	threshold float64
	logger    *slog.Logger
}

func NewRetrievalEngine(embedder Embedder, topK int, threshold float64, logger *slog.Logger) *RetrievalEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrievalEngine{
		embedder:  embedder,
		topK:      topK,
		threshold: threshold,
		logger:    logger,
	}
}

// Retrieve embeds the query and scores every candidate. The result holds at
// most topK chunks, each scoring at least the threshold, sorted by score
// descending with ties broken by (document creation, chunk index) so repeated
// runs return the same order. An empty candidate set is not an error; a query
// embedding failure is, and the caller maps it to ungrounded fallback.
func (e *RetrievalEngine) Retrieve(ctx context.Context, query string, candidates []model.CandidateChunk) (*RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrRetrieval)
	}
	if len(candidates) == 0 {
		return &RetrievalResult{GroundedInContext: false}, nil
	}

	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", ErrRetrieval, err)
	}

	scored := make([]ScoredChunk, len(candidates))
	for i := range candidates {
		vec := candidates[i].Chunk.EmbeddingVector()
		if len(vec) != len(queryVec) {
			// Data-integrity anomaly, not a fatal fault.
			e.logger.Warn("embedding dimension mismatch",
				"chunk_id", candidates[i].Chunk.ID,
				"chunk_dim", len(vec),
				"query_dim", len(queryVec))
		}
		scored[i] = ScoredChunk{
			Chunk: candidates[i],
			Score: cosineSimilarity(queryVec, vec),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		a, b := scored[i].Chunk, scored[j].Chunk
		if !a.DocCreatedAt.Equal(b.DocCreatedAt) {
			return a.DocCreatedAt.Before(b.DocCreatedAt)
		}
		if a.Chunk.DocumentID != b.Chunk.DocumentID {
			return a.Chunk.DocumentID < b.Chunk.DocumentID
		}
		return a.Chunk.Index < b.Chunk.Index
	})

	kept := make([]ScoredChunk, 0, e.topK)
	for _, sc := range scored {
		if sc.Score < e.threshold {
			break
		}
		kept = append(kept, sc)
		if len(kept) == e.topK {
			break
		}
	}

	return &RetrievalResult{
		Chunks:            kept,
		GroundedInContext: len(kept) > 0,
	}, nil
}

// cosineSimilarity is dot(a,b) / (|a|*|b|), 0 when either vector has zero
// norm or the dimensions differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
