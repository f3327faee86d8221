package app

import (
	"context"

	"groundnote/internal/model"
)

// Embedder turns text into a fixed-dimension vector. Implemented by
// ai.EmbeddingClient in production.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces text from a system directive and a user message.
// Implemented by ai.ChatClient in production.
type Generator interface {
	Complete(ctx context.Context, systemDirective, userMessage string) (string, error)
}

// ChunkStore persists documents and their chunks and serves retrieval reads.
// Implementations enforce the monotonic status machine: once a document
// leaves PROCESSING it never goes back, and only COMPLETED documents
// contribute chunks. Two implementations exist (MySQL and in-memory),
// selected once at boot.
type ChunkStore interface {
	CreateDocument(doc *model.Document) error
	MarkProcessing(id uint) error
	MarkFailed(id uint, message string) error
	// SaveCompleted persists all chunks and the COMPLETED status in one
	// transaction; a document is either fully visible or not at all.
	SaveCompleted(doc *model.Document, chunks []model.Chunk) error

	GetDocument(id uint) (*model.Document, error)
	GetDocumentForUser(id, userID uint) (*model.Document, error)
	ListDocuments(userID, sessionID uint) ([]model.Document, error)
	// LoadCompletedChunks returns the chunks of the user's COMPLETED
	// documents (all sessions when sessionID is 0), ordered by document
	// creation then chunk index.
	LoadCompletedChunks(userID, sessionID uint) ([]model.CandidateChunk, error)
	// DeleteDocument removes a document and cascades to its chunks.
	DeleteDocument(id uint) error
	DeleteBySessionID(sessionID uint) error
}

// ScoredChunk pairs a candidate with its cosine similarity in [-1, 1].
type ScoredChunk struct {
	Chunk model.CandidateChunk `json:"chunk"`
	Score float64              `json:"score"`
}

// RetrievalResult is the ranked, thresholded retrieval outcome for one query.
type RetrievalResult struct {
	Chunks            []ScoredChunk `json:"chunks"`
	GroundedInContext bool          `json:"grounded_in_context"`
}

// AnswerLabel tells the client whether an answer came from the user's notes
// or from general knowledge.
type AnswerLabel string

const (
	LabelFromContext AnswerLabel = "FROM_CONTEXT"
	LabelFromGeneral AnswerLabel = "FROM_GENERAL"
)

// Citation points at one retained chunk backing a grounded answer.
type Citation struct {
	ChunkID     uint    `json:"chunk_id"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
}

// GenerationAnswer is the final labeled answer. Citations are non-empty
// exactly when Label is FROM_CONTEXT.
type GenerationAnswer struct {
	Text      string      `json:"text"`
	Label     AnswerLabel `json:"label"`
	Citations []Citation  `json:"citations"`
	LatencyMS int64       `json:"latency_ms"`
}
