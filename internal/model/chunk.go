package model

import (
	"encoding/json"
	"time"
)

// Chunk is one embedded window of a document's text. Index values for a
// document are contiguous starting at 0, and a chunk is immutable once
// persisted. Embedding is stored as a JSON array of float32 so the row stays
// portable across databases without a native vector type.
type Chunk struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"not null;index" json:"document_id"`
	Index      int       `gorm:"column:chunk_index;not null" json:"index"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	TokenCount int       `gorm:"not null" json:"token_count"`
	Embedding  string    `gorm:"type:text" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// EmbeddingVector returns the parsed embedding slice; nil on parse error.
func (c *Chunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(c.Embedding), &v)
	return v
}

// SetEmbedding stores the embedding as JSON.
func (c *Chunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}

// CandidateChunk is a chunk plus the owning document fields retrieval needs
// for deterministic ordering and citations. It carries copies, never a live
// document handle.
type CandidateChunk struct {
	Chunk        Chunk
	DocumentName string
	DocCreatedAt time.Time
}
