package model

import "time"

// DocumentStatus is the processing state of an uploaded document.
// Transitions are monotonic: PENDING -> PROCESSING -> {COMPLETED, FAILED}.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "PENDING"
	StatusProcessing DocumentStatus = "PROCESSING"
	StatusCompleted  DocumentStatus = "COMPLETED"
	StatusFailed     DocumentStatus = "FAILED"
)

// CanTransitionTo reports whether moving from s to next is a legal forward
// transition. COMPLETED and FAILED are terminal.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Terminal reports whether the status is a final state.
func (s DocumentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Document is an uploaded file scoped to a session. It exclusively owns its
// chunks; deleting a document deletes all of them. ChunkCount is authoritative
// only once the status is COMPLETED, and FAILED documents never contribute
// chunks to retrieval.
type Document struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	SessionID   uint           `gorm:"index" json:"session_id"` // 0 = no session
	Filename    string         `gorm:"size:256;not null" json:"filename"`
	ContentType string         `gorm:"size:64;not null" json:"content_type"`
	SizeBytes   int64          `gorm:"not null" json:"size_bytes"`
	ContentHash string         `gorm:"size:64;not null;index" json:"content_hash"`
	Status      DocumentStatus `gorm:"size:16;not null;index" json:"status"`
	Error       string         `gorm:"size:512" json:"error,omitempty"`
	ChunkCount  int            `json:"chunk_count"`
	CreatedAt   time.Time      `json:"created_at"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
}
