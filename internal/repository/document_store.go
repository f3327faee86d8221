package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"groundnote/internal/model"
)

// DocumentStore persists documents and their chunks in MySQL. Status
// transitions go through checkTransition so a terminal document can never
// move again, whichever goroutine gets there last.
type DocumentStore struct {
	db *gorm.DB
}

func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) CreateDocument(doc *model.Document) error {
	doc.Status = model.StatusPending
	if err := s.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (s *DocumentStore) MarkProcessing(id uint) error {
	return s.transition(id, model.StatusProcessing, func(tx *gorm.DB, doc *model.Document) error {
		return tx.Model(doc).Update("status", model.StatusProcessing).Error
	})
}

func (s *DocumentStore) MarkFailed(id uint, message string) error {
	return s.transition(id, model.StatusFailed, func(tx *gorm.DB, doc *model.Document) error {
		now := time.Now()
		return tx.Model(doc).Updates(map[string]any{
			"status":       model.StatusFailed,
			"error":        message,
			"processed_at": &now,
		}).Error
	})
}

// SaveCompleted writes the chunk rows and flips the document to COMPLETED in
// one transaction. A failure anywhere rolls back both, so a COMPLETED
// document always has its full chunk set.
func (s *DocumentStore) SaveCompleted(doc *model.Document, chunks []model.Chunk) error {
	return s.transition(doc.ID, model.StatusCompleted, func(tx *gorm.DB, current *model.Document) error {
		for i := range chunks {
			chunks[i].DocumentID = doc.ID
		}
		if len(chunks) > 0 {
			if err := tx.Create(&chunks).Error; err != nil {
				return fmt.Errorf("create chunks failed: %w", err)
			}
		}
		now := time.Now()
		return tx.Model(current).Updates(map[string]any{
			"status":       model.StatusCompleted,
			"chunk_count":  len(chunks),
			"processed_at": &now,
		}).Error
	})
}

func (s *DocumentStore) transition(id uint, next model.DocumentStatus, apply func(tx *gorm.DB, doc *model.Document) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var doc model.Document
		if err := tx.First(&doc, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("document %d not found", id)
			}
			return fmt.Errorf("get document failed: %w", err)
		}
		if !doc.Status.CanTransitionTo(next) {
			return fmt.Errorf("document %d: invalid status transition %s -> %s", id, doc.Status, next)
		}
		return apply(tx, &doc)
	})
}

func (s *DocumentStore) GetDocument(id uint) (*model.Document, error) {
	var doc model.Document
	if err := s.db.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (s *DocumentStore) GetDocumentForUser(id, userID uint) (*model.Document, error) {
	var doc model.Document
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (s *DocumentStore) ListDocuments(userID, sessionID uint) ([]model.Document, error) {
	query := s.db.Where("user_id = ?", userID)
	if sessionID != 0 {
		query = query.Where("session_id = ?", sessionID)
	}
	var docs []model.Document
	if err := query.Order("created_at ASC, id ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

// LoadCompletedChunks returns every chunk of the user's COMPLETED documents
// ordered by document creation time, then document id, then chunk index.
// Two queries instead of a join keeps the embedding payload out of the
// document scan.
func (s *DocumentStore) LoadCompletedChunks(userID, sessionID uint) ([]model.CandidateChunk, error) {
	query := s.db.Where("user_id = ? AND status = ?", userID, model.StatusCompleted)
	if sessionID != 0 {
		query = query.Where("session_id = ?", sessionID)
	}
	var docs []model.Document
	if err := query.Order("created_at ASC, id ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list completed documents failed: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	var chunks []model.Chunk
	if err := s.db.Where("document_id IN ?", ids).Order("document_id ASC, chunk_index ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks failed: %w", err)
	}

	byDoc := make(map[uint][]model.Chunk, len(docs))
	for _, c := range chunks {
		byDoc[c.DocumentID] = append(byDoc[c.DocumentID], c)
	}

	candidates := make([]model.CandidateChunk, 0, len(chunks))
	for _, doc := range docs {
		for _, c := range byDoc[doc.ID] {
			candidates = append(candidates, model.CandidateChunk{
				Chunk:        c,
				DocumentName: doc.Filename,
				DocCreatedAt: doc.CreatedAt,
			})
		}
	}
	return candidates, nil
}

func (s *DocumentStore) DeleteDocument(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&model.Chunk{}).Error; err != nil {
			return fmt.Errorf("delete chunks failed: %w", err)
		}
		if err := tx.Delete(&model.Document{}, id).Error; err != nil {
			return fmt.Errorf("delete document failed: %w", err)
		}
		return nil
	})
}

func (s *DocumentStore) DeleteBySessionID(sessionID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&model.Document{}).Where("session_id = ?", sessionID).Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("list session documents failed: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("document_id IN ?", ids).Delete(&model.Chunk{}).Error; err != nil {
			return fmt.Errorf("delete chunks failed: %w", err)
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.Document{}).Error; err != nil {
			return fmt.Errorf("delete documents failed: %w", err)
		}
		return nil
	})
}
