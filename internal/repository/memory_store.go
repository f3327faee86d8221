package repository

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"groundnote/internal/model"
)

// MemoryStore is the in-memory ChunkStore, selected at boot for single-node
// runs without MySQL. Everything lives behind one mutex; reads hand out
// copies so callers never share rows with the store.
type MemoryStore struct {
	mu        sync.Mutex
	nextDocID uint
	nextChunk uint
	documents map[uint]*model.Document
	chunks    map[uint][]model.Chunk
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextDocID: 1,
		nextChunk: 1,
		documents: make(map[uint]*model.Document),
		chunks:    make(map[uint][]model.Chunk),
	}
}

func (s *MemoryStore) CreateDocument(doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.ID = s.nextDocID
	s.nextDocID++
	doc.Status = model.StatusPending
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	stored := *doc
	s.documents[doc.ID] = &stored
	return nil
}

func (s *MemoryStore) MarkProcessing(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.checkTransition(id, model.StatusProcessing)
	if err != nil {
		return err
	}
	doc.Status = model.StatusProcessing
	return nil
}

func (s *MemoryStore) MarkFailed(id uint, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.checkTransition(id, model.StatusFailed)
	if err != nil {
		return err
	}
	now := time.Now()
	doc.Status = model.StatusFailed
	doc.Error = message
	doc.ProcessedAt = &now
	return nil
}

func (s *MemoryStore) SaveCompleted(doc *model.Document, chunks []model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.checkTransition(doc.ID, model.StatusCompleted)
	if err != nil {
		return err
	}

	kept := make([]model.Chunk, len(chunks))
	for i, c := range chunks {
		c.ID = s.nextChunk
		s.nextChunk++
		c.DocumentID = doc.ID
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now()
		}
		kept[i] = c
	}
	s.chunks[doc.ID] = kept

	now := time.Now()
	stored.Status = model.StatusCompleted
	stored.ChunkCount = len(kept)
	stored.ProcessedAt = &now
	return nil
}

func (s *MemoryStore) checkTransition(id uint, next model.DocumentStatus) (*model.Document, error) {
	doc, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %d not found", id)
	}
	if !doc.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("document %d: invalid status transition %s -> %s", id, doc.Status, next)
	}
	return doc, nil
}

func (s *MemoryStore) GetDocument(id uint) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, nil
	}
	out := *doc
	return &out, nil
}

func (s *MemoryStore) GetDocumentForUser(id, userID uint) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok || doc.UserID != userID {
		return nil, nil
	}
	out := *doc
	return &out, nil
}

func (s *MemoryStore) ListDocuments(userID, sessionID uint) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var docs []model.Document
	for _, doc := range s.documents {
		if doc.UserID != userID {
			continue
		}
		if sessionID != 0 && doc.SessionID != sessionID {
			continue
		}
		docs = append(docs, *doc)
	}
	sortDocuments(docs)
	return docs, nil
}

func (s *MemoryStore) LoadCompletedChunks(userID, sessionID uint) ([]model.CandidateChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var docs []model.Document
	for _, doc := range s.documents {
		if doc.UserID != userID || doc.Status != model.StatusCompleted {
			continue
		}
		if sessionID != 0 && doc.SessionID != sessionID {
			continue
		}
		docs = append(docs, *doc)
	}
	sortDocuments(docs)

	var candidates []model.CandidateChunk
	for _, doc := range docs {
		for _, c := range s.chunks[doc.ID] {
			candidates = append(candidates, model.CandidateChunk{
				Chunk:        c,
				DocumentName: doc.Filename,
				DocCreatedAt: doc.CreatedAt,
			})
		}
	}
	return candidates, nil
}

func (s *MemoryStore) DeleteDocument(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	delete(s.chunks, id)
	return nil
}

func (s *MemoryStore) DeleteBySessionID(sessionID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, doc := range s.documents {
		if doc.SessionID == sessionID {
			delete(s.documents, id)
			delete(s.chunks, id)
		}
	}
	return nil
}

func sortDocuments(docs []model.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
}
