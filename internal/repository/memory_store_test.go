package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groundnote/internal/model"
)

func newCompletedDoc(t *testing.T, store *MemoryStore, userID, sessionID uint, name string, created time.Time, chunkContents ...string) *model.Document {
	t.Helper()
	doc := &model.Document{
		UserID:    userID,
		SessionID: sessionID,
		Filename:  name,
		CreatedAt: created,
	}
	require.NoError(t, store.CreateDocument(doc))
	require.NoError(t, store.MarkProcessing(doc.ID))

	chunks := make([]model.Chunk, len(chunkContents))
	for i, content := range chunkContents {
		chunks[i] = model.Chunk{Index: i, Content: content, TokenCount: 1}
		chunks[i].SetEmbedding([]float32{1, 0})
	}
	require.NoError(t, store.SaveCompleted(doc, chunks))
	return doc
}

func TestMemoryStore_StatusMachine(t *testing.T) {
	t.Run("happy path is PENDING PROCESSING COMPLETED", func(t *testing.T) {
		store := NewMemoryStore()
		doc := &model.Document{UserID: 1, Filename: "a.txt"}
		require.NoError(t, store.CreateDocument(doc))

		got, err := store.GetDocument(doc.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, got.Status)

		require.NoError(t, store.MarkProcessing(doc.ID))
		require.NoError(t, store.SaveCompleted(doc, nil))

		got, err = store.GetDocument(doc.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCompleted, got.Status)
		assert.NotNil(t, got.ProcessedAt)
	})

	t.Run("terminal states never transition again", func(t *testing.T) {
		store := NewMemoryStore()
		doc := &model.Document{UserID: 1, Filename: "a.txt"}
		require.NoError(t, store.CreateDocument(doc))
		require.NoError(t, store.MarkProcessing(doc.ID))
		require.NoError(t, store.MarkFailed(doc.ID, "boom"))

		assert.Error(t, store.MarkProcessing(doc.ID))
		assert.Error(t, store.SaveCompleted(doc, nil))
		assert.Error(t, store.MarkFailed(doc.ID, "again"))

		got, err := store.GetDocument(doc.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusFailed, got.Status)
		assert.Equal(t, "boom", got.Error)
	})

	t.Run("cannot complete without processing first", func(t *testing.T) {
		store := NewMemoryStore()
		doc := &model.Document{UserID: 1, Filename: "a.txt"}
		require.NoError(t, store.CreateDocument(doc))
		assert.Error(t, store.SaveCompleted(doc, nil))
	})
}

func TestMemoryStore_LoadCompletedChunks(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("only completed documents contribute", func(t *testing.T) {
		store := NewMemoryStore()
		newCompletedDoc(t, store, 1, 0, "done.txt", base, "c0", "c1")

		pending := &model.Document{UserID: 1, Filename: "pending.txt", CreatedAt: base}
		require.NoError(t, store.CreateDocument(pending))

		failed := &model.Document{UserID: 1, Filename: "failed.txt", CreatedAt: base}
		require.NoError(t, store.CreateDocument(failed))
		require.NoError(t, store.MarkProcessing(failed.ID))
		require.NoError(t, store.MarkFailed(failed.ID, "boom"))

		candidates, err := store.LoadCompletedChunks(1, 0)
		require.NoError(t, err)
		require.Len(t, candidates, 2)
		for _, c := range candidates {
			assert.Equal(t, "done.txt", c.DocumentName)
		}
	})

	t.Run("ordering is doc age then id then chunk index", func(t *testing.T) {
		store := NewMemoryStore()
		// Created out of age order on purpose.
		newCompletedDoc(t, store, 1, 0, "second.txt", base.Add(time.Hour), "s0")
		newCompletedDoc(t, store, 1, 0, "first.txt", base, "f0", "f1")

		candidates, err := store.LoadCompletedChunks(1, 0)
		require.NoError(t, err)
		require.Len(t, candidates, 3)
		assert.Equal(t, "first.txt", candidates[0].DocumentName)
		assert.Equal(t, 0, candidates[0].Chunk.Index)
		assert.Equal(t, 1, candidates[1].Chunk.Index)
		assert.Equal(t, "second.txt", candidates[2].DocumentName)
	})

	t.Run("filters by user and session", func(t *testing.T) {
		store := NewMemoryStore()
		newCompletedDoc(t, store, 1, 10, "mine-s10.txt", base, "a")
		newCompletedDoc(t, store, 1, 20, "mine-s20.txt", base, "b")
		newCompletedDoc(t, store, 2, 10, "theirs.txt", base, "c")

		candidates, err := store.LoadCompletedChunks(1, 10)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, "mine-s10.txt", candidates[0].DocumentName)

		all, err := store.LoadCompletedChunks(1, 0)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestMemoryStore_Deletes(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("delete document cascades to chunks", func(t *testing.T) {
		store := NewMemoryStore()
		doc := newCompletedDoc(t, store, 1, 0, "a.txt", base, "c0")

		require.NoError(t, store.DeleteDocument(doc.ID))

		got, err := store.GetDocument(doc.ID)
		require.NoError(t, err)
		assert.Nil(t, got)

		candidates, err := store.LoadCompletedChunks(1, 0)
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})

	t.Run("delete by session leaves other sessions alone", func(t *testing.T) {
		store := NewMemoryStore()
		newCompletedDoc(t, store, 1, 10, "gone.txt", base, "a")
		kept := newCompletedDoc(t, store, 1, 20, "kept.txt", base, "b")

		require.NoError(t, store.DeleteBySessionID(10))

		candidates, err := store.LoadCompletedChunks(1, 0)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, "kept.txt", candidates[0].DocumentName)

		got, err := store.GetDocument(kept.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
	})
}

func TestMemoryStore_GetDocumentForUser(t *testing.T) {
	store := NewMemoryStore()
	doc := &model.Document{UserID: 1, Filename: "a.txt"}
	require.NoError(t, store.CreateDocument(doc))

	got, err := store.GetDocumentForUser(doc.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, got)

	other, err := store.GetDocumentForUser(doc.ID, 2)
	require.NoError(t, err)
	assert.Nil(t, other)
}
