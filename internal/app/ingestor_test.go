package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groundnote/internal/model"
	"groundnote/internal/repository"
)

const testDim = 2

func newTestIngestor(store ChunkStore, embedder Embedder) *Ingestor {
	return NewIngestor(store, embedder, NewChunker(4, 1), 1<<20, testDim, nil)
}

func waitTerminal(t *testing.T, ing *Ingestor, docID uint) *model.Document {
	t.Helper()
	doc, err := ing.WaitForDocument(context.Background(), docID, 5*time.Millisecond, 400)
	require.NoError(t, err)
	return doc
}

func TestIngestor_Ingest(t *testing.T) {
	ctx := context.Background()

	t.Run("success reaches COMPLETED with ordered chunks", func(t *testing.T) {
		store := repository.NewMemoryStore()
		ing := newTestIngestor(store, constEmbedder([]float32{1, 0}))

		text := strings.Repeat("alpha beta gamma delta ", 3) // 12 tokens
		doc, err := ing.Ingest(ctx, IngestInput{
			UserID:   1,
			Filename: "notes.txt",
			Data:     []byte(text),
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, doc.Status)

		done := waitTerminal(t, ing, doc.ID)
		assert.Equal(t, model.StatusCompleted, done.Status)
		assert.NotNil(t, done.ProcessedAt)
		assert.NotEmpty(t, done.ContentHash)

		candidates, err := store.LoadCompletedChunks(1, 0)
		require.NoError(t, err)
		require.Equal(t, done.ChunkCount, len(candidates))
		for i, c := range candidates {
			assert.Equal(t, i, c.Chunk.Index)
			assert.NotEmpty(t, c.Chunk.Content)
			assert.Len(t, c.Chunk.EmbeddingVector(), testDim)
		}
	})

	t.Run("rejects invalid uploads before any row exists", func(t *testing.T) {
		store := repository.NewMemoryStore()
		ing := newTestIngestor(store, constEmbedder([]float32{1, 0}))

		cases := []IngestInput{
			{UserID: 0, Filename: "a.txt", Data: []byte("x")},
			{UserID: 1, Filename: "a.txt", Data: nil},
			{UserID: 1, Filename: "a.exe", Data: []byte("x")},
			{UserID: 1, Filename: "big.txt", Data: make([]byte, 2<<20)},
		}
		for _, input := range cases {
			_, err := ing.Ingest(ctx, input)
			assert.ErrorIs(t, err, ErrValidation)
		}

		docs, err := store.ListDocuments(1, 0)
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("extraction failure marks FAILED and keeps zero chunks", func(t *testing.T) {
		store := repository.NewMemoryStore()
		ing := newTestIngestor(store, constEmbedder([]float32{1, 0}))

		doc, err := ing.Ingest(ctx, IngestInput{
			UserID:   1,
			Filename: "broken.pdf",
			Data:     []byte("this is not a pdf"),
		})
		require.NoError(t, err)

		done := waitTerminal(t, ing, doc.ID)
		assert.Equal(t, model.StatusFailed, done.Status)
		assert.NotEmpty(t, done.Error)

		candidates, err := store.LoadCompletedChunks(1, 0)
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})

	t.Run("embedding failure mid-document fails the whole document", func(t *testing.T) {
		store := repository.NewMemoryStore()
		calls := 0
		embedder := &fakeEmbedder{fn: func(context.Context, string) ([]float32, error) {
			calls++
			if calls >= 2 {
				return nil, errors.New("upstream 503")
			}
			return []float32{1, 0}, nil
		}}
		ing := newTestIngestor(store, embedder)

		text := strings.Repeat("tok ", 10) // several chunks at size 4
		doc, err := ing.Ingest(ctx, IngestInput{
			UserID:   1,
			Filename: "notes.txt",
			Data:     []byte(text),
		})
		require.NoError(t, err)

		done := waitTerminal(t, ing, doc.ID)
		assert.Equal(t, model.StatusFailed, done.Status)
		assert.Contains(t, done.Error, "embedding failed")

		candidates, err := store.LoadCompletedChunks(1, 0)
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})

	t.Run("wrong embedding dimension fails the document", func(t *testing.T) {
		store := repository.NewMemoryStore()
		ing := newTestIngestor(store, constEmbedder([]float32{1, 0, 0}))

		doc, err := ing.Ingest(ctx, IngestInput{
			UserID:   1,
			Filename: "notes.txt",
			Data:     []byte("some words here"),
		})
		require.NoError(t, err)

		done := waitTerminal(t, ing, doc.ID)
		assert.Equal(t, model.StatusFailed, done.Status)
		assert.Contains(t, done.Error, "dimension")
	})

	t.Run("whitespace-only text fails the document", func(t *testing.T) {
		store := repository.NewMemoryStore()
		ing := newTestIngestor(store, constEmbedder([]float32{1, 0}))

		doc, err := ing.Ingest(ctx, IngestInput{
			UserID:   1,
			Filename: "blank.txt",
			Data:     []byte("   \n\t  "),
		})
		require.NoError(t, err)

		done := waitTerminal(t, ing, doc.ID)
		assert.Equal(t, model.StatusFailed, done.Status)
	})

	t.Run("independent documents ingest concurrently", func(t *testing.T) {
		store := repository.NewMemoryStore()
		ing := newTestIngestor(store, constEmbedder([]float32{1, 0}))

		var ids []uint
		for i := 0; i < 5; i++ {
			doc, err := ing.Ingest(ctx, IngestInput{
				UserID:   1,
				Filename: fmt.Sprintf("doc%d.txt", i),
				Data:     []byte(fmt.Sprintf("content of document %d", i)),
			})
			require.NoError(t, err)
			ids = append(ids, doc.ID)
		}
		for _, id := range ids {
			done := waitTerminal(t, ing, id)
			assert.Equal(t, model.StatusCompleted, done.Status)
		}
	})
}

func TestIngestor_WaitForDocument(t *testing.T) {
	t.Run("bounded attempts run out on a stuck document", func(t *testing.T) {
		store := repository.NewMemoryStore()
		ing := newTestIngestor(store, constEmbedder([]float32{1, 0}))

		doc := &model.Document{UserID: 1, Filename: "stuck.txt"}
		require.NoError(t, store.CreateDocument(doc))
		require.NoError(t, store.MarkProcessing(doc.ID))

		_, err := ing.WaitForDocument(context.Background(), doc.ID, time.Millisecond, 3)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not terminal")
	})

	t.Run("context cancellation stops the poll", func(t *testing.T) {
		store := repository.NewMemoryStore()
		ing := newTestIngestor(store, constEmbedder([]float32{1, 0}))

		doc := &model.Document{UserID: 1, Filename: "stuck.txt"}
		require.NoError(t, store.CreateDocument(doc))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := ing.WaitForDocument(ctx, doc.ID, time.Hour, 100)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("unknown document is an error", func(t *testing.T) {
		store := repository.NewMemoryStore()
		ing := newTestIngestor(store, constEmbedder([]float32{1, 0}))

		_, err := ing.WaitForDocument(context.Background(), 999, time.Millisecond, 2)
		assert.ErrorIs(t, err, ErrDocumentNotFound)
	})

	t.Run("rejects non-positive bounds", func(t *testing.T) {
		store := repository.NewMemoryStore()
		ing := newTestIngestor(store, constEmbedder([]float32{1, 0}))

		_, err := ing.WaitForDocument(context.Background(), 1, 0, 5)
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = ing.WaitForDocument(context.Background(), 1, time.Millisecond, 0)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}
