package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"groundnote/internal/model"
	"groundnote/internal/pkg/extract"
)

// Ingestor turns uploaded bytes into an embedded, queryable chunk set,
// driving the document status machine. Validation errors are returned before
// any document row exists; everything after that fails the document, not the
// caller.
type Ingestor struct {
	store     ChunkStore
	embedder  Embedder
	chunker   *Chunker
	maxBytes  int64
	dimension int
	logger    *slog.Logger
}

func NewIngestor(store ChunkStore, embedder Embedder, chunker *Chunker, maxBytes int64, dimension int, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		store:     store,
		embedder:  embedder,
		chunker:   chunker,
		maxBytes:  maxBytes,
		dimension: dimension,
		logger:    logger,
	}
}

// IngestInput is one upload. ContentType is the short form ("pdf", "txt",
// "md", "docx"); when empty it is derived from the filename.
type IngestInput struct {
	UserID      uint
	SessionID   uint // 0 = no session
	Filename    string
	ContentType string
	Data        []byte
}

// Ingest validates the upload, records a PENDING document, and processes it
// on its own goroutine. The returned document is the row to poll; it reaches
// COMPLETED or FAILED without further caller involvement. Independent
// documents ingest concurrently; steps within one document are sequential.
func (ing *Ingestor) Ingest(ctx context.Context, input IngestInput) (*model.Document, error) {
	if input.UserID == 0 {
		return nil, fmt.Errorf("%w: missing user", ErrValidation)
	}
	if len(input.Data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrValidation)
	}
	if int64(len(input.Data)) > ing.maxBytes {
		return nil, fmt.Errorf("%w: file size %d exceeds limit %d bytes", ErrValidation, len(input.Data), ing.maxBytes)
	}

	contentType := strings.ToLower(strings.TrimSpace(input.ContentType))
	if contentType == "" {
		contentType = extract.TypeFromFilename(input.Filename)
	}
	if !extract.Supported(contentType) {
		return nil, fmt.Errorf("%w: unsupported content type %q (want pdf, txt, md, or docx)", ErrValidation, input.ContentType)
	}

	filename := strings.TrimSpace(input.Filename)
	if filename == "" {
		filename = "untitled." + contentType
	}

	hash := sha256.Sum256(input.Data)

	doc := &model.Document{
		UserID:      input.UserID,
		SessionID:   input.SessionID,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   int64(len(input.Data)),
		ContentHash: hex.EncodeToString(hash[:]),
		Status:      model.StatusPending,
	}
	if err := ing.store.CreateDocument(doc); err != nil {
		return nil, err
	}

	// Processing outlives the upload request; only its values are carried
	// over, not its cancellation.
	go ing.process(context.WithoutCancel(ctx), doc.ID, contentType, input.Data)

	return doc, nil
}

// process runs extraction, chunking, embedding, and persistence for one
// document, strictly in order. Any failure marks the document FAILED and
// leaves zero chunks behind.
func (ing *Ingestor) process(ctx context.Context, docID uint, contentType string, data []byte) {
	if err := ing.store.MarkProcessing(docID); err != nil {
		ing.logger.Error("mark document processing failed", "document_id", docID, "error", err)
		return
	}

	text, err := extract.Text(contentType, data)
	if err != nil {
		ing.fail(docID, fmt.Errorf("%w: %v", ErrExtraction, err))
		return
	}
	if strings.TrimSpace(text) == "" {
		ing.fail(docID, fmt.Errorf("%w: no extractable text", ErrExtraction))
		return
	}

	textChunks := ing.chunker.Split(text)
	if len(textChunks) == 0 {
		ing.fail(docID, fmt.Errorf("%w: text produced no chunks", ErrExtraction))
		return
	}

	chunks := make([]model.Chunk, len(textChunks))
	for i, tc := range textChunks {
		vec, err := ing.embedder.Embed(ctx, tc.Content)
		if err != nil {
			ing.fail(docID, fmt.Errorf("%w: chunk %d: %v", ErrEmbedding, i, err))
			return
		}
		if len(vec) != ing.dimension {
			ing.fail(docID, fmt.Errorf("%w: chunk %d: got dimension %d, want %d", ErrEmbedding, i, len(vec), ing.dimension))
			return
		}
		chunks[i] = model.Chunk{
			DocumentID: docID,
			Index:      i,
			Content:    tc.Content,
			TokenCount: tc.TokenCount,
		}
		chunks[i].SetEmbedding(vec)
	}

	doc, err := ing.store.GetDocument(docID)
	if err != nil || doc == nil {
		ing.logger.Error("load document for completion failed", "document_id", docID, "error", err)
		return
	}
	if err := ing.store.SaveCompleted(doc, chunks); err != nil {
		ing.fail(docID, fmt.Errorf("persist chunks failed: %w", err))
		return
	}

	ing.logger.Info("document ingested", "document_id", docID, "chunks", len(chunks))
}

func (ing *Ingestor) fail(docID uint, cause error) {
	ing.logger.Warn("document ingestion failed", "document_id", docID, "error", cause)
	if err := ing.store.MarkFailed(docID, cause.Error()); err != nil {
		ing.logger.Error("mark document failed errored", "document_id", docID, "error", err)
	}
}

// WaitForDocument polls the status surface until the document reaches a
// terminal state: a bounded loop with a fixed interval and a fixed number of
// attempts, cancellable through ctx.
func (ing *Ingestor) WaitForDocument(ctx context.Context, docID uint, interval time.Duration, maxAttempts int) (*model.Document, error) {
	if interval <= 0 || maxAttempts <= 0 {
		return nil, fmt.Errorf("%w: poll interval and max attempts must be positive", ErrInvalidInput)
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		doc, err := ing.store.GetDocument(docID)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, ErrDocumentNotFound
		}
		if doc.Status.Terminal() {
			return doc, nil
		}
		timer.Reset(interval)
	}
	return nil, fmt.Errorf("document %d not terminal after %d attempts", docID, maxAttempts)
}
