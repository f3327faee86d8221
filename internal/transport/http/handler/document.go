package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"groundnote/internal/app"
	"groundnote/internal/transport/http/response"
)

// Status polling bounds for ?wait=true. 40 attempts at 500ms caps a request
// at roughly 20 seconds.
const (
	statusPollInterval = 500 * time.Millisecond
	statusPollAttempts = 40
)

type DocumentHandler struct {
	ingestor *app.Ingestor
	store    app.ChunkStore
}

type CreateDocumentRequest struct {
	Name      string `json:"name"`
	Content   string `json:"content" binding:"required"`
	SessionID uint   `json:"session_id"`
}

func NewDocumentHandler(ingestor *app.Ingestor, store app.ChunkStore) *DocumentHandler {
	return &DocumentHandler{ingestor: ingestor, store: store}
}

// Upload accepts a multipart form with "file" and optional "session_id".
// The response carries the PENDING document; clients poll its status.
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}

	doc, err := h.ingestor.Ingest(c.Request.Context(), app.IngestInput{
		UserID:    userID,
		SessionID: parseUintForm(c, "session_id"),
		Filename:  file.Filename,
		Data:      data,
	})
	if err != nil {
		if errors.Is(err, app.ErrValidation) {
			response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest failed")
		}
		return
	}

	response.OK(c, doc)
}

// CreateDocument ingests raw text sent as JSON, for notes that never lived
// in a file.
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	name := req.Name
	if name == "" {
		name = "note.txt"
	}

	doc, err := h.ingestor.Ingest(c.Request.Context(), app.IngestInput{
		UserID:      userID,
		SessionID:   req.SessionID,
		Filename:    name,
		ContentType: "txt",
		Data:        []byte(req.Content),
	})
	if err != nil {
		if errors.Is(err, app.ErrValidation) {
			response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest failed")
		}
		return
	}

	response.OK(c, doc)
}

func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	sessionID := uint(0)
	if s := c.Query("session_id"); s != "" {
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			sessionID = uint(u)
		}
	}

	docs, err := h.store.ListDocuments(userID, sessionID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}

	response.OK(c, docs)
}

// GetDocument returns one document's status. With ?wait=true the handler
// polls until the document reaches COMPLETED or FAILED or the bounded loop
// runs out.
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	docID, err := parseUintParam(c, "id")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	doc, err := h.store.GetDocumentForUser(docID, userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get document failed")
		return
	}
	if doc == nil {
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "document not found")
		return
	}

	if c.Query("wait") == "true" && !doc.Status.Terminal() {
		waited, err := h.ingestor.WaitForDocument(c.Request.Context(), docID, statusPollInterval, statusPollAttempts)
		if err == nil {
			doc = waited
		}
	}

	response.OK(c, doc)
}

func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	docID, err := parseUintParam(c, "id")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	doc, err := h.store.GetDocumentForUser(docID, userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get document failed")
		return
	}
	if doc == nil {
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "document not found")
		return
	}

	if err := h.store.DeleteDocument(docID); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		return
	}

	response.OK(c, gin.H{"deleted_document_id": docID})
}

func parseUintForm(c *gin.Context, key string) uint {
	s := c.PostForm(key)
	if s == "" {
		return 0
	}
	u, _ := strconv.ParseUint(s, 10, 64)
	return uint(u)
}
