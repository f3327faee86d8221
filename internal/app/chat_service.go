package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"groundnote/internal/model"
	"groundnote/internal/repository"
)

// AsyncMessagePublisher hands question/answer messages to the persistence
// queue; a worker writes them to the database off the request path.
type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

// HistoryCache is the Redis-backed session history cache.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID uint) error
	MarkDirty(ctx context.Context, sessionID uint) error
	IsDirty(ctx context.Context, sessionID uint) (bool, error)
}

// ChatService owns note sessions and their question/answer history. Answering
// goes through retrieval and the orchestrator, so the caller always gets a
// labeled answer even when every upstream collaborator fails.
type ChatService struct {
	sessionRepo  *repository.SessionRepository
	messageRepo  *repository.MessageRepository
	store        ChunkStore
	engine       *RetrievalEngine
	orchestrator *Orchestrator
	publisher    AsyncMessagePublisher
	historyCache HistoryCache
	logger       *slog.Logger
}

func NewChatService(
	sessionRepo *repository.SessionRepository,
	messageRepo *repository.MessageRepository,
	store ChunkStore,
	engine *RetrievalEngine,
	orchestrator *Orchestrator,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
	logger *slog.Logger,
) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		store:        store,
		engine:       engine,
		orchestrator: orchestrator,
		publisher:    publisher,
		historyCache: historyCache,
		logger:       logger,
	}
}

type CreateSessionInput struct {
	UserID uint
	Title  string
}

func (s *ChatService) CreateSession(input CreateSessionInput) (*model.Session, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "New Notes"
	}

	session := &model.Session{
		UserID: input.UserID,
		Title:  title,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) ListSessions(userID uint) ([]model.Session, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.sessionRepo.ListByUserID(userID)
}

// DeleteSession removes a session with its messages, documents, and chunks.
func (s *ChatService) DeleteSession(userID, sessionID uint) error {
	if userID == 0 || sessionID == 0 {
		return ErrInvalidInput
	}
	session, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if err := s.store.DeleteBySessionID(sessionID); err != nil {
		return err
	}
	if err := s.messageRepo.DeleteBySessionID(sessionID); err != nil {
		return err
	}
	if err := s.sessionRepo.DeleteByIDAndUserID(sessionID, userID); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(context.Background(), sessionID)
	}
	return nil
}

// AskInput is one question against a session's notes. SessionID 0 searches
// all of the user's documents.
type AskInput struct {
	UserID    uint
	SessionID uint
	Question  string
}

// AskResult is the labeled answer plus the messages recorded for history.
type AskResult struct {
	Answer   *GenerationAnswer `json:"answer"`
	Messages []model.Message   `json:"messages"`
}

// Ask loads the session's completed chunks, retrieves against the question,
// and hands the outcome (or the retrieval error) to the orchestrator. The
// question and the labeled answer are enqueued for async persistence.
func (s *ChatService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrInvalidInput
	}

	if input.SessionID != 0 {
		session, err := s.sessionRepo.GetByIDAndUserID(input.SessionID, input.UserID)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, ErrSessionNotFound
		}
	}

	var result *RetrievalResult
	candidates, err := s.store.LoadCompletedChunks(input.UserID, input.SessionID)
	if err == nil {
		result, err = s.engine.Retrieve(ctx, question, candidates)
	}
	answer := s.orchestrator.Answer(ctx, question, result, err)

	messages := s.recordExchange(input, question, answer)

	return &AskResult{
		Answer:   answer,
		Messages: messages,
	}, nil
}

// recordExchange enqueues both turns for the persist worker and invalidates
// the cached history. Enqueue failures are logged, never fatal to the answer.
func (s *ChatService) recordExchange(input AskInput, question string, answer *GenerationAnswer) []model.Message {
	if input.SessionID == 0 || s.publisher == nil {
		return nil
	}

	now := time.Now()
	userMessage := model.Message{
		SessionID: input.SessionID,
		UserID:    input.UserID,
		Role:      "user",
		Content:   question,
		CreatedAt: now,
	}
	assistantMessage := model.Message{
		SessionID: input.SessionID,
		UserID:    input.UserID,
		Role:      "assistant",
		Content:   answer.Text,
		Label:     string(answer.Label),
		CreatedAt: now,
	}

	ctx := context.Background()
	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, input.SessionID)
		_ = s.historyCache.DeleteHistory(ctx, input.SessionID)
	}
	for _, msg := range []model.Message{userMessage, assistantMessage} {
		if err := s.publisher.Publish(ctx, msg); err != nil {
			s.logger.Error("enqueue message failed", "session_id", input.SessionID, "error", err)
		}
	}
	return []model.Message{userMessage, assistantMessage}
}

// GetHistory serves a session's history cache-aside: cached copy unless a
// write marked it dirty, database otherwise, refilling the cache when clean.
func (s *ChatService) GetHistory(userID, sessionID uint, limit int) ([]model.Message, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	ctx := context.Background()
	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.messageRepo.ListBySessionID(sessionID, limit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, sessionID, messages)
		}
	}
	return messages, nil
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
