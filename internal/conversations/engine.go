// Package conversations runs the question-and-answer exchange over an
// uploaded document.
package conversations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pdfchat-backend/internal/documents"
	"pdfchat-backend/internal/llm"
	"pdfchat-backend/internal/shared/lock"
	"pdfchat-backend/internal/shared/metrics"
	"pdfchat-backend/internal/shared/telemetry"
)

// SummaryPrompt opens a fresh conversation; the document text follows it.
const SummaryPrompt = "Can you give me a summary of this pdf file? \n"

const lockKeyPrefix = "conversation:"

// Store is the slice of the document store the engine reads and writes.
type Store interface {
	GetByID(ctx context.Context, userID, documentID string) (documents.Document, error)
	UpdateConversation(ctx context.Context, userID, documentID string, turns []documents.Turn) error
}

// Engine appends question and answer pairs to a document's conversation log.
type Engine struct {
	Docs      Store
	Generator llm.Generator
	Locker    lock.Locker
	// LockTTL bounds how long a crashed holder keeps a document locked.
	LockTTL time.Duration
	// LockWait bounds how long Ask waits for a busy document. Zero waits
	// as long as the request context allows.
	LockWait time.Duration
	now      func() time.Time
}

// NewEngine wires an Engine. The lock TTL covers two generation attempts
// plus persistence.
func NewEngine(docs Store, gen llm.Generator, locker lock.Locker, generationTimeout time.Duration) *Engine {
	if generationTimeout <= 0 {
		generationTimeout = llm.DefaultTimeout
	}
	return &Engine{
		Docs:      docs,
		Generator: gen,
		Locker:    locker,
		LockTTL:   2*generationTimeout + 30*time.Second,
		now:       time.Now,
	}
}

// LockKey returns the lock key guarding a document's conversation.
func LockKey(documentID string) string {
	return lockKeyPrefix + documentID
}

// Ask records question, obtains an answer and persists both turns. It
// returns the full updated log. On any failure the stored log is unchanged.
func (e *Engine) Ask(ctx context.Context, userID, documentID, question string) ([]documents.Turn, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}

	release, err := e.acquire(ctx, documentID)
	if err != nil {
		return nil, err
	}
	defer release()

	doc, err := e.Docs.GetByID(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	prior := doc.Conversation
	turns := make([]documents.Turn, len(prior), len(prior)+2)
	copy(turns, prior)
	turns = append(turns, documents.NewTurn(documents.RoleUser, question, e.clock()))

	var prompt string
	if len(prior) == 0 {
		prompt = SummaryPrompt + doc.FileText
	} else {
		prompt = Transcript(turns)
	}

	metrics.IncQuestionsAsked()
	start := time.Now()
	answer, err := e.Generator.Generate(ctx, prompt)
	if err != nil {
		metrics.IncGenerationFailed()
		telemetry.Error("conversation.generation_failed", map[string]any{
			"document_id": documentID,
			"user_id":     userID,
			"error":       err,
		})
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	turns = append(turns, documents.NewTurn(documents.RoleAssistant, answer, e.clock()))
	if err := e.Docs.UpdateConversation(ctx, userID, documentID, turns); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}

	telemetry.Info("conversation.answered", map[string]any{
		"document_id": documentID,
		"user_id":     userID,
		"turns":       len(turns),
		"seeded":      len(prior) == 0,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return turns, nil
}

// Conversation returns the stored log and the document's storage path.
func (e *Engine) Conversation(ctx context.Context, userID, documentID string) ([]documents.Turn, string, error) {
	doc, err := e.Docs.GetByID(ctx, userID, documentID)
	if err != nil {
		return nil, "", err
	}
	if len(doc.Conversation) == 0 {
		return nil, doc.StoragePath, ErrNoConversation
	}
	return doc.Conversation, doc.StoragePath, nil
}

// Transcript renders turns as "role: content" lines.
func Transcript(turns []documents.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", turn.Role, turn.Content))
	}
	return strings.Join(lines, "\n")
}

func (e *Engine) acquire(ctx context.Context, documentID string) (func(), error) {
	lockCtx := ctx
	if e.LockWait > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, e.LockWait)
		defer cancel()
	}
	release, err := e.Locker.Lock(lockCtx, LockKey(documentID), e.LockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			metrics.IncConversationBusy()
			return nil, fmt.Errorf("%w: %s", ErrBusy, documentID)
		}
		return nil, fmt.Errorf("acquire conversation lock: %w", err)
	}
	return release, nil
}

func (e *Engine) clock() time.Time {
	if e.now == nil {
		return time.Now()
	}
	return e.now()
}
