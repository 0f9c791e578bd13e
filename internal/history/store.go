// Package history persists answered questions as conversation messages and
// collects reader feedback on them.
//
// Persistence here is best-effort from the caller's point of view: answer
// delivery must never block on a failed write, so the API layer logs store
// errors instead of surfacing them.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectern/lectern/internal/answer"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Accepted feedback values. Mirrored by a CHECK constraint on the table.
const (
	FeedbackHelpful    = "helpful"
	FeedbackNotHelpful = "not_helpful"
	FeedbackIncorrect  = "incorrect"
)

var (
	// ErrNotFound is returned when the referenced message does not exist.
	ErrNotFound = errors.New("message not found")

	// ErrInvalidFeedback is returned for feedback values outside the
	// accepted set.
	ErrInvalidFeedback = errors.New("invalid feedback value")
)

// Message is one stored conversation row.
type Message struct {
	ID         uuid.UUID         `json:"id"`
	SessionID  uuid.UUID         `json:"session_id"`
	Role       string            `json:"role"`
	Content    string            `json:"content"`
	Sources    []answer.Citation `json:"sources,omitempty"`
	Confidence *float64          `json:"confidence,omitempty"`
	Feedback   string            `json:"feedback,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Exchange is one answered question: the reader's question and the service's
// answer with its citations and confidence.
type Exchange struct {
	SessionID  uuid.UUID
	Question   string
	Answer     string
	Sources    []answer.Citation
	Confidence float64
}

const defaultPageSize = 50

// Store persists messages in PostgreSQL.
// Safe for concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// SaveExchange writes the user and assistant rows of one exchange in a
// single transaction and returns the assistant message id, which is the id
// feedback attaches to.
func (s *Store) SaveExchange(ctx context.Context, ex Exchange) (uuid.UUID, error) {
	if ex.SessionID == uuid.Nil {
		return uuid.Nil, errors.New("session id is nil")
	}

	var sources []byte
	if len(ex.Sources) > 0 {
		var err error
		sources, err = json.Marshal(ex.Sources)
		if err != nil {
			return uuid.Nil, fmt.Errorf("marshaling sources: %w", err)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("save exchange rollback", "error", err)
		}
	}()

	const stmt = `
		INSERT INTO messages (id, session_id, role, content, sources, confidence)
		VALUES ($1, $2, $3, $4, $5, $6)`

	userID := uuid.New()
	if _, err := tx.Exec(ctx, stmt,
		userID, ex.SessionID, RoleUser, ex.Question, nil, nil); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert user message: %w", err)
	}

	assistantID := uuid.New()
	if _, err := tx.Exec(ctx, stmt,
		assistantID, ex.SessionID, RoleAssistant, ex.Answer, sources, ex.Confidence); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert assistant message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit exchange: %w", err)
	}

	s.logger.Debug("saved exchange",
		"session_id", ex.SessionID,
		"message_id", assistantID)
	return assistantID, nil
}

// Messages returns a session's messages oldest-first with limit/offset
// pagination. A non-positive limit applies the default page size.
func (s *Store) Messages(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]Message, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	// Both rows of an exchange share the transaction timestamp; the role
	// term keeps the user row first.
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, role, content, sources, confidence, feedback, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at, role = 'assistant'
		LIMIT $2 OFFSET $3`,
		sessionID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var (
			m          Message
			sources    []byte
			confidence *float64
			feedback   *string
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content,
			&sources, &confidence, &feedback, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &m.Sources); err != nil {
				s.logger.Warn("skipping malformed message sources",
					"message_id", m.ID,
					"error", err)
			}
		}
		m.Confidence = confidence
		if feedback != nil {
			m.Feedback = *feedback
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	return messages, nil
}

// SetFeedback records feedback on a message. Returns ErrInvalidFeedback for
// values outside the accepted set and ErrNotFound for unknown ids.
func (s *Store) SetFeedback(ctx context.Context, messageID uuid.UUID, feedback string) error {
	switch feedback {
	case FeedbackHelpful, FeedbackNotHelpful, FeedbackIncorrect:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFeedback, feedback)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE messages SET feedback = $1 WHERE id = $2`,
		feedback, messageID,
	)
	if err != nil {
		return fmt.Errorf("setting feedback on message %s: %w", messageID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.logger.Debug("recorded feedback",
		"message_id", messageID,
		"feedback", feedback)
	return nil
}
