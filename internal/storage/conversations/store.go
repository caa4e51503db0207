// internal/storage/conversations/store.go

// Package conversations persists one record per answered query, plus the
// feedback and correction rows tied to it. The orchestrator produces the
// processing-step metadata; this store only writes it.
package conversations

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/models"
)

// Record is what the pipeline hands over after every request.
type Record struct {
	ID          string
	Question    string
	Answer      string
	Attribution string
	Quality     float64
	Duration    time.Duration
	Success     bool
	Steps       []models.ProcessingStep
	CreatedAt   time.Time
}

type metadata struct {
	Steps []models.ProcessingStep `json:"processingSteps"`
}

type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{db: db, logger: log}
}

// Save inserts the conversation record and returns its id.
func (s *Store) Save(ctx context.Context, rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	meta, err := json.Marshal(metadata{Steps: rec.Steps})
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	const q = `
		INSERT INTO conversations
			(id, question, answer, attribution, quality, duration_ms, success, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = s.db.ExecContext(ctx, q,
		rec.ID,
		rec.Question,
		rec.Answer,
		rec.Attribution,
		rec.Quality,
		rec.Duration.Milliseconds(),
		rec.Success,
		meta,
		rec.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert conversation: %w", err)
	}
	return rec.ID, nil
}

// GetAttribution returns the attribution string of a stored conversation.
func (s *Store) GetAttribution(ctx context.Context, conversationID string) (string, error) {
	const q = `SELECT attribution FROM conversations WHERE id = $1`

	var attribution string
	err := s.db.QueryRowContext(ctx, q, conversationID).Scan(&attribution)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("conversation %s not found", conversationID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load conversation: %w", err)
	}
	return attribution, nil
}

// SaveFeedback records an explicit user reaction.
func (s *Store) SaveFeedback(ctx context.Context, fb models.Feedback) error {
	const q = `
		INSERT INTO feedback (id, conversation_id, kind, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, q,
		uuid.NewString(),
		fb.ConversationID,
		string(fb.Kind),
		fb.Details,
		fb.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

// SaveCorrection records a user-supplied corrected answer, kept as a
// supervised example for offline retraining.
func (s *Store) SaveCorrection(ctx context.Context, cor models.Correction) error {
	const q = `
		INSERT INTO corrections (id, conversation_id, corrected_text, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := s.db.ExecContext(ctx, q,
		uuid.NewString(),
		cor.ConversationID,
		cor.CorrectedText,
		cor.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert correction: %w", err)
	}
	return nil
}

// SatisfactionRate is positive feedback over all non-neutral feedback.
func (s *Store) SatisfactionRate(ctx context.Context) (float64, error) {
	const q = `
		SELECT
			COUNT(*) FILTER (WHERE kind = 'positive'),
			COUNT(*) FILTER (WHERE kind IN ('positive', 'negative'))
		FROM feedback`

	var positive, rated int64
	if err := s.db.QueryRowContext(ctx, q).Scan(&positive, &rated); err != nil {
		return 0, fmt.Errorf("failed to compute satisfaction rate: %w", err)
	}
	if rated == 0 {
		return 0, nil
	}
	return float64(positive) / float64(rated), nil
}
