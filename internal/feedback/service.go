// internal/feedback/service.go

// Package feedback is the ingress for explicit user reactions to past
// answers. Reactions revise per-source statistics; corrections are also
// persisted as supervised examples for offline retraining.
package feedback

import (
	"context"
	"fmt"
	"time"

	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/models"
	"search-orchestrator/internal/statsfeed"
)

// ConversationLookup resolves a stored conversation's attribution so
// feedback reaches the sources that produced the answer.
type ConversationLookup interface {
	GetAttribution(ctx context.Context, conversationID string) (string, error)
	SaveFeedback(ctx context.Context, fb models.Feedback) error
	SaveCorrection(ctx context.Context, cor models.Correction) error
}

type Service struct {
	store   ConversationLookup
	updater *statsfeed.Updater
	logger  logger.Logger
}

func New(store ConversationLookup, updater *statsfeed.Updater, log logger.Logger) *Service {
	return &Service{store: store, updater: updater, logger: log}
}

// Register applies one feedback event: persist it, then forward the revised
// outcome into the per-source statistics.
func (s *Service) Register(ctx context.Context, fb models.Feedback) error {
	if fb.ConversationID == "" {
		return fmt.Errorf("feedback requires a conversation id")
	}
	switch fb.Kind {
	case models.FeedbackPositive, models.FeedbackNegative, models.FeedbackNeutral:
	default:
		return fmt.Errorf("unknown feedback kind %q", fb.Kind)
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}

	attribution, err := s.store.GetAttribution(ctx, fb.ConversationID)
	if err != nil {
		return err
	}

	if err := s.store.SaveFeedback(ctx, fb); err != nil {
		return err
	}

	s.updater.RecordFeedback(ctx, attribution, fb.Kind)

	s.logger.Info("feedback registered", map[string]interface{}{
		"conversationId": fb.ConversationID,
		"kind":           string(fb.Kind),
		"attribution":    attribution,
	})
	return nil
}

// RegisterCorrection stores a corrected answer and counts it as negative
// feedback against the sources that produced the original.
func (s *Service) RegisterCorrection(ctx context.Context, cor models.Correction) error {
	if cor.ConversationID == "" {
		return fmt.Errorf("correction requires a conversation id")
	}
	if cor.CorrectedText == "" {
		return fmt.Errorf("correction requires the corrected text")
	}
	if cor.CreatedAt.IsZero() {
		cor.CreatedAt = time.Now().UTC()
	}

	attribution, err := s.store.GetAttribution(ctx, cor.ConversationID)
	if err != nil {
		return err
	}

	if err := s.store.SaveCorrection(ctx, cor); err != nil {
		return err
	}

	s.updater.RecordFeedback(ctx, attribution, models.FeedbackNegative)
	return nil
}
