// internal/models/feedback.go
package models

import "time"

// FeedbackKind distinguishes explicit user reactions to a past answer.
type FeedbackKind string

const (
	FeedbackPositive FeedbackKind = "positive"
	FeedbackNegative FeedbackKind = "negative"
	FeedbackNeutral  FeedbackKind = "neutral"
)

// Feedback ties a user reaction to a stored conversation.
type Feedback struct {
	ConversationID string       `json:"conversationId"`
	Kind           FeedbackKind `json:"kind"`
	Details        string       `json:"details,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// Correction is an explicit corrected answer supplied by a user, kept as a
// supervised example for offline retraining.
type Correction struct {
	ConversationID string    `json:"conversationId"`
	CorrectedText  string    `json:"correctedText"`
	CreatedAt      time.Time `json:"createdAt"`
}
