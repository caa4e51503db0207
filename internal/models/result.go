// internal/models/result.go
package models

import "time"

// CallState tracks one source call through the fan-out.
type CallState string

const (
	CallPending   CallState = "pending"
	CallInFlight  CallState = "in_flight"
	CallSucceeded CallState = "succeeded"
	CallFailed    CallState = "failed"
	CallCancelled CallState = "cancelled"
	CallTimedOut  CallState = "timed_out"
)

// SearchResult is one source's outcome for one request. Only succeeded
// results with non-empty text participate in combination, but every terminal
// state feeds the stats updater.
type SearchResult struct {
	Source  string        `json:"source"`
	Text    string        `json:"text"`
	Quality float64       `json:"quality"`
	Latency time.Duration `json:"latency"`
	Success bool          `json:"success"`
	State   CallState     `json:"state"`
	Err     string        `json:"error,omitempty"`
}

// NoAnswerText is the sentinel returned when no source produced a usable
// result. A normal outcome, not a fault.
const NoAnswerText = "Não encontrei uma resposta para essa pergunta."

// CombinedAnswer is the combiner's output.
type CombinedAnswer struct {
	Text        string  `json:"text"`
	Attribution string  `json:"attribution"`
	Quality     float64 `json:"quality"`
}

// IsNoAnswer reports whether the answer is the empty-answer sentinel.
func (a CombinedAnswer) IsNoAnswer() bool {
	return a.Attribution == "" && a.Quality == 0
}

// ProcessingStep is one timestamped pipeline stage entry. The ordered list
// rides in the persisted record's metadata for observability.
type ProcessingStep struct {
	Step      string                 `json:"step"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Answer is the full response object handed back to the API layer.
type Answer struct {
	ConversationID string           `json:"conversationId"`
	Question       string           `json:"question"`
	Text           string           `json:"text"`
	Attribution    string           `json:"attribution"`
	Quality        float64          `json:"quality"`
	FromCache      bool             `json:"fromCache"`
	Duration       time.Duration    `json:"duration"`
	Steps          []ProcessingStep `json:"steps"`
}
