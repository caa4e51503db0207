// internal/orchestrator/steps.go
package orchestrator

import (
	"time"

	"search-orchestrator/internal/models"
	"search-orchestrator/internal/textutil"
)

// stepLog accumulates the ordered, timestamped pipeline stages for one
// request. It rides in the persisted record's metadata and in the response.
type stepLog struct {
	list []models.ProcessingStep
}

func newStepLog() *stepLog {
	return &stepLog{}
}

func (s *stepLog) add(step string, details map[string]interface{}) {
	s.list = append(s.list, models.ProcessingStep{
		Step:      step,
		Timestamp: time.Now().UTC(),
		Details:   details,
	})
}

func hasAlnum(s string) bool {
	return textutil.HasAlnum(s)
}
