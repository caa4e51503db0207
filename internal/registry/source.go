// internal/registry/source.go
package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"search-orchestrator/internal/models"
)

// HistoryCapacity bounds the per-source quality history ring.
const HistoryCapacity = 100

// Source is a registered knowledge provider. Identity is immutable; the
// enabled flag and statistics are the only mutable parts.
type Source struct {
	Name               string
	DisplayName        string
	Capabilities       []string
	RequiresCredential bool
	HasCredential      bool

	enabled atomic.Bool
	Stats   *SourceStats
}

// Enabled reports the current enabled flag. In-flight requests may legally
// observe a source disabled after they dispatched to it.
func (s *Source) Enabled() bool {
	return s.enabled.Load()
}

// Usable reports whether ranking may consider the source at all.
func (s *Source) Usable() bool {
	if !s.enabled.Load() {
		return false
	}
	if s.RequiresCredential && !s.HasCredential {
		return false
	}
	return true
}

// SourceStats carries per-source online statistics. All mutation goes
// through the stats feedback updater, serialized by the internal mutex.
type SourceStats struct {
	mu sync.Mutex

	totalUses  int64
	successes  int64
	failures   int64
	avgLatency time.Duration
	qualityEW  float64

	// Fixed-capacity ring of the most recent quality scores, oldest
	// overwritten first.
	history [HistoryCapacity]float64
	head    int
	size    int

	goodByType  map[models.QuestionType]int64
	goodByTopic map[string]int64

	recentNegatives []time.Time
}

func newSourceStats() *SourceStats {
	return &SourceStats{
		goodByType:  make(map[models.QuestionType]int64),
		goodByTopic: make(map[string]int64),
	}
}

// StatsSnapshot is an immutable copy used by ranking.
type StatsSnapshot struct {
	TotalUses   int64
	Successes   int64
	Failures    int64
	AvgLatency  time.Duration
	QualityEW   float64
	History     []float64
	GoodByType  map[models.QuestionType]int64
	GoodByTopic map[string]int64
}

// SuccessRate is successes / total uses, in [0,1]. Zero uses yields 0.
func (s StatsSnapshot) SuccessRate() float64 {
	if s.TotalUses == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.TotalUses)
}

// TypeGoodRate is the share of uses where the source was good for the given
// question type. Returns ok=false when nothing was ever recorded for it.
func (s StatsSnapshot) TypeGoodRate(qt models.QuestionType) (float64, bool) {
	if s.TotalUses == 0 {
		return 0, false
	}
	good, seen := s.GoodByType[qt]
	if !seen {
		return 0, false
	}
	return float64(good) / float64(s.TotalUses), true
}

// TopicGoodRate is the share of uses where the source was good for the given
// topic. Returns ok=false when nothing was ever recorded for it.
func (s StatsSnapshot) TopicGoodRate(topic string) (float64, bool) {
	if s.TotalUses == 0 || topic == "" {
		return 0, false
	}
	good, seen := s.GoodByTopic[topic]
	if !seen {
		return 0, false
	}
	return float64(good) / float64(s.TotalUses), true
}

// Snapshot copies the current statistics.
func (s *SourceStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	hist := make([]float64, 0, s.size)
	for i := 0; i < s.size; i++ {
		hist = append(hist, s.history[(s.head+HistoryCapacity-s.size+i)%HistoryCapacity])
	}

	byType := make(map[models.QuestionType]int64, len(s.goodByType))
	for k, v := range s.goodByType {
		byType[k] = v
	}
	byTopic := make(map[string]int64, len(s.goodByTopic))
	for k, v := range s.goodByTopic {
		byTopic[k] = v
	}

	return StatsSnapshot{
		TotalUses:   s.totalUses,
		Successes:   s.successes,
		Failures:    s.failures,
		AvgLatency:  s.avgLatency,
		QualityEW:   s.qualityEW,
		History:     hist,
		GoodByType:  byType,
		GoodByTopic: byTopic,
	}
}

// RecordOutcome applies one consulted-source outcome. successThreshold and
// memorizeThreshold come from configuration; qt/topic identify where the
// source was good.
func (s *SourceStats) RecordOutcome(quality float64, latency time.Duration, qt models.QuestionType, topic string, successThreshold, memorizeThreshold float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalUses++
	if quality >= successThreshold {
		s.successes++
	} else {
		s.failures++
	}

	// Running average: avg_n = (avg_{n-1}*(n-1) + latency) / n
	n := s.totalUses
	s.avgLatency = time.Duration((int64(s.avgLatency)*(n-1) + int64(latency)) / n)

	// Exponentially weighted quality.
	if s.totalUses == 1 {
		s.qualityEW = quality
	} else {
		s.qualityEW = s.qualityEW*0.9 + quality*0.1
	}

	s.pushHistory(quality)

	if quality > memorizeThreshold {
		s.goodByType[qt]++
		if topic != "" {
			s.goodByTopic[topic]++
		}
	}
}

// RecordFeedbackQuality folds an explicit feedback revision into the
// exponentially weighted quality score and the history ring without counting
// a new use.
func (s *SourceStats) RecordFeedbackQuality(quality float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.qualityEW = s.qualityEW*0.9 + quality*0.1
	s.pushHistory(quality)
}

// RecordNegative appends a negative-feedback timestamp and returns how many
// negatives fall inside the window ending now.
func (s *SourceStats) RecordNegative(now time.Time, window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	kept := s.recentNegatives[:0]
	for _, t := range s.recentNegatives {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	s.recentNegatives = append(kept, now)
	return len(s.recentNegatives)
}

func (s *SourceStats) pushHistory(quality float64) {
	s.history[s.head] = quality
	s.head = (s.head + 1) % HistoryCapacity
	if s.size < HistoryCapacity {
		s.size++
	}
}
