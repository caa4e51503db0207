// internal/statsfeed/updater.go

// Package statsfeed owns every mutation of per-source statistics: one
// outcome record per consulted source after each request, plus later
// revisions when explicit user feedback arrives.
package statsfeed

import (
	"context"
	"strings"
	"time"

	"search-orchestrator/internal/common/config"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/common/metrics"
	"search-orchestrator/internal/models"
	"search-orchestrator/internal/registry"
)

// Alerter publishes operational alerts. The SNS client satisfies it; a nil
// alerter disables alerting.
type Alerter interface {
	Alert(ctx context.Context, subject, message string) error
}

type Updater struct {
	cfg      config.StatsConfig
	registry *registry.Registry
	alerter  Alerter
	logger   logger.Logger
	clock    func() time.Time
}

func New(cfg config.StatsConfig, reg *registry.Registry, alerter Alerter, log logger.Logger) *Updater {
	return &Updater{
		cfg:      cfg,
		registry: reg,
		alerter:  alerter,
		logger:   log,
		clock:    time.Now,
	}
}

// NewWithClock injects a clock for window tests.
func NewWithClock(cfg config.StatsConfig, reg *registry.Registry, alerter Alerter, log logger.Logger, clock func() time.Time) *Updater {
	u := New(cfg, reg, alerter, log)
	u.clock = clock
	return u
}

// Record applies one consulted-source outcome. Failed, cancelled, and
// timed-out calls count as zero-quality outcomes, so they depress the
// success rate exactly like an empty answer would.
func (u *Updater) Record(sourceName string, qc models.QueryContext, result models.SearchResult, outcomeQuality float64) {
	src := u.registry.Get(sourceName)
	if src == nil {
		u.logger.Warn("outcome for unknown source dropped", map[string]interface{}{
			"source": sourceName,
		})
		return
	}

	src.Stats.RecordOutcome(
		outcomeQuality,
		result.Latency,
		qc.QuestionType,
		qc.TopicID,
		u.cfg.SuccessThreshold,
		u.cfg.MemorizeThreshold,
	)
}

// RecordFeedback revises past-outcome quality for every source named in the
// attribution string ("google+wikipedia" touches both). Repeated negative
// feedback inside the window auto-disables a source: the safety valve
// against sources the model keeps misjudging as promising.
func (u *Updater) RecordFeedback(ctx context.Context, attribution string, kind models.FeedbackKind) {
	if attribution == "" || kind == models.FeedbackNeutral {
		return
	}

	for _, name := range strings.Split(attribution, "+") {
		name = strings.TrimSpace(name)
		src := u.registry.Get(name)
		if src == nil {
			continue
		}

		switch kind {
		case models.FeedbackPositive:
			src.Stats.RecordFeedbackQuality(1.0)
		case models.FeedbackNegative:
			src.Stats.RecordFeedbackQuality(0.0)
			u.handleNegative(ctx, src)
		}
	}
}

func (u *Updater) handleNegative(ctx context.Context, src *registry.Source) {
	count := src.Stats.RecordNegative(u.clock(), u.cfg.NegativeWindow())
	if count < u.cfg.DisableAfterNegatives {
		return
	}
	if !src.Enabled() {
		return
	}

	u.registry.Disable(src.Name)
	metrics.SourcesDisabled.WithLabelValues(src.Name).Inc()

	u.logger.Warn("source auto-disabled after repeated negative feedback", map[string]interface{}{
		"source":    src.Name,
		"negatives": count,
	})

	if u.alerter != nil {
		err := u.alerter.Alert(ctx,
			"search source auto-disabled",
			"source "+src.Name+" was disabled after repeated negative feedback",
		)
		if err != nil {
			u.logger.Error("failed to publish disable alert", map[string]interface{}{
				"source": src.Name,
				"error":  err.Error(),
			})
		}
	}
}
