// internal/ranker/ranker.go
package ranker

import (
	"context"
	"sort"

	"search-orchestrator/internal/common/config"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/models"
	"search-orchestrator/internal/registry"
)

// Scorer is the external model scoring capability: per-source probabilities
// for a query context. May fail or return nothing; ranking then falls back
// to historical stats alone.
type Scorer interface {
	Score(ctx context.Context, qc models.QueryContext, candidates []string) (map[string]float64, error)
}

// ScoredSource pairs a source with its blended ranking score.
type ScoredSource struct {
	Source *registry.Source
	Score  float64

	// successRate is kept for tie-breaking so the sort never re-reads
	// mutable stats mid-comparison.
	successRate float64
}

type Ranker struct {
	cfg    config.RankingConfig
	scorer Scorer
	logger logger.Logger
}

func New(cfg config.RankingConfig, scorer Scorer, log logger.Logger) *Ranker {
	return &Ranker{cfg: cfg, scorer: scorer, logger: log}
}

// Rank orders the usable candidates by blended score and truncates to top-K.
// Deterministic for a fixed QueryContext and stats snapshot: ties break by
// higher success rate, then lexical name order.
func (r *Ranker) Rank(ctx context.Context, qc models.QueryContext, candidates []*registry.Source) []ScoredSource {
	usable := make([]*registry.Source, 0, len(candidates))
	for _, src := range candidates {
		if src.Usable() {
			usable = append(usable, src)
		}
	}
	if len(usable) == 0 {
		return nil
	}

	modelScores := r.modelScores(ctx, qc, usable)

	scored := make([]ScoredSource, 0, len(usable))
	for _, src := range usable {
		snap := src.Stats.Snapshot()
		hist := r.historicalComponent(snap, qc)
		score := r.cfg.ModelWeight*modelScores[src.Name] + r.cfg.HistoryWeight*hist
		scored = append(scored, ScoredSource{
			Source:      src,
			Score:       score,
			successRate: snap.SuccessRate(),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].successRate != scored[j].successRate {
			return scored[i].successRate > scored[j].successRate
		}
		return scored[i].Source.Name < scored[j].Source.Name
	})

	if r.cfg.TopK > 0 && len(scored) > r.cfg.TopK {
		scored = scored[:r.cfg.TopK]
	}
	return scored
}

// modelScores calls the external scorer, degrading to zeros on failure so
// ranking never hard-fails the request.
func (r *Ranker) modelScores(ctx context.Context, qc models.QueryContext, sources []*registry.Source) map[string]float64 {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name
	}

	if r.scorer == nil {
		return map[string]float64{}
	}

	scores, err := r.scorer.Score(ctx, qc, names)
	if err != nil || len(scores) == 0 {
		r.logger.Warn("model scoring unavailable, ranking on historical stats only", map[string]interface{}{
			"error": errString(err),
		})
		return map[string]float64{}
	}
	return scores
}

// historicalComponent blends overall, question-type, and topic success rates.
// A dimension with no observations falls back to the overall rate so a cold
// source is not penalized three times for one cold start.
func (r *Ranker) historicalComponent(snap registry.StatsSnapshot, qc models.QueryContext) float64 {
	overall := snap.SuccessRate()

	typeRate := overall
	if rate, ok := snap.TypeGoodRate(qc.QuestionType); ok {
		typeRate = rate
	}

	topicRate := overall
	if rate, ok := snap.TopicGoodRate(qc.TopicID); ok {
		topicRate = rate
	}

	wSum := r.cfg.OverallWeight + r.cfg.TypeWeight + r.cfg.TopicWeight
	if wSum == 0 {
		return overall
	}
	return (r.cfg.OverallWeight*overall + r.cfg.TypeWeight*typeRate + r.cfg.TopicWeight*topicRate) / wSum
}

func errString(err error) string {
	if err == nil {
		return "empty score vector"
	}
	return err.Error()
}
