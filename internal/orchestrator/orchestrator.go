// internal/orchestrator/orchestrator.go

// Package orchestrator composes the full answer pipeline: input validation,
// the two cache tiers, classification, source ranking, the search fan-out,
// response combination, statistics feedback, and persistence. One
// long-lived instance is constructed at process start and handed to the API
// layer; there is no ambient global state.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"search-orchestrator/internal/answercache"
	"search-orchestrator/internal/combiner"
	"search-orchestrator/internal/common/config"
	"search-orchestrator/internal/common/errors"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/common/metrics"
	"search-orchestrator/internal/common/observability"
	"search-orchestrator/internal/executor"
	"search-orchestrator/internal/models"
	"search-orchestrator/internal/ranker"
	"search-orchestrator/internal/registry"
	"search-orchestrator/internal/semcache"
	"search-orchestrator/internal/statsfeed"
	"search-orchestrator/internal/storage/conversations"
)

const maxQuestionChars = 500

// Classifier produces the QueryContext for a question. Unavailability
// degrades to a default context, never a failed request.
type Classifier interface {
	Classify(ctx context.Context, text string) (models.QueryContext, error)
}

// Persister receives the full record after the pipeline finishes. A nil
// persister skips storage.
type Persister interface {
	Save(ctx context.Context, rec conversations.Record) (string, error)
}

type Orchestrator struct {
	cfg    *config.Config
	logger logger.Logger

	registry   *registry.Registry
	ranker     *ranker.Ranker
	executor   *executor.Executor
	combiner   *combiner.Combiner
	semCache   *semcache.Cache
	exactCache *answercache.Cache
	stats      *statsfeed.Updater
	classifier Classifier
	clients    map[string]executor.SearchClient
	store      Persister
	obs        *observability.Observability
}

// Deps carries the collaborators; optional ones may be nil.
type Deps struct {
	Registry   *registry.Registry
	Ranker     *ranker.Ranker
	Executor   *executor.Executor
	Combiner   *combiner.Combiner
	SemCache   *semcache.Cache
	ExactCache *answercache.Cache
	Stats      *statsfeed.Updater
	Classifier Classifier
	Clients    []executor.SearchClient
	Store      Persister
	Obs        *observability.Observability
}

func New(cfg *config.Config, deps Deps, log logger.Logger) *Orchestrator {
	clients := make(map[string]executor.SearchClient, len(deps.Clients))
	for _, c := range deps.Clients {
		clients[c.Name()] = c
	}

	return &Orchestrator{
		cfg:        cfg,
		logger:     log,
		registry:   deps.Registry,
		ranker:     deps.Ranker,
		executor:   deps.Executor,
		combiner:   deps.Combiner,
		semCache:   deps.SemCache,
		exactCache: deps.ExactCache,
		stats:      deps.Stats,
		classifier: deps.Classifier,
		clients:    clients,
		store:      deps.Store,
		obs:        deps.Obs,
	}
}

// Process answers one question. Queries always receive a response object:
// an answer with attribution, a cached answer, or the explicit no-answer
// sentinel. Only input validation and configuration-class conditions return
// an error.
func (o *Orchestrator) Process(ctx context.Context, question string) (models.Answer, error) {
	start := time.Now()
	steps := newStepLog()

	if err := validateQuestion(question); err != nil {
		metrics.QueriesTotal.WithLabelValues("invalid").Inc()
		return models.Answer{}, err
	}

	// Tier 1: exact-match cache.
	if o.exactCache != nil {
		if entry, ok := o.exactCache.Lookup(ctx, question); ok {
			metrics.CacheLookups.WithLabelValues("exact", "hit").Inc()
			steps.add("cache_lookup_exact", map[string]interface{}{"result": "hit"})
			return o.finishCached(ctx, question, entry.Answer, entry.Attribution, entry.Quality, start, steps), nil
		}
		metrics.CacheLookups.WithLabelValues("exact", "miss").Inc()
		steps.add("cache_lookup_exact", map[string]interface{}{"result": "miss"})
	}

	// Tier 2: semantic cache.
	if hit, ok := o.semCache.Lookup(question); ok {
		metrics.CacheLookups.WithLabelValues("semantic", "hit").Inc()
		steps.add("cache_lookup_semantic", map[string]interface{}{
			"result":     "hit",
			"similarity": hit.Similarity,
		})
		return o.finishCached(ctx, question, hit.Answer, hit.Attribution, hit.Quality, start, steps), nil
	}
	metrics.CacheLookups.WithLabelValues("semantic", "miss").Inc()
	steps.add("cache_lookup_semantic", map[string]interface{}{"result": "miss"})

	qc := o.classify(ctx, question, steps)

	ranked, err := o.rank(ctx, qc, steps)
	if err != nil {
		return models.Answer{}, err
	}

	results, summary := o.execute(ctx, qc, ranked)
	steps.add("search_execution", map[string]interface{}{
		"dispatched": summary.Dispatched,
		"collected":  summary.Collected,
		"good":       summary.Good,
		"stopReason": summary.StopReason,
		"elapsedMs":  summary.Elapsed.Milliseconds(),
	})

	answer := o.combiner.Combine(qc, results)
	steps.add("combination", map[string]interface{}{
		"attribution": answer.Attribution,
		"noAnswer":    answer.IsNoAnswer(),
	})

	quality := o.evaluate(question, answer, steps)

	o.recordStats(qc, results, answer, quality)
	steps.add("stats_update", map[string]interface{}{"sources": len(results)})

	if !answer.IsNoAnswer() {
		o.semCache.Store(question, answer.Text, answer.Attribution, quality)
		if o.exactCache != nil {
			o.exactCache.Store(ctx, question, answercache.Entry{
				Answer:      answer.Text,
				Attribution: answer.Attribution,
				Quality:     quality,
			})
		}
	}

	outcome := "answered"
	if answer.IsNoAnswer() {
		outcome = "no_answer"
		o.logger.Info("no usable result from any source", map[string]interface{}{
			"question":  question,
			"consulted": len(results),
			"error":     errors.NewNoAnswerError(len(results)).Error(),
		})
	}

	duration := time.Since(start)
	convID := o.persist(ctx, conversations.Record{
		Question:    question,
		Answer:      answer.Text,
		Attribution: answer.Attribution,
		Quality:     quality,
		Duration:    duration,
		Success:     !answer.IsNoAnswer(),
		Steps:       steps.list,
	})

	metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	metrics.QueryDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if o.obs != nil {
		o.obs.RecordQueryProcessed(ctx, outcome)
		o.obs.RecordQueryDuration(ctx, duration, outcome)
	}

	return models.Answer{
		ConversationID: convID,
		Question:       question,
		Text:           answer.Text,
		Attribution:    answer.Attribution,
		Quality:        quality,
		Duration:       duration,
		Steps:          steps.list,
	}, nil
}

// classify calls the external classifier, degrading to the default context
// on any failure.
func (o *Orchestrator) classify(ctx context.Context, question string, steps *stepLog) models.QueryContext {
	if o.classifier == nil {
		steps.add("classification", map[string]interface{}{"degraded": true})
		return models.DefaultQueryContext(question)
	}

	qc, err := o.classifier.Classify(ctx, question)
	if err != nil {
		degraded := errors.NewClassifierDegradedError(err)
		o.logger.Warn(degraded.Message, map[string]interface{}{"error": err.Error()})
		steps.add("classification", map[string]interface{}{"degraded": true})
		return models.DefaultQueryContext(question)
	}

	steps.add("classification", map[string]interface{}{
		"questionType": string(qc.QuestionType),
		"topicId":      qc.TopicID,
		"entities":     len(qc.Entities),
	})
	return qc
}

func (o *Orchestrator) rank(ctx context.Context, qc models.QueryContext, steps *stepLog) ([]ranker.ScoredSource, error) {
	candidates := o.registry.ListEnabled()
	if len(candidates) == 0 {
		return nil, errors.NewNoSourcesActiveError()
	}

	ranked := o.ranker.Rank(ctx, qc, candidates)
	if len(ranked) == 0 {
		return nil, errors.NewNoSourcesActiveError()
	}

	order := make([]string, len(ranked))
	for i, r := range ranked {
		order[i] = r.Source.Name
	}
	steps.add("source_ranking", map[string]interface{}{"order": strings.Join(order, ",")})
	return ranked, nil
}

func (o *Orchestrator) execute(ctx context.Context, qc models.QueryContext, ranked []ranker.ScoredSource) ([]models.SearchResult, executor.Summary) {
	clients := make([]executor.SearchClient, 0, len(ranked))
	for _, r := range ranked {
		if client, ok := o.clients[r.Source.Name]; ok {
			clients = append(clients, client)
		} else {
			o.logger.Warn("ranked source has no search client", map[string]interface{}{
				"source": r.Source.Name,
			})
		}
	}
	return o.executor.Execute(ctx, qc, clients)
}

// evaluate settles the final quality: the combiner's score, raised when the
// content heuristic judges the text higher. The sentinel stays at zero.
func (o *Orchestrator) evaluate(question string, answer models.CombinedAnswer, steps *stepLog) float64 {
	if answer.IsNoAnswer() {
		steps.add("quality_evaluation", map[string]interface{}{"quality": 0.0})
		return 0
	}

	quality := answer.Quality
	if h := combiner.EvaluateQuality(question, answer.Text); h > quality {
		quality = h
	}
	steps.add("quality_evaluation", map[string]interface{}{"quality": quality})
	return quality
}

// recordStats reports every consulted source. Sources named in the
// attribution carry the final answer quality; the rest carry their own
// result quality, with every non-success counting as zero.
func (o *Orchestrator) recordStats(qc models.QueryContext, results []models.SearchResult, answer models.CombinedAnswer, quality float64) {
	contributing := map[string]bool{}
	for _, name := range strings.Split(answer.Attribution, "+") {
		if name != "" {
			contributing[name] = true
		}
	}

	for _, res := range results {
		outcome := 0.0
		switch {
		case contributing[res.Source]:
			outcome = quality
		case res.Success:
			outcome = res.Quality
		}
		o.stats.Record(res.Source, qc, res, outcome)
	}
}

func (o *Orchestrator) finishCached(ctx context.Context, question, text, attribution string, quality float64, start time.Time, steps *stepLog) models.Answer {
	duration := time.Since(start)

	convID := o.persist(ctx, conversations.Record{
		Question:    question,
		Answer:      text,
		Attribution: attribution,
		Quality:     quality,
		Duration:    duration,
		Success:     true,
		Steps:       steps.list,
	})

	metrics.QueriesTotal.WithLabelValues("cache_hit").Inc()
	metrics.QueryDuration.WithLabelValues("cache_hit").Observe(duration.Seconds())
	if o.obs != nil {
		o.obs.RecordQueryProcessed(ctx, "cache_hit")
		o.obs.RecordQueryDuration(ctx, duration, "cache_hit")
	}

	return models.Answer{
		ConversationID: convID,
		Question:       question,
		Text:           text,
		Attribution:    attribution,
		Quality:        quality,
		FromCache:      true,
		Duration:       duration,
		Steps:          steps.list,
	}
}

func (o *Orchestrator) persist(ctx context.Context, rec conversations.Record) string {
	if o.store == nil {
		return ""
	}
	id, err := o.store.Save(ctx, rec)
	if err != nil {
		// Persistence is observability, not correctness; the answer still
		// goes out.
		o.logger.Error("failed to persist conversation", map[string]interface{}{
			"error": errors.NewStoreFailedError(err).Error(),
		})
		return ""
	}
	return id
}

func validateQuestion(question string) error {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return errors.NewValidationError("question is empty")
	}
	if len(trimmed) > maxQuestionChars {
		return errors.NewValidationError("question exceeds 500 characters")
	}
	if !hasAlnum(trimmed) {
		return errors.NewValidationError("question has no alphanumeric content")
	}
	return nil
}
