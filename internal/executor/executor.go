// internal/executor/executor.go
package executor

import (
	"context"
	stderrors "errors"
	"time"

	"search-orchestrator/internal/common/config"
	"search-orchestrator/internal/common/errors"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/common/metrics"
	"search-orchestrator/internal/models"
)

// SearchClient is the uniform per-source search contract. Each integration
// implements it independently; the executor treats all of them alike.
type SearchClient interface {
	Name() string
	Search(ctx context.Context, qc models.QueryContext) (text string, quality float64, err error)
}

// Summary describes how a fan-out ended, for the processing-step log.
type Summary struct {
	Dispatched int
	Collected  int
	Good       int
	StopReason string // early_stop, deadline, exhausted
	Elapsed    time.Duration
}

type Executor struct {
	cfg    config.ExecutorConfig
	logger logger.Logger
}

func New(cfg config.ExecutorConfig, log logger.Logger) *Executor {
	return &Executor{cfg: cfg, logger: log}
}

// Execute dispatches the ranked clients concurrently, bounded by
// max_parallel, under the global deadline. It returns results in arrival
// order as soon as either enough good results arrived or the deadline
// elapsed. Cancellation of outstanding calls is best-effort: the executor
// does not wait for cancelled calls to unwind, and their late results are
// discarded.
func (e *Executor) Execute(parent context.Context, qc models.QueryContext, clients []SearchClient) ([]models.SearchResult, Summary) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(parent, e.cfg.GlobalTimeout())
	defer cancel()

	// Buffered so workers finishing after the executor returned never block.
	resultCh := make(chan models.SearchResult, len(clients))
	sem := make(chan struct{}, e.cfg.MaxParallel)

	dispatched := 0
	go func() {
		for _, client := range clients {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			go func(c SearchClient) {
				defer func() { <-sem }()
				resultCh <- e.callSource(ctx, c, qc)
			}(client)
		}
	}()
	dispatched = len(clients)

	var results []models.SearchResult
	good := 0
	reason := "exhausted"

collect:
	for len(results) < len(clients) {
		select {
		case res := <-resultCh:
			results = append(results, res)
			if e.isGood(res) {
				good++
				if good >= e.cfg.EarlyStopGood {
					reason = "early_stop"
					break collect
				}
			}
		case <-ctx.Done():
			reason = "deadline"
			break collect
		}
	}
	cancel()

	summary := Summary{
		Dispatched: dispatched,
		Collected:  len(results),
		Good:       good,
		StopReason: reason,
		Elapsed:    time.Since(start),
	}

	e.logger.Info("search fan-out finished", map[string]interface{}{
		"dispatched": summary.Dispatched,
		"collected":  summary.Collected,
		"good":       summary.Good,
		"stopReason": summary.StopReason,
		"elapsedMs":  summary.Elapsed.Milliseconds(),
	})

	return results, summary
}

// callSource runs one source call under its own timeout, never exceeding the
// remaining global deadline, and maps the outcome onto a terminal CallState.
func (e *Executor) callSource(ctx context.Context, client SearchClient, qc models.QueryContext) models.SearchResult {
	name := client.Name()

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.SourceTimeout(name))
	defer cancel()

	metrics.SearchesActive.Inc()
	defer metrics.SearchesActive.Dec()

	start := time.Now()
	text, quality, err := client.Search(callCtx, qc)
	latency := time.Since(start)

	res := models.SearchResult{
		Source:  name,
		Latency: latency,
	}

	switch {
	case err == nil:
		res.Text = text
		res.Quality = quality
		res.Success = true
		res.State = models.CallSucceeded
	case ctx.Err() == context.Canceled:
		res.State = models.CallCancelled
		res.Err = "cancelled"
	case stderrors.Is(err, context.DeadlineExceeded):
		res.State = models.CallTimedOut
		res.Err = errors.NewSourceTimeoutError(name, e.cfg.SourceTimeout(name)).Error()
	default:
		res.State = models.CallFailed
		res.Err = errors.NewSourceError(name, err).Error()
	}

	metrics.SourceCallsTotal.WithLabelValues(name, string(res.State)).Inc()
	metrics.SourceCallDuration.WithLabelValues(name).Observe(latency.Seconds())

	if !res.Success {
		e.logger.Debug("source call did not succeed", map[string]interface{}{
			"source": name,
			"state":  string(res.State),
			"error":  res.Err,
		})
	}

	return res
}

// isGood applies the early-stop sufficiency test: non-empty text of at least
// min_answer_chars with quality at or above min_quality.
func (e *Executor) isGood(res models.SearchResult) bool {
	return res.Success &&
		res.Text != "" &&
		len(res.Text) >= e.cfg.MinAnswerChars &&
		res.Quality >= e.cfg.MinQuality
}
