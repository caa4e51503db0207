// internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"search-orchestrator/internal/combiner"
	"search-orchestrator/internal/common/config"
	"search-orchestrator/internal/common/errors"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/executor"
	"search-orchestrator/internal/models"
	"search-orchestrator/internal/ranker"
	"search-orchestrator/internal/registry"
	"search-orchestrator/internal/semcache"
	"search-orchestrator/internal/statsfeed"
	"search-orchestrator/internal/storage/conversations"
	"search-orchestrator/pkg/catalog"
)

// ==========================
// Test Helper Functions
// ==========================

const parisAnswer = "Paris é a capital e a mais populosa cidade da França. " +
	"Situada às margens do rio Sena, é um dos principais centros culturais e políticos da Europa."

func createTestConfig() *config.Config {
	return &config.Config{
		Ranking: config.RankingConfig{
			ModelWeight:   0.7,
			HistoryWeight: 0.3,
			OverallWeight: 1.0 / 3,
			TypeWeight:    1.0 / 3,
			TopicWeight:   1.0 / 3,
			TopK:          5,
		},
		Executor: config.ExecutorConfig{
			MaxParallel:     4,
			GlobalTimeoutMs: 2000,
			EarlyStopGood:   2,
			MinAnswerChars:  100,
			MinQuality:      0.5,
			DefaultSourceMs: 1000,
		},
		Combiner: config.CombinerConfig{
			DedupeThreshold: 0.7,
			MaxMergeSources: 3,
			MinMergeScore:   0.1,
		},
		Cache: config.CacheConfig{
			SimilarityThreshold: 0.85,
			StoreThreshold:      0.7,
			TTLSeconds:          3600,
			Capacity:            200,
		},
		Stats: config.StatsConfig{
			SuccessThreshold:      0.5,
			MemorizeThreshold:     0.7,
			DisableAfterNegatives: 3,
			NegativeWindowSeconds: 86400,
		},
	}
}

func createTestRegistry(t *testing.T, names ...string) *registry.Registry {
	t.Helper()
	defs := make([]catalog.SourceDef, 0, len(names))
	for _, name := range names {
		defs = append(defs, catalog.SourceDef{Name: name, Enabled: true})
	}
	reg, err := registry.NewFromCatalog(&catalog.SourceCatalog{Version: "1.0.0", Sources: defs}, nil)
	require.NoError(t, err)
	return reg
}

type fakeSearchClient struct {
	name    string
	text    string
	quality float64
	err     error
}

func (f *fakeSearchClient) Name() string { return f.name }

func (f *fakeSearchClient) Search(ctx context.Context, qc models.QueryContext) (string, float64, error) {
	return f.text, f.quality, f.err
}

type fakeClassifier struct {
	qc  models.QueryContext
	err error
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (models.QueryContext, error) {
	if f.err != nil {
		return models.QueryContext{}, f.err
	}
	qc := f.qc
	qc.Query = text
	return qc, nil
}

type recordingStore struct {
	records []conversations.Record
	err     error
}

func (r *recordingStore) Save(ctx context.Context, rec conversations.Record) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.records = append(r.records, rec)
	return fmt.Sprintf("conv-%d", len(r.records)), nil
}

func createTestOrchestrator(t *testing.T, reg *registry.Registry, clients []executor.SearchClient, cls Classifier, store Persister) (*Orchestrator, *semcache.Cache) {
	t.Helper()
	return createTestOrchestratorWithConfig(t, createTestConfig(), reg, clients, cls, store)
}

func createTestOrchestratorWithConfig(t *testing.T, cfg *config.Config, reg *registry.Registry, clients []executor.SearchClient, cls Classifier, store Persister) (*Orchestrator, *semcache.Cache) {
	t.Helper()
	log := logger.NewTestLogger(t)
	sem := semcache.New(cfg.Cache)

	deps := Deps{
		Registry:   reg,
		Ranker:     ranker.New(cfg.Ranking, nil, log),
		Executor:   executor.New(cfg.Executor, log),
		Combiner:   combiner.New(cfg.Combiner, log),
		SemCache:   sem,
		Stats:      statsfeed.New(cfg.Stats, reg, nil, log),
		Classifier: cls,
		Clients:    clients,
		Store:      store,
	}
	return New(cfg, deps, log), sem
}

// ==========================
// Pipeline Tests
// ==========================

func TestOrchestrator_Process_EndToEnd(t *testing.T) {
	reg := createTestRegistry(t, "wikipedia", "duckduckgo")
	clients := []executor.SearchClient{
		&fakeSearchClient{name: "wikipedia", text: parisAnswer, quality: 0.9},
		&fakeSearchClient{name: "duckduckgo", err: fmt.Errorf("rate limited")},
	}
	cls := &fakeClassifier{qc: models.QueryContext{QuestionType: models.QuestionFactual, TopicID: "geography"}}
	store := &recordingStore{}

	orch, _ := createTestOrchestrator(t, reg, clients, cls, store)

	answer, err := orch.Process(context.Background(), "Qual a capital da França?")
	require.NoError(t, err)

	assert.Equal(t, parisAnswer, answer.Text)
	assert.Equal(t, "wikipedia", answer.Attribution)
	assert.GreaterOrEqual(t, answer.Quality, 0.9)
	assert.False(t, answer.FromCache)
	assert.Equal(t, "conv-1", answer.ConversationID)
	assert.NotEmpty(t, answer.Steps)

	// The persisted record mirrors the response.
	require.Len(t, store.records, 1)
	assert.True(t, store.records[0].Success)
	assert.Equal(t, "wikipedia", store.records[0].Attribution)

	// Consulted sources were all recorded: wikipedia as a success, the
	// rate-limited duckduckgo as a failure.
	wiki := reg.Get("wikipedia").Stats.Snapshot()
	assert.Equal(t, int64(1), wiki.TotalUses)
	assert.Equal(t, int64(1), wiki.Successes)

	ddg := reg.Get("duckduckgo").Stats.Snapshot()
	assert.Equal(t, int64(1), ddg.TotalUses)
	assert.Equal(t, int64(1), ddg.Failures)
}

func TestOrchestrator_Process_SemanticCacheHitOnRephrasing(t *testing.T) {
	reg := createTestRegistry(t, "wikipedia")
	clients := []executor.SearchClient{
		&fakeSearchClient{name: "wikipedia", text: parisAnswer, quality: 0.9},
	}
	cls := &fakeClassifier{qc: models.QueryContext{QuestionType: models.QuestionFactual}}

	orch, _ := createTestOrchestrator(t, reg, clients, cls, nil)

	first, err := orch.Process(context.Background(), "Qual é a capital da França?")
	require.NoError(t, err)
	require.False(t, first.FromCache)

	// A close rephrasing must answer from the cache, untouched sources.
	second, err := orch.Process(context.Background(), "Qual a capital da França?")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, "wikipedia", second.Attribution)

	// No second consultation happened.
	assert.Equal(t, int64(1), reg.Get("wikipedia").Stats.Snapshot().TotalUses)
}

func TestOrchestrator_Process_AllSourcesFail(t *testing.T) {
	reg := createTestRegistry(t, "wikipedia", "duckduckgo")
	clients := []executor.SearchClient{
		&fakeSearchClient{name: "wikipedia", err: fmt.Errorf("unreachable")},
		&fakeSearchClient{name: "duckduckgo", err: fmt.Errorf("unreachable")},
	}
	cls := &fakeClassifier{qc: models.QueryContext{QuestionType: models.QuestionFactual}}
	store := &recordingStore{}

	orch, sem := createTestOrchestrator(t, reg, clients, cls, store)

	answer, err := orch.Process(context.Background(), "Qual a capital da França?")
	require.NoError(t, err)

	assert.Equal(t, models.NoAnswerText, answer.Text)
	assert.Empty(t, answer.Attribution)
	assert.Zero(t, answer.Quality)

	// The sentinel is never cached.
	assert.Zero(t, sem.Len())

	// Both failures depressed the stats.
	assert.Equal(t, int64(1), reg.Get("wikipedia").Stats.Snapshot().Failures)
	assert.Equal(t, int64(1), reg.Get("duckduckgo").Stats.Snapshot().Failures)

	// The record is persisted as unsuccessful.
	require.Len(t, store.records, 1)
	assert.False(t, store.records[0].Success)
}

func TestOrchestrator_Process_ClassifierFailureDegrades(t *testing.T) {
	reg := createTestRegistry(t, "wikipedia")
	clients := []executor.SearchClient{
		&fakeSearchClient{name: "wikipedia", text: parisAnswer, quality: 0.9},
	}
	cls := &fakeClassifier{err: fmt.Errorf("classifier down")}

	orch, _ := createTestOrchestrator(t, reg, clients, cls, nil)

	answer, err := orch.Process(context.Background(), "Qual a capital da França?")
	require.NoError(t, err)
	assert.NotEqual(t, models.NoAnswerText, answer.Text)
	assert.Equal(t, "wikipedia", answer.Attribution)
}

func TestOrchestrator_Process_PersistenceFailureNotFatal(t *testing.T) {
	reg := createTestRegistry(t, "wikipedia")
	clients := []executor.SearchClient{
		&fakeSearchClient{name: "wikipedia", text: parisAnswer, quality: 0.9},
	}
	cls := &fakeClassifier{qc: models.QueryContext{QuestionType: models.QuestionFactual}}
	store := &recordingStore{err: fmt.Errorf("database down")}

	orch, _ := createTestOrchestrator(t, reg, clients, cls, store)

	answer, err := orch.Process(context.Background(), "Qual a capital da França?")
	require.NoError(t, err)
	assert.Equal(t, parisAnswer, answer.Text)
	assert.Empty(t, answer.ConversationID)
}

func TestOrchestrator_Process_InvalidInput(t *testing.T) {
	reg := createTestRegistry(t, "wikipedia")
	orch, _ := createTestOrchestrator(t, reg, nil, nil, nil)

	tests := []struct {
		name     string
		question string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"too long", strings.Repeat("a", 501)},
		{"no alphanumeric content", "??? !!! ..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := orch.Process(context.Background(), tt.question)
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetErrorCode(err))
		})
	}
}

func TestOrchestrator_Process_NoSourcesActive(t *testing.T) {
	reg := createTestRegistry(t, "wikipedia")
	reg.Disable("wikipedia")

	orch, _ := createTestOrchestrator(t, reg, nil, nil, nil)

	_, err := orch.Process(context.Background(), "Qual a capital da França?")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNoSourcesActive, errors.GetErrorCode(err))
}

func TestOrchestrator_Process_ContributingSourceGetsFinalQuality(t *testing.T) {
	reg := createTestRegistry(t, "wikipedia", "duckduckgo")
	clients := []executor.SearchClient{
		&fakeSearchClient{name: "wikipedia", text: parisAnswer, quality: 0.9},
		// Succeeds with weak content; not part of the final answer.
		&fakeSearchClient{name: "duckduckgo", text: "Paris.", quality: 0.3},
	}
	cls := &fakeClassifier{qc: models.QueryContext{QuestionType: models.QuestionFactual}}

	orch, _ := createTestOrchestrator(t, reg, clients, cls, nil)

	answer, err := orch.Process(context.Background(), "Qual a capital da França?")
	require.NoError(t, err)
	require.Equal(t, "wikipedia", answer.Attribution)

	// The contributing source is credited with the final quality, the other
	// success keeps its own weaker score.
	wiki := reg.Get("wikipedia").Stats.Snapshot()
	assert.Equal(t, int64(1), wiki.Successes)
	ddg := reg.Get("duckduckgo").Stats.Snapshot()
	assert.Equal(t, int64(1), ddg.TotalUses)
	assert.Equal(t, int64(1), ddg.Failures)
}

func TestOrchestrator_Process_Deadline(t *testing.T) {
	reg := createTestRegistry(t, "wikipedia")
	hang := &hangingClient{name: "wikipedia"}
	cls := &fakeClassifier{qc: models.QueryContext{QuestionType: models.QuestionFactual}}

	cfg := createTestConfig()
	cfg.Executor.GlobalTimeoutMs = 200
	orch, _ := createTestOrchestratorWithConfig(t, cfg, reg, []executor.SearchClient{hang}, cls, nil)

	start := time.Now()
	answer, err := orch.Process(context.Background(), "Qual a capital da França?")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, models.NoAnswerText, answer.Text)
}

type hangingClient struct {
	name string
}

func (h *hangingClient) Name() string { return h.name }

func (h *hangingClient) Search(ctx context.Context, qc models.QueryContext) (string, float64, error) {
	<-ctx.Done()
	return "", 0, ctx.Err()
}
