// internal/executor/executor_test.go
package executor

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"search-orchestrator/internal/common/config"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() config.ExecutorConfig {
	return config.ExecutorConfig{
		MaxParallel:     4,
		GlobalTimeoutMs: 2000,
		EarlyStopGood:   2,
		MinAnswerChars:  100,
		MinQuality:      0.5,
		DefaultSourceMs: 1000,
	}
}

// fakeClient answers after delay, or blocks until cancelled when hang is set.
type fakeClient struct {
	name    string
	text    string
	quality float64
	err     error
	delay   time.Duration
	hang    bool
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) Search(ctx context.Context, qc models.QueryContext) (string, float64, error) {
	if f.hang {
		<-ctx.Done()
		return "", 0, ctx.Err()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", 0, ctx.Err()
		}
	}
	return f.text, f.quality, f.err
}

func goodAnswer(name string) *fakeClient {
	return &fakeClient{
		name:    name,
		text:    strings.Repeat("A capital da França é Paris. ", 5),
		quality: 0.9,
	}
}

// ==========================
// Fan-Out Tests
// ==========================

func TestExecutor_Execute_EarlyStop(t *testing.T) {
	clients := []SearchClient{
		goodAnswer("wikipedia"),
		goodAnswer("duckduckgo"),
		&fakeClient{name: "slow", hang: true},
	}

	e := New(createTestConfig(), logger.NewTestLogger(t))
	start := time.Now()
	results, summary := e.Execute(context.Background(), models.DefaultQueryContext("test"), clients)
	elapsed := time.Since(start)

	assert.Equal(t, "early_stop", summary.StopReason)
	assert.Equal(t, 2, summary.Good)
	assert.GreaterOrEqual(t, len(results), 2)

	// Two instant good answers must end the fan-out long before the deadline,
	// hanging third source notwithstanding.
	assert.Less(t, elapsed, 1*time.Second)
}

func TestExecutor_Execute_DeadlineWithHangingSources(t *testing.T) {
	clients := []SearchClient{
		&fakeClient{name: "hang-1", hang: true},
		&fakeClient{name: "hang-2", hang: true},
	}

	cfg := createTestConfig()
	cfg.GlobalTimeoutMs = 200
	cfg.DefaultSourceMs = 10000

	e := New(cfg, logger.NewTestLogger(t))
	start := time.Now()
	results, summary := e.Execute(context.Background(), models.DefaultQueryContext("test"), clients)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	assert.Less(t, elapsed, 1*time.Second)
	assert.Equal(t, 0, summary.Good)
	// Either the deadline fired mid-collect or the timed-out calls all
	// reported in first.
	assert.Contains(t, []string{"deadline", "exhausted"}, summary.StopReason)
	for _, res := range results {
		assert.False(t, res.Success)
	}
}

func TestExecutor_Execute_PerSourceTimeout(t *testing.T) {
	clients := []SearchClient{
		&fakeClient{name: "slow", hang: true},
	}

	cfg := createTestConfig()
	cfg.SourceTimeoutMs = map[string]int{"slow": 100}

	e := New(cfg, logger.NewTestLogger(t))
	results, _ := e.Execute(context.Background(), models.DefaultQueryContext("test"), clients)

	require.Len(t, results, 1)
	assert.Equal(t, models.CallTimedOut, results[0].State)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Err, "slow")
}

func TestExecutor_Execute_FailuresCollected(t *testing.T) {
	clients := []SearchClient{
		&fakeClient{name: "broken", err: fmt.Errorf("connection refused")},
		goodAnswer("wikipedia"),
	}

	cfg := createTestConfig()
	cfg.EarlyStopGood = 2 // unreachable with one good source

	e := New(cfg, logger.NewTestLogger(t))
	results, summary := e.Execute(context.Background(), models.DefaultQueryContext("test"), clients)

	require.Len(t, results, 2)
	assert.Equal(t, "exhausted", summary.StopReason)
	assert.Equal(t, 1, summary.Good)

	byName := map[string]models.SearchResult{}
	for _, res := range results {
		byName[res.Source] = res
	}
	assert.Equal(t, models.CallFailed, byName["broken"].State)
	assert.Equal(t, models.CallSucceeded, byName["wikipedia"].State)
}

func TestExecutor_Execute_EmptySuccessIsNotGood(t *testing.T) {
	clients := []SearchClient{
		&fakeClient{name: "empty", text: "", quality: 0.9},
		&fakeClient{name: "short", text: "Paris.", quality: 0.9},
		&fakeClient{name: "weak", text: strings.Repeat("x", 200), quality: 0.2},
	}

	e := New(createTestConfig(), logger.NewTestLogger(t))
	results, summary := e.Execute(context.Background(), models.DefaultQueryContext("test"), clients)

	require.Len(t, results, 3)
	assert.Equal(t, 0, summary.Good)
	// All three calls still count as succeeded for statistics purposes.
	for _, res := range results {
		assert.True(t, res.Success)
	}
}

func TestExecutor_Execute_BoundedParallelism(t *testing.T) {
	const total = 8

	var clients []SearchClient
	for i := 0; i < total; i++ {
		c := goodAnswer(fmt.Sprintf("source-%d", i))
		c.delay = 50 * time.Millisecond
		clients = append(clients, c)
	}

	cfg := createTestConfig()
	cfg.MaxParallel = 2
	cfg.EarlyStopGood = total // force full collection

	e := New(cfg, logger.NewTestLogger(t))
	start := time.Now()
	results, _ := e.Execute(context.Background(), models.DefaultQueryContext("test"), clients)
	elapsed := time.Since(start)

	assert.Len(t, results, total)
	// 8 calls of 50ms through 2 slots cannot finish in fewer than 4 waves.
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
}

func TestExecutor_Execute_NoClients(t *testing.T) {
	e := New(createTestConfig(), logger.NewTestLogger(t))
	results, summary := e.Execute(context.Background(), models.DefaultQueryContext("test"), nil)

	assert.Empty(t, results)
	assert.Equal(t, "exhausted", summary.StopReason)
}
