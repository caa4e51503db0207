// internal/registry/registry_test.go
package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"search-orchestrator/internal/common/errors"
	"search-orchestrator/internal/models"
	"search-orchestrator/pkg/catalog"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestCatalog() *catalog.SourceCatalog {
	return &catalog.SourceCatalog{
		Version: "1.0.0",
		Sources: []catalog.SourceDef{
			{Name: "wikipedia", DisplayName: "Wikipedia", Enabled: true},
			{Name: "duckduckgo", DisplayName: "DuckDuckGo", Enabled: true},
			{Name: "wolfram", DisplayName: "WolframAlpha", RequiresCredential: true, Enabled: true},
			{Name: "legacy-kb", DisplayName: "Legacy KB", Enabled: false},
		},
	}
}

// ==========================
// Registry Tests
// ==========================

func TestNewFromCatalog(t *testing.T) {
	reg, err := NewFromCatalog(createTestCatalog(), Credentials{"wolfram": true})
	require.NoError(t, err)

	assert.NotNil(t, reg.Get("wikipedia"))
	assert.Nil(t, reg.Get("unknown"))

	enabled := reg.ListEnabled()
	assert.Len(t, enabled, 3)
	// Ordered by name.
	assert.Equal(t, "duckduckgo", enabled[0].Name)
	assert.Equal(t, "wikipedia", enabled[1].Name)
	assert.Equal(t, "wolfram", enabled[2].Name)

	assert.Len(t, reg.ListAll(), 4)
}

func TestNewFromCatalog_AllDisabled(t *testing.T) {
	cat := &catalog.SourceCatalog{
		Version: "1.0.0",
		Sources: []catalog.SourceDef{
			{Name: "wikipedia", Enabled: false},
		},
	}

	_, err := NewFromCatalog(cat, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNoSourcesActive, errors.GetErrorCode(err))
}

func TestSource_Usable(t *testing.T) {
	reg, err := NewFromCatalog(createTestCatalog(), Credentials{})
	require.NoError(t, err)

	// Enabled, no credential needed.
	assert.True(t, reg.Get("wikipedia").Usable())

	// Enabled but the required credential is missing.
	assert.True(t, reg.Get("wolfram").Enabled())
	assert.False(t, reg.Get("wolfram").Usable())

	// Disabled in the catalog.
	assert.False(t, reg.Get("legacy-kb").Usable())
}

func TestRegistry_DisableEnable(t *testing.T) {
	reg, err := NewFromCatalog(createTestCatalog(), Credentials{"wolfram": true})
	require.NoError(t, err)

	reg.Disable("wikipedia")
	assert.False(t, reg.Get("wikipedia").Enabled())
	assert.Len(t, reg.ListEnabled(), 2)

	reg.Enable("wikipedia")
	assert.True(t, reg.Get("wikipedia").Enabled())
	assert.Len(t, reg.ListEnabled(), 3)

	// Unknown names are ignored.
	reg.Disable("unknown")
}

// ==========================
// Statistics Tests
// ==========================

func TestSourceStats_RecordOutcome(t *testing.T) {
	stats := newSourceStats()

	stats.RecordOutcome(0.9, 100*time.Millisecond, models.QuestionFactual, "geography", 0.5, 0.7)
	stats.RecordOutcome(0.2, 300*time.Millisecond, models.QuestionFactual, "geography", 0.5, 0.7)

	snap := stats.Snapshot()
	assert.Equal(t, int64(2), snap.TotalUses)
	assert.Equal(t, int64(1), snap.Successes)
	assert.Equal(t, int64(1), snap.Failures)
	assert.Equal(t, 200*time.Millisecond, snap.AvgLatency)
	assert.InDelta(t, 0.5, snap.SuccessRate(), 1e-9)

	// First outcome seeds the EW quality, the second folds in at 0.1.
	assert.InDelta(t, 0.9*0.9+0.2*0.1, snap.QualityEW, 1e-9)

	// Only the 0.9 outcome cleared the memorize threshold.
	rate, ok := snap.TypeGoodRate(models.QuestionFactual)
	assert.True(t, ok)
	assert.InDelta(t, 0.5, rate, 1e-9)

	rate, ok = snap.TopicGoodRate("geography")
	assert.True(t, ok)
	assert.InDelta(t, 0.5, rate, 1e-9)

	_, ok = snap.TypeGoodRate(models.QuestionComputational)
	assert.False(t, ok)
	_, ok = snap.TopicGoodRate("history")
	assert.False(t, ok)
}

func TestSourceStats_HistoryRingWraps(t *testing.T) {
	stats := newSourceStats()

	for i := 0; i < HistoryCapacity+10; i++ {
		stats.RecordOutcome(float64(i), time.Millisecond, models.QuestionOther, "", 0.5, 0.7)
	}

	snap := stats.Snapshot()
	require.Len(t, snap.History, HistoryCapacity)
	// Oldest surviving entry is outcome #10, newest is the last one recorded.
	assert.Equal(t, float64(10), snap.History[0])
	assert.Equal(t, float64(HistoryCapacity+9), snap.History[HistoryCapacity-1])
}

func TestSourceStats_RecordNegativeWindow(t *testing.T) {
	stats := newSourceStats()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	window := 24 * time.Hour

	assert.Equal(t, 1, stats.RecordNegative(now, window))
	assert.Equal(t, 2, stats.RecordNegative(now.Add(time.Hour), window))

	// A negative past the window drops the stale entries.
	assert.Equal(t, 1, stats.RecordNegative(now.Add(26*time.Hour), window))
}

func TestSourceStats_ConcurrentRecording(t *testing.T) {
	stats := newSourceStats()

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				stats.RecordOutcome(0.8, 10*time.Millisecond, models.QuestionFactual, "math", 0.5, 0.7)
			}
		}()
	}
	wg.Wait()

	snap := stats.Snapshot()
	assert.Equal(t, int64(workers*perWorker), snap.TotalUses)
	assert.Equal(t, int64(workers*perWorker), snap.Successes)
	assert.Equal(t, int64(workers*perWorker), snap.GoodByType[models.QuestionFactual])
}
