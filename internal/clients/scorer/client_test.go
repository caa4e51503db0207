// internal/clients/scorer/client_test.go
package scorer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"search-orchestrator/internal/common/config"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/models"
)

func createTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(config.ServiceEndpoint{
		BaseURL:   server.URL,
		TimeoutMs: 2000,
	}, logger.NewTestLogger(t))
}

func TestClient_Score(t *testing.T) {
	c := createTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/score", r.URL.Path)

		var req struct {
			Query      string   `json:"query"`
			Candidates []string `json:"candidates"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Qual a capital da França?", req.Query)
		assert.Equal(t, []string{"duckduckgo", "wikipedia"}, req.Candidates)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"scores": map[string]float64{"wikipedia": 0.8, "duckduckgo": 0.4},
		})
	})

	qc := models.QueryContext{Query: "Qual a capital da França?", QuestionType: models.QuestionFactual}
	scores, err := c.Score(context.Background(), qc, []string{"duckduckgo", "wikipedia"})
	require.NoError(t, err)
	assert.InDelta(t, 0.8, scores["wikipedia"], 1e-9)
	assert.InDelta(t, 0.4, scores["duckduckgo"], 1e-9)
}

func TestClient_Score_ServerError(t *testing.T) {
	c := createTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Score(context.Background(), models.DefaultQueryContext("teste"), []string{"wikipedia"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_Score_ContextCancelled(t *testing.T) {
	c := createTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"scores": map[string]float64{}})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Score(ctx, models.DefaultQueryContext("teste"), []string{"wikipedia"})
	assert.Error(t, err)
}
