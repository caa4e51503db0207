// internal/clients/scorer/client.go

// Package scorer calls the external model scoring service used by the
// ranker: per-source probabilities for a query context. The ranker falls
// back to historical stats when this client fails.
package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"search-orchestrator/internal/common/config"
	commonhttp "search-orchestrator/internal/common/http"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/models"
)

type request struct {
	Query        string          `json:"query"`
	QuestionType string          `json:"questionType"`
	Entities     []models.Entity `json:"entities,omitempty"`
	TopicID      string          `json:"topicId,omitempty"`
	Candidates   []string        `json:"candidates"`
}

type response struct {
	Scores map[string]float64 `json:"scores"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *commonhttp.Client
	logger  logger.Logger
}

func New(cfg config.ServiceEndpoint, log logger.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    commonhttp.NewClient(config.GetDuration(cfg.TimeoutMs)),
		logger:  log,
	}
}

// Score returns the model's per-source probabilities for the query context.
func (c *Client) Score(ctx context.Context, qc models.QueryContext, candidates []string) (map[string]float64, error) {
	body, err := json.Marshal(request{
		Query:        qc.Query,
		QuestionType: string(qc.QuestionType),
		Entities:     qc.Entities,
		TopicID:      qc.TopicID,
		Candidates:   candidates,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scorer returned status %d", resp.StatusCode)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode scorer response: %w", err)
	}
	return r.Scores, nil
}
