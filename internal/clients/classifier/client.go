// internal/clients/classifier/client.go

// Package classifier calls the external query classification service. The
// orchestrator degrades to a default QueryContext when this client fails;
// classification is never allowed to fail a request.
package classifier

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
	Text string `json:"text"`
}

type response struct {
	Intent       string          `json:"intent"`
	Confidence   float64         `json:"confidence"`
	QuestionType string          `json:"questionType"`
	Entities     []models.Entity `json:"entities"`
	TopicID      string          `json:"topicId"`
	Complexity   float64         `json:"complexity"`
	SubQueries   []string        `json:"subQueries"`
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

// Classify returns the QueryContext for a question.
func (c *Client) Classify(ctx context.Context, text string) (models.QueryContext, error) {
	body, err := json.Marshal(request{Text: text})
	if err != nil {
		return models.QueryContext{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return models.QueryContext{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.QueryContext{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.QueryContext{}, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return models.QueryContext{}, fmt.Errorf("failed to decode classifier response: %w", err)
	}

	return models.QueryContext{
		Query:        text,
		QuestionType: mapQuestionType(r.QuestionType),
		Entities:     r.Entities,
		TopicID:      r.TopicID,
		Complexity:   r.Complexity,
		SubQueries:   r.SubQueries,
	}, nil
}

// mapQuestionType normalizes the classifier's label set onto the internal
// categories. The upstream model emits Portuguese interrogatives.
func mapQuestionType(label string) models.QuestionType {
	switch label {
	case "qual", "quem", "onde", "quando", "quanto", "factual":
		return models.QuestionFactual
	case "como", "porque", "explanatory":
		return models.QuestionExplanatory
	case "calculo", "computational":
		return models.QuestionComputational
	case "o_que_e", "definicao", "definitional":
		return models.QuestionDefinitional
	default:
		return models.QuestionOther
	}
}
