// internal/sources/internalkb/client.go

// Package internalkb implements the curated knowledge base source on top of
// Elasticsearch: previously validated answers indexed by question text.
package internalkb

import (
	"context"
	"encoding/json"
	"fmt"

	"search-orchestrator/internal/common/database"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/models"
)

const sourceName = "internal-kb"

type searchResponse struct {
	Hits struct {
		MaxScore float64 `json:"max_score"`
		Hits     []struct {
			Score  float64 `json:"_score"`
			Source struct {
				Question string  `json:"question"`
				Answer   string  `json:"answer"`
				Quality  float64 `json:"quality"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type Client struct {
	es     *database.ElasticsearchClient
	index  string
	logger logger.Logger
}

func New(es *database.ElasticsearchClient, index string, log logger.Logger) *Client {
	return &Client{es: es, index: index, logger: log}
}

func (c *Client) Name() string { return sourceName }

func (c *Client) Search(ctx context.Context, qc models.QueryContext) (string, float64, error) {
	if c.es == nil {
		return "", 0, fmt.Errorf("elasticsearch client not configured")
	}

	body, err := buildQuery(qc.Query)
	if err != nil {
		return "", 0, err
	}

	raw, err := c.es.Search(ctx, c.index, body)
	if err != nil {
		return "", 0, err
	}

	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", 0, fmt.Errorf("failed to parse search response: %w", err)
	}

	if len(resp.Hits.Hits) == 0 {
		return "", 0, nil
	}

	top := resp.Hits.Hits[0]
	if top.Source.Answer == "" {
		return "", 0, nil
	}

	quality := top.Source.Quality
	if quality == 0 {
		// Older documents predate the quality field; fall back on a solid
		// prior since everything in this index was curated.
		quality = 0.8
	}
	return top.Source.Answer, quality, nil
}

func buildQuery(question string) (string, error) {
	q := map[string]interface{}{
		"size": 1,
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"question": map[string]interface{}{
					"query":                question,
					"minimum_should_match": "60%",
				},
			},
		},
	}
	body, err := json.Marshal(q)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
