// internal/sources/wikipedia/client.go

// Package wikipedia implements the encyclopedic search source: an
// opensearch title lookup followed by the REST page summary.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	commonhttp "search-orchestrator/internal/common/http"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/models"
)

const (
	sourceName = "wikipedia"

	// Extracts at or below this length are treated as no result; stubs and
	// disambiguation blurbs are worse than silence.
	minExtractChars = 100
)

type summaryResponse struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
	Type    string `json:"type"`
}

type Client struct {
	baseURL string
	http    *commonhttp.Client
	logger  logger.Logger
}

func New(timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL: "https://pt.wikipedia.org",
		http:    commonhttp.NewClient(timeout),
		logger:  log,
	}
}

// NewWithBaseURL points the client at a test server.
func NewWithBaseURL(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	c := New(timeout, log)
	c.baseURL = baseURL
	return c
}

func (c *Client) Name() string { return sourceName }

func (c *Client) Search(ctx context.Context, qc models.QueryContext) (string, float64, error) {
	title, err := c.findTitle(ctx, qc.Query)
	if err != nil {
		return "", 0, err
	}
	if title == "" {
		return "", 0, nil
	}

	summaryURL := fmt.Sprintf("%s/api/rest_v1/page/summary/%s", c.baseURL, url.PathEscape(title))
	var summary summaryResponse
	if err := c.http.GetJSON(ctx, summaryURL, &summary); err != nil {
		return "", 0, err
	}

	if summary.Type == "disambiguation" || len(summary.Extract) <= minExtractChars {
		return "", 0, nil
	}

	return summary.Extract, estimateQuality(summary.Extract), nil
}

// findTitle resolves the best-matching article title for the query.
func (c *Client) findTitle(ctx context.Context, query string) (string, error) {
	searchURL := fmt.Sprintf(
		"%s/w/api.php?action=opensearch&search=%s&limit=1&namespace=0&format=json",
		c.baseURL, url.QueryEscape(query),
	)

	// opensearch replies with [query, [titles], [descriptions], [urls]].
	var raw []json.RawMessage
	if err := c.http.GetJSON(ctx, searchURL, &raw); err != nil {
		return "", err
	}
	if len(raw) < 2 {
		return "", nil
	}

	var titles []string
	if err := json.Unmarshal(raw[1], &titles); err != nil {
		return "", fmt.Errorf("unexpected opensearch payload: %w", err)
	}
	if len(titles) == 0 {
		return "", nil
	}
	return titles[0], nil
}

// estimateQuality scores an extract by length: fuller summaries rank higher,
// capped below 1 so explicit feedback can still distinguish answers.
func estimateQuality(text string) float64 {
	q := 0.4 + float64(len(text))/1000.0
	if q > 0.9 {
		q = 0.9
	}
	return q
}
