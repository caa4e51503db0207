// internal/sources/wolfram/client.go

// Package wolfram implements the computational search source against the
// short-answer API, falling back to the spoken-result endpoint. The source
// is credential-gated: without an app id the registry never ranks it.
package wolfram

import (
	"context"
	"fmt"
	"net/url"
	"time"

	commonhttp "search-orchestrator/internal/common/http"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/models"
)

const sourceName = "wolfram"

type Client struct {
	baseURL string
	appID   string
	http    *commonhttp.Client
	logger  logger.Logger
}

func New(appID string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL: "https://api.wolframalpha.com",
		appID:   appID,
		http:    commonhttp.NewClient(timeout),
		logger:  log,
	}
}

// NewWithBaseURL points the client at a test server.
func NewWithBaseURL(baseURL, appID string, timeout time.Duration, log logger.Logger) *Client {
	c := New(appID, timeout, log)
	c.baseURL = baseURL
	return c
}

func (c *Client) Name() string { return sourceName }

func (c *Client) Search(ctx context.Context, qc models.QueryContext) (string, float64, error) {
	if c.appID == "" {
		return "", 0, fmt.Errorf("wolfram app id not configured")
	}

	text, err := c.query(ctx, "/v1/result", qc.Query)
	if err == nil && text != "" {
		// Short answers are precise but terse.
		return text, 0.85, nil
	}

	// The short-answer endpoint rejects anything non-computable; the spoken
	// endpoint accepts a wider range of phrasings.
	text, err = c.query(ctx, "/v1/spoken", qc.Query)
	if err != nil {
		return "", 0, err
	}
	if text == "" {
		return "", 0, nil
	}
	return text, 0.75, nil
}

func (c *Client) query(ctx context.Context, path, question string) (string, error) {
	reqURL := fmt.Sprintf(
		"%s%s?appid=%s&i=%s&units=metric",
		c.baseURL, path, url.QueryEscape(c.appID), url.QueryEscape(question),
	)
	return c.http.GetText(ctx, reqURL)
}
