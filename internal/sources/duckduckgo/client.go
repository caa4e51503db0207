// internal/sources/duckduckgo/client.go

// Package duckduckgo implements the instant-answer search source.
package duckduckgo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	commonhttp "search-orchestrator/internal/common/http"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/models"
)

const (
	sourceName = "duckduckgo"

	// Instant-answer fragments shorter than this carry no real content.
	minFragmentChars = 50
)

type apiResponse struct {
	AbstractText  string `json:"AbstractText"`
	Definition    string `json:"Definition"`
	RelatedTopics []struct {
		Text string `json:"Text"`
	} `json:"RelatedTopics"`
}

type Client struct {
	baseURL string
	http    *commonhttp.Client
	logger  logger.Logger
}

func New(timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL: "https://api.duckduckgo.com",
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
	reqURL := fmt.Sprintf(
		"%s/?q=%s&format=json&no_html=1&skip_disambig=1",
		c.baseURL, url.QueryEscape(qc.Query),
	)

	var resp apiResponse
	if err := c.http.GetJSON(ctx, reqURL, &resp); err != nil {
		return "", 0, err
	}

	// Preference order: abstract, then definition, then related topics.
	if len(resp.AbstractText) > minFragmentChars {
		return resp.AbstractText, estimateQuality(resp.AbstractText, 0.4), nil
	}
	if len(resp.Definition) > minFragmentChars {
		return resp.Definition, estimateQuality(resp.Definition, 0.35), nil
	}

	var fragments []string
	for _, topic := range resp.RelatedTopics {
		if len(topic.Text) > minFragmentChars {
			fragments = append(fragments, topic.Text)
		}
		if len(fragments) == 2 {
			break
		}
	}
	if len(fragments) == 0 {
		return "", 0, nil
	}

	text := strings.Join(fragments, " ")
	return text, estimateQuality(text, 0.25), nil
}

func estimateQuality(text string, base float64) float64 {
	q := base + float64(len(text))/1500.0
	if q > 0.85 {
		q = 0.85
	}
	return q
}
