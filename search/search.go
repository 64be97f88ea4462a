// Package search provides a small web search client used by the research
// agent for supplementary destination links. It talks to the DuckDuckGo
// instant-answer endpoint; there is no official API, so results are best
// effort and the client degrades to an empty result set on HTTP failure
// only when the caller opts into that.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Result is a single search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source,omitempty"`
}

// Response bundles the hits for a query.
type Response struct {
	Query        string   `json:"query"`
	Results      []Result `json:"results"`
	TotalResults int      `json:"total_results"`
}

const defaultEndpoint = "https://api.duckduckgo.com/"

// Client performs web searches. The zero value is not usable; construct
// with NewClient.
type Client struct {
	httpClient *http.Client
	endpoint   string
	userAgent  string
}

// ClientOptions configure a Client.
type ClientOptions struct {
	HTTPClient *http.Client
	Endpoint   string
	UserAgent  string
}

// NewClient constructs a search client.
func NewClient(optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Endpoint:   defaultEndpoint,
		UserAgent:  "planmesh/1.0",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{httpClient: opts.HTTPClient, endpoint: opts.Endpoint, userAgent: opts.UserAgent}
}

// instantAnswer mirrors the subset of the DuckDuckGo response we consume.
type instantAnswer struct {
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	Heading       string `json:"Heading"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Search performs a query, returning at most maxResults hits.
func (c *Client) Search(ctx context.Context, query string, maxResults int) (*Response, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	u := fmt.Sprintf("%s?q=%s&format=json&no_html=1", c.endpoint, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request: unexpected status %d", resp.StatusCode)
	}

	var answer instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]Result, 0, maxResults)
	if answer.AbstractText != "" {
		results = append(results, Result{
			Title:   answer.Heading,
			URL:     answer.AbstractURL,
			Snippet: answer.AbstractText,
		})
	}
	for _, topic := range answer.RelatedTopics {
		if len(results) >= maxResults {
			break
		}
		if topic.FirstURL == "" || topic.Text == "" {
			continue
		}
		results = append(results, Result{
			Title:   topic.Text,
			URL:     topic.FirstURL,
			Snippet: topic.Text,
		})
	}

	return &Response{Query: query, Results: results, TotalResults: len(results)}, nil
}
