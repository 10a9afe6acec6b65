package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const braveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// WebSearch queries the Brave Search API and returns results as a markdown
// list.
type WebSearch struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewWebSearch creates the web_search tool.
func NewWebSearch(apiKey string) *WebSearch {
	return &WebSearch{
		apiKey:   apiKey,
		endpoint: braveEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (w *WebSearch) Name() string        { return "web_search" }
func (w *WebSearch) Title() string       { return "Web Search" }
func (w *WebSearch) Description() string { return "Search the web for information" }
func (w *WebSearch) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Search query"},
			"count": {"type": "integer", "description": "Number of results, 1 to 20 (default 5)"}
		},
		"required": ["query"]
	}`)
}

type searchResults struct {
	Web struct {
		Results []searchHit `json:"results"`
	} `json:"web"`
}

type searchHit struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

func (w *WebSearch) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var p struct {
		Query string `json:"query"`
		Count int    `json:"count"`
	}
	if err := json.Unmarshal(args, &p); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}
	if strings.TrimSpace(p.Query) == "" {
		return "", fmt.Errorf("query is required")
	}
	p.Count = min(max(p.Count, 0), 20)
	if p.Count == 0 {
		p.Count = 5
	}

	q := url.Values{}
	q.Set("q", p.Query)
	q.Set("count", strconv.Itoa(p.Count))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", w.apiKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("search API status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var results searchResults
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(results.Web.Results) == 0 {
		return "No results found.", nil
	}

	var sb strings.Builder
	for _, hit := range results.Web.Results {
		fmt.Fprintf(&sb, "- [%s](%s)", hit.Title, hit.URL)
		if hit.Description != "" {
			sb.WriteString(": " + hit.Description)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
