package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// defaultReadLimit caps the text handed back to the model, in bytes.
const defaultReadLimit = 50000

// ReadURL fetches a page for the model, as markdown when it is HTML.
type ReadURL struct {
	client *http.Client
	limit  int
}

// NewReadURL creates the read_url tool.
func NewReadURL() *ReadURL {
	return &ReadURL{
		client: &http.Client{Timeout: 30 * time.Second},
		limit:  defaultReadLimit,
	}
}

func (r *ReadURL) Name() string        { return "read_url" }
func (r *ReadURL) Title() string       { return "Read URL" }
func (r *ReadURL) Description() string { return "Fetch a web page and return its content as markdown" }
func (r *ReadURL) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"url": {"type": "string", "description": "Absolute http(s) URL"}
		},
		"required": ["url"]
	}`)
}

func (r *ReadURL) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var p struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(args, &p); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}
	target, err := url.Parse(p.URL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return "", fmt.Errorf("url must be absolute http or https, got %q", p.URL)
	}

	body, contentType, err := r.fetch(ctx, target.String())
	if err != nil {
		return "", err
	}
	text, err := pageText(body, contentType)
	if err != nil {
		return "", err
	}
	if len(text) > r.limit {
		text = text[:r.limit] + "\n\n[Content truncated]"
	}
	return text, nil
}

// fetch reads at most four times the text limit; markup shrinks a lot on
// conversion.
func (r *ReadURL) fetch(ctx context.Context, u string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "artifactchat/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch url: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(r.limit)*4))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func pageText(body []byte, contentType string) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType != "text/html" && mediaType != "application/xhtml+xml" {
		return string(body), nil
	}
	md, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return md, nil
}
