package llm

import "context"

// Provider is a chat-completion backend.
type Provider interface {
	Complete(ctx context.Context, messages []Message, tools []Tool) (*Response, error)
}

// Config is shared by provider implementations. A zero Temperature leaves
// the server default in place.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}
