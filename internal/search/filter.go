// Package search filters the visible conversation by a free-text query.
package search

import (
	"strings"
	"sync"

	"github.com/user/artifactchat/internal/types"
)

// Filter returns the messages whose content contains query, ignoring case.
// Artifact content is not searched. An empty query returns messages as is.
func Filter(messages []types.Message, query string) []types.Message {
	if query == "" {
		return messages
	}
	needle := strings.ToLower(query)
	out := make([]types.Message, 0, len(messages))
	for _, msg := range messages {
		if strings.Contains(strings.ToLower(msg.Content), needle) {
			out = append(out, msg)
		}
	}
	return out
}

// Session tracks the search bar: whether it is open and the current query.
type Session struct {
	mu    sync.RWMutex
	open  bool
	query string
}

// Open shows the search bar, keeping any existing query.
func (s *Session) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
}

// SetQuery updates the query and opens the bar.
func (s *Session) SetQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
	s.query = q
}

// Close hides the bar and clears the query.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	s.query = ""
}

func (s *Session) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

func (s *Session) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// Apply filters messages by the current query.
func (s *Session) Apply(messages []types.Message) []types.Message {
	return Filter(messages, s.Query())
}
