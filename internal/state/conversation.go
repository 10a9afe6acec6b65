// internal/state/conversation.go
package state

import (
	"sync"
	"time"

	"github.com/user/artifactchat/internal/types"
)

// Conversation is the in-memory message store. It owns every message and
// artifact; reads hand out deep copies and each operation holds the lock
// for its whole duration.
type Conversation struct {
	mu       sync.RWMutex
	messages []types.Message
	now      func() time.Time
}

// NewConversation creates a store pre-seeded with the given messages.
func NewConversation(seed ...types.Message) *Conversation {
	c := &Conversation{now: time.Now}
	for _, msg := range seed {
		c.Append(msg)
	}
	return c
}

// Append inserts msg at the tail and returns its id. Missing ids and
// timestamps are filled in and a supplied message id is always kept. Kind is
// always derived from the artifacts and tool name, whatever the caller set.
func (c *Conversation) Append(msg types.Message) types.MessageID {
	msg = msg.Clone()
	if msg.ID == "" {
		msg.ID = types.NewMessageID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = c.now()
	}
	msg.Kind = types.DeriveKind(msg.Artifacts, msg.ToolName)
	if msg.Kind != types.KindTool {
		msg.ToolName = ""
	}
	assignArtifactIDs(msg.Artifacts)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	return msg.ID
}

// assignArtifactIDs gives every artifact an id unique within its message.
func assignArtifactIDs(artifacts []types.Artifact) {
	seen := make(map[types.ArtifactID]bool, len(artifacts))
	for i := range artifacts {
		if artifacts[i].ID == "" || seen[artifacts[i].ID] {
			artifacts[i].ID = types.NewArtifactID()
		}
		seen[artifacts[i].ID] = true
	}
}

// index returns the position of the first message with id. Caller must hold the lock.
func (c *Conversation) index(id types.MessageID) int {
	for i := range c.messages {
		if c.messages[i].ID == id {
			return i
		}
	}
	return -1
}

// ToggleBookmark flips the bookmark flag. Returns false, leaving the store
// untouched, when id is unknown.
func (c *Conversation) ToggleBookmark(id types.MessageID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(id)
	if i < 0 {
		return false
	}
	c.messages[i].Bookmarked = !c.messages[i].Bookmarked
	return true
}

// AddReaction increments the count for kind, adding a new entry with count 1
// at the end when the message has no reaction of that kind yet.
func (c *Conversation) AddReaction(id types.MessageID, kind string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(id)
	if i < 0 {
		return false
	}
	msg := &c.messages[i]
	for j := range msg.Reactions {
		if msg.Reactions[j].Kind == kind {
			msg.Reactions[j].Count++
			return true
		}
	}
	msg.Reactions = append(msg.Reactions, types.Reaction{Kind: kind, Count: 1})
	return true
}

// Snapshot returns a copy of all messages in insertion order.
func (c *Conversation) Snapshot() []types.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]types.Message, len(c.messages))
	for i, msg := range c.messages {
		out[i] = msg.Clone()
	}
	return out
}

// Get returns a copy of the message with id.
func (c *Conversation) Get(id types.MessageID) (types.Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.index(id)
	if i < 0 {
		return types.Message{}, false
	}
	return c.messages[i].Clone(), true
}

// Len returns the number of stored messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}
