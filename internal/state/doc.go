// Package state provides the in-memory conversation store.
package state

import "github.com/user/artifactchat/internal/types"

// Compile-time interface compliance check.
var _ types.MessageStore = (*Conversation)(nil)
