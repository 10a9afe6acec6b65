// internal/types/interfaces.go
package types

import (
	"context"
)

// MessageStore owns the ordered message log. Targeted mutations report
// whether the id was found; none of them fail.
type MessageStore interface {
	Append(msg Message) MessageID
	ToggleBookmark(id MessageID) bool
	AddReaction(id MessageID, kind string) bool
	Snapshot() []Message
	Get(id MessageID) (Message, bool)
	Len() int
}

// ResponseProvider produces the assistant reply for one user turn. Respond
// blocks until the reply is ready or ctx is done; callers run it off the
// interactive path.
type ResponseProvider interface {
	Respond(ctx context.Context, req ReplyRequest) (*Message, error)
}
