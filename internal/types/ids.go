package types

import (
	"github.com/google/uuid"
)

type MessageID string
type ArtifactID string
type RunID string

// newOrderedID returns a UUIDv7 string; v7 ids sort by creation time.
func newOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func NewMessageID() MessageID {
	return MessageID(newOrderedID())
}

func NewArtifactID() ArtifactID {
	return ArtifactID(newOrderedID())
}

func NewRunID() RunID {
	return RunID(uuid.New().String())
}
