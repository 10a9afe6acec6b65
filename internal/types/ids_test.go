// internal/types/ids_test.go
package types

import (
	"testing"
)

func TestNewMessageID(t *testing.T) {
	id := NewMessageID()
	if id == "" {
		t.Error("expected non-empty MessageID")
	}
	if len(string(id)) != 36 {
		t.Errorf("expected UUID format, got %s", id)
	}
}

func TestMessageIDsSortByCreation(t *testing.T) {
	prev := NewMessageID()
	for i := 0; i < 100; i++ {
		next := NewMessageID()
		if next <= prev {
			t.Fatalf("expected %s > %s", next, prev)
		}
		prev = next
	}
}

func TestNewArtifactIDUnique(t *testing.T) {
	seen := make(map[ArtifactID]bool)
	for i := 0; i < 50; i++ {
		id := NewArtifactID()
		if seen[id] {
			t.Fatalf("duplicate artifact id %s", id)
		}
		seen[id] = true
	}
}
