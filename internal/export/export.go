// Package export serializes a conversation into a portable JSON snapshot.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/user/artifactchat/internal/types"
)

// ErrSerialization marks a failed export. It never affects the conversation.
var ErrSerialization = errors.New("export serialization failed")

// isoLayout matches JavaScript's Date.toISOString: UTC with milliseconds.
const isoLayout = "2006-01-02T15:04:05.000Z"

// Snapshot is the exported document. It carries no schema version.
type Snapshot struct {
	Timestamp string   `json:"timestamp"`
	Messages  []Record `json:"messages"`
}

// Record is the exported form of one message.
type Record struct {
	Content   string           `json:"content"`
	Sender    types.Sender     `json:"sender"`
	Timestamp string           `json:"timestamp"`
	Type      types.Kind       `json:"type"`
	Artifacts []ArtifactRecord `json:"artifacts,omitempty"`
}

// ArtifactRecord is the reduced artifact form. Variants without textual
// content (chart, image) export without content; their data is dropped.
type ArtifactRecord struct {
	Title   string             `json:"title"`
	Type    types.ArtifactType `json:"type"`
	Content string             `json:"content,omitempty"`
}

// FormatTime renders t the way every exported timestamp is written.
func FormatTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// Build converts messages into a Snapshot stamped with exportedAt.
func Build(messages []types.Message, exportedAt time.Time) *Snapshot {
	snap := &Snapshot{
		Timestamp: FormatTime(exportedAt),
		Messages:  make([]Record, 0, len(messages)),
	}
	for _, msg := range messages {
		rec := Record{
			Content:   msg.Content,
			Sender:    msg.Sender,
			Timestamp: FormatTime(msg.Timestamp),
			Type:      msg.Kind,
		}
		for _, a := range msg.Artifacts {
			ar := ArtifactRecord{Title: a.Title, Type: a.Type}
			if a.Type.HasTextContent() {
				ar.Content = a.Content
			}
			rec.Artifacts = append(rec.Artifacts, ar)
		}
		snap.Messages = append(snap.Messages, rec)
	}
	return snap
}

// Encode writes snap as indented UTF-8 JSON.
func Encode(w io.Writer, snap *Snapshot) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("%w: encode: %v", ErrSerialization, err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("%w: write: %v", ErrSerialization, err)
	}
	return nil
}

// FileName returns the conventional export file name for t.
func FileName(t time.Time) string {
	return "chat-export-" + t.UTC().Format("2006-01-02") + ".json"
}

// WriteFile encodes snap into dir using the conventional name for
// exportedAt and returns the written path. The write is atomic.
func WriteFile(dir string, snap *Snapshot, exportedAt time.Time) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create export dir: %v", ErrSerialization, err)
	}

	// Atomic write via temp file + rename
	target := filepath.Join(dir, FileName(exportedAt))
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("%w: write temp export: %v", ErrSerialization, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("%w: rename temp export: %v", ErrSerialization, err)
	}
	return target, nil
}
