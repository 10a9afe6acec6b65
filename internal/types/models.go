// internal/types/models.go
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrUnknownArtifactType is returned when an artifact tag is not one of the
// declared variants.
var ErrUnknownArtifactType = errors.New("unknown artifact type")

type ArtifactType string

const (
	ArtifactCode      ArtifactType = "code"
	ArtifactComponent ArtifactType = "component"
	ArtifactChart     ArtifactType = "chart"
	ArtifactDocument  ArtifactType = "document"
	ArtifactImage     ArtifactType = "image"
)

// ArtifactTypes lists every declared variant in declaration order.
var ArtifactTypes = []ArtifactType{ArtifactCode, ArtifactComponent, ArtifactChart, ArtifactDocument, ArtifactImage}

// ParseArtifactType validates a raw tag.
func ParseArtifactType(s string) (ArtifactType, error) {
	t := ArtifactType(s)
	if !slices.Contains(ArtifactTypes, t) {
		return "", fmt.Errorf("%w: %q", ErrUnknownArtifactType, s)
	}
	return t, nil
}

// HasTextContent reports whether the variant carries a textual content field.
// Chart and image carry an opaque data payload instead.
func (t ArtifactType) HasTextContent() bool {
	switch t {
	case ArtifactCode, ArtifactComponent, ArtifactDocument:
		return true
	}
	return false
}

// Artifact is a typed content block attached to a message.
// Type is set by the constructors and has no setter.
type Artifact struct {
	ID        ArtifactID      `json:"id"`
	Type      ArtifactType    `json:"type"`
	Title     string          `json:"title"`
	Content   string          `json:"content,omitempty"`
	Language  string          `json:"language,omitempty"`
	Framework string          `json:"framework,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func NewCodeArtifact(title, content, language string) Artifact {
	return Artifact{ID: NewArtifactID(), Type: ArtifactCode, Title: title, Content: content, Language: language}
}

func NewComponentArtifact(title, content, framework string) Artifact {
	return Artifact{ID: NewArtifactID(), Type: ArtifactComponent, Title: title, Content: content, Framework: framework}
}

func NewChartArtifact(title string, data json.RawMessage) Artifact {
	return Artifact{ID: NewArtifactID(), Type: ArtifactChart, Title: title, Data: data}
}

func NewDocumentArtifact(title, content string) Artifact {
	return Artifact{ID: NewArtifactID(), Type: ArtifactDocument, Title: title, Content: content}
}

func NewImageArtifact(title string, data json.RawMessage) Artifact {
	return Artifact{ID: NewArtifactID(), Type: ArtifactImage, Title: title, Data: data}
}

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

type Kind string

const (
	KindText     Kind = "text"
	KindTool     Kind = "tool"
	KindArtifact Kind = "artifact"
)

// DeriveKind computes the message kind from its payload: artifact wins over
// tool, tool wins over text.
func DeriveKind(artifacts []Artifact, toolName string) Kind {
	switch {
	case len(artifacts) > 0:
		return KindArtifact
	case toolName != "":
		return KindTool
	default:
		return KindText
	}
}

// Reaction is a cumulative counter for one reaction kind.
type Reaction struct {
	Kind  string `json:"type"`
	Count int    `json:"count"`
}

// Attachment is an opaque file handle attached to an outgoing user message.
// Its bytes are never parsed here.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size"`
	Data     []byte `json:"-"`
}

// Message is one conversational turn.
type Message struct {
	ID          MessageID    `json:"id"`
	Content     string       `json:"content"`
	Sender      Sender       `json:"sender"`
	Timestamp   time.Time    `json:"timestamp"`
	Kind        Kind         `json:"type"`
	ToolName    string       `json:"tool_name,omitempty"`
	Artifacts   []Artifact   `json:"artifacts,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Bookmarked  bool         `json:"bookmarked"`
	Reactions   []Reaction   `json:"reactions,omitempty"`
	// Error is set only on assistant messages that report a failed reply.
	Error string `json:"error,omitempty"`
}

// NewMessage builds a message with its kind fixed at creation time.
func NewMessage(sender Sender, content string, artifacts []Artifact, toolName string) Message {
	kind := DeriveKind(artifacts, toolName)
	if kind != KindTool {
		toolName = ""
	}
	return Message{
		ID:        NewMessageID(),
		Content:   content,
		Sender:    sender,
		Timestamp: time.Now(),
		Kind:      kind,
		ToolName:  toolName,
		Artifacts: artifacts,
	}
}

// Failed reports whether the message stands in for a failed reply.
func (m *Message) Failed() bool {
	return m.Error != ""
}

// Reaction returns the count recorded for kind, zero if none.
func (m *Message) Reaction(kind string) int {
	for _, r := range m.Reactions {
		if r.Kind == kind {
			return r.Count
		}
	}
	return 0
}

// Clone returns a deep copy so callers never share slices with the store.
func (m Message) Clone() Message {
	out := m
	if m.Artifacts != nil {
		out.Artifacts = make([]Artifact, len(m.Artifacts))
		for i, a := range m.Artifacts {
			a.Data = slices.Clone(a.Data)
			out.Artifacts[i] = a
		}
	}
	if m.Attachments != nil {
		out.Attachments = make([]Attachment, len(m.Attachments))
		for i, f := range m.Attachments {
			f.Data = slices.Clone(f.Data)
			out.Attachments[i] = f
		}
	}
	out.Reactions = slices.Clone(m.Reactions)
	return out
}

// ReplyRequest is what a response provider receives for one user turn.
// History is a snapshot that already ends with the user message.
type ReplyRequest struct {
	Utterance   string
	MessageID   MessageID
	History     []Message
	Attachments []Attachment
}
