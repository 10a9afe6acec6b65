package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/user/artifactchat/internal/types"
)

// CreateArtifact lets the model attach an artifact to its reply.
type CreateArtifact struct{}

// NewCreateArtifact creates the create_artifact tool.
func NewCreateArtifact() *CreateArtifact {
	return &CreateArtifact{}
}

func (c *CreateArtifact) Name() string  { return "create_artifact" }
func (c *CreateArtifact) Title() string { return "Code Generation" }
func (c *CreateArtifact) Description() string {
	return "Attach an artifact (code, component, chart, document or image) to the reply"
}
func (c *CreateArtifact) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"type": {"type": "string", "enum": ["code", "component", "chart", "document", "image"]},
			"title": {"type": "string", "description": "Short title shown on the artifact tab"},
			"content": {"type": "string", "description": "Source text for code, component and document artifacts"},
			"language": {"type": "string", "description": "Language of a code artifact, e.g. tsx"},
			"framework": {"type": "string", "description": "Framework of a component artifact, e.g. React"},
			"data": {"type": "object", "description": "Payload for chart and image artifacts"}
		},
		"required": ["type", "title"]
	}`)
}

type artifactArgs struct {
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Language  string          `json:"language"`
	Framework string          `json:"framework"`
	Data      json.RawMessage `json:"data"`
}

// BuildArtifact turns call arguments into an artifact.
func (c *CreateArtifact) BuildArtifact(args json.RawMessage) (types.Artifact, error) {
	var p artifactArgs
	if err := json.Unmarshal(args, &p); err != nil {
		return types.Artifact{}, fmt.Errorf("parse args: %w", err)
	}
	at, err := types.ParseArtifactType(p.Type)
	if err != nil {
		return types.Artifact{}, err
	}
	if p.Title == "" {
		return types.Artifact{}, fmt.Errorf("title is required")
	}

	switch at {
	case types.ArtifactCode:
		return types.NewCodeArtifact(p.Title, p.Content, p.Language), nil
	case types.ArtifactComponent:
		return types.NewComponentArtifact(p.Title, p.Content, p.Framework), nil
	case types.ArtifactChart:
		return types.NewChartArtifact(p.Title, p.Data), nil
	case types.ArtifactDocument:
		return types.NewDocumentArtifact(p.Title, p.Content), nil
	default:
		return types.NewImageArtifact(p.Title, p.Data), nil
	}
}

// Execute validates the arguments without producing anything; the runtime
// calls BuildArtifact instead.
func (c *CreateArtifact) Execute(_ context.Context, args json.RawMessage) (string, error) {
	a, err := c.BuildArtifact(args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("created %s artifact %q", a.Type, a.Title), nil
}
