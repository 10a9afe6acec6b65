// Package render maps artifacts to presentation strategies and lays out
// multi-artifact messages as tabs.
package render

import (
	"errors"
	"fmt"

	"github.com/user/artifactchat/internal/types"
)

// ErrUnsupportedArtifact is returned for artifact tags with no strategy.
var ErrUnsupportedArtifact = errors.New("unsupported artifact type")

// Strategy names the presentation logic for one artifact variant.
type Strategy string

const (
	StrategyCodeBlock Strategy = "code-block"
	StrategyComponent Strategy = "component-preview"
	StrategyChart     Strategy = "chart-visualization"
	StrategyDocument  Strategy = "document-prose"
	StrategyImage     Strategy = "image-preview"

	// StrategyUnsupported marks a tab whose type has no presentation.
	StrategyUnsupported Strategy = "unsupported"
)

var strategies = map[types.ArtifactType]Strategy{
	types.ArtifactCode:      StrategyCodeBlock,
	types.ArtifactComponent: StrategyComponent,
	types.ArtifactChart:     StrategyChart,
	types.ArtifactDocument:  StrategyDocument,
	types.ArtifactImage:     StrategyImage,
}

// Dispatch selects the strategy for a's type. Unknown tags are rejected.
func Dispatch(a types.Artifact) (Strategy, error) {
	s, ok := strategies[a.Type]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedArtifact, a.Type)
	}
	return s, nil
}

// LayoutKind describes how a message's artifacts are arranged.
type LayoutKind string

const (
	LayoutNone   LayoutKind = "none"
	LayoutInline LayoutKind = "inline"
	LayoutTabs   LayoutKind = "tabs"
)

// Tab is one artifact slot. ID is the artifact's own id so re-renders keep
// tabs stable.
type Tab struct {
	ID       types.ArtifactID   `json:"id"`
	Title    string             `json:"title"`
	Type     types.ArtifactType `json:"type"`
	Strategy Strategy           `json:"strategy"`
}

// Layout is the render plan for one message.
type Layout struct {
	Kind    LayoutKind       `json:"kind"`
	Tabs    []Tab            `json:"tabs,omitempty"`
	Default types.ArtifactID `json:"default,omitempty"`
}

// Plan builds the layout for artifacts. A single artifact renders inline,
// several render as tabs in artifact order with the first selected. An
// unknown tag still gets its tab, with StrategyUnsupported, so it renders
// empty without hiding its siblings.
func Plan(artifacts []types.Artifact) Layout {
	if len(artifacts) == 0 {
		return Layout{Kind: LayoutNone}
	}

	tabs := make([]Tab, 0, len(artifacts))
	for _, a := range artifacts {
		s, err := Dispatch(a)
		if err != nil {
			s = StrategyUnsupported
		}
		tabs = append(tabs, Tab{ID: a.ID, Title: a.Title, Type: a.Type, Strategy: s})
	}

	kind := LayoutTabs
	if len(tabs) == 1 {
		kind = LayoutInline
	}
	return Layout{Kind: kind, Tabs: tabs, Default: tabs[0].ID}
}
