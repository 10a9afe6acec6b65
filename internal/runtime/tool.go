package runtime

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/user/artifactchat/internal/types"
	"github.com/user/artifactchat/pkg/llm"
)

// Tool defines the interface for an executable tool.
// Title is the human-facing name shown as a message's tool badge.
type Tool interface {
	Name() string
	Title() string
	Description() string
	Parameters() json.RawMessage
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// ArtifactTool is a Tool whose calls produce an artifact for the reply.
type ArtifactTool interface {
	Tool
	BuildArtifact(args json.RawMessage) (types.Artifact, error)
}

// ToolInfo describes a registered tool for listing.
type ToolInfo struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// Registry holds registered tools and provides lookup.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	disabled map[string]bool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:    make(map[string]Tool),
		disabled: make(map[string]bool),
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Disable keeps a tool listed but stops offering it to the model.
func (r *Registry) Disable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled[name] = true
}

// Get returns an active tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok || r.disabled[name] {
		return nil, false
	}
	return t, true
}

// All returns all active tools sorted by name.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for name, t := range r.tools {
		if !r.disabled[name] {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Names returns the names of all active tools.
func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = t.Name()
	}
	return names
}

// Catalog lists every registered tool, disabled ones included.
func (r *Registry) Catalog() []ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolInfo, 0, len(r.tools))
	for name, t := range r.tools {
		out = append(out, ToolInfo{
			Name:        name,
			Title:       t.Title(),
			Description: t.Description(),
			Active:      !r.disabled[name],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AsLLMTools converts active tools to the LLM provider format.
func (r *Registry) AsLLMTools() []llm.Tool {
	all := r.All()
	out := make([]llm.Tool, 0, len(all))
	for _, t := range all {
		out = append(out, llm.FunctionTool(t.Name(), t.Description(), t.Parameters()))
	}
	return out
}
