// internal/delivery/registry.go
package delivery

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/user/artifactchat/internal/types"
)

// UpdateType says what happened to the message in an Update.
type UpdateType string

const (
	UpdateAppended UpdateType = "appended"
	UpdateUpdated  UpdateType = "updated"
)

// Update is one change to the conversation. Message is a copy.
type Update struct {
	Type    UpdateType
	Message types.Message
}

// Handler receives conversation updates for one frontend.
type Handler func(Update) error

// Registry fans updates out to every registered frontend.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty delivery registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds or replaces the handler stored under name.
func (r *Registry) Register(name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Unregister removes the handler stored under name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, name)
}

// Deliver calls every handler in name order. A failing handler does not
// stop the others; their errors are joined.
func (r *Registry) Deliver(u Update) error {
	r.mu.RLock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	handlers := make(map[string]Handler, len(r.handlers))
	for k, v := range r.handlers {
		handlers[k] = v
	}
	r.mu.RUnlock()
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := handlers[name](u); err != nil {
			errs = append(errs, fmt.Errorf("deliver to %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
