// Package intake implements the command intake pipeline: authenticate a
// Manager delivery, guard against replays and duplicates, and dispatch the
// command to its handler exactly once per idempotency key.
package intake

import (
	"context"
	"sort"
	"sync"

	"github.com/erp/connector/internal/domain/command"
)

// Handler applies one command's entity payload to the ERP and reports the
// outcome. Handlers never see transport or authentication concerns.
type Handler func(ctx context.Context, storeID string, payload command.Fields) *command.ApplyResult

// Registry maps command types to handlers. Registration happens once at
// startup; Resolve is safe for concurrent use afterwards.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty handler registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a command type, replacing any previous binding.
func (r *Registry) Register(commandType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[commandType] = h
}

// Resolve returns the handler for a command type, or false when the command
// type is unsupported.
func (r *Registry) Resolve(commandType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[commandType]
	return h, ok
}

// Types returns the registered command types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
