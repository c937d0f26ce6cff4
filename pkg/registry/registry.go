// Package registry maps handler names to handler functions.
//
// The server consults it on every FIND and CALL; registration normally
// happens once, before serving begins. The registry is nevertheless safe
// for concurrent mutation, so late registration does not corrupt lookups.
package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/davidsha/gammarpc/pkg/protocol"
)

// Handler is a caller-supplied function mapping a request payload to a
// reply payload. Returning nil signals failure; the server answers the
// request with a failure reply. A returned payload must be well-formed or
// it is treated the same as nil.
type Handler func(*protocol.Data) *protocol.Data

// Registry is a thread-safe name → handler table with overwrite
// semantics: registering an existing name atomically replaces the
// previous entry.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds or replaces the handler for name. The name must be
// 1..protocol.MaxNameLength bytes with no embedded NUL.
func (r *Registry) Register(name string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("cannot register nil handler for %q", name)
	}
	if err := validateName(name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
	return nil
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Unregister removes the handler for name, if any.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, name)
}

// Count returns the number of registered handlers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Names returns the registered handler names, in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", protocol.ErrInvalidName)
	}
	if len(name) > protocol.MaxNameLength {
		return fmt.Errorf("%w: %d bytes exceeds %d", protocol.ErrInvalidName, len(name), protocol.MaxNameLength)
	}
	if strings.IndexByte(name, 0) >= 0 {
		return fmt.Errorf("%w: embedded NUL", protocol.ErrInvalidName)
	}
	return nil
}
