package scope

import (
	"sync"

	"go.uber.org/multierr"

	"dicore/pkg/dierr"
	"dicore/pkg/lifecycle"
	"dicore/pkg/scandesc"
)

// Registry maps a scope tag to its Handler and owns container-wide
// teardown (§4.5.8: shutdown isolates and aggregates each scope's close
// error so one scope's failure never prevents the others from closing).
type Registry struct {
	mu       sync.RWMutex
	handlers map[scandesc.ScopeTag]Handler
	order    []scandesc.ScopeTag
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[scandesc.ScopeTag]Handler)}
}

// NewDefaultRegistry builds a Registry with the six built-in scopes
// already registered, sharing one lifecycle.Helper.
func NewDefaultRegistry() *Registry {
	helper := lifecycle.NewHelper()
	r := NewRegistry()
	_ = r.Register(scandesc.ScopeDependent, NewDependentHandler(helper))
	_ = r.Register(scandesc.ScopeSingleton, NewSingletonHandler(helper))
	_ = r.Register(scandesc.ScopeApplication, NewApplicationHandler(helper))
	_ = r.Register(scandesc.ScopeRequest, NewRequestHandler(helper))
	_ = r.Register(scandesc.ScopeSession, NewSessionHandler(helper))
	_ = r.Register(scandesc.ScopeConversation, NewConversationHandler(helper))
	return r
}

// Register installs handler under tag. Re-registering an already-bound tag
// is a DomainFailure — scope identity must stay stable for the lifetime of
// the container.
func (r *Registry) Register(tag scandesc.ScopeTag, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[tag]; exists {
		return dierr.New(dierr.DomainFailure, "scope %q is already registered", tag)
	}
	r.handlers[tag] = handler
	r.order = append(r.order, tag)
	return nil
}

// HandlerFor returns the Handler registered for tag.
func (r *Registry) HandlerFor(tag scandesc.ScopeTag) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[tag]
	return h, ok
}

// EndConversation tears down one conversation partition immediately,
// without affecting any other conversation or scope. It is a no-op if
// conversation scope was never registered or the partition was never
// populated.
func (r *Registry) EndConversation(conversationID string) error {
	h, ok := r.HandlerFor(scandesc.ScopeConversation)
	if !ok {
		return nil
	}
	p, ok := h.(*partitionedHandler)
	if !ok {
		return dierr.New(dierr.InternalInvariant, "conversation scope handler has an unexpected type")
	}
	return p.EndPartition(conversationID)
}

// CloseAll closes every registered scope in registration order, isolating
// and aggregating each scope's error (§4.5.8) rather than stopping at the
// first failure.
func (r *Registry) CloseAll() error {
	r.mu.RLock()
	order := append([]scandesc.ScopeTag(nil), r.order...)
	handlers := make(map[scandesc.ScopeTag]Handler, len(r.handlers))
	for k, v := range r.handlers {
		handlers[k] = v
	}
	r.mu.RUnlock()

	var errs error
	for _, tag := range order {
		if err := handlers[tag].Close(); err != nil {
			errs = multierr.Append(errs, dierr.Wrap(dierr.InternalInvariant, err, "closing scope %q failed", tag))
		}
	}
	return errs
}
