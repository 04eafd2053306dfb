// Package scope implements the scope registry and built-in scope handlers
// (C6): a map of scope tag to instance-storage policy with lifecycle-aware
// teardown (§4.5.8).
package scope

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"dicore/pkg/dierr"
	"dicore/pkg/lifecycle"
	"dicore/pkg/scandesc"
)

// Factory produces a fresh instance on demand. It is supplied by the
// injector core and recursively performs construction/injection.
type Factory func() (interface{}, error)

// Handler is the storage policy for one scope. get(ClassDescriptor,
// factory) returns an instance obeying the handler's sharing semantics;
// Close invokes pre-destroy on all owned instances and releases them. All
// handlers are thread-safe.
type Handler interface {
	Get(ctx context.Context, cd *scandesc.ClassDescriptor, factory Factory) (interface{}, error)
	Close() error
}

// cellResult is the memoized outcome of one factory invocation.
type cellResult struct {
	value interface{}
	err   error
}

// cell guards a single class's production within a shared store. The fast
// path (value already loaded) is lock-free; producers serialize on sync.Once
// scoped to this one key only, never on a store-wide lock — this is what
// lets one key's factory re-enter the same handler to resolve a different
// key without deadlocking (§4.5.8, §5 Reentrancy, §9).
type cell struct {
	once  sync.Once
	value atomic.Pointer[cellResult]
}

func (c *cell) get(factory Factory) (interface{}, error) {
	if r := c.value.Load(); r != nil {
		return r.value, r.err
	}
	c.once.Do(func() {
		v, err := factory()
		c.value.Store(&cellResult{value: v, err: err})
	})
	r := c.value.Load()
	return r.value, r.err
}

// sharedStore is the common "one instance per class, per partition"
// mechanism behind Singleton/Application/Request/Session/Conversation.
type sharedStore struct {
	mu    sync.Mutex
	cells map[*scandesc.ClassDescriptor]*cell
	order []*scandesc.ClassDescriptor
}

func newSharedStore() *sharedStore {
	return &sharedStore{cells: make(map[*scandesc.ClassDescriptor]*cell)}
}

func (s *sharedStore) cellFor(cd *scandesc.ClassDescriptor) *cell {
	s.mu.Lock()
	c, ok := s.cells[cd]
	if !ok {
		c = &cell{}
		s.cells[cd] = c
		s.order = append(s.order, cd)
	}
	s.mu.Unlock()
	return c
}

func (s *sharedStore) get(cd *scandesc.ClassDescriptor, factory Factory) (interface{}, error) {
	return s.cellFor(cd).get(factory)
}

// closeAll invokes pre-destroy (leaf-to-root within each instance, via the
// lifecycle helper) on every stored instance, most-recently-created first.
// A failure does not stop the walk (§4.5.8); all failures are aggregated
// into the returned error.
func (s *sharedStore) closeAll(helper *lifecycle.Helper) error {
	s.mu.Lock()
	order := append([]*scandesc.ClassDescriptor(nil), s.order...)
	cells := make(map[*scandesc.ClassDescriptor]*cell, len(s.cells))
	for k, v := range s.cells {
		cells[k] = v
	}
	s.cells = make(map[*scandesc.ClassDescriptor]*cell)
	s.order = nil
	s.mu.Unlock()

	var errs error
	for i := len(order) - 1; i >= 0; i-- {
		cd := order[i]
		c, ok := cells[cd]
		if !ok {
			continue
		}
		r := c.value.Load()
		if r == nil || r.err != nil || r.value == nil {
			continue
		}
		if err := helper.InvokePreDestroy(r.value); err != nil {
			errs = multierr.Append(errs, dierr.Wrap(dierr.InternalInvariant, err, "pre-destroy failed for %s", cd.Erased))
		}
	}
	return errs
}

func (s *sharedStore) empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cells) == 0
}
