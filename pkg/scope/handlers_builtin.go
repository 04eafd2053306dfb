package scope

import (
	"context"
	"sync"

	"go.uber.org/multierr"

	"dicore/pkg/dierr"
	"dicore/pkg/lifecycle"
	"dicore/pkg/scandesc"
)

// singletonHandler backs both Singleton and Application scope (§4.5.8: the
// container process is the one "application", so the two collapse onto the
// same storage policy).
type singletonHandler struct {
	store  *sharedStore
	helper *lifecycle.Helper
}

// NewSingletonHandler returns the Handler for ScopeSingleton.
func NewSingletonHandler(helper *lifecycle.Helper) Handler {
	return &singletonHandler{store: newSharedStore(), helper: helper}
}

// NewApplicationHandler returns the Handler for ScopeApplication. It is a
// distinct instance from the singleton handler's store (application-scoped
// beans are tracked separately even though the sharing rule is identical),
// so a class bound to one scope never collides with the other's storage.
func NewApplicationHandler(helper *lifecycle.Helper) Handler {
	return &singletonHandler{store: newSharedStore(), helper: helper}
}

func (h *singletonHandler) Get(_ context.Context, cd *scandesc.ClassDescriptor, factory Factory) (interface{}, error) {
	return h.store.get(cd, factory)
}

func (h *singletonHandler) Close() error {
	return h.store.closeAll(h.helper)
}

// partitionedHandler backs Request/Session/Conversation scope: one
// sharedStore per partition id pulled from context, created on first use
// and torn down explicitly (conversation) or left for process-wide Close
// (request/session, whose partitions the caller is expected to end by
// simply letting the request/session finish).
type partitionedHandler struct {
	mu      sync.Mutex
	stores  map[string]*sharedStore
	helper  *lifecycle.Helper
	extract func(context.Context) (string, error)
	label   string
}

func newPartitionedHandler(label string, helper *lifecycle.Helper, extract func(context.Context) (string, error)) *partitionedHandler {
	return &partitionedHandler{
		stores:  make(map[string]*sharedStore),
		helper:  helper,
		extract: extract,
		label:   label,
	}
}

// NewRequestHandler returns the Handler for ScopeRequest, partitioned by
// scope.WithRequestID.
func NewRequestHandler(helper *lifecycle.Helper) Handler {
	return newPartitionedHandler("request", helper, requestID)
}

// NewSessionHandler returns the Handler for ScopeSession, partitioned by
// scope.WithSessionID.
func NewSessionHandler(helper *lifecycle.Helper) Handler {
	return newPartitionedHandler("session", helper, sessionID)
}

// NewConversationHandler returns the Handler for ScopeConversation,
// partitioned by scope.WithConversationID.
func NewConversationHandler(helper *lifecycle.Helper) Handler {
	return newPartitionedHandler("conversation", helper, conversationID)
}

func (h *partitionedHandler) storeFor(partition string) *sharedStore {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.stores[partition]
	if !ok {
		s = newSharedStore()
		h.stores[partition] = s
	}
	return s
}

func (h *partitionedHandler) Get(ctx context.Context, cd *scandesc.ClassDescriptor, factory Factory) (interface{}, error) {
	partition, err := h.extract(ctx)
	if err != nil {
		return nil, err
	}
	return h.storeFor(partition).get(cd, factory)
}

// EndPartition tears down the given partition's store immediately (used to
// end a conversation explicitly, per §4.5.8's conversation-scope note).
// Removing request/session partitions this way is also valid — the caller
// just decides when "the request/session is over".
func (h *partitionedHandler) EndPartition(partition string) error {
	h.mu.Lock()
	s, ok := h.stores[partition]
	if ok {
		delete(h.stores, partition)
	}
	h.mu.Unlock()
	if !ok {
		return nil
	}
	return s.closeAll(h.helper)
}

func (h *partitionedHandler) Close() error {
	h.mu.Lock()
	stores := make([]*sharedStore, 0, len(h.stores))
	for _, s := range h.stores {
		stores = append(stores, s)
	}
	h.stores = make(map[string]*sharedStore)
	h.mu.Unlock()

	var errs error
	for _, s := range stores {
		if err := s.closeAll(h.helper); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// dependentHandler backs Dependent scope (the Go-native zero-value: "no
// scope" / "always fresh"). It never reuses an instance: every Get runs
// the factory. Each produced instance is also appended to a live list so
// that Close can run pre-destroy on it (§4.5.8).
type dependentHandler struct {
	helper *lifecycle.Helper
	mu     sync.Mutex
	live   []interface{}
}

// NewDependentHandler returns the Handler for ScopeDependent.
func NewDependentHandler(helper *lifecycle.Helper) Handler {
	return &dependentHandler{helper: helper}
}

func (h *dependentHandler) Get(_ context.Context, _ *scandesc.ClassDescriptor, factory Factory) (interface{}, error) {
	v, err := factory()
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.live = append(h.live, v)
	h.mu.Unlock()
	return v, nil
}

// Close invokes pre-destroy on every dependent instance produced through
// this handler since the last Close, and clears the list. Instances are
// never removed from the list otherwise, so one already destroyed
// individually (for example via Lazy.Destroy) gets pre-destroy again here.
func (h *dependentHandler) Close() error {
	h.mu.Lock()
	live := h.live
	h.live = nil
	h.mu.Unlock()

	var errs error
	for _, v := range live {
		if err := h.helper.InvokePreDestroy(v); err != nil {
			errs = multierr.Append(errs, dierr.Wrap(dierr.InternalInvariant, err, "pre-destroy failed for a dependent instance"))
		}
	}
	return errs
}
