package scope

import (
	"context"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dicore/pkg/lifecycle"
	"dicore/pkg/scandesc"
)

type widget struct {
	destroyed *int32
}

func (w *widget) PreDestroy() {
	atomic.AddInt32(w.destroyed, 1)
}

func classDescFor(v interface{}) *scandesc.ClassDescriptor {
	return &scandesc.ClassDescriptor{Erased: reflect.TypeOf(v)}
}

func TestSingletonHandler_SharesOneInstance(t *testing.T) {
	helper := lifecycle.NewHelper()
	h := NewSingletonHandler(helper)
	cd := classDescFor(widget{})
	calls := 0

	factory := func() (interface{}, error) {
		calls++
		return &widget{destroyed: new(int32)}, nil
	}

	a, err := h.Get(context.Background(), cd, factory)
	require.NoError(t, err)
	b, err := h.Get(context.Background(), cd, factory)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, calls)
}

func TestSingletonHandler_CloseInvokesPreDestroy(t *testing.T) {
	helper := lifecycle.NewHelper()
	h := NewSingletonHandler(helper)
	cd := classDescFor(widget{})
	destroyed := new(int32)

	_, err := h.Get(context.Background(), cd, func() (interface{}, error) {
		return &widget{destroyed: destroyed}, nil
	})
	require.NoError(t, err)

	require.NoError(t, h.Close())
	assert.Equal(t, int32(1), atomic.LoadInt32(destroyed))
}

func TestRequestHandler_PartitionsByContext(t *testing.T) {
	helper := lifecycle.NewHelper()
	h := NewRequestHandler(helper)
	cd := classDescFor(widget{})

	ctx1 := WithRequestID(context.Background(), "req-1")
	ctx2 := WithRequestID(context.Background(), "req-2")

	a, err := h.Get(ctx1, cd, func() (interface{}, error) { return &widget{destroyed: new(int32)}, nil })
	require.NoError(t, err)
	b, err := h.Get(ctx2, cd, func() (interface{}, error) { return &widget{destroyed: new(int32)}, nil })
	require.NoError(t, err)
	c, err := h.Get(ctx1, cd, func() (interface{}, error) { return &widget{destroyed: new(int32)}, nil })
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Same(t, a, c)
}

func TestRequestHandler_MissingRequestIDFails(t *testing.T) {
	helper := lifecycle.NewHelper()
	h := NewRequestHandler(helper)
	cd := classDescFor(widget{})

	_, err := h.Get(context.Background(), cd, func() (interface{}, error) { return &widget{destroyed: new(int32)}, nil })
	require.Error(t, err)
}

func TestDependentHandler_AlwaysFresh(t *testing.T) {
	helper := lifecycle.NewHelper()
	h := NewDependentHandler(helper)
	cd := classDescFor(widget{})

	a, err := h.Get(context.Background(), cd, func() (interface{}, error) { return &widget{destroyed: new(int32)}, nil })
	require.NoError(t, err)
	b, err := h.Get(context.Background(), cd, func() (interface{}, error) { return &widget{destroyed: new(int32)}, nil })
	require.NoError(t, err)

	assert.NotSame(t, a, b)
}

func TestRegistry_RegisterRejectsDuplicateTag(t *testing.T) {
	helper := lifecycle.NewHelper()
	r := NewRegistry()
	require.NoError(t, r.Register(scandesc.ScopeSingleton, NewSingletonHandler(helper)))
	err := r.Register(scandesc.ScopeSingleton, NewSingletonHandler(helper))
	require.Error(t, err)
}

func TestRegistry_CloseAllAggregatesAcrossScopes(t *testing.T) {
	r := NewDefaultRegistry()
	cd := classDescFor(widget{})

	singleton, ok := r.HandlerFor(scandesc.ScopeSingleton)
	require.True(t, ok)
	destroyed := new(int32)
	_, err := singleton.Get(context.Background(), cd, func() (interface{}, error) {
		return &widget{destroyed: destroyed}, nil
	})
	require.NoError(t, err)

	require.NoError(t, r.CloseAll())
	assert.Equal(t, int32(1), atomic.LoadInt32(destroyed))
}

func TestRegistry_EndConversationIsolatesOnePartition(t *testing.T) {
	r := NewDefaultRegistry()
	cd := classDescFor(widget{})
	conv, ok := r.HandlerFor(scandesc.ScopeConversation)
	require.True(t, ok)

	ctx := WithConversationID(context.Background(), "conv-1")
	destroyed := new(int32)
	_, err := conv.Get(ctx, cd, func() (interface{}, error) {
		return &widget{destroyed: destroyed}, nil
	})
	require.NoError(t, err)

	require.NoError(t, r.EndConversation("conv-1"))
	assert.Equal(t, int32(1), atomic.LoadInt32(destroyed))

	// A second Get for the same partition now produces a new instance.
	destroyed2 := new(int32)
	v, err := conv.Get(ctx, cd, func() (interface{}, error) {
		return &widget{destroyed: destroyed2}, nil
	})
	require.NoError(t, err)
	assert.NotNil(t, v)
}
