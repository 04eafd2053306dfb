package lifecycle

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Base struct {
	order *[]string
}

func (b *Base) PostConstruct() {
	*b.order = append(*b.order, "Base")
}

func (b *Base) PreDestroy() {
	*b.order = append(*b.order, "Base")
}

type Mid struct {
	Base
}

func (m *Mid) PostConstruct() {
	*m.order = append(*m.order, "Mid")
}

func (m *Mid) PreDestroy() {
	*m.order = append(*m.order, "Mid")
}

type Leaf struct {
	Mid
}

func TestInvokePostConstruct_RootToLeaf(t *testing.T) {
	var order []string
	instance := &Leaf{Mid{Base{order: &order}}}

	h := NewHelper()
	require.NoError(t, h.InvokePostConstruct(instance))

	// Leaf declares no PostConstruct of its own, so its lookup resolves to
	// the same promoted function as Mid's and is skipped as a duplicate;
	// Base and Mid each declare a distinct function and both run, in
	// root-to-leaf order.
	assert.Equal(t, []string{"Base", "Mid"}, order)
}

type badLifecycle struct{}

func (b *badLifecycle) PostConstruct(x int) {}

func TestInvokePostConstruct_WrongShapeFails(t *testing.T) {
	h := NewHelper()
	err := h.InvokePostConstruct(&badLifecycle{})
	require.Error(t, err)
}

type failingPreDestroy struct{}

func (f *failingPreDestroy) PreDestroy() error {
	return errors.New("boom")
}

func TestInvokePreDestroy_PropagatesError(t *testing.T) {
	h := NewHelper()
	err := h.InvokePreDestroy(&failingPreDestroy{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestBuildHierarchy_WalksEmbeddedChain(t *testing.T) {
	h := BuildHierarchy(reflect.TypeOf(Leaf{}))
	require.Len(t, h.Types, 3)
	assert.Equal(t, "Base", h.Types[0].Name())
	assert.Equal(t, "Mid", h.Types[1].Name())
	assert.Equal(t, "Leaf", h.Types[2].Name())
}
