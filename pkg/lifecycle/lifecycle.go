// Package lifecycle implements the scope-aware lifecycle helper (C7): it
// builds a class's root-to-leaf hierarchy once and invokes post-construct
// (root to leaf) / pre-destroy (leaf to root) methods across it (§4.6).
package lifecycle

import (
	"reflect"

	"dicore/pkg/dierr"
)

// Hierarchy is the ordered root-to-leaf sequence of embedded struct types
// making up a class. Index 0 is the most basal (outermost ancestor);
// the last entry is the leaf type itself. Go models inheritance through
// anonymous struct embedding, so "class hierarchy" here means the chain of
// anonymous fields from the leaf struct down to its innermost embed.
type Hierarchy struct {
	Types []reflect.Type
}

// BuildHierarchy walks t's anonymous (embedded) struct fields to produce a
// root-to-leaf Hierarchy. A type with no embedded fields has a
// single-element hierarchy containing only itself.
func BuildHierarchy(t reflect.Type) Hierarchy {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	var ancestors []reflect.Type
	cur := t
	for cur.Kind() == reflect.Struct {
		var embedded reflect.Type
		for i := 0; i < cur.NumField(); i++ {
			f := cur.Field(i)
			if f.Anonymous {
				ft := f.Type
				for ft.Kind() == reflect.Ptr {
					ft = ft.Elem()
				}
				if ft.Kind() == reflect.Struct {
					embedded = ft
					break
				}
			}
		}
		if embedded == nil {
			break
		}
		ancestors = append(ancestors, embedded)
		cur = embedded
	}

	// ancestors was collected leaf->root; reverse to root->leaf and append
	// the leaf itself.
	out := make([]reflect.Type, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		out = append(out, ancestors[i])
	}
	out = append(out, t)
	return Hierarchy{Types: out}
}

// Marker names recognized by name equivalence (§6): methods on a type
// whose name matches one of these are treated as lifecycle callbacks. A
// Go-idiomatic name-equivalence scheme, since the source domain's
// annotations have no Go import to match against.
const (
	PostConstructMethodName = "PostConstruct"
	PreDestroyMethodName    = "PreDestroy"
)

// Helper invokes lifecycle callbacks across a class hierarchy.
type Helper struct{}

// NewHelper builds a lifecycle Helper.
func NewHelper() *Helper { return &Helper{} }

// InvokePostConstruct iterates instance's hierarchy root-to-leaf and
// invokes every zero-parameter PostConstruct method exactly once per class
// (§4.6). Non-conforming methods (those with parameters, or a non-zero
// return count beyond a trailing error) fail with InvalidLifecycle.
// Exceptions raised by lifecycle methods propagate to the caller.
func (h *Helper) InvokePostConstruct(instance interface{}) error {
	return h.walk(instance, PostConstructMethodName, forward)
}

// InvokePreDestroy iterates instance's hierarchy leaf-to-root and invokes
// every zero-parameter PreDestroy method exactly once per class.
func (h *Helper) InvokePreDestroy(instance interface{}) error {
	return h.walk(instance, PreDestroyMethodName, backward)
}

type direction int

const (
	forward direction = iota
	backward
)

func (h *Helper) walk(instance interface{}, methodName string, dir direction) error {
	v := reflect.ValueOf(instance)
	if !v.IsValid() {
		return dierr.New(dierr.DomainFailure, "cannot invoke lifecycle methods on a nil instance")
	}

	// Lifecycle methods are looked up on a pointer receiver so both
	// value-receiver and pointer-receiver callbacks are found, regardless
	// of whether instance itself was passed as a pointer.
	var ptr reflect.Value
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return dierr.New(dierr.DomainFailure, "cannot invoke lifecycle methods on a nil instance")
		}
		ptr = v
	} else {
		ptr = reflect.New(v.Type())
		ptr.Elem().Set(v)
	}

	hierarchy := BuildHierarchy(ptr.Elem().Type())
	order := hierarchy.Types
	if dir == backward {
		order = reversed(order)
	}

	// Go has no "call super" mechanism: when a level overrides a method, the
	// embedded ancestor's version is entirely shadowed by promotion, so at
	// most one physical function backs any given level's lookup. We walk
	// the hierarchy level by level but skip a level whose lookup resolves
	// to the same function already invoked for a shallower (or deeper, on
	// the backward pass) level, so an un-overridden promoted method fires
	// exactly once rather than once per level it's visible from.
	var lastFunc uintptr
	haveLast := false
	for _, level := range order {
		method, ok := declaresMethod(level, methodName)
		if !ok {
			continue
		}
		funcPtr := method.Func.Pointer()
		if haveLast && funcPtr == lastFunc {
			continue
		}
		lastFunc, haveLast = funcPtr, true

		if method.Type.NumIn() != 1 { // receiver only, zero declared params
			return dierr.New(dierr.InvalidLifecycle, "%s.%s must take zero parameters", level, methodName)
		}
		if method.Type.NumOut() > 1 {
			return dierr.New(dierr.InvalidLifecycle, "%s.%s must return at most one value (an error)", level, methodName)
		}
		fn := ptr.MethodByName(methodName)
		if !fn.IsValid() {
			return dierr.New(dierr.InvalidLifecycle, "%s.%s is not reachable through a pointer receiver", level, methodName)
		}
		results := fn.Call(nil)
		if len(results) == 1 && !results[0].IsNil() {
			return results[0].Interface().(error)
		}
	}
	return nil
}

// declaresMethod reports whether level's type (value or pointer receiver)
// resolves methodName, returning the resolved Method so callers can compare
// function identity across levels to detect (non-)overriding.
func declaresMethod(t reflect.Type, name string) (reflect.Method, bool) {
	if m, ok := reflect.PointerTo(t).MethodByName(name); ok {
		return m, true
	}
	if m, ok := t.MethodByName(name); ok {
		return m, true
	}
	return reflect.Method{}, false
}

func reversed(in []reflect.Type) []reflect.Type {
	out := make([]reflect.Type, len(in))
	for i, t := range in {
		out[len(in)-1-i] = t
	}
	return out
}
