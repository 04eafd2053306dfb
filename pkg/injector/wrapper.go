package injector

import (
	"context"

	"dicore/pkg/dierr"
	"dicore/pkg/resolver"
	"dicore/pkg/typedesc"
)

// Optional narrows a possibly-unsatisfied dependency (§4.5.3,
// §4.5.6): a field or parameter of type Optional[T] resolves to an empty
// value rather than failing when nothing satisfies T, while any other
// resolution failure (ambiguity, construction error) still propagates.
//
// Value/Present are exported (rather than the more usual unexported pair)
// so the injector's reflection-based field-injection path can populate an
// Optional[T] field directly through reflect.Value.Set without needing T
// at the call site — reflect.New on the field's already-instantiated type
// gives a concrete *Optional[Foo], whose exported fields are then settable
// generically.
type Optional[T any] struct {
	Value   T
	Present bool
}

// Some wraps a present value (used internally when resolution succeeds).
func Some[T any](v T) Optional[T] { return Optional[T]{Value: v, Present: true} }

// None is the empty Optional (used internally on Unsatisfied).
func None[T any]() Optional[T] { return Optional[T]{} }

// IsPresent reports whether the optional carries a value.
func (o Optional[T]) IsPresent() bool { return o.Present }

// Get returns the wrapped value and whether it was present.
func (o Optional[T]) Get() (T, bool) { return o.Value, o.Present }

// Handle is the reflection-friendly, non-generic core behind Provider[T]
// and Lazy[T]. Go's reflect package cannot construct or introspect an
// arbitrary generic instantiation at runtime (there is no
// reflect.Type.TypeArgs or equivalent), so field injection sets only this
// exported, non-generic Handle field on an already-correctly-typed
// Provider[T]/Lazy[T] zero value (obtained via reflect.New on the field's
// static, already-instantiated type) — the generic Get/Select/Iter methods
// then do the T-typed work entirely at compile time, asserting Handle's
// untyped results against T.
type Handle struct {
	Target      typedesc.TypeDescriptor
	Qualifiers  typedesc.QualifierSet
	Resolve     func(ctx context.Context, qualifiers typedesc.QualifierSet) (interface{}, error)
	ResolveMany func(ctx context.Context, qualifiers typedesc.QualifierSet) ([]interface{}, error)
	Outcome     func(ctx context.Context, qualifiers typedesc.QualifierSet) (resolver.Outcome, error)
	DestroyFn   func(instance interface{}) error
}

func assertT[T any](v interface{}) (T, error) {
	var zero T
	t, ok := v.(T)
	if !ok {
		return zero, dierr.New(dierr.InternalInvariant, "resolved value %T does not satisfy the requested type", v)
	}
	return t, nil
}

// Provider defers resolution of T to call time, breaking a construction
// cycle: the counterpart that would otherwise be needed eagerly is instead
// captured as a handle and only resolved when Get is actually called
// (§4.5.7).
type Provider[T any] struct {
	Handle Handle
}

// Get performs a full resolve through the injector at call time (§4.8).
func (p Provider[T]) Get(ctx context.Context) (T, error) {
	var zero T
	if p.Handle.Resolve == nil {
		return zero, dierr.New(dierr.InternalInvariant, "provider handle was never wired")
	}
	v, err := p.Handle.Resolve(ctx, p.Handle.Qualifiers)
	if err != nil {
		return zero, err
	}
	return assertT[T](v)
}

// Lazy is Provider plus the set-aware operations (§4.8): selecting a
// qualifier refinement, iterating every candidate, inspecting the current
// outcome, and destroying an instance obtained through it.
type Lazy[T any] struct {
	Handle Handle
}

// Get performs a full resolve through the injector at call time.
func (l Lazy[T]) Get(ctx context.Context) (T, error) {
	var zero T
	if l.Handle.Resolve == nil {
		return zero, dierr.New(dierr.InternalInvariant, "lazy handle was never wired")
	}
	v, err := l.Handle.Resolve(ctx, l.Handle.Qualifiers)
	if err != nil {
		return zero, err
	}
	return assertT[T](v)
}

// Select returns a refined Lazy with extra's qualifiers unioned onto the
// ones captured at the injection site.
func (l Lazy[T]) Select(extra ...typedesc.Qualifier) Lazy[T] {
	refined := l.Handle
	refined.Qualifiers = l.Handle.Qualifiers.Union(typedesc.NewQualifierSet(extra...))
	return Lazy[T]{Handle: refined}
}

// Iter yields every implementation currently matching the handle's target
// and qualifiers (delegates to resolve_many, §4.4.3).
func (l Lazy[T]) Iter(ctx context.Context) ([]T, error) {
	if l.Handle.ResolveMany == nil {
		return nil, dierr.New(dierr.InternalInvariant, "lazy handle was never wired")
	}
	vals, err := l.Handle.ResolveMany(ctx, l.Handle.Qualifiers)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(vals))
	for _, v := range vals {
		t, err := assertT[T](v)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// IsUnsatisfied reports whether the current candidate set resolves to
// Unsatisfied.
func (l Lazy[T]) IsUnsatisfied(ctx context.Context) (bool, error) {
	outcome, err := l.outcome(ctx)
	if err != nil {
		return false, err
	}
	return outcome == resolver.Unsatisfied, nil
}

// IsAmbiguous reports whether the current candidate set resolves to
// Ambiguous.
func (l Lazy[T]) IsAmbiguous(ctx context.Context) (bool, error) {
	outcome, err := l.outcome(ctx)
	if err != nil {
		return false, err
	}
	return outcome == resolver.Ambiguous, nil
}

func (l Lazy[T]) outcome(ctx context.Context) (resolver.Outcome, error) {
	if l.Handle.Outcome == nil {
		return resolver.Unsatisfied, dierr.New(dierr.InternalInvariant, "lazy handle was never wired")
	}
	return l.Handle.Outcome(ctx, l.Handle.Qualifiers)
}

// Destroy invokes pre-destroy on instance (§4.8).
func (l Lazy[T]) Destroy(instance T) error {
	if l.Handle.DestroyFn == nil {
		return dierr.New(dierr.InternalInvariant, "lazy handle was never wired")
	}
	return l.Handle.DestroyFn(instance)
}
