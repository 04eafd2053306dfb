// Package injector implements the injector core (C8) and the
// Provider/Lazy wrapper (C9): full construction of a resolved class,
// including constructor selection, field/method injection, static
// injection tracking, post-construct invocation, and circular-dependency
// detection via the context-carried injection stack (§4.5).
package injector

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"dicore/pkg/assignability"
	"dicore/pkg/dierr"
	"dicore/pkg/lifecycle"
	"dicore/pkg/resolver"
	"dicore/pkg/scandesc"
	"dicore/pkg/scope"
	"dicore/pkg/typedesc"
)

// Hook is a cross-cutting callback. Post-construct hooks run for every
// constructed instance, in addition to (not instead of) the per-class
// post-construct walk; pre-destroy hooks are only recorded (see
// AddPreDestroyHook) (§4.6 expansion: supplements, does not replace, the
// teacher's LifecycleHook naming from pkg/container/lifecycle.go). This is
// not AOP: there are no pointcuts and no method interception, only a fixed
// hook on the construct/destroy lifecycle edge.
type Hook func(instance interface{})

// Injector is the C8/C9 core: it turns a resolved ClassDescriptor into a
// fully wired instance and hands out Provider/Lazy handles for deferred
// resolution.
type Injector struct {
	resolver  *resolver.Resolver
	classes   assignability.ClassLookup
	scopes    *scope.Registry
	lifecycle *lifecycle.Helper
	logger    *zap.SugaredLogger

	hooksMu   sync.RWMutex
	postHooks []Hook
	preHooks  []Hook

	staticMu       sync.Mutex
	staticInjected map[*scandesc.ClassDescriptor]bool
}

// New builds an Injector wired to res (resolution), classes (hierarchy
// lookups for superclass walks), scopes (storage policies), helper
// (per-instance lifecycle), and logger.
func New(res *resolver.Resolver, classes assignability.ClassLookup, scopes *scope.Registry, helper *lifecycle.Helper, logger *zap.SugaredLogger) *Injector {
	return &Injector{
		resolver:       res,
		classes:        classes,
		scopes:         scopes,
		lifecycle:      helper,
		logger:         logger,
		staticInjected: make(map[*scandesc.ClassDescriptor]bool),
	}
}

// AddPostConstructHook registers a cross-cutting hook run after every
// instance's post-construct walk completes.
func (inj *Injector) AddPostConstructHook(h Hook) {
	inj.hooksMu.Lock()
	defer inj.hooksMu.Unlock()
	inj.postHooks = append(inj.postHooks, h)
}

// AddPreDestroyHook records a cross-cutting pre-destroy hook. Recorded
// hooks are not invoked: neither Lazy.Destroy nor scope teardown calls
// them.
func (inj *Injector) AddPreDestroyHook(h Hook) {
	inj.hooksMu.Lock()
	defer inj.hooksMu.Unlock()
	inj.preHooks = append(inj.preHooks, h)
}

// RegisterScope adds a scope handler (§4.5.1); duplicate registration
// fails.
func (inj *Injector) RegisterScope(tag scandesc.ScopeTag, handler scope.Handler) error {
	return inj.scopes.Register(tag, handler)
}

// EnableAlternative delegates to the resolver (C5).
func (inj *Injector) EnableAlternative(erased reflect.Type) {
	inj.resolver.EnableAlternative(erased)
}

// Bind delegates to the resolver (C5).
func (inj *Injector) Bind(target typedesc.TypeDescriptor, qualifiers []typedesc.Qualifier, impl *scandesc.ClassDescriptor) {
	inj.resolver.Bind(target, qualifiers, impl)
}

// Shutdown closes every scope in registration order; each scope's close
// error is isolated and does not cancel the others (§4.5.1).
func (inj *Injector) Shutdown() error {
	return inj.scopes.CloseAll()
}

// Inject resolves and fully constructs target, the public entry point for
// both "inject(target-type)" and "inject(type-literal)" (§4.5.1) — target
// being a Parameterized TypeDescriptor is exactly the type-literal case,
// since TypeDescriptor already preserves parameterization where
// reflect.Type alone cannot.
func (inj *Injector) Inject(ctx context.Context, target typedesc.TypeDescriptor, qualifiers ...typedesc.Qualifier) (interface{}, error) {
	if err := typedesc.ValidateInjectionPoint(target); err != nil {
		return nil, err
	}
	return inj.resolveValue(ctx, target, typedesc.NewQualifierSet(qualifiers...), true)
}

// resolveValue is the shared entry point used both by Inject and by
// field/parameter injection. isInjectionSite distinguishes an actual
// injection point (where Optional[T]/Provider[T]/Lazy[T] wrapper shapes
// are recognized and handled specially, §4.5.6) from a purely internal
// recursive resolution of some T that must not itself be wrapped again.
func (inj *Injector) resolveValue(ctx context.Context, target typedesc.TypeDescriptor, qualifiers typedesc.QualifierSet, isInjectionSite bool) (interface{}, error) {
	raw, err := typedesc.Extract(target)
	if err != nil {
		return nil, err
	}

	if isInjectionSite {
		switch classifyWrapper(raw) {
		case wrapperOptional:
			return inj.resolveOptional(ctx, raw, target, qualifiers)
		case wrapperProvider, wrapperLazy:
			return inj.buildHandleValue(raw, target, qualifiers)
		}
	} else if classifyWrapper(raw) != wrapperNone {
		return nil, dierr.New(dierr.DefinitionFailure, "Optional/Provider/Lazy wrapper types are only valid at an injection site, not nested inside another resolution")
	}

	return inj.resolveAndConstruct(ctx, target, qualifiers)
}

func wrapperElementType(target typedesc.TypeDescriptor) (typedesc.TypeDescriptor, error) {
	p, ok := target.(typedesc.Parameterized)
	if !ok || len(p.Args) != 1 {
		return nil, dierr.New(dierr.DefinitionFailure, "%s must carry exactly one type argument", target.String())
	}
	return p.Args[0], nil
}

func (inj *Injector) resolveOptional(ctx context.Context, raw reflect.Type, target typedesc.TypeDescriptor, qualifiers typedesc.QualifierSet) (interface{}, error) {
	elemDesc, err := wrapperElementType(target)
	if err != nil {
		return nil, err
	}

	ptr := reflect.New(raw)
	v, rerr := inj.resolveValue(ctx, elemDesc, qualifiers, false)
	switch {
	case rerr == nil:
		ptr.Elem().FieldByName("Value").Set(reflect.ValueOf(v))
		ptr.Elem().FieldByName("Present").SetBool(true)
	case dierr.Is(rerr, dierr.Unsatisfied):
		// leave the zero value: Present stays false.
	default:
		return nil, rerr
	}
	return ptr.Elem().Interface(), nil
}

func (inj *Injector) buildHandleValue(raw reflect.Type, target typedesc.TypeDescriptor, qualifiers typedesc.QualifierSet) (interface{}, error) {
	elemDesc, err := wrapperElementType(target)
	if err != nil {
		return nil, err
	}

	h := Handle{
		Target:     elemDesc,
		Qualifiers: qualifiers,
		Resolve: func(ctx context.Context, q typedesc.QualifierSet) (interface{}, error) {
			return inj.resolveValue(ctx, elemDesc, q, false)
		},
		ResolveMany: func(ctx context.Context, q typedesc.QualifierSet) ([]interface{}, error) {
			cds, err := inj.resolver.ResolveMany(ctx, elemDesc, q.Slice()...)
			if err != nil {
				return nil, err
			}
			out := make([]interface{}, 0, len(cds))
			for _, cd := range cds {
				v, err := inj.resolveAndConstructClass(ctx, cd, elemDesc, q)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			return out, nil
		},
		Outcome: func(ctx context.Context, q typedesc.QualifierSet) (resolver.Outcome, error) {
			_, outcome, err := inj.resolver.ResolveOne(ctx, elemDesc, q.Slice()...)
			if err != nil && outcome != resolver.Unsatisfied && outcome != resolver.Ambiguous {
				return outcome, err
			}
			return outcome, nil
		},
		DestroyFn: func(instance interface{}) error {
			return inj.lifecycle.InvokePreDestroy(instance)
		},
	}

	ptr := reflect.New(raw)
	ptr.Elem().FieldByName("Handle").Set(reflect.ValueOf(h))
	return ptr.Elem().Interface(), nil
}

// resolveAndConstruct implements §4.5.2 steps 1-4: push the stack, resolve
// via C5, delegate to the class's scope handler, and pop on return.
func (inj *Injector) resolveAndConstruct(ctx context.Context, target typedesc.TypeDescriptor, qualifiers typedesc.QualifierSet) (interface{}, error) {
	if err := validateInjectable(target); err != nil {
		return nil, err
	}
	cd, _, err := inj.resolver.ResolveOne(ctx, target, qualifiers.Slice()...)
	if err != nil {
		return nil, err
	}
	return inj.resolveAndConstructClass(ctx, cd, target, qualifiers)
}

func (inj *Injector) resolveAndConstructClass(ctx context.Context, cd *scandesc.ClassDescriptor, target typedesc.TypeDescriptor, qualifiers typedesc.QualifierSet) (interface{}, error) {
	key := fmt.Sprintf("%s#%s", cd.Erased.String(), qualifiers.Key())
	ctx, err := pushFrame(ctx, key)
	if err != nil {
		return nil, err
	}

	handler, ok := inj.scopes.HandlerFor(cd.Scope)
	if !ok {
		return nil, dierr.New(dierr.DomainFailure, "scope %q is not registered for %s", cd.Scope, cd.Erased)
	}

	return handler.Get(ctx, cd, func() (interface{}, error) {
		return inj.construct(ctx, cd)
	})
}
