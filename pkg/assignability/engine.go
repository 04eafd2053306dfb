// Package assignability implements the type-assignability engine (C3):
// injection-point validation (delegated to typedesc.ValidateInjectionPoint)
// and the target<-impl assignability check of §4.3, memoized through the
// bounded concurrent cache (C1).
package assignability

import (
	"reflect"

	"dicore/pkg/cache"
	"dicore/pkg/dierr"
	"dicore/pkg/scandesc"
	"dicore/pkg/typedesc"
)

// ClassLookup resolves a raw reflect.Type to the ClassDescriptor the
// container knows about, so the engine can walk declared interfaces and
// superclasses when checking a Parameterized target (§4.3.2 step 4). A nil
// result (ok == false) is treated as "no further generic hierarchy is
// known" — the raw-assignability check from step 2 still applies.
type ClassLookup interface {
	ClassOf(t reflect.Type) (*scandesc.ClassDescriptor, bool)
}

// Engine is the assignability engine, memoizing results in an internal
// cache (§4.3.4).
type Engine struct {
	classes ClassLookup
	memo    *cache.Cache
}

// New builds an Engine backed by the given class lookup and cache params.
func New(classes ClassLookup, cacheParams cache.Params) (*Engine, error) {
	memo, err := cache.New(cacheParams)
	if err != nil {
		return nil, err
	}
	return &Engine{classes: classes, memo: memo}, nil
}

// ValidateInjectionPoint re-exports typedesc's validator so callers only
// need to import this package for both halves of C3.
func ValidateInjectionPoint(t typedesc.TypeDescriptor) error {
	return typedesc.ValidateInjectionPoint(t)
}

type pairKey struct{ target, impl string }

func (p pairKey) Key() string { return "pair:" + p.target + "|" + p.impl }

// IsAssignable decides target <- impl per §4.3.2. target must already have
// passed ValidateInjectionPoint; impl may contain wildcards/variables.
func (e *Engine) IsAssignable(target, impl typedesc.TypeDescriptor) (bool, error) {
	key := pairKey{target: target.Key(), impl: impl.Key()}
	v, err := e.memo.ComputeIfAbsent(key, func() (interface{}, error) {
		return e.compute(target, impl)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (e *Engine) compute(target, impl typedesc.TypeDescriptor) (bool, error) {
	// Step 1: structural equality.
	if typedesc.Equal(target, impl) {
		return true, nil
	}

	tr, err := typedesc.Extract(target)
	if err != nil {
		return false, err
	}
	ir, err := typedesc.Extract(impl)
	if err != nil {
		return false, err
	}

	// Step 2: raw supertype check.
	if !isRawSupertype(tr, ir) {
		return false, nil
	}

	switch t := target.(type) {
	case typedesc.Class:
		// Step 3: raw target, raw check already passed.
		return true, nil

	case typedesc.Parameterized:
		return e.checkParameterized(t, impl, ir)

	case typedesc.GenericArray:
		return e.checkGenericArray(t, impl)

	default:
		return false, dierr.New(dierr.DomainFailure, "unsupported injection-point kind %v", target.Kind())
	}
}

// IsRawSupertype exposes the raw, erasure-level supertype test (§4.3.2 step
// 2) for callers — like the class resolver's candidate-set computation —
// that only need erasure-level subtyping, not full generic assignability.
func IsRawSupertype(tr, ir reflect.Type) bool { return isRawSupertype(tr, ir) }

// isRawSupertype implements the "tr is a Java-style supertype of ir" test
// (§4.3.2 step 2) over Go reflect.Types: identity, interface satisfaction,
// or ancestry through declared struct embedding (the Go analogue of class
// inheritance for this container's purposes).
func isRawSupertype(tr, ir reflect.Type) bool {
	if tr == ir {
		return true
	}
	if tr.Kind() == reflect.Interface {
		if ir.Implements(tr) {
			return true
		}
		if ir.Kind() != reflect.Ptr && reflect.PointerTo(ir).Implements(tr) {
			return true
		}
		return false
	}
	return isEmbeddedAncestor(tr, ir)
}

// isEmbeddedAncestor walks ir's embedded (anonymous) fields, recursively,
// looking for tr — this is this container's model of "superclass" (§4.3.2
// step 4's "walking interfaces then superclass"), since Go structs model
// inheritance through embedding rather than a single superclass pointer.
func isEmbeddedAncestor(tr, ir reflect.Type) bool {
	t := ir
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		if ft == tr || (ft.Kind() == reflect.Ptr && ft.Elem() == tr) {
			return true
		}
		if isEmbeddedAncestor(tr, ft) {
			return true
		}
	}
	return false
}

// checkParameterized implements §4.3.2 step 4: resolve impl to the exact
// supertype whose raw is tr (walking interfaces then superclass,
// substituting impl's own type arguments for its declared type
// parameters), then recursively check type arguments pointwise (§4.3.3).
func (e *Engine) checkParameterized(target typedesc.Parameterized, impl typedesc.TypeDescriptor, ir reflect.Type) (bool, error) {
	if target.Raw == ir {
		resolvedArgs := implArgsIfParameterized(impl)
		return e.matchArgs(target.Args, resolvedArgs)
	}

	supertype, err := e.resolveSupertype(ir, target.Raw, implArgsIfParameterized(impl))
	if err != nil {
		return false, err
	}
	if supertype == nil {
		return false, dierr.New(dierr.InternalInvariant,
			"raw type %v is a supertype of %v but no generic supertype view was found", target.Raw, ir)
	}

	sp, ok := supertype.(typedesc.Parameterized)
	if !ok {
		// The resolved supertype is itself raw; only matches a raw target,
		// which was already handled above.
		return false, nil
	}
	return e.matchArgs(target.Args, sp.Args)
}

func implArgsIfParameterized(impl typedesc.TypeDescriptor) []typedesc.TypeDescriptor {
	if p, ok := impl.(typedesc.Parameterized); ok {
		return p.Args
	}
	return nil
}

// resolveSupertype walks ir's declared interfaces then its superclass
// (from the ClassLookup), looking for one whose raw equals rawTarget,
// substituting any Variable whose name matches one of ir's own class type
// parameters with the corresponding entry of implArgs by position.
func (e *Engine) resolveSupertype(ir, rawTarget reflect.Type, implArgs []typedesc.TypeDescriptor) (typedesc.TypeDescriptor, error) {
	cd, ok := e.classes.ClassOf(ir)
	if !ok {
		return nil, nil
	}

	subst := buildSubstitution(cd.TypeParams, implArgs)

	for _, iface := range cd.Interfaces {
		if found := matchOrDescend(e, iface, rawTarget, subst); found != nil {
			return found, nil
		}
	}
	if cd.Superclass != nil {
		if found := matchOrDescend(e, cd.Superclass, rawTarget, subst); found != nil {
			return found, nil
		}
	}
	return nil, nil
}

func matchOrDescend(e *Engine, node typedesc.TypeDescriptor, rawTarget reflect.Type, subst map[string]typedesc.TypeDescriptor) typedesc.TypeDescriptor {
	substituted := substitute(node, subst)
	raw, err := typedesc.Extract(substituted)
	if err != nil {
		return nil
	}
	if raw == rawTarget {
		return substituted
	}
	nextArgs := implArgsIfParameterized(substituted)
	found, _ := e.resolveSupertype(raw, rawTarget, nextArgs)
	return found
}

func buildSubstitution(params []string, args []typedesc.TypeDescriptor) map[string]typedesc.TypeDescriptor {
	subst := make(map[string]typedesc.TypeDescriptor, len(params))
	for i, name := range params {
		if i < len(args) {
			subst[name] = args[i]
		}
	}
	return subst
}

func substitute(t typedesc.TypeDescriptor, subst map[string]typedesc.TypeDescriptor) typedesc.TypeDescriptor {
	switch v := t.(type) {
	case typedesc.Variable:
		if r, ok := subst[v.Name]; ok {
			return r
		}
		return v
	case typedesc.Parameterized:
		args := make([]typedesc.TypeDescriptor, len(v.Args))
		for i, a := range v.Args {
			args[i] = substitute(a, subst)
		}
		return typedesc.NewParameterized(v.Raw, args...)
	case typedesc.GenericArray:
		return typedesc.NewGenericArray(substitute(v.Component, subst))
	default:
		return t
	}
}

// checkGenericArray implements §4.3.2 step 5: impl must be array-shaped;
// recurse on component types.
func (e *Engine) checkGenericArray(target typedesc.GenericArray, impl typedesc.TypeDescriptor) (bool, error) {
	implArray, ok := impl.(typedesc.GenericArray)
	if !ok {
		return false, nil
	}
	return e.IsAssignable(target.Component, implArray.Component)
}

// matchArgs implements §4.3.3 pointwise, invariant type-argument matching.
func (e *Engine) matchArgs(targetArgs, implArgs []typedesc.TypeDescriptor) (bool, error) {
	if len(targetArgs) != len(implArgs) {
		return false, nil
	}
	for i := range targetArgs {
		ok, err := e.matchArg(targetArgs[i], implArgs[i])
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (e *Engine) matchArg(at, ai typedesc.TypeDescriptor) (bool, error) {
	if typedesc.Equal(at, ai) {
		return true, nil
	}
	switch ai.(type) {
	case typedesc.Wildcard, typedesc.Variable:
		return true, nil
	}

	atP, atIsP := at.(typedesc.Parameterized)
	aiP, aiIsP := ai.(typedesc.Parameterized)
	if atIsP && aiIsP {
		if atP.Raw != aiP.Raw {
			return false, nil
		}
		return e.matchArgs(atP.Args, aiP.Args)
	}

	atC, atIsC := at.(typedesc.Class)
	aiC, aiIsC := ai.(typedesc.Class)
	if atIsC && aiIsP {
		return isRawSupertype(atC.Erased, aiP.Raw) || isRawSupertype(aiP.Raw, atC.Erased), nil
	}
	if atIsP && aiIsC {
		return isRawSupertype(atP.Raw, aiC.Erased) || isRawSupertype(aiC.Erased, atP.Raw), nil
	}

	return false, nil
}
