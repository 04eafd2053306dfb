// Package resolver implements the class resolver (C5): it maps an abstract
// request (target type plus qualifiers) to exactly one concrete
// implementation, using alternatives, programmatic bindings, qualifier
// matching, and scan candidates (§4.4).
package resolver

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"

	"dicore/pkg/assignability"
	"dicore/pkg/cache"
	"dicore/pkg/dierr"
	"dicore/pkg/scandesc"
	"dicore/pkg/scanner"
	"dicore/pkg/typedesc"
)

// Outcome is the tri-state resolution result for a single candidate walk
// (§3: ResolutionOutcome).
type Outcome int

const (
	Found Outcome = iota
	Unsatisfied
	Ambiguous
)

// Resolver resolves (type, qualifiers) -> one implementation or a set.
type Resolver struct {
	scan    scanner.Scanner
	engine  *assignability.Engine
	pkgFlt  []string
	many    *cache.Cache // keyed by target TypeDescriptor.Key()

	mu            sync.RWMutex
	bindings      map[string]*scandesc.ClassDescriptor // MappingKey.Key() -> impl
	alternatives  map[reflect.Type]bool
	bindingsOnly  bool
}

// Option configures a Resolver at construction.
type Option func(*Resolver)

// WithPackageFilters restricts the scanner's search space.
func WithPackageFilters(filters ...string) Option {
	return func(r *Resolver) { r.pkgFlt = filters }
}

// New builds a Resolver.
func New(scan scanner.Scanner, engine *assignability.Engine, manyCache cache.Params, opts ...Option) (*Resolver, error) {
	manyCacheInst, err := cache.New(manyCache)
	if err != nil {
		return nil, err
	}
	r := &Resolver{
		scan:         scan,
		engine:       engine,
		many:         manyCacheInst,
		bindings:     make(map[string]*scandesc.ClassDescriptor),
		alternatives: make(map[reflect.Type]bool),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Bind installs an override in the bindings table (§4.4.1).
func (r *Resolver) Bind(target typedesc.TypeDescriptor, qualifiers []typedesc.Qualifier, impl *scandesc.ClassDescriptor) {
	key := typedesc.NewMappingKey(target, qualifiers...)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[key.Key()] = impl
}

// EnableAlternative adds a class to the enabled-alternatives set.
func (r *Resolver) EnableAlternative(erased reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alternatives[erased] = true
}

// SetBindingsOnly toggles whether classpath fallback is refused when no
// binding matches.
func (r *Resolver) SetBindingsOnly(flag bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindingsOnly = flag
}

func (r *Resolver) isAlternativeEnabled(t reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.alternatives[t]
}

func (r *Resolver) lookupBinding(target typedesc.TypeDescriptor, qualifiers typedesc.QualifierSet) (*scandesc.ClassDescriptor, bool) {
	key := typedesc.MappingKey{Target: target, Qualifiers: qualifiers}
	r.mu.RLock()
	defer r.mu.RUnlock()
	cd, ok := r.bindings[key.Key()]
	return cd, ok
}

func (r *Resolver) isBindingsOnly() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bindingsOnly
}

// candidateSet implements §4.4.2 step 1 and is backed by the per-target
// "many" cache (§4.4.5): classes from the scan whose erased class is a
// subtype of the target's erased class.
func (r *Resolver) candidateSet(ctx context.Context, target typedesc.TypeDescriptor) ([]*scandesc.ClassDescriptor, error) {
	tr, err := typedesc.Extract(target)
	if err != nil {
		return nil, err
	}

	v, err := r.many.ComputeIfAbsent(target.Key(), func() (interface{}, error) {
		all, serr := r.scan.Scan(ctx, r.pkgFlt)
		if serr != nil {
			return nil, dierr.Wrap(dierr.ResolutionFailure, serr, "scanning for candidates of %s failed", target.String())
		}
		candidates := make([]*scandesc.ClassDescriptor, 0, len(all))
		for _, cd := range all {
			if assignability.IsRawSupertype(tr, cd.Erased) {
				candidates = append(candidates, cd)
			}
		}
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].Erased.String() < candidates[j].Erased.String()
		})
		return candidates, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*scandesc.ClassDescriptor), nil
}

// ResolveOne implements §4.4.2.
func (r *Resolver) ResolveOne(ctx context.Context, target typedesc.TypeDescriptor, qualifiers ...typedesc.Qualifier) (*scandesc.ClassDescriptor, Outcome, error) {
	if target == nil {
		return nil, Unsatisfied, dierr.New(dierr.DomainFailure, "resolution target must not be nil")
	}
	qset := typedesc.NewQualifierSet(qualifiers...)

	candidates, err := r.candidateSet(ctx, target)
	if err != nil {
		return nil, Unsatisfied, err
	}

	// Step 2: enabled alternatives.
	var enabledAlts []*scandesc.ClassDescriptor
	for _, cd := range candidates {
		if r.isAlternativeEnabled(cd.Erased) {
			enabledAlts = append(enabledAlts, cd)
		}
	}
	if len(enabledAlts) == 1 {
		return enabledAlts[0], Found, nil
	}
	if len(enabledAlts) > 1 {
		return nil, Ambiguous, ambiguousErr(target, enabledAlts)
	}

	// Step 3: bindings.
	if bound, ok := r.lookupBinding(target, qset); ok {
		return bound, Found, nil
	}
	if r.isBindingsOnly() {
		return nil, Unsatisfied, dierr.New(dierr.Unsatisfied,
			"no binding for %s with qualifiers %s and bindings-only is enabled", target.String(), qset.Key())
	}

	// Step 4: identity shortcut for a concrete/array target with no/Default
	// qualifiers.
	if tr, terr := typedesc.Extract(target); terr == nil {
		concreteOrArray := tr.Kind() != reflect.Interface
		noOrDefaultQualifier := qset.Len() == 0 || (qset.Len() == 1 && qset.HasKind(typedesc.QualifierDefault))
		if concreteOrArray && noOrDefaultQualifier {
			if cd, ok := r.classForErasedTarget(candidates, tr); ok {
				return cd, Found, nil
			}
		}
	}

	// Step 5: filter out alternative-annotated (non-enabled) classes.
	nonAlternative := make([]*scandesc.ClassDescriptor, 0, len(candidates))
	for _, cd := range candidates {
		if !cd.IsAlternative {
			nonAlternative = append(nonAlternative, cd)
		}
	}

	// Step 6: qualifier-based selection.
	if qset.Len() > 0 {
		for _, cd := range nonAlternative {
			if qualifierSatisfies(cd.Qualifiers, qset) {
				return cd, Found, nil
			}
		}
		return nil, Unsatisfied, dierr.New(dierr.Unsatisfied,
			"no candidate for %s satisfies requested qualifiers %s", target.String(), qset.Key())
	}

	// Step 7: Default-only candidates.
	defaultOnly := make([]*scandesc.ClassDescriptor, 0, len(nonAlternative))
	for _, cd := range nonAlternative {
		if len(cd.Qualifiers.UserQualifiers()) == 0 {
			defaultOnly = append(defaultOnly, cd)
		}
	}
	switch len(defaultOnly) {
	case 0:
		return nil, Unsatisfied, dierr.New(dierr.Unsatisfied, "no implementation found for %s", target.String())
	case 1:
		return defaultOnly[0], Found, nil
	default:
		return nil, Ambiguous, ambiguousErr(target, defaultOnly)
	}
}

// classForErasedTarget finds, among candidates, the class descriptor whose
// erased type equals tr (the "target itself" identity shortcut).
func (r *Resolver) classForErasedTarget(candidates []*scandesc.ClassDescriptor, tr reflect.Type) (*scandesc.ClassDescriptor, bool) {
	for _, cd := range candidates {
		if cd.Erased == tr {
			return cd, true
		}
	}
	return nil, false
}

// ResolveMany implements §4.4.3: every candidate that is either an enabled
// alternative or a non-alternative class, filtered by qualifier
// satisfaction when qualifiers are requested. No ambiguity error.
func (r *Resolver) ResolveMany(ctx context.Context, target typedesc.TypeDescriptor, qualifiers ...typedesc.Qualifier) ([]*scandesc.ClassDescriptor, error) {
	qset := typedesc.NewQualifierSet(qualifiers...)
	candidates, err := r.candidateSet(ctx, target)
	if err != nil {
		return nil, err
	}

	selected := make([]*scandesc.ClassDescriptor, 0, len(candidates))
	seen := make(map[reflect.Type]bool, len(candidates))
	for _, cd := range candidates {
		if !r.isAlternativeEnabled(cd.Erased) && cd.IsAlternative {
			continue
		}
		if qset.Len() > 0 && !qualifierSatisfies(cd.Qualifiers, qset) {
			continue
		}
		if seen[cd.Erased] {
			continue
		}
		seen[cd.Erased] = true
		selected = append(selected, cd)
	}
	return selected, nil
}

// qualifierSatisfies implements §4.4.4: every requested qualifier must be
// present on the candidate, or be Any, or be Default when the candidate
// declares no user qualifiers. Any combined with another requested
// qualifier is an intersection (Open Question, resolved in DESIGN.md):
// Any only relaxes its own slot, every other requested qualifier still
// must be satisfied independently.
func qualifierSatisfies(declared typedesc.QualifierSet, requested typedesc.QualifierSet) bool {
	for _, req := range requested.Slice() {
		if req.Kind == typedesc.QualifierAny {
			continue
		}
		if declared.Has(req) {
			continue
		}
		if req.Kind == typedesc.QualifierDefault && len(declared.UserQualifiers()) == 0 {
			continue
		}
		return false
	}
	return true
}

func ambiguousErr(target typedesc.TypeDescriptor, candidates []*scandesc.ClassDescriptor) error {
	names := make([]string, len(candidates))
	for i, cd := range candidates {
		names[i] = cd.Erased.String()
	}
	return dierr.New(dierr.Ambiguous, "multiple candidates for %s: %s", target.String(), strings.Join(names, ", "))
}
