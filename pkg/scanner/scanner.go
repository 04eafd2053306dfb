// Package scanner implements the scanner adapter contract (C4): discovery
// of candidate classes for a package filter.
//
// Classpath/file-walking discovery mechanics are explicitly out of scope
// (§1) — Go binaries have no runtime classpath to walk. The Registry below
// is this module's one concrete Scanner: classes are registered explicitly,
// the same discovery model the registration-based containers in the
// retrieved pack use (mstgnz/gioc's IOC/RegisterInstance, richinex/
// di-extended's Container.Register) in place of reflective package
// scanning.
package scanner

import (
	"context"
	"reflect"
	"regexp"
	"sync"

	"dicore/pkg/dierr"
	"dicore/pkg/scandesc"
)

// Scanner produces the set of candidate classes for a package filter. It
// must be idempotent and may be called lazily (§6).
type Scanner interface {
	Scan(ctx context.Context, filters []string) ([]*scandesc.ClassDescriptor, error)
}

var packageFilterPattern = regexp.MustCompile(`^[A-Za-z0-9_]+(/[A-Za-z0-9_]+)*\*?$`)

// ValidatePackageFilter checks a package-filter pattern's shape (§6, §7:
// "malformed package-name pattern during scan configuration" ->
// DefinitionFailure).
func ValidatePackageFilter(filter string) error {
	if filter == "" {
		return dierr.New(dierr.DefinitionFailure, "package filter must not be empty")
	}
	if !packageFilterPattern.MatchString(filter) {
		return dierr.New(dierr.DefinitionFailure, "malformed package filter pattern: %q", filter)
	}
	return nil
}

// Registry is a concrete Scanner backed by explicit registration. It also
// implements assignability.ClassLookup.
type Registry struct {
	mu      sync.RWMutex
	byType  map[reflect.Type]*scandesc.ClassDescriptor
	order   []reflect.Type
	pkgOf   map[reflect.Type]string
	skipped []error // not written by any method of Registry; Scan skips nothing
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]*scandesc.ClassDescriptor),
		pkgOf:  make(map[reflect.Type]string),
	}
}

// Register adds (or replaces) a class descriptor under an explicit package
// path used for filter matching. A nil descriptor or reflect.Type fails
// with DomainFailure.
func (r *Registry) Register(cd *scandesc.ClassDescriptor, pkgPath string) error {
	if cd == nil || cd.Erased == nil {
		return dierr.New(dierr.DomainFailure, "cannot register a nil class descriptor")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byType[cd.Erased]; !exists {
		r.order = append(r.order, cd.Erased)
	}
	r.byType[cd.Erased] = cd
	r.pkgOf[cd.Erased] = pkgPath
	return nil
}

// ClassOf implements assignability.ClassLookup.
func (r *Registry) ClassOf(t reflect.Type) (*scandesc.ClassDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cd, ok := r.byType[t]
	return cd, ok
}

// All returns every registered class descriptor, in registration order.
func (r *Registry) All() []*scandesc.ClassDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*scandesc.ClassDescriptor, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.byType[t])
	}
	return out
}

// Scan implements Scanner: it returns every registered class whose package
// path matches one of the given filters (exact match, unless the filter
// ends in "*", which then means "this package and its subpackages"). An empty filter list
// means "all reachable classes" (§6).
func (r *Registry) Scan(ctx context.Context, filters []string) ([]*scandesc.ClassDescriptor, error) {
	for _, f := range filters {
		if err := ValidatePackageFilter(f); err != nil {
			return nil, err
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(filters) == 0 {
		out := make([]*scandesc.ClassDescriptor, 0, len(r.order))
		for _, t := range r.order {
			out = append(out, r.byType[t])
		}
		return out, nil
	}

	out := make([]*scandesc.ClassDescriptor, 0, len(r.order))
	for _, t := range r.order {
		pkg := r.pkgOf[t]
		for _, f := range filters {
			if matchesFilter(pkg, f) {
				out = append(out, r.byType[t])
				break
			}
		}
	}
	return out, nil
}

func matchesFilter(pkg, filter string) bool {
	if len(filter) > 0 && filter[len(filter)-1] == '*' {
		prefix := filter[:len(filter)-1]
		return len(pkg) >= len(prefix) && pkg[:len(prefix)] == prefix
	}
	return pkg == filter
}
