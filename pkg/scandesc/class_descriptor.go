// Package scandesc defines ClassDescriptor and its supporting member
// descriptors (§3): the concrete-class metadata the scanner adapter (C4)
// produces and every other component consumes.
package scandesc

import (
	"reflect"

	"dicore/pkg/typedesc"
)

// ScopeTag identifies a scope (§3). The empty ScopeTag means "dependent":
// a fresh instance per injection.
type ScopeTag string

const (
	ScopeSingleton    ScopeTag = "singleton"
	ScopeApplication  ScopeTag = "application"
	ScopeRequest      ScopeTag = "request"
	ScopeSession      ScopeTag = "session"
	ScopeConversation ScopeTag = "conversation"
	ScopeDependent    ScopeTag = ""
)

// ConstructorDescriptor describes one constructible entry point for a
// class. Go has no native multiple-constructor concept, so constructors
// are explicit factory functions registered against the class (the same
// convention the pack's registration-based containers — mstgnz/gioc,
// richinex/di-extended — use in place of classpath-derived constructor
// lists).
type ConstructorDescriptor struct {
	// Fn is a func(p1, p2, ...) T (or (T, error)) value.
	Fn reflect.Value
	// ParamTypes mirrors Fn's parameter list as TypeDescriptors, so the
	// injector can validate/resolve each one through the normal pipeline.
	ParamTypes []typedesc.TypeDescriptor
	// ParamQualifiers holds, per parameter, the qualifiers declared at that
	// injection site. A nil or short entry means "no qualifier" for that
	// parameter.
	ParamQualifiers [][]typedesc.Qualifier
	// Injectable marks this constructor as the explicit @Inject-equivalent
	// choice among possibly several registered constructors.
	Injectable bool
}

// FieldDescriptor describes one injectable struct field. Go has no notion
// of a class-shared "static" field; a static injection point is modeled
// as a package-level variable, and StaticRef is the addressable
// reflect.Value the registrant obtained via reflect.ValueOf(&pkgVar).Elem()
// — populated only when Static is true.
type FieldDescriptor struct {
	Name       string
	Type       typedesc.TypeDescriptor
	Qualifiers typedesc.QualifierSet
	Static     bool
	Final      bool // reflect-unsettable fields (unexported, or declared read-only)
	Index      []int
	StaticRef  reflect.Value
}

// MethodDescriptor describes one injectable method, a post-construct
// method, or a pre-destroy method.
type MethodDescriptor struct {
	Name         string
	Fn           reflect.Value // method value bound per-instance by the caller
	ParamTypes   []typedesc.TypeDescriptor
	Qualifiers   [][]typedesc.Qualifier // per-parameter qualifier sets
	Static       bool
	Abstract     bool
	Generic      bool
	PostConstruct bool
	PreDestroy   bool
}

// ClassDescriptor is a concrete class known to the container.
type ClassDescriptor struct {
	Erased       reflect.Type
	Constructors []ConstructorDescriptor
	Fields       []FieldDescriptor
	Methods      []MethodDescriptor
	Superclass   typedesc.TypeDescriptor   // nil if none
	Interfaces   []typedesc.TypeDescriptor // declared interfaces, in declaration order
	TypeParams   []string                  // this class's own generic parameter names, if any

	Qualifiers    typedesc.QualifierSet
	Scope         ScopeTag
	IsAbstract    bool
	IsInterface   bool
	IsArray       bool
	IsAlternative bool
}

// Descriptor returns the TypeDescriptor for this class (a plain Class
// wrapping Erased; callers needing a Parameterized view build one from
// TypeParams/actual arguments themselves).
func (c *ClassDescriptor) Descriptor() typedesc.TypeDescriptor {
	return typedesc.NewClass(c.Erased)
}
