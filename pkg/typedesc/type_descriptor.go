// Package typedesc implements the abstract TypeDescriptor model (§3 of the
// specification) independent of Go's own reflect.Type generics support,
// plus the raw-type extractor (C2) and injection-point validator (part of
// C3).
//
// Go's reflect package erases instantiated generics to a single concrete
// reflect.Type with no separate raw-type/type-argument pair, and carries no
// runtime representation of an uninstantiated type parameter's bound. A
// TypeDescriptor tree therefore cannot always be derived mechanically from a
// reflect.Type; FromReflect (fromreflect.go) is a best-effort adapter, and
// callers with richer metadata (or tests exercising the wildcard/variable
// shapes the spec requires the validator to reject) construct descriptors
// directly with the constructors below.
package typedesc

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Kind discriminates the TypeDescriptor variants.
type Kind int

const (
	KindClass Kind = iota
	KindParameterized
	KindGenericArray
	KindVariable
	KindWildcard
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "Class"
	case KindParameterized:
		return "Parameterized"
	case KindGenericArray:
		return "GenericArray"
	case KindVariable:
		return "Variable"
	case KindWildcard:
		return "Wildcard"
	default:
		return "Unknown"
	}
}

// TypeDescriptor is the structural, language-independent representation of
// a type used throughout the container. Equality and hashing are
// structural: two descriptors built independently but describing the same
// shape compare equal and produce the same cache Key.
type TypeDescriptor interface {
	Kind() Kind
	// Key returns a canonical string uniquely determined by structure;
	// two structurally equal descriptors always produce the same Key.
	Key() string
	// String renders a human-readable form for error messages.
	String() string
}

// Equal reports structural equality between two descriptors.
func Equal(a, b TypeDescriptor) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Key() == b.Key()
}

// Class is a non-generic class (or, for Go purposes, any concrete erased
// reflect.Type: a struct, interface, primitive, slice-as-opaque-type, etc).
type Class struct {
	Erased reflect.Type
}

func (c Class) Kind() Kind   { return KindClass }
func (c Class) String() string { return c.Erased.String() }
func (c Class) Key() string  { return "C:" + c.Erased.PkgPath() + "." + c.Erased.String() }

// NewClass builds a Class descriptor from a reflect.Type.
func NewClass(t reflect.Type) Class { return Class{Erased: t} }

// Parameterized is a generic application: a raw type applied to concrete
// (or partially open) type arguments.
type Parameterized struct {
	Raw  reflect.Type
	Args []TypeDescriptor
}

func (p Parameterized) Kind() Kind { return KindParameterized }

func (p Parameterized) String() string {
	parts := make([]string, len(p.Args))
	for i, a := range p.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s<%s>", p.Raw.String(), strings.Join(parts, ", "))
}

func (p Parameterized) Key() string {
	parts := make([]string, len(p.Args))
	for i, a := range p.Args {
		parts[i] = a.Key()
	}
	return "P:" + p.Raw.String() + "<" + strings.Join(parts, ",") + ">"
}

// NewParameterized builds a Parameterized descriptor.
func NewParameterized(raw reflect.Type, args ...TypeDescriptor) Parameterized {
	return Parameterized{Raw: raw, Args: args}
}

// GenericArray is an array/slice whose element is itself a type descriptor
// (needed because the element may be Parameterized, Variable, or
// Wildcard — plain reflect.Type.Elem() cannot express that).
type GenericArray struct {
	Component TypeDescriptor
}

func (g GenericArray) Kind() Kind     { return KindGenericArray }
func (g GenericArray) String() string { return g.Component.String() + "[]" }
func (g GenericArray) Key() string    { return "A:" + g.Component.Key() }

// NewGenericArray builds a GenericArray descriptor.
func NewGenericArray(component TypeDescriptor) GenericArray {
	return GenericArray{Component: component}
}

// Variable is a type variable (an uninstantiated generic parameter) with
// its declared bounds. Bounds must contain at least one entry; the first is
// the variable's primary (left-most) bound.
type Variable struct {
	Name   string
	Bounds []TypeDescriptor
}

func (v Variable) Kind() Kind     { return KindVariable }
func (v Variable) String() string { return v.Name }
func (v Variable) Key() string    { return "V:" + v.Name }

// NewVariable builds a Variable descriptor.
func NewVariable(name string, bounds ...TypeDescriptor) Variable {
	return Variable{Name: name, Bounds: bounds}
}

// Wildcard is a wildcard type (e.g. `? extends Number` / `? super Integer`
// in the source domain this container's semantics were modeled on).
type Wildcard struct {
	Upper []TypeDescriptor
	Lower []TypeDescriptor
}

func (w Wildcard) Kind() Kind { return KindWildcard }

func (w Wildcard) String() string {
	if len(w.Upper) > 0 {
		return "? extends " + w.Upper[0].String()
	}
	if len(w.Lower) > 0 {
		return "? super " + w.Lower[0].String()
	}
	return "?"
}

func (w Wildcard) Key() string {
	upper := make([]string, len(w.Upper))
	for i, u := range w.Upper {
		upper[i] = u.Key()
	}
	lower := make([]string, len(w.Lower))
	for i, l := range w.Lower {
		lower[i] = l.Key()
	}
	sort.Strings(upper)
	sort.Strings(lower)
	return "W:" + strings.Join(upper, ",") + "|" + strings.Join(lower, ",")
}

// NewWildcard builds a Wildcard descriptor.
func NewWildcard(upper, lower []TypeDescriptor) Wildcard {
	return Wildcard{Upper: upper, Lower: lower}
}
