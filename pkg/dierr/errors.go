// Package dierr defines the container's error-kind taxonomy.
//
// Every failure the container raises wraps one of these kinds so callers can
// branch on the failure category with errors.Is/errors.As instead of string
// matching, while the message still carries whatever context (type names,
// qualifier sets, ambiguous candidates, injection chains) the caller needs
// to read.
package dierr

import (
	"errors"
	"fmt"
)

// Kind enumerates the error categories named in the specification.
type Kind int

const (
	// DomainFailure covers invalid arguments: null-equivalents, out of
	// range sizes/capacities/load-factors, malformed package filters.
	DomainFailure Kind = iota
	// DefinitionFailure covers injection points shaped illegally
	// (wildcards/type-variables) or malformed scan configuration.
	DefinitionFailure
	// Unsatisfied means no implementation matched a request.
	Unsatisfied
	// Ambiguous means more than one implementation matched with no
	// disambiguator.
	Ambiguous
	// CircularDependency means the injection stack was revisited.
	CircularDependency
	// ConstructorAmbiguity means more than one constructor was marked
	// injectable.
	ConstructorAmbiguity
	// NoUsableConstructor means no injectable and no no-arg constructor
	// exists.
	NoUsableConstructor
	// InvalidTarget covers final-field injection and abstract/generic
	// method injection.
	InvalidTarget
	// InvalidType covers non-injectable types (enum, primitive,
	// synthetic, local, anonymous, non-static inner, bad type argument).
	InvalidType
	// InvalidLifecycle covers post-construct/pre-destroy methods with
	// the wrong shape.
	InvalidLifecycle
	// ResolutionFailure covers underlying scan/load errors.
	ResolutionFailure
	// IllegalState covers operations attempted after shutdown.
	IllegalState
	// InternalInvariant signals a bug: a condition the type system
	// should have prevented.
	InternalInvariant
)

func (k Kind) String() string {
	switch k {
	case DomainFailure:
		return "DomainFailure"
	case DefinitionFailure:
		return "DefinitionFailure"
	case Unsatisfied:
		return "Unsatisfied"
	case Ambiguous:
		return "Ambiguous"
	case CircularDependency:
		return "CircularDependency"
	case ConstructorAmbiguity:
		return "ConstructorAmbiguity"
	case NoUsableConstructor:
		return "NoUsableConstructor"
	case InvalidTarget:
		return "InvalidTarget"
	case InvalidType:
		return "InvalidType"
	case InvalidLifecycle:
		return "InvalidLifecycle"
	case ResolutionFailure:
		return "ResolutionFailure"
	case IllegalState:
		return "IllegalState"
	case InternalInvariant:
		return "InternalInvariant"
	default:
		return "UnknownKind"
	}
}

// Error is the concrete error type every container failure is wrapped in.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error of the given kind.
func New(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around a causing error.
func Wrap(kind Kind, cause error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Kind == kind {
			return true
		}
		if e.Cause == nil {
			return false
		}
		err = e.Cause
	}
	return false
}
