package typedesc

import (
	"reflect"

	"dicore/pkg/dierr"
)

// Extract implements the raw-type extractor (C2): it reduces any
// TypeDescriptor to its erased reflect.Type.
//
//   Class{c}                -> c
//   Parameterized{raw, _}    -> raw
//   GenericArray{component}  -> reflect.SliceOf(Extract(component))
//   Variable{_, bounds}      -> Extract(bounds[0])
//   Wildcard{upper, _}       -> Extract(upper[0])
//
// Any unknown variant, or a Variable/Wildcard with no bounds, fails with a
// DomainFailure.
func Extract(t TypeDescriptor) (reflect.Type, error) {
	switch v := t.(type) {
	case Class:
		return v.Erased, nil
	case Parameterized:
		return v.Raw, nil
	case GenericArray:
		comp, err := Extract(v.Component)
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(comp), nil
	case Variable:
		if len(v.Bounds) == 0 {
			return nil, dierr.New(dierr.DomainFailure, "type variable %q has no bounds to extract", v.Name)
		}
		return Extract(v.Bounds[0])
	case Wildcard:
		if len(v.Upper) == 0 {
			return nil, dierr.New(dierr.DomainFailure, "wildcard %q has no upper bound to extract", v.String())
		}
		return Extract(v.Upper[0])
	default:
		return nil, dierr.New(dierr.DomainFailure, "unknown TypeDescriptor variant %T", t)
	}
}

// ValidateInjectionPoint implements §4.3.1: it fails if t contains, at any
// depth, a Wildcard or a Variable. Structural recursion walks into
// Parameterized type arguments and GenericArray components.
func ValidateInjectionPoint(t TypeDescriptor) error {
	switch v := t.(type) {
	case Class:
		return nil
	case Parameterized:
		for _, arg := range v.Args {
			if err := ValidateInjectionPoint(arg); err != nil {
				return err
			}
		}
		return nil
	case GenericArray:
		return ValidateInjectionPoint(v.Component)
	case Variable:
		return dierr.New(dierr.DefinitionFailure, "injection point %q contains a type variable", t.String())
	case Wildcard:
		return dierr.New(dierr.DefinitionFailure, "injection point %q contains a wildcard", t.String())
	default:
		return dierr.New(dierr.DomainFailure, "unknown TypeDescriptor variant %T", t)
	}
}
