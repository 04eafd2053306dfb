package injector

import (
	"reflect"

	"dicore/pkg/dierr"
	"dicore/pkg/typedesc"
)

// validateInjectable implements §4.5.5: a type is injectable iff it is not
// an enum, not a primitive, not a synthetic class, not a local or
// anonymous class, and — for inner (non-package-level) types — is
// declared at package scope. Go has no enum or inner-class concept, so
// those clauses narrow to Go-observable equivalents: a bare basic kind
// stands in for "primitive", and an unnamed (anonymous) composite type
// stands in for both "anonymous class" and "local class" (a type declared
// inside a function body is also unnamed from reflect's perspective,
// since Go gives such types no addressable declaration to name against).
// For a Parameterized type, every argument that is itself a Class or
// Parameterized is checked recursively.
func validateInjectable(target typedesc.TypeDescriptor) error {
	raw, err := typedesc.Extract(target)
	if err != nil {
		return err
	}
	if err := validateInjectableRaw(raw); err != nil {
		return err
	}
	if p, ok := target.(typedesc.Parameterized); ok {
		for _, arg := range p.Args {
			switch arg.(type) {
			case typedesc.Class, typedesc.Parameterized:
				if err := validateInjectable(arg); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateInjectableRaw(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128, reflect.String:
		return dierr.New(dierr.InvalidType, "%s is a primitive type and cannot be injected directly", t)
	}
	if t.Name() == "" {
		return dierr.New(dierr.InvalidType, "%s is an anonymous or local type and cannot be injected", t)
	}
	return nil
}
