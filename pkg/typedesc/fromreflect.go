package typedesc

import "reflect"

// FromReflect is a best-effort adapter from Go's reflect.Type to a
// TypeDescriptor, for callers with no richer metadata available (the
// Registry in pkg/scanner does not call it). See the package doc comment: Go reflection
// cannot recover a generic type's raw/argument split or a type variable's
// bound, so anything beyond array/slice nesting erases to Class.
func FromReflect(t reflect.Type) TypeDescriptor {
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return NewGenericArray(FromReflect(t.Elem()))
	default:
		return NewClass(t)
	}
}
