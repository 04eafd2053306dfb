package injector

import (
	"reflect"
	"strings"
)

// wrapperKind identifies one of the three generic handle shapes the
// injector treats specially during field/parameter resolution (§4.5.3).
type wrapperKind int

const (
	wrapperNone wrapperKind = iota
	wrapperOptional
	wrapperProvider
	wrapperLazy
)

// wrapperPkgPath is recomputed rather than hardcoded as a literal module path
// constant, so renaming the module doesn't silently break recognition.
var wrapperPkgPath = reflect.TypeOf(Handle{}).PkgPath()

// classifyWrapper reports which generic wrapper shape (if any) t is an
// instantiation of. Go's reflect package exposes no API to recover a
// generic type's arguments from an instantiated reflect.Type, so
// recognition is by the instantiated type's own Name(), which for a
// generic type retains a "Name[ArgPkg.ArgName]" form — sufficient to tell
// Optional[Foo] apart from Provider[Foo] without needing Foo itself yet.
func classifyWrapper(t reflect.Type) wrapperKind {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.PkgPath() != wrapperPkgPath {
		return wrapperNone
	}
	switch {
	case strings.HasPrefix(t.Name(), "Optional["):
		return wrapperOptional
	case strings.HasPrefix(t.Name(), "Provider["):
		return wrapperProvider
	case strings.HasPrefix(t.Name(), "Lazy["):
		return wrapperLazy
	default:
		return wrapperNone
	}
}
