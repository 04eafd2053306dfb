package assignability

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dicore/pkg/cache"
	"dicore/pkg/dierr"
	"dicore/pkg/scandesc"
	"dicore/pkg/typedesc"
)

type staticLookup map[reflect.Type]*scandesc.ClassDescriptor

func (s staticLookup) ClassOf(t reflect.Type) (*scandesc.ClassDescriptor, bool) {
	cd, ok := s[t]
	return cd, ok
}

func newEngine(t *testing.T, lookup ClassLookup) *Engine {
	t.Helper()
	e, err := New(lookup, cache.Params{MaxSize: 1000, InitialCapacity: 16, LoadFactor: 0.75})
	require.NoError(t, err)
	return e
}

type Number int
type IntegerT struct{ Number }
type listRaw struct{}

func TestValidateInjectionPoint_RejectsWildcardAndVariable(t *testing.T) {
	wc := typedesc.NewWildcard([]typedesc.TypeDescriptor{typedesc.NewClass(reflect.TypeOf(0))}, nil)
	err := ValidateInjectionPoint(wc)
	require.Error(t, err)
	assert.True(t, dierr.Is(err, dierr.DefinitionFailure))

	v := typedesc.NewVariable("T", typedesc.NewClass(reflect.TypeOf(0)))
	err = ValidateInjectionPoint(v)
	require.Error(t, err)
	assert.True(t, dierr.Is(err, dierr.DefinitionFailure))
}

func TestIsAssignable_ReflexiveForValidatedTargets(t *testing.T) {
	e := newEngine(t, staticLookup{})
	c := typedesc.NewClass(reflect.TypeOf(0))
	ok, err := e.IsAssignable(c, c)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsAssignable_RawClassRequiresRawSupertype(t *testing.T) {
	e := newEngine(t, staticLookup{})
	target := typedesc.NewClass(reflect.TypeOf(0)) // int
	impl := typedesc.NewClass(reflect.TypeOf(""))  // string
	ok, err := e.IsAssignable(target, impl)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsAssignable_GenericsInvariance(t *testing.T) {
	e := newEngine(t, staticLookup{})

	listOfString := typedesc.NewParameterized(reflect.TypeOf(listRaw{}), typedesc.NewClass(reflect.TypeOf("")))
	listOfInt := typedesc.NewParameterized(reflect.TypeOf(listRaw{}), typedesc.NewClass(reflect.TypeOf(0)))

	ok, err := e.IsAssignable(listOfString, listOfInt)
	require.NoError(t, err)
	assert.False(t, ok, "List<String> must not accept List<int> candidates")

	ok, err = e.IsAssignable(listOfInt, listOfInt)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsAssignable_InterfaceTarget(t *testing.T) {
	e := newEngine(t, staticLookup{})

	type Stringer interface{ String() string }
	type impl struct{}

	target := typedesc.NewClass(reflect.TypeOf((*Stringer)(nil)).Elem())
	candidate := typedesc.NewClass(reflect.TypeOf(stringerImpl{}))

	ok, err := e.IsAssignable(target, candidate)
	require.NoError(t, err)
	assert.True(t, ok)
}

type stringerImpl struct{}

func (stringerImpl) String() string { return "x" }

func TestIsAssignable_NotSymmetric(t *testing.T) {
	e := newEngine(t, staticLookup{})

	type Animal interface{ Speak() string }
	type dog struct{}

	target := typedesc.NewClass(reflect.TypeOf(dogT{}))
	iface := typedesc.NewClass(reflect.TypeOf((*Animal)(nil)).Elem())

	ok, err := e.IsAssignable(target, iface)
	require.NoError(t, err)
	assert.False(t, ok, "a concrete class is not assignable from its interface")

	ok, err = e.IsAssignable(iface, target)
	require.NoError(t, err)
	assert.True(t, ok)
	_ = dog{}
}

type dogT struct{}

func (dogT) Speak() string { return "woof" }

func TestIsAssignable_MemoizesResults(t *testing.T) {
	e := newEngine(t, staticLookup{})
	target := typedesc.NewClass(reflect.TypeOf(0))

	_, err := e.IsAssignable(target, target)
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.memo.MissCount())

	_, err = e.IsAssignable(target, target)
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.memo.HitCount())
}
