package resolver

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dicore/pkg/assignability"
	"dicore/pkg/cache"
	"dicore/pkg/scandesc"
	"dicore/pkg/scanner"
	"dicore/pkg/typedesc"
)

type Repo interface{ Name() string }

type PrimaryRepo struct{}

func (PrimaryRepo) Name() string { return "primary" }

type BackupRepo struct{}

func (BackupRepo) Name() string { return "backup" }

type R1 struct{}
type R2 struct{}

func (R1) unused() {}
func (R2) unused() {}

type RInterface interface{ unused() }

func setup(t *testing.T) (*Resolver, *scanner.Registry) {
	t.Helper()
	reg := scanner.NewRegistry()
	engine, err := assignability.New(reg, cache.Params{MaxSize: 1000, InitialCapacity: 16, LoadFactor: 0.75})
	require.NoError(t, err)
	r, err := New(reg, engine, cache.Params{MaxSize: 1000, InitialCapacity: 16, LoadFactor: 0.75})
	require.NoError(t, err)
	return r, reg
}

func classFor(erased reflect.Type, qualifiers ...typedesc.Qualifier) *scandesc.ClassDescriptor {
	return &scandesc.ClassDescriptor{
		Erased:     erased,
		Qualifiers: typedesc.NewQualifierSet(qualifiers...),
	}
}

func TestResolveOne_QualifierDisambiguation(t *testing.T) {
	r, reg := setup(t)
	repoType := reflect.TypeOf((*Repo)(nil)).Elem()

	require.NoError(t, reg.Register(classFor(reflect.TypeOf(PrimaryRepo{}), typedesc.Named("primary")), "svc"))
	require.NoError(t, reg.Register(classFor(reflect.TypeOf(BackupRepo{}), typedesc.Named("backup")), "svc"))

	cd, outcome, err := r.ResolveOne(context.Background(), typedesc.NewClass(repoType), typedesc.Named("backup"))
	require.NoError(t, err)
	assert.Equal(t, Found, outcome)
	assert.Equal(t, reflect.TypeOf(BackupRepo{}), cd.Erased)
}

func TestResolveOne_Ambiguous(t *testing.T) {
	r, reg := setup(t)
	ifaceType := reflect.TypeOf((*RInterface)(nil)).Elem()

	require.NoError(t, reg.Register(classFor(reflect.TypeOf(R1{})), "svc"))
	require.NoError(t, reg.Register(classFor(reflect.TypeOf(R2{})), "svc"))

	_, outcome, err := r.ResolveOne(context.Background(), typedesc.NewClass(ifaceType))
	require.Error(t, err)
	assert.Equal(t, Ambiguous, outcome)
	assert.Contains(t, err.Error(), "R1")
	assert.Contains(t, err.Error(), "R2")
}

func TestResolveOne_Unsatisfied(t *testing.T) {
	r, _ := setup(t)
	type Missing interface{ X() }
	missingType := reflect.TypeOf((*Missing)(nil)).Elem()

	_, outcome, err := r.ResolveOne(context.Background(), typedesc.NewClass(missingType))
	require.Error(t, err)
	assert.Equal(t, Unsatisfied, outcome)
}

func TestEnableAlternative_WinsRegardlessOfOthers(t *testing.T) {
	r, reg := setup(t)
	ifaceType := reflect.TypeOf((*RInterface)(nil)).Elem()

	require.NoError(t, reg.Register(classFor(reflect.TypeOf(R1{})), "svc"))
	r1alt := classFor(reflect.TypeOf(R2{}))
	r1alt.IsAlternative = true
	require.NoError(t, reg.Register(r1alt, "svc"))

	r.EnableAlternative(reflect.TypeOf(R2{}))

	cd, outcome, err := r.ResolveOne(context.Background(), typedesc.NewClass(ifaceType))
	require.NoError(t, err)
	assert.Equal(t, Found, outcome)
	assert.Equal(t, reflect.TypeOf(R2{}), cd.Erased)
}

func TestSetBindingsOnly_YieldsUnsatisfiedWithoutBinding(t *testing.T) {
	r, reg := setup(t)
	repoType := reflect.TypeOf((*Repo)(nil)).Elem()
	require.NoError(t, reg.Register(classFor(reflect.TypeOf(PrimaryRepo{})), "svc"))

	r.SetBindingsOnly(true)

	_, outcome, err := r.ResolveOne(context.Background(), typedesc.NewClass(repoType))
	require.Error(t, err)
	assert.Equal(t, Unsatisfied, outcome)
}

func TestBind_OverridesResolution(t *testing.T) {
	r, reg := setup(t)
	repoType := reflect.TypeOf((*Repo)(nil)).Elem()
	require.NoError(t, reg.Register(classFor(reflect.TypeOf(PrimaryRepo{})), "svc"))

	bound := classFor(reflect.TypeOf(BackupRepo{}))
	r.Bind(typedesc.NewClass(repoType), nil, bound)

	cd, outcome, err := r.ResolveOne(context.Background(), typedesc.NewClass(repoType))
	require.NoError(t, err)
	assert.Equal(t, Found, outcome)
	assert.Equal(t, reflect.TypeOf(BackupRepo{}), cd.Erased)
}

func TestResolveMany_ReturnsAllMatchingCandidates(t *testing.T) {
	r, reg := setup(t)
	ifaceType := reflect.TypeOf((*RInterface)(nil)).Elem()
	require.NoError(t, reg.Register(classFor(reflect.TypeOf(R1{})), "svc"))
	require.NoError(t, reg.Register(classFor(reflect.TypeOf(R2{})), "svc"))

	all, err := r.ResolveMany(context.Background(), typedesc.NewClass(ifaceType))
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestQualifierSatisfies_AnyCombinedWithNamedIsIntersection(t *testing.T) {
	declared := typedesc.NewQualifierSet(typedesc.Named("primary"))
	requestedBoth := typedesc.NewQualifierSet(typedesc.Any(), typedesc.Named("primary"))
	assert.True(t, qualifierSatisfies(declared, requestedBoth))

	requestedMismatch := typedesc.NewQualifierSet(typedesc.Any(), typedesc.Named("other"))
	assert.False(t, qualifierSatisfies(declared, requestedMismatch), "Any does not override a sibling requested qualifier")
}
