package reflection

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dicore/pkg/scandesc"
	"dicore/pkg/typedesc"
)

type widget struct {
	Repo *repo
}

type repo struct{}

func descriptorFor() *scandesc.ClassDescriptor {
	return &scandesc.ClassDescriptor{
		Erased: reflect.TypeOf(widget{}),
		Constructors: []scandesc.ConstructorDescriptor{
			{Fn: reflect.ValueOf(func() *widget { return &widget{} }), Injectable: true},
		},
		Fields: []scandesc.FieldDescriptor{
			{
				Name:       "Repo",
				Type:       typedesc.NewClass(reflect.TypeOf(repo{})),
				Qualifiers: typedesc.NewQualifierSet(typedesc.Named("primary")),
				Index:      []int{0},
			},
		},
		Methods: []scandesc.MethodDescriptor{
			{Name: "Warm", PostConstruct: true},
		},
		Scope: scandesc.ScopeSingleton,
	}
}

func TestInspect_RejectsNilDescriptor(t *testing.T) {
	i := NewInspector(zap.NewNop().Sugar())
	err := i.Inspect(nil)
	require.Error(t, err)
}

func TestInspect_RejectsMissingFieldIndex(t *testing.T) {
	i := NewInspector(zap.NewNop().Sugar())
	cd := descriptorFor()
	cd.Fields[0].Index = nil

	err := i.Inspect(cd)
	require.Error(t, err)
}

func TestInspect_AcceptsWellFormedDescriptor(t *testing.T) {
	i := NewInspector(zap.NewNop().Sugar())
	require.NoError(t, i.Inspect(descriptorFor()))
}

func TestPrettyPrint_IncludesScopeFieldsAndLifecycle(t *testing.T) {
	i := NewInspector(zap.NewNop().Sugar())
	out := i.PrettyPrint(descriptorFor())

	assert.Contains(t, out, "widget")
	assert.Contains(t, out, "Scope: singleton")
	assert.Contains(t, out, "Repo")
	assert.Contains(t, out, "qualifiers=")
	assert.Contains(t, out, "post-construct:Warm")
}

func TestPrettyPrint_DefaultsEmptyScopeToDependent(t *testing.T) {
	i := NewInspector(zap.NewNop().Sugar())
	cd := descriptorFor()
	cd.Scope = scandesc.ScopeDependent

	out := i.PrettyPrint(cd)
	assert.Contains(t, out, "Scope: dependent")
}
