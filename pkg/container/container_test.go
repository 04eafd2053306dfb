package container

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dicore/internal/config"
	"dicore/pkg/scandesc"
	"dicore/pkg/typedesc"
)

func fieldIndex(t reflect.Type, name string) []int {
	f, ok := t.FieldByName(name)
	if !ok {
		panic("no such field: " + name)
	}
	return f.Index
}

func newTestContainer(t *testing.T) *Container {
	t.Helper()
	c, err := New(config.Default())
	require.NoError(t, err)
	return c
}

// Scenario 1: basic singleton sharing.
type sharedSingleton struct{}

func newSharedSingleton() *sharedSingleton { return &sharedSingleton{} }

type holderA struct{ S *sharedSingleton }
type holderB struct{ S *sharedSingleton }

func newHolderA() *holderA { return &holderA{} }
func newHolderB() *holderB { return &holderB{} }

func TestContainer_BasicSingletonSharing(t *testing.T) {
	c := newTestContainer(t)

	require.NoError(t, c.Register(&scandesc.ClassDescriptor{
		Erased:       reflect.TypeOf(sharedSingleton{}),
		Constructors: []scandesc.ConstructorDescriptor{{Fn: reflect.ValueOf(newSharedSingleton), Injectable: true}},
		Scope:        scandesc.ScopeSingleton,
	}, "scenario"))
	require.NoError(t, c.Register(&scandesc.ClassDescriptor{
		Erased:       reflect.TypeOf(holderA{}),
		Constructors: []scandesc.ConstructorDescriptor{{Fn: reflect.ValueOf(newHolderA), Injectable: true}},
		Fields: []scandesc.FieldDescriptor{
			{Name: "S", Type: typedesc.NewClass(reflect.TypeOf(sharedSingleton{})), Index: fieldIndex(reflect.TypeOf(holderA{}), "S")},
		},
		Scope: scandesc.ScopeSingleton,
	}, "scenario"))
	require.NoError(t, c.Register(&scandesc.ClassDescriptor{
		Erased:       reflect.TypeOf(holderB{}),
		Constructors: []scandesc.ConstructorDescriptor{{Fn: reflect.ValueOf(newHolderB), Injectable: true}},
		Fields: []scandesc.FieldDescriptor{
			{Name: "S", Type: typedesc.NewClass(reflect.TypeOf(sharedSingleton{})), Index: fieldIndex(reflect.TypeOf(holderB{}), "S")},
		},
		Scope: scandesc.ScopeSingleton,
	}, "scenario"))

	ctx := context.Background()
	va, err := c.Inject(ctx, typedesc.NewClass(reflect.TypeOf(holderA{})))
	require.NoError(t, err)
	vb, err := c.Inject(ctx, typedesc.NewClass(reflect.TypeOf(holderB{})))
	require.NoError(t, err)

	assert.Same(t, va.(*holderA).S, vb.(*holderB).S)
}

// Scenario 2: qualifier disambiguation.
type repoIface interface{ repoMarker() }
type primaryRepo struct{}
type backupRepo struct{}

func (*primaryRepo) repoMarker() {}
func (*backupRepo) repoMarker()  {}

func newPrimaryRepo() *primaryRepo { return &primaryRepo{} }
func newBackupRepo() *backupRepo   { return &backupRepo{} }

func TestContainer_QualifierDisambiguation(t *testing.T) {
	c := newTestContainer(t)
	ifaceType := reflect.TypeOf((*repoIface)(nil)).Elem()

	require.NoError(t, c.Register(&scandesc.ClassDescriptor{
		Erased:       reflect.TypeOf(primaryRepo{}),
		Constructors: []scandesc.ConstructorDescriptor{{Fn: reflect.ValueOf(newPrimaryRepo), Injectable: true}},
		Qualifiers:   typedesc.NewQualifierSet(typedesc.Named("primary")),
		Scope:        scandesc.ScopeSingleton,
	}, "scenario"))
	require.NoError(t, c.Register(&scandesc.ClassDescriptor{
		Erased:       reflect.TypeOf(backupRepo{}),
		Constructors: []scandesc.ConstructorDescriptor{{Fn: reflect.ValueOf(newBackupRepo), Injectable: true}},
		Qualifiers:   typedesc.NewQualifierSet(typedesc.Named("backup")),
		Scope:        scandesc.ScopeSingleton,
	}, "scenario"))

	v, err := c.Inject(context.Background(), typedesc.NewClass(ifaceType), typedesc.Named("backup"))
	require.NoError(t, err)
	assert.IsType(t, &backupRepo{}, v)
}

// Scenario 3: ambiguity.
type ambiguousIface interface{ ambiguousMarker() }
type ambA struct{}
type ambB struct{}

func (*ambA) ambiguousMarker() {}
func (*ambB) ambiguousMarker() {}

func newAmbA() *ambA { return &ambA{} }
func newAmbB() *ambB { return &ambB{} }

func TestContainer_Ambiguity(t *testing.T) {
	c := newTestContainer(t)
	ifaceType := reflect.TypeOf((*ambiguousIface)(nil)).Elem()

	require.NoError(t, c.Register(&scandesc.ClassDescriptor{
		Erased:       reflect.TypeOf(ambA{}),
		Constructors: []scandesc.ConstructorDescriptor{{Fn: reflect.ValueOf(newAmbA), Injectable: true}},
		Scope:        scandesc.ScopeSingleton,
	}, "scenario"))
	require.NoError(t, c.Register(&scandesc.ClassDescriptor{
		Erased:       reflect.TypeOf(ambB{}),
		Constructors: []scandesc.ConstructorDescriptor{{Fn: reflect.ValueOf(newAmbB), Injectable: true}},
		Scope:        scandesc.ScopeSingleton,
	}, "scenario"))

	_, err := c.Inject(context.Background(), typedesc.NewClass(ifaceType))
	require.Error(t, err)
}

// Scenario 6 (generics invariance, e.g. List<Number> rejecting an
// ArrayList<Integer> candidate) lives at the assignability-engine layer
// and is covered directly in pkg/assignability, which is where the
// invariance check itself is implemented.

func TestContainer_Shutdown_IsIdempotentAcrossScopes(t *testing.T) {
	c := newTestContainer(t)
	require.NoError(t, c.Shutdown())
	require.NoError(t, c.Shutdown())
}

func TestContainer_Executor_RunsTasksSubmittedByTheHost(t *testing.T) {
	c := newTestContainer(t)

	var ran int32
	require.NoError(t, c.Executor().SubmitPooled(func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	}))
	c.Executor().AwaitCompletion()
	assert.EqualValues(t, 1, atomic.LoadInt32(&ran))

	require.NoError(t, c.Shutdown())
}

func TestContainer_Executor_SizedByPoolSizeOption(t *testing.T) {
	opts := config.Default()
	opts.PoolSize = 1
	c, err := New(opts)
	require.NoError(t, err)
	defer c.Shutdown()

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, c.Executor().SubmitPooled(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	// With a single worker held busy by the blocked task, the executor
	// does not report completion until that task is released.
	assert.False(t, c.Executor().AwaitCompletionTimeout(20*time.Millisecond))
	close(release)
	assert.True(t, c.Executor().AwaitCompletionTimeout(time.Second))
}

func TestContainer_ConcurrentRegister(t *testing.T) {
	c := newTestContainer(t)
	const n = 10

	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Register(&scandesc.ClassDescriptor{
				Erased: reflect.TypeOf(struct{ N int }{}),
				Scope:  scandesc.ScopeSingleton,
			}, "scenario")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}
