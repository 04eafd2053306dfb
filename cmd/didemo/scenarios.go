package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync/atomic"

	"dicore/pkg/container"
	"dicore/pkg/injector"
	"dicore/pkg/scandesc"
	"dicore/pkg/scope"
	"dicore/pkg/typedesc"
)

// --- Scenario 1: basic singleton sharing ---

type clock struct{}

func newClock() *clock { return &clock{} }

type requestHandler struct{ Clock *clock }
type backgroundWorker struct{ Clock *clock }

func newRequestHandler() *requestHandler     { return &requestHandler{} }
func newBackgroundWorker() *backgroundWorker { return &backgroundWorker{} }

func registerSingletonSharingScenario(c *container.Container) error {
	if err := c.Register(&scandesc.ClassDescriptor{
		Erased:       reflect.TypeOf(clock{}),
		Constructors: []scandesc.ConstructorDescriptor{{Fn: reflect.ValueOf(newClock), Injectable: true}},
		Scope:        scandesc.ScopeSingleton,
	}, "cmd/didemo"); err != nil {
		return err
	}
	if err := c.Register(&scandesc.ClassDescriptor{
		Erased:       reflect.TypeOf(requestHandler{}),
		Constructors: []scandesc.ConstructorDescriptor{{Fn: reflect.ValueOf(newRequestHandler), Injectable: true}},
		Fields: []scandesc.FieldDescriptor{
			{Name: "Clock", Type: typedesc.NewClass(reflect.TypeOf(clock{})), Index: fieldIndex(reflect.TypeOf(requestHandler{}), "Clock")},
		},
		Scope: scandesc.ScopeSingleton,
	}, "cmd/didemo"); err != nil {
		return err
	}
	return c.Register(&scandesc.ClassDescriptor{
		Erased:       reflect.TypeOf(backgroundWorker{}),
		Constructors: []scandesc.ConstructorDescriptor{{Fn: reflect.ValueOf(newBackgroundWorker), Injectable: true}},
		Fields: []scandesc.FieldDescriptor{
			{Name: "Clock", Type: typedesc.NewClass(reflect.TypeOf(clock{})), Index: fieldIndex(reflect.TypeOf(backgroundWorker{}), "Clock")},
		},
		Scope: scandesc.ScopeSingleton,
	}, "cmd/didemo")
}

// --- Scenario 2: qualifier disambiguation ---

type store interface{ storeMarker() }
type primaryStore struct{}
type backupStore struct{}

func (*primaryStore) storeMarker() {}
func (*backupStore) storeMarker()  {}

func newPrimaryStore() *primaryStore { return &primaryStore{} }
func newBackupStore() *backupStore   { return &backupStore{} }

func registerQualifierDisambiguationScenario(c *container.Container) error {
	if err := c.Register(&scandesc.ClassDescriptor{
		Erased:       reflect.TypeOf(primaryStore{}),
		Constructors: []scandesc.ConstructorDescriptor{{Fn: reflect.ValueOf(newPrimaryStore), Injectable: true}},
		Qualifiers:   typedesc.NewQualifierSet(typedesc.Named("primary")),
		Scope:        scandesc.ScopeSingleton,
	}, "cmd/didemo"); err != nil {
		return err
	}
	return c.Register(&scandesc.ClassDescriptor{
		Erased:       reflect.TypeOf(backupStore{}),
		Constructors: []scandesc.ConstructorDescriptor{{Fn: reflect.ValueOf(newBackupStore), Injectable: true}},
		Qualifiers:   typedesc.NewQualifierSet(typedesc.Named("backup")),
		Scope:        scandesc.ScopeSingleton,
	}, "cmd/didemo")
}

// --- Scenario 3: ambiguity ---

type renderer interface{ rendererMarker() }
type htmlRenderer struct{}
type textRenderer struct{}

func (*htmlRenderer) rendererMarker() {}
func (*textRenderer) rendererMarker() {}

func newHTMLRenderer() *htmlRenderer { return &htmlRenderer{} }
func newTextRenderer() *textRenderer { return &textRenderer{} }

func registerAmbiguityScenario(c *container.Container) error {
	if err := c.Register(&scandesc.ClassDescriptor{
		Erased:       reflect.TypeOf(htmlRenderer{}),
		Constructors: []scandesc.ConstructorDescriptor{{Fn: reflect.ValueOf(newHTMLRenderer), Injectable: true}},
		Scope:        scandesc.ScopeSingleton,
	}, "cmd/didemo"); err != nil {
		return err
	}
	return c.Register(&scandesc.ClassDescriptor{
		Erased:       reflect.TypeOf(textRenderer{}),
		Constructors: []scandesc.ConstructorDescriptor{{Fn: reflect.ValueOf(newTextRenderer), Injectable: true}},
		Scope:        scandesc.ScopeSingleton,
	}, "cmd/didemo")
}

// --- Scenario 4: optional missing dependency ---

type metricsSink struct{}

type instrumentedService struct {
	Metrics injector.Optional[*metricsSink]
}

func newInstrumentedService() *instrumentedService { return &instrumentedService{} }

func registerOptionalMissingScenario(c *container.Container) error {
	return c.Register(&scandesc.ClassDescriptor{
		Erased:       reflect.TypeOf(instrumentedService{}),
		Constructors: []scandesc.ConstructorDescriptor{{Fn: reflect.ValueOf(newInstrumentedService), Injectable: true}},
		Fields: []scandesc.FieldDescriptor{
			{
				Name: "Metrics",
				Type: typedesc.NewParameterized(reflect.TypeOf(injector.Optional[*metricsSink]{}),
					typedesc.NewClass(reflect.TypeOf(metricsSink{}))),
				Index: fieldIndex(reflect.TypeOf(instrumentedService{}), "Metrics"),
			},
		},
		Scope: scandesc.ScopeDependent,
	}, "cmd/didemo")
}

// --- Scenario 5: cycle broken via Provider ---

type orderService struct {
	Inventory injector.Provider[*inventoryService]
}
type inventoryService struct {
	Orders *orderService
}

func newOrderService() *orderService         { return &orderService{} }
func newInventoryService() *inventoryService { return &inventoryService{} }

func registerProviderCycleScenario(c *container.Container) error {
	if err := c.Register(&scandesc.ClassDescriptor{
		Erased:       reflect.TypeOf(orderService{}),
		Constructors: []scandesc.ConstructorDescriptor{{Fn: reflect.ValueOf(newOrderService), Injectable: true}},
		Fields: []scandesc.FieldDescriptor{
			{
				Name: "Inventory",
				Type: typedesc.NewParameterized(reflect.TypeOf(injector.Provider[*inventoryService]{}),
					typedesc.NewClass(reflect.TypeOf(inventoryService{}))),
				Index: fieldIndex(reflect.TypeOf(orderService{}), "Inventory"),
			},
		},
		Scope: scandesc.ScopeSingleton,
	}, "cmd/didemo"); err != nil {
		return err
	}
	return c.Register(&scandesc.ClassDescriptor{
		Erased:       reflect.TypeOf(inventoryService{}),
		Constructors: []scandesc.ConstructorDescriptor{{Fn: reflect.ValueOf(newInventoryService), Injectable: true}},
		Fields: []scandesc.FieldDescriptor{
			{Name: "Orders", Type: typedesc.NewClass(reflect.TypeOf(orderService{})), Index: fieldIndex(reflect.TypeOf(inventoryService{}), "Orders")},
		},
		Scope: scandesc.ScopeSingleton,
	}, "cmd/didemo")
}

// --- Scenario 6: request-scoped partitioning keyed by a minted id ---

type requestContext struct{ Path string }

func newRequestContext() *requestContext { return &requestContext{Path: "/demo"} }

func registerRequestScopeScenario(c *container.Container) error {
	return c.Register(&scandesc.ClassDescriptor{
		Erased:       reflect.TypeOf(requestContext{}),
		Constructors: []scandesc.ConstructorDescriptor{{Fn: reflect.ValueOf(newRequestContext), Injectable: true}},
		Scope:        scandesc.ScopeRequest,
	}, "cmd/didemo")
}

func withRequestID(ctx context.Context, id string) context.Context {
	return scope.WithRequestID(ctx, id)
}

// --- Scenario 7: parallel task executor ---

// runExecutorScenario fans a handful of tasks out across the container's
// executor (C10), one of which deliberately fails, to exercise both the
// pooled-submission path and the error sink wired up in container.New.
func runExecutorScenario(c *container.Container, out io.Writer) error {
	exec := c.Executor()

	const taskCount = 5
	var completed int32
	for i := 0; i < taskCount; i++ {
		i := i
		if err := exec.SubmitPooled(func(ctx context.Context) error {
			atomic.AddInt32(&completed, 1)
			if i == taskCount-1 {
				return errors.New("simulated task failure")
			}
			return nil
		}); err != nil {
			return err
		}
	}
	exec.AwaitCompletion()
	fmt.Fprintf(out, "completed %d/%d tasks (failures are logged through the container's logger, not returned here)\n\n", completed, taskCount)
	return nil
}

func fieldIndex(t reflect.Type, name string) []int {
	f, ok := t.FieldByName(name)
	if !ok {
		panic("no such field: " + name)
	}
	return f.Index
}
