package injector

import (
	"context"
	"reflect"

	"dicore/pkg/dierr"
	"dicore/pkg/scandesc"
	"dicore/pkg/typedesc"
)

// injectStatics implements §4.5.2 step 3e: static fields and methods are
// injected/invoked at most once per class per injector, tracked in
// inj.staticInjected. Go has no class-shared storage, so a "static"
// injection point is a package-level variable (FieldDescriptor.StaticRef)
// or a package-level function (a static MethodDescriptor's Fn, called
// without a receiver argument).
func (inj *Injector) injectStatics(ctx context.Context, hierarchy []*scandesc.ClassDescriptor) error {
	for _, cd := range hierarchy {
		inj.staticMu.Lock()
		done := inj.staticInjected[cd]
		if !done {
			inj.staticInjected[cd] = true
		}
		inj.staticMu.Unlock()
		if done {
			continue
		}

		for _, f := range cd.Fields {
			if !f.Static {
				continue
			}
			if f.Final {
				return dierr.New(dierr.InvalidTarget, "static field %s.%s is final", cd.Erased, f.Name)
			}
			v, err := inj.resolveValue(ctx, f.Type, f.Qualifiers, true)
			if err != nil {
				return err
			}
			if !f.StaticRef.IsValid() || !f.StaticRef.CanSet() {
				return dierr.New(dierr.InvalidTarget, "static field %s.%s has no settable backing variable", cd.Erased, f.Name)
			}
			if err := assignValue(f.StaticRef, f.Type, v); err != nil {
				return err
			}
		}

		for _, m := range cd.Methods {
			if !m.Static || m.PostConstruct || m.PreDestroy {
				continue
			}
			if m.Abstract || m.Generic {
				return dierr.New(dierr.InvalidTarget, "static method %s.%s must not be abstract or generic", cd.Erased, m.Name)
			}
			args, err := inj.resolveMethodParams(ctx, m)
			if err != nil {
				return err
			}
			if _, err := callMethod(m.Fn, nil, args); err != nil {
				return err
			}
		}
	}
	return nil
}

// injectInstance implements §4.5.2 steps 3f-g: instance field injection,
// instance method injection honoring override detection (§4.5.4), and
// post-construct invocation (handled by the caller via lifecycle.Helper).
func (inj *Injector) injectInstance(ctx context.Context, instance interface{}, hierarchy []*scandesc.ClassDescriptor) error {
	v := reflect.ValueOf(instance)

	for _, cd := range hierarchy {
		for _, f := range cd.Fields {
			if f.Static {
				continue
			}
			if f.Final {
				return dierr.New(dierr.InvalidTarget, "field %s.%s is final", cd.Erased, f.Name)
			}
			val, err := inj.resolveValue(ctx, f.Type, f.Qualifiers, true)
			if err != nil {
				return err
			}
			fv := fieldByIndex(v, f.Index)
			if !fv.IsValid() || !fv.CanSet() {
				return dierr.New(dierr.InvalidTarget, "field %s.%s is not injectable (unexported or unaddressable)", cd.Erased, f.Name)
			}
			if err := assignValue(fv, f.Type, val); err != nil {
				return err
			}
		}
	}

	for i, cd := range hierarchy {
		for _, m := range cd.Methods {
			if m.Static || m.PostConstruct || m.PreDestroy {
				continue
			}
			if m.Abstract || m.Generic {
				return dierr.New(dierr.InvalidTarget, "method %s.%s must not be abstract or generic", cd.Erased, m.Name)
			}
			if isOverridden(hierarchy, i, cd, m) {
				continue
			}
			args, err := inj.resolveMethodParams(ctx, m)
			if err != nil {
				return err
			}
			if _, err := callMethod(m.Fn, v, args); err != nil {
				return err
			}
		}
	}
	return nil
}

func (inj *Injector) resolveMethodParams(ctx context.Context, m scandesc.MethodDescriptor) ([]reflect.Value, error) {
	return inj.resolveParams(ctx, m.ParamTypes, m.Qualifiers)
}

func callMethod(fn reflect.Value, receiver reflect.Value, args []reflect.Value) (interface{}, error) {
	callArgs := args
	if receiver.IsValid() {
		callArgs = append([]reflect.Value{receiver}, args...)
	}
	results := fn.Call(callArgs)
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		if err, ok := results[0].Interface().(error); ok && err != nil {
			return nil, err
		}
		return results[0].Interface(), nil
	default:
		return nil, dierr.New(dierr.InternalInvariant, "injectable method must return at most one value (an error)")
	}
}

func fieldByIndex(v reflect.Value, index []int) reflect.Value {
	sv := v
	if sv.Kind() == reflect.Ptr {
		sv = sv.Elem()
	}
	if !sv.IsValid() || len(index) == 0 {
		return reflect.Value{}
	}
	return sv.FieldByIndex(index)
}

func assignValue(fv reflect.Value, pt typedesc.TypeDescriptor, v interface{}) error {
	if v == nil {
		raw, err := typedesc.Extract(pt)
		if err != nil {
			return err
		}
		fv.Set(reflect.Zero(raw))
		return nil
	}
	fv.Set(reflect.ValueOf(v))
	return nil
}

// isOverridden implements §4.5.4: a superclass method is skipped when a
// more derived class in hierarchy declares a method with the same name and
// parameter types. Go has no finer access tier than exported/unexported,
// so an unexported name stands in for "package-private" (requiring both
// classes share a package to count); Go has no stricter "private" tier at
// all, so the spec's "private methods are never considered overridden"
// clause has no additional Go-observable effect beyond that.
func isOverridden(hierarchy []*scandesc.ClassDescriptor, i int, cd *scandesc.ClassDescriptor, m scandesc.MethodDescriptor) bool {
	samePackageOnly := isUnexportedName(m.Name)
	for j := i + 1; j < len(hierarchy); j++ {
		d := hierarchy[j]
		if samePackageOnly && d.Erased.PkgPath() != cd.Erased.PkgPath() {
			continue
		}
		if hasMatchingMethod(d, m) {
			return true
		}
	}
	return false
}

func hasMatchingMethod(d *scandesc.ClassDescriptor, m scandesc.MethodDescriptor) bool {
	for _, cand := range d.Methods {
		if cand.Static || cand.Name != m.Name || len(cand.ParamTypes) != len(m.ParamTypes) {
			continue
		}
		match := true
		for k := range cand.ParamTypes {
			if !typedesc.Equal(cand.ParamTypes[k], m.ParamTypes[k]) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func isUnexportedName(name string) bool {
	if name == "" {
		return false
	}
	r := rune(name[0])
	return r >= 'a' && r <= 'z'
}
