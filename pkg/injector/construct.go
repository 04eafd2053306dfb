package injector

import (
	"context"
	"reflect"

	"dicore/pkg/dierr"
	"dicore/pkg/scandesc"
	"dicore/pkg/typedesc"
)

// construct implements §4.5.2 step 3 onward: constructor selection,
// parameter resolution, instantiation, static/instance injection, and
// post-construct invocation.
func (inj *Injector) construct(ctx context.Context, cd *scandesc.ClassDescriptor) (interface{}, error) {
	ctor, err := selectConstructor(cd)
	if err != nil {
		return nil, err
	}

	args, err := inj.resolveParams(ctx, ctor.ParamTypes, ctor.ParamQualifiers)
	if err != nil {
		return nil, err
	}

	instance, err := callConstructor(ctor, args)
	if err != nil {
		return nil, err
	}

	hierarchy := inj.classHierarchy(cd)

	if err := inj.injectStatics(ctx, hierarchy); err != nil {
		return nil, err
	}
	if err := inj.injectInstance(ctx, instance, hierarchy); err != nil {
		return nil, err
	}

	if err := inj.lifecycle.InvokePostConstruct(instance); err != nil {
		return nil, err
	}

	inj.hooksMu.RLock()
	hooks := append([]Hook(nil), inj.postHooks...)
	inj.hooksMu.RUnlock()
	for _, h := range hooks {
		h(instance)
	}

	return instance, nil
}

// selectConstructor implements §4.5.2 step 3a.
func selectConstructor(cd *scandesc.ClassDescriptor) (*scandesc.ConstructorDescriptor, error) {
	var injectable []*scandesc.ConstructorDescriptor
	var noArg *scandesc.ConstructorDescriptor
	for i := range cd.Constructors {
		c := &cd.Constructors[i]
		if c.Injectable {
			injectable = append(injectable, c)
		}
		if len(c.ParamTypes) == 0 && noArg == nil {
			noArg = c
		}
	}
	switch {
	case len(injectable) == 1:
		return injectable[0], nil
	case len(injectable) > 1:
		return nil, dierr.New(dierr.ConstructorAmbiguity, "%s declares %d injectable constructors", cd.Erased, len(injectable))
	case noArg != nil:
		return noArg, nil
	default:
		return nil, dierr.New(dierr.NoUsableConstructor, "%s has no injectable and no zero-argument constructor", cd.Erased)
	}
}

// resolveParams resolves each parameter type (an injection site, §4.5.3)
// in declaration order.
func (inj *Injector) resolveParams(ctx context.Context, types []typedesc.TypeDescriptor, perParamQualifiers [][]typedesc.Qualifier) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(types))
	for i, pt := range types {
		if err := typedesc.ValidateInjectionPoint(pt); err != nil {
			return nil, err
		}
		var q typedesc.QualifierSet
		if i < len(perParamQualifiers) {
			q = typedesc.NewQualifierSet(perParamQualifiers[i]...)
		}
		v, err := inj.resolveValue(ctx, pt, q, true)
		if err != nil {
			return nil, err
		}
		args[i] = reflectArg(pt, v)
	}
	return args, nil
}

// reflectArg wraps a possibly-nil resolved value as a settable
// reflect.Value matching pt's erased shape, so callConstructor/method
// invocation can pass it straight to reflect.Value.Call.
func reflectArg(pt typedesc.TypeDescriptor, v interface{}) reflect.Value {
	if v != nil {
		return reflect.ValueOf(v)
	}
	raw, err := typedesc.Extract(pt)
	if err != nil {
		return reflect.Value{}
	}
	return reflect.Zero(raw)
}

func callConstructor(ctor *scandesc.ConstructorDescriptor, args []reflect.Value) (interface{}, error) {
	results := ctor.Fn.Call(args)
	switch len(results) {
	case 1:
		return results[0].Interface(), nil
	case 2:
		if !results[1].IsNil() {
			return nil, results[1].Interface().(error)
		}
		return results[0].Interface(), nil
	default:
		return nil, dierr.New(dierr.InternalInvariant, "constructor must return (T) or (T, error)")
	}
}

// classHierarchy walks cd.Superclass references root-to-leaf through the
// class lookup, mirroring lifecycle.BuildHierarchy but over registered
// ClassDescriptors rather than bare reflect.Types, since static/instance
// field and method injection needs each ancestor's own descriptor (field
// list, qualifiers), not just its reflect shape.
func (inj *Injector) classHierarchy(cd *scandesc.ClassDescriptor) []*scandesc.ClassDescriptor {
	var leafToRoot []*scandesc.ClassDescriptor
	cur := cd
	for cur != nil {
		leafToRoot = append(leafToRoot, cur)
		if cur.Superclass == nil {
			break
		}
		raw, err := typedesc.Extract(cur.Superclass)
		if err != nil {
			break
		}
		next, ok := inj.classes.ClassOf(raw)
		if !ok {
			break
		}
		cur = next
	}
	out := make([]*scandesc.ClassDescriptor, len(leafToRoot))
	for i, c := range leafToRoot {
		out[len(leafToRoot)-1-i] = c
	}
	return out
}
