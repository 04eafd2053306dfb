// Package container wires the scanner, assignability engine, resolver,
// scope registry, lifecycle helper, and injector into the single
// `Container` facade a host program talks to (§4.5.1). Earlier revisions
// of this package held the whole DI model in one qualifier-string-keyed
// map; that model is now spread across pkg/scandesc, pkg/resolver, and
// pkg/injector, and this file's only remaining job is construction and
// delegation.
package container

import (
	"context"
	"reflect"
	"time"

	"go.uber.org/zap"

	"dicore/internal/config"
	"dicore/pkg/assignability"
	"dicore/pkg/executor"
	"dicore/pkg/injector"
	"dicore/pkg/lifecycle"
	"dicore/pkg/logger"
	"dicore/pkg/resolver"
	"dicore/pkg/scandesc"
	"dicore/pkg/scanner"
	"dicore/pkg/scope"
	"dicore/pkg/typedesc"
)

// shutdownExecutorDrainTimeout bounds how long Shutdown waits for
// in-flight parallel tasks before forcing the executor closed.
const shutdownExecutorDrainTimeout = 5 * time.Second

// Container is the assembled DI core: a registry of known classes plus the
// resolve/construct/inject pipeline built on top of it.
type Container struct {
	registry *scanner.Registry
	injector *injector.Injector
	executor *executor.Executor
	log      *zap.SugaredLogger
}

// New assembles a Container from opts, defaulting to config.Default()
// (and a production zap logger) when opts is the zero value.
func New(opts config.Options) (*Container, error) {
	if reflect.DeepEqual(opts, config.Options{}) {
		opts = config.Default()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(false)
	if err != nil {
		return nil, err
	}

	registry := scanner.NewRegistry()

	engine, err := assignability.New(registry, opts.CacheParams())
	if err != nil {
		return nil, err
	}

	var resOpts []resolver.Option
	if len(opts.PackageFilters) > 0 {
		resOpts = append(resOpts, resolver.WithPackageFilters(opts.PackageFilters...))
	}
	res, err := resolver.New(registry, engine, opts.CacheParams(), resOpts...)
	if err != nil {
		return nil, err
	}
	res.SetBindingsOnly(opts.BindingsOnly)

	scopes := scope.NewDefaultRegistry()
	helper := lifecycle.NewHelper()
	inj := injector.New(res, registry, scopes, helper, log)

	exec, err := executor.New(opts.PoolSize, func(taskErr error) {
		log.Errorw("parallel task failed", "error", taskErr)
	})
	if err != nil {
		return nil, err
	}

	return &Container{registry: registry, injector: inj, executor: exec, log: log}, nil
}

// Register adds a class descriptor to the container's scan registry
// (§4.5's data source: the scanner adapter). pkgPath is the descriptor's
// owning package, used for package-filter matching and §4.5.4's
// same-package override check.
func (c *Container) Register(cd *scandesc.ClassDescriptor, pkgPath string) error {
	return c.registry.Register(cd, pkgPath)
}

// Bind installs a programmatic override for target (§4.4.1).
func (c *Container) Bind(target typedesc.TypeDescriptor, qualifiers []typedesc.Qualifier, impl *scandesc.ClassDescriptor) {
	c.injector.Bind(target, qualifiers, impl)
}

// EnableAlternative admits erased into resolution; an enabled alternative
// that matches is chosen ahead of bindings and every other candidate
// (§4.4.2).
func (c *Container) EnableAlternative(erased reflect.Type) {
	c.injector.EnableAlternative(erased)
}

// RegisterScope installs a custom scope handler (§4.5.1).
func (c *Container) RegisterScope(tag scandesc.ScopeTag, handler scope.Handler) error {
	return c.injector.RegisterScope(tag, handler)
}

// AddPostConstructHook registers a cross-cutting construction hook (§4.6
// expansion).
func (c *Container) AddPostConstructHook(h injector.Hook) {
	c.injector.AddPostConstructHook(h)
}

// AddPreDestroyHook records a cross-cutting destruction hook (§4.6
// expansion). Recorded hooks are not invoked on destroy or shutdown.
func (c *Container) AddPreDestroyHook(h injector.Hook) {
	c.injector.AddPreDestroyHook(h)
}

// Inject resolves and fully constructs target, the container's single
// public entry point for both "inject(type)" and "inject(type-literal)"
// requests (§4.5.1).
func (c *Container) Inject(ctx context.Context, target typedesc.TypeDescriptor, qualifiers ...typedesc.Qualifier) (interface{}, error) {
	return c.injector.Inject(ctx, target, qualifiers...)
}

// Executor returns the container's parallel task executor (C10), sized by
// config.Options.PoolSize, for hosts that need to fan work out across
// goroutines while sharing the container's failure-reporting conventions.
func (c *Container) Executor() *executor.Executor {
	return c.executor
}

// Shutdown closes every scope in registration order, invoking pre-destroy
// on every live instance, then drains and shuts down the executor.
// Per-scope close failures are isolated and aggregated rather than
// aborting the sweep (§4.5.1).
func (c *Container) Shutdown() error {
	err := c.injector.Shutdown()
	c.executor.Close(shutdownExecutorDrainTimeout)
	return err
}

// Logger returns the container's structured logger, for callers (e.g. the
// demo host) that want to log through the same sink.
func (c *Container) Logger() *zap.SugaredLogger {
	return c.log
}

// Descriptors returns every registered class descriptor, in registration
// order, for diagnostic and demo output.
func (c *Container) Descriptors() []*scandesc.ClassDescriptor {
	return c.registry.All()
}
