// Package config collects the container's external configuration surface
// (§6) into a single validated struct, so every component that needs a
// knob (the scanner's package filters, the cache's sizing, the executor's
// pool size) reads it from one place instead of taking ad hoc constructor
// arguments.
package config

import (
	"github.com/go-playground/validator/v10"

	"dicore/pkg/cache"
	"dicore/pkg/dierr"
)

// Options is the container's full external configuration surface (§6).
// Zero-value Options is not valid; call Validate (or New) before use.
type Options struct {
	// PackageFilters restricts scanning to these package paths (exact
	// match, or the package and its subpackages for a trailing "*").
	// Empty means "no restriction."
	PackageFilters []string `validate:"dive,min=1"`

	CacheMaxSize         int     `validate:"gt=0"`
	CacheInitialCapacity int     `validate:"gt=0"`
	CacheLoadFactor      float64 `validate:"gt=0,lt=1"`

	// BindingsOnly restricts resolution to explicitly registered Bind
	// entries, skipping classpath-equivalent scan-derived candidates.
	BindingsOnly bool

	// PoolSize sizes the parallel task executor's fixed worker pool.
	PoolSize int `validate:"gt=0"`
}

// Default returns the package's baseline Options: unrestricted scanning,
// a modest cache, scan-and-bindings resolution, and a worker pool sized
// to the values the rest of the pack defaults to for cache.Params.
func Default() Options {
	return Options{
		CacheMaxSize:         10_000,
		CacheInitialCapacity: 256,
		CacheLoadFactor:      0.75,
		PoolSize:             4,
	}
}

var validate = validator.New()

// Validate reports a DomainFailure for every out-of-range field named in
// §7 ("invalid argument ... out-of-range size/capacity/load-factor"),
// aggregating every violation into one error rather than stopping at the
// first.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return dierr.Wrap(dierr.DomainFailure, err, "invalid container options")
	}
	return nil
}

// CacheParams projects the cache-sizing fields into cache.Params.
func (o Options) CacheParams() cache.Params {
	return cache.Params{
		MaxSize:         o.CacheMaxSize,
		InitialCapacity: o.CacheInitialCapacity,
		LoadFactor:      o.CacheLoadFactor,
	}
}

// New builds an Options from an explicit set of overrides layered onto
// Default, validating the result.
func New(overrides func(*Options)) (Options, error) {
	o := Default()
	if overrides != nil {
		overrides(&o)
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}
