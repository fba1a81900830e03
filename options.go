package anchor

import "github.com/go-mizu/anchor/schema"

// Recursive selects how a parent links to its children on read.
type Recursive int

const (
	// RecursiveOn wraps linkable children and registers relation edges
	// for them (the default).
	RecursiveOn Recursive = iota
	// RecursiveOff never wraps children in a facade.
	RecursiveOff
	// RecursiveFlat wraps children but never links them: mutation of a
	// child does not bubble through the parent (spec.md §4.4).
	RecursiveFlat
)

// Configs is the immutable, creation-time record of options a state
// was anchored with (spec.md §3's M.configs).
type Configs struct {
	Recursive  Recursive
	Immutable  bool
	Strict     bool
	Observable bool
	Deferred   bool
	Schema     schema.Schema
}

// Option configures a call to Anchor, following the functional-option
// convention used throughout the teacher's AppOption/WithLogger family.
type Option func(*Configs)

func defaultConfigs() Configs {
	return Configs{
		Recursive:  RecursiveOn,
		Immutable:  false,
		Strict:     false,
		Observable: true,
		Deferred:   false,
	}
}

// WithRecursive sets the recursive linking mode.
func WithRecursive(r Recursive) Option {
	return func(c *Configs) { c.Recursive = r }
}

// WithImmutable marks the resulting facade's mutation methods as
// reporting violations and no-oping instead of writing.
func WithImmutable(v bool) Option {
	return func(c *Configs) { c.Immutable = v }
}

// WithStrict makes schema validation failures rejections that are
// surfaced to the caller instead of merely reported.
func WithStrict(v bool) Option {
	return func(c *Configs) { c.Strict = v }
}

// WithObservable toggles whether reads under an active observer are
// tracked at all. Default true.
func WithObservable(v bool) Option {
	return func(c *Configs) { c.Observable = v }
}

// WithDeferred, combined with a recursive mode other than RecursiveOff,
// makes a keyed collection's GetKey wrap a linkable value in a facade
// when it is read. Without it, GetKey returns stored values raw.
func WithDeferred(v bool) Option {
	return func(c *Configs) { c.Deferred = v }
}

// WithSchema attaches a validation schema gate (C7) to the state.
func WithSchema(s schema.Schema) Option {
	return func(c *Configs) { c.Schema = s }
}

func applyOptions(opts []Option) Configs {
	c := defaultConfigs()
	for _, o := range opts {
		if o != nil {
			o(&c)
		}
	}
	return c
}
