package derive

import "github.com/go-mizu/anchor"

// Immutable returns a view of f that reports and discards every
// mutation attempt while reads, subscriptions, and relation-graph
// edges continue to work exactly as on f (spec.md §9).
func Immutable(f *anchor.Facade) *anchor.Facade {
	return anchor.View(f, true)
}

// Writable returns a view of f with mutation re-enabled, undoing a
// prior Immutable view without affecting f or any other existing view.
func Writable(f *anchor.Facade) *anchor.Facade {
	return anchor.View(f, false)
}
