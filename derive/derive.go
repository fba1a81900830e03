// Package derive builds the higher-level reactive helpers of spec.md
// §4.9 — recursive subscription, one-way piping, two-way binding, and
// undo/redo history — entirely on anchor's exported surface. It has no
// access to anchor's unexported Meta/registry internals, by design: a
// third-party persistence or UI-binding package would face exactly the
// same seam.
package derive

import "github.com/go-mizu/anchor"

// Subscribe re-exports anchor.Subscribe for callers that otherwise
// interact only with this package.
func Subscribe(f *anchor.Facade, handler func(value any, ev anchor.Event)) (unsubscribe func()) {
	return anchor.Subscribe(f, handler)
}

// Derive subscribes to f and proactively touches every reactive child
// currently reachable from it, so the relation graph's edges (which
// anchor only materializes once a subscriber exists to justify them,
// per spec.md §4.4) are established immediately for the whole subtree
// rather than lazily on each child's next read. Once established,
// anchor's own bubbling (§4.4, §4.5) delivers every descendant's event
// up through this one subscription, so Derive needs no bookkeeping of
// its own beyond that initial walk.
// Passing recursive=false degrades Derive to a plain Subscribe with no
// subtree walk.
func Derive(f *anchor.Facade, handler func(value any, ev anchor.Event), recursive ...bool) (unsubscribe func()) {
	unsub := anchor.Subscribe(f, handler)
	if len(recursive) == 0 || recursive[0] {
		touchSubtree(f, make(map[*anchor.Facade]struct{}))
	}
	return unsub
}

func touchSubtree(f *anchor.Facade, seen map[*anchor.Facade]struct{}) {
	if f == nil {
		return
	}
	if _, ok := seen[f]; ok {
		return
	}
	seen[f] = struct{}{}

	switch f.Kind() {
	case anchor.KindRecord:
		for _, k := range f.Keys() {
			if v, ok := f.Get(k); ok {
				touchValue(v, seen)
			}
		}
	case anchor.KindSequence:
		n := f.Len()
		for i := 0; i < n; i++ {
			if v, ok := f.At(i); ok {
				touchValue(v, seen)
			}
		}
	case anchor.KindKeyed:
		for _, k := range anchor.Keys(f) {
			if v, ok := f.GetKey(k); ok {
				touchValue(v, seen)
			}
		}
	}
}

func touchValue(v any, seen map[*anchor.Facade]struct{}) {
	if child, ok := v.(*anchor.Facade); ok {
		touchSubtree(child, seen)
	}
}
