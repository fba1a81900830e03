package derive

import (
	"sync/atomic"

	"github.com/go-mizu/anchor"
)

// Bind two-way synchronizes a and b: a change on a is converted via
// toB and applied to b, and vice versa via toA, with a per-direction
// mute flag so applying the converted value does not bounce straight
// back (spec.md §4.9's bind). Convergence is additionally guarded by
// anchor.SoftEqual: a converted value equal to the target's current
// value is never written, so a bind between two already-equal states
// settles in one hop instead of oscillating.
func Bind(a, b *anchor.Facade, toA, toB func(any) any) (unbind func()) {
	var mutedA, mutedB atomic.Bool

	unsubA := anchor.Subscribe(a, func(value any, ev anchor.Event) {
		if ev.Type == anchor.EventInit || mutedA.Load() {
			return
		}
		converted := value
		if toB != nil {
			converted = toB(value)
		}
		mutedB.Store(true)
		applyWhole(b, converted)
		mutedB.Store(false)
	})

	unsubB := anchor.Subscribe(b, func(value any, ev anchor.Event) {
		if ev.Type == anchor.EventInit || mutedB.Load() {
			return
		}
		converted := value
		if toA != nil {
			converted = toA(value)
		}
		mutedA.Store(true)
		applyWhole(a, converted)
		mutedA.Store(false)
	})

	return func() {
		unsubA()
		unsubB()
	}
}

// applyWhole replaces f's entire contents with value, skipping the
// write if value is already equal to what f holds (one level deep is
// enough to break the oscillation Bind guards against; a false
// negative here only costs one redundant, still-muted round trip).
func applyWhole(f *anchor.Facade, value any) {
	current, err := anchor.Get(f)
	if err == nil && anchor.SoftEqual(current, value) {
		return
	}
	switch f.Kind() {
	case anchor.KindRecord:
		if m, ok := value.(map[string]any); ok {
			_ = f.Assign(m)
		}
	case anchor.KindSequence:
		if items, ok := value.([]any); ok {
			_, _ = f.Splice(0, f.Len(), items...)
		}
	case anchor.KindKeyed:
		if om, ok := value.(*anchor.OrderedMap); ok {
			_ = f.ClearKeyed()
			for _, k := range om.Keys() {
				v, _ := om.Get(k)
				_ = f.SetKey(k, v)
			}
		}
	case anchor.KindUnordered:
		if os, ok := value.(*anchor.OrderedSet); ok {
			_ = f.ClearSet()
			for _, v := range os.Values() {
				_ = f.Add(v)
			}
		}
	}
}
