package anchor

import (
	"regexp"
	"time"
)

// Snapshot returns a cycle-safe, fully unwrapped deep copy of f's
// value: every reactive child facade is replaced by its own snapshot,
// recursively, and a container that (directly or transitively) refers
// back to itself snapshots to a structure with the same cycle shape
// rather than recursing forever (spec.md §4.10).
//
// Cycles are handled by pre-allocating the output container for a
// Meta before recursing into its children, and reusing that same
// (possibly still-being-filled) container whenever the same Meta is
// encountered again during the walk.
func Snapshot(f *Facade) any {
	m, ok := reg.metaOf(f)
	if !ok {
		return nil
	}
	seen := make(map[*Meta]any)
	return snapshotMeta(m, seen)
}

func snapshotMeta(m *Meta, seen map[*Meta]any) any {
	if out, ok := seen[m]; ok {
		return out
	}
	switch m.kind {
	case KindRecord:
		rr := m.raw.(*rawRecord)
		out := make(map[string]any)
		seen[m] = out
		rr.mu.Lock()
		entries := make(map[string]any, len(rr.data))
		for k, v := range rr.data {
			entries[k] = v
		}
		rr.mu.Unlock()
		for k, v := range entries {
			out[k] = snapshotValue(v, seen)
		}
		return out
	case KindSequence:
		rs := m.raw.(*rawSequence)
		rs.mu.Lock()
		items := make([]any, len(rs.data))
		copy(items, rs.data)
		rs.mu.Unlock()
		out := make([]any, len(items))
		seen[m] = out
		for i, v := range items {
			out[i] = snapshotValue(v, seen)
		}
		return out
	case KindKeyed:
		om := m.raw.(*OrderedMap)
		out := NewOrderedMap()
		seen[m] = out
		for _, k := range om.Keys() {
			v, _ := om.Get(k)
			out.Set(k, snapshotValue(v, seen))
		}
		return out
	case KindUnordered:
		os := m.raw.(*OrderedSet)
		out := NewOrderedSet()
		seen[m] = out
		for _, v := range os.Values() {
			out.Add(snapshotValue(v, seen))
		}
		return out
	default:
		return nil
	}
}

func snapshotValue(v any, seen map[*Meta]any) any {
	if child, ok := v.(*Facade); ok {
		if cm, ok := reg.metaOf(child); ok {
			return snapshotMeta(cm, seen)
		}
		return nil
	}
	// Dates are value types and copy naturally; regexes are cloned by
	// constructor so the snapshot shares no mutable state (spec.md §4.10).
	if r, ok := v.(*regexp.Regexp); ok {
		return regexp.MustCompile(r.String())
	}
	return v
}

// SoftEqual reports whether a and b are the same value: identical by
// identity first (same facade, same pointer), then structurally at one
// level — members compared by identity/primitive equality — or
// recursively when deep[0] is true (spec.md §4.10). time.Time compares
// via Equal and *regexp.Regexp via its source pattern, matching the
// spec's treatment of host "special object" equality.
func SoftEqual(a, b any, deep ...bool) bool {
	return softEqual(a, b, len(deep) > 0 && deep[0])
}

func softEqual(a, b any, deep bool) bool {
	af, aIsFacade := a.(*Facade)
	bf, bIsFacade := b.(*Facade)
	if aIsFacade || bIsFacade {
		if aIsFacade && bIsFacade && af == bf {
			return true
		}
		if aIsFacade {
			a = Snapshot(af)
		}
		if bIsFacade {
			b = Snapshot(bf)
		}
	}

	if specialEqual(a, b) {
		return true
	}
	if isSameValue(a, b) {
		return true
	}

	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, ok := bv[k]
			if !ok || !memberEqual(v, bvv, deep) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !memberEqual(av[i], bv[i], deep) {
				return false
			}
		}
		return true
	case *OrderedMap:
		bv, ok := b.(*OrderedMap)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.Keys() {
			avv, _ := av.Get(k)
			bvv, present := bv.Get(k)
			if !present || !memberEqual(avv, bvv, deep) {
				return false
			}
		}
		return true
	case *OrderedSet:
		bv, ok := b.(*OrderedSet)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		avs, bvs := av.Values(), bv.Values()
		for i := range avs {
			if !memberEqual(avs[i], bvs[i], deep) {
				return false
			}
		}
		return true
	default:
		return comparableEqual(a, b)
	}
}

// memberEqual compares one container member: identity and primitive
// equality at the default depth, full structural recursion under deep.
func memberEqual(a, b any, deep bool) bool {
	if deep {
		return softEqual(a, b, true)
	}
	if specialEqual(a, b) {
		return true
	}
	if isSameValue(a, b) {
		return true
	}
	return comparableEqual(a, b)
}

// specialEqual honors the host "special object" equality rules: dates
// by instant, regexes by source pattern.
func specialEqual(a, b any) bool {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	if ar, ok := a.(*regexp.Regexp); ok {
		br, ok := b.(*regexp.Regexp)
		return ok && ar.String() == br.String()
	}
	return false
}
