package anchor

import "reflect"

// resolveSlot implements the shared core of spec.md §4.2's read trap
// steps 2-5 for any container kind: rewriting an aliased raw value to
// its owning facade, detecting a circular self-reference, lazily
// wrapping a not-yet-known linkable child, and materializing the
// parent->child relation edge. storeBack persists a just-wrapped or
// rewritten facade into the caller's slot (a record field, a sequence
// element, …) so later reads see the facade directly.
func resolveSlot(parent *Meta, key string, slot any, storeBack func(any)) (value any, circular bool) {
	if child, ok := slot.(*Facade); ok {
		cm, ok := reg.metaOf(child)
		if ok && cm.raw == parent.raw {
			return child, true
		}
		if ok {
			link(parent, cm, key)
		}
		return child, false
	}

	if !Linkable(slot) {
		return slot, false
	}

	if existing, ok := reg.metaByDataPtr(slot); ok {
		storeBack(existing.facade)
		if existing.raw == parent.raw {
			return existing.facade, true
		}
		link(parent, existing, key)
		return existing.facade, false
	}
	if km, ok := orderedIdentityMeta(slot); ok {
		storeBack(km.facade)
		link(parent, km, key)
		return km.facade, false
	}

	if parent.configs.Recursive == RecursiveOff {
		return slot, false
	}

	child := wrapChild(parent, key, slot)
	storeBack(child)
	cm, _ := reg.metaOf(child)
	link(parent, cm, key)
	return child, false
}

// orderedIdentityMeta looks up an already-registered Meta for a
// *OrderedMap/*OrderedSet value, which (unlike map[string]any/[]any)
// is already usable as a registry key in its own right.
func orderedIdentityMeta(v any) (*Meta, bool) {
	switch v.(type) {
	case *OrderedMap, *OrderedSet:
		return reg.metaOfRaw(v)
	default:
		return nil, false
	}
}

// wrapChild anchors raw as a new reactive child of parent at key,
// inheriting parent's Configs (recursive mode, immutable, strict,
// observable, deferred) except for Schema, which is narrowed to
// parent's sub-schema for key (spec.md §4.2 step 4).
func wrapChild(parent *Meta, key string, raw any) *Facade {
	cfg := parent.configs
	cfg.Schema = subSchemaFor(parent, key)

	root := parent.root
	if root == nil {
		root = parent
	}

	f, _ := construct(raw, root, cfg)
	return f
}

// isSameValue reports whether a write would be a no-op: identical by
// interface equality, or — for the container kinds, which are never
// comparable with == — identical by pointer/data identity.
func isSameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Kind() != bv.Kind() {
		return comparableEqual(a, b)
	}
	switch av.Kind() {
	case reflect.Map, reflect.Slice:
		if av.Kind() == reflect.Slice && av.IsNil() != bv.IsNil() {
			return false
		}
		if !av.CanAddr() && !bv.CanAddr() {
			ap, aok := dataPointer(a)
			bp, bok := dataPointer(b)
			if aok && bok {
				return ap == bp
			}
		}
		return false
	case reflect.Ptr:
		return av.Pointer() == bv.Pointer()
	default:
		return comparableEqual(a, b)
	}
}

func comparableEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}
