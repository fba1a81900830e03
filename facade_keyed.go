package anchor

import "sync"

// OrderedMap is the backing collection for a keyed facade: a map with
// arbitrary comparable keys that preserves insertion order, since Go's
// builtin map does not and the spec's keyed collection iterates in
// insertion order like the host language's Map. It is itself a pointer
// type, so (unlike map[string]any) it is directly usable as a registry
// identity key.
type OrderedMap struct {
	mu    sync.Mutex
	order []any
	data  map[any]any
}

// NewOrderedMap returns an empty OrderedMap, ready to be anchored.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{data: make(map[any]any)}
}

// Get returns the raw value stored at key, bypassing reactivity. Used
// internally and by consumers that want the collection without a
// facade.
func (o *OrderedMap) Get(key any) (any, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.data[key]
	return v, ok
}

// Set stores value at key, appending key to the order if it is new.
func (o *OrderedMap) Set(key, value any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, existed := o.data[key]; !existed {
		o.order = append(o.order, key)
	}
	o.data[key] = value
}

// Delete removes key, reporting whether it was present.
func (o *OrderedMap) Delete(key any) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.data[key]; !ok {
		return false
	}
	delete(o.data, key)
	for i, k := range o.order {
		if k == key {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns a copy of the map's keys in insertion order.
func (o *OrderedMap) Keys() []any {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]any, len(o.order))
	copy(out, o.order)
	return out
}

// Len reports the number of entries.
func (o *OrderedMap) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.order)
}

// clear empties the map and returns the entries it held, in order, for
// use as an event's Prev payload (SPEC_FULL.md's decision: ClearKeyed
// reports entries, not bare values).
func (o *OrderedMap) clear() []KeyValue {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]KeyValue, 0, len(o.order))
	for _, k := range o.order {
		out = append(out, KeyValue{Key: k, Value: o.data[k]})
	}
	o.order = nil
	o.data = make(map[any]any)
	return out
}

// KeyValue is the entry shape ClearKeyed reports per removed member.
type KeyValue struct {
	Key   any
	Value any
}

// --- keyed facade methods ---

// SetKey stores value at k (spec.md §4.2, §6). A no-op if k already
// maps to an equal value.
func (f *Facade) SetKey(k, v any) error {
	m := f.meta
	if m.kind != KindKeyed {
		return reportAndZero(m, ViolationReservedKey, stringify(k), ErrWrongKind)
	}
	if m.isDestroyed() {
		return reportAndZero(m, ViolationDestroyedOp, stringify(k), ErrDestroyed)
	}
	if f.effectiveImmutable() {
		return reportAndZero(m, ViolationImmutableWrite, stringify(k), ErrImmutable)
	}

	key := stringify(k)
	if isSelfAssignment(m, v) {
		reportViolation(Violation{Kind: ViolationCircular, ID: m.id, Key: key})
		return nil
	}
	parsed, err := gate(m.configs.Schema, key, v, m.configs.Strict)
	if err != nil {
		if err == errDiscardedWrite {
			return nil
		}
		return err
	}

	om := m.raw.(*OrderedMap)
	prev, existed := om.Get(k)
	if existed && isSameValue(prev, parsed) {
		return nil
	}
	om.Set(k, parsed)

	if prevMeta, ok := childMetaOf(prev); ok {
		unlinkChild(m, prevMeta)
	}

	emit(m, Event{Type: EventSet, Keys: []string{key}, Prev: unwrapPrev(prev), Value: parsed})
	return nil
}

// GetKey reads the value at k. Deferred wrapping (spec.md §4.2): a
// linkable child is only wrapped in a facade here when both Recursive
// and Deferred are set — otherwise a keyed collection's values are
// returned raw even under RecursiveOn, since eager wrapping of every
// stored value defeats the point of a large keyed store.
func (f *Facade) GetKey(k any) (any, bool) {
	m := f.meta
	if m.kind != KindKeyed || m.isDestroyed() {
		return nil, false
	}
	key := stringify(k)
	om := m.raw.(*OrderedMap)
	slot, ok := om.Get(k)
	if !ok {
		trackRead(m, key)
		return nil, false
	}
	trackRead(m, key)

	if !m.configs.Deferred || m.configs.Recursive == RecursiveOff {
		if _, ok := slot.(*Facade); !ok {
			return slot, true
		}
	}

	value, circular := resolveSlot(m, key, slot, func(v any) { om.Set(k, v) })
	if circular {
		reportViolation(Violation{Kind: ViolationCircular, ID: m.id, Key: key})
	}
	return value, true
}

// DeleteKey removes k. A no-op if k is absent.
func (f *Facade) DeleteKey(k any) error {
	m := f.meta
	if m.kind != KindKeyed {
		return reportAndZero(m, ViolationReservedKey, stringify(k), ErrWrongKind)
	}
	if m.isDestroyed() {
		return reportAndZero(m, ViolationDestroyedOp, stringify(k), ErrDestroyed)
	}
	if f.effectiveImmutable() {
		return reportAndZero(m, ViolationImmutableWrite, stringify(k), ErrImmutable)
	}

	om := m.raw.(*OrderedMap)
	prev, existed := om.Get(k)
	if !existed {
		return nil
	}
	om.Delete(k)

	if prevMeta, ok := childMetaOf(prev); ok {
		unlinkChild(m, prevMeta)
	}

	key := stringify(k)
	emit(m, Event{Type: EventDelete, Keys: []string{key}, Prev: unwrapPrev(prev)})
	return nil
}

// ClearKeyed empties the collection, emitting one "clear" event whose
// Prev carries the removed entries as []KeyValue (SPEC_FULL.md's
// decision on the Open Question: entries, not bare values, for a keyed
// collection).
func (f *Facade) ClearKeyed() error {
	m := f.meta
	if m.kind != KindKeyed {
		return reportAndZero(m, ViolationReservedKey, "", ErrWrongKind)
	}
	if m.isDestroyed() {
		return reportAndZero(m, ViolationDestroyedOp, "", ErrDestroyed)
	}
	if f.effectiveImmutable() {
		return reportAndZero(m, ViolationImmutableWrite, "", ErrImmutable)
	}

	om := m.raw.(*OrderedMap)
	entries := om.clear()
	if len(entries) == 0 {
		return nil
	}
	keys := make([]string, len(entries))
	for i, kv := range entries {
		keys[i] = stringify(kv.Key)
		if prevMeta, ok := childMetaOf(kv.Value); ok {
			unlinkChild(m, prevMeta)
		}
	}
	unlinkAll(m)

	emit(m, Event{Type: EventClear, Keys: keys, Prev: entries})
	return nil
}

// HasKey reports whether k is present, tracking the read.
func (f *Facade) HasKey(k any) bool {
	m := f.meta
	if m.kind != KindKeyed || m.isDestroyed() {
		return false
	}
	trackRead(m, stringify(k))
	om := m.raw.(*OrderedMap)
	_, ok := om.Get(k)
	return ok
}

// KeyedLen reports the entry count, tracking a whole-container read.
func (f *Facade) KeyedLen() int {
	m := f.meta
	if m.kind != KindKeyed || m.isDestroyed() {
		return 0
	}
	trackRead(m, SeqKey)
	return m.raw.(*OrderedMap).Len()
}

func (f *Facade) keyedKeys() []string {
	om := f.meta.raw.(*OrderedMap)
	keys := om.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = stringify(k)
	}
	return out
}
