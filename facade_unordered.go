package anchor

import "sync"

// OrderedSet is the backing collection for an unordered facade: a set
// of arbitrary comparable values that preserves insertion order, as
// the spec's unordered collection iterates in insertion order like the
// host language's Set. It is a pointer type, so it is directly usable
// as a registry identity key.
type OrderedSet struct {
	mu     sync.Mutex
	order  []any
	member map[any]struct{}
}

// NewOrderedSet returns an empty OrderedSet, ready to be anchored.
func NewOrderedSet() *OrderedSet {
	return &OrderedSet{member: make(map[any]struct{})}
}

// Add inserts v, reporting whether it was newly added.
func (o *OrderedSet) Add(v any) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.member[v]; ok {
		return false
	}
	o.member[v] = struct{}{}
	o.order = append(o.order, v)
	return true
}

// Remove deletes v, reporting whether it was present.
func (o *OrderedSet) Remove(v any) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.member[v]; !ok {
		return false
	}
	delete(o.member, v)
	for i, x := range o.order {
		if x == v {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return true
}

// Has reports whether v is a member.
func (o *OrderedSet) Has(v any) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.member[v]
	return ok
}

// Values returns a copy of the set's members in insertion order.
func (o *OrderedSet) Values() []any {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]any, len(o.order))
	copy(out, o.order)
	return out
}

// Len reports the member count.
func (o *OrderedSet) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.order)
}

// clear empties the set and returns the values it held, in order, for
// use as an event's Prev payload (SPEC_FULL.md's decision: ClearSet
// reports bare values, not entries, for an unordered collection).
func (o *OrderedSet) clear() []any {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]any, len(o.order))
	copy(out, o.order)
	o.order = nil
	o.member = make(map[any]struct{})
	return out
}

// --- unordered facade methods ---

// Add inserts v into an unordered facade, emitting an "add" event. A
// no-op (no event) if v is already a member.
func (f *Facade) Add(v any) error {
	m := f.meta
	if m.kind != KindUnordered {
		return reportAndZero(m, ViolationReservedKey, "", ErrWrongKind)
	}
	if m.isDestroyed() {
		return reportAndZero(m, ViolationDestroyedOp, "", ErrDestroyed)
	}
	if f.effectiveImmutable() {
		return reportAndZero(m, ViolationImmutableWrite, "", ErrImmutable)
	}

	key := stringify(v)
	parsed, err := gate(m.configs.Schema, key, v, m.configs.Strict)
	if err != nil {
		if err == errDiscardedWrite {
			return nil
		}
		return err
	}

	// Plain containers are not comparable and cannot be set members
	// directly; membership is recorded in facade form instead, which is
	// also what makes HasValue's either-form matching work.
	if Linkable(parsed) {
		if child, err := Anchor(parsed); err == nil {
			parsed = child
		}
	}

	os := m.raw.(*OrderedSet)
	if !os.Add(parsed) {
		return nil
	}

	emit(m, Event{Type: EventAdd, Keys: []string{key}, Value: parsed})
	return nil
}

// RemoveValue deletes v from an unordered facade. A no-op if v is
// absent.
func (f *Facade) RemoveValue(v any) error {
	m := f.meta
	if m.kind != KindUnordered {
		return reportAndZero(m, ViolationReservedKey, "", ErrWrongKind)
	}
	if m.isDestroyed() {
		return reportAndZero(m, ViolationDestroyedOp, "", ErrDestroyed)
	}
	if f.effectiveImmutable() {
		return reportAndZero(m, ViolationImmutableWrite, "", ErrImmutable)
	}

	os := m.raw.(*OrderedSet)
	removed := v
	found := false
	if _, rawContainer := dataPointer(v); !rawContainer {
		found = os.Remove(v)
	}
	if !found {
		// Match the other form of v, as HasValue does.
		alt, ok := alternateForm(v)
		if !ok || !os.Remove(alt) {
			return nil
		}
		removed = alt
	}

	key := stringify(v)
	emit(m, Event{Type: EventDelete, Keys: []string{key}, Prev: unwrapPrev(removed)})
	return nil
}

// alternateForm maps a facade to its registered raw identity and a raw
// container to its facade, for either-form set membership matching.
func alternateForm(v any) (any, bool) {
	if child, ok := v.(*Facade); ok {
		if cm, ok := reg.metaOf(child); ok {
			return cm.raw, true
		}
		return nil, false
	}
	if cm, ok := reg.metaByDataPtr(v); ok {
		return cm.facade, true
	}
	if cm, ok := orderedIdentityMeta(v); ok {
		return cm.facade, true
	}
	return nil, false
}

// ClearSet empties the collection, emitting one "clear" event whose
// Prev carries the removed values directly (SPEC_FULL.md's decision on
// the Open Question: values, not entries, for an unordered collection).
func (f *Facade) ClearSet() error {
	m := f.meta
	if m.kind != KindUnordered {
		return reportAndZero(m, ViolationReservedKey, "", ErrWrongKind)
	}
	if m.isDestroyed() {
		return reportAndZero(m, ViolationDestroyedOp, "", ErrDestroyed)
	}
	if f.effectiveImmutable() {
		return reportAndZero(m, ViolationImmutableWrite, "", ErrImmutable)
	}

	os := m.raw.(*OrderedSet)
	values := os.clear()
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, len(values))
	for i, v := range values {
		keys[i] = stringify(v)
	}
	unlinkAll(m)

	emit(m, Event{Type: EventClear, Keys: keys, Prev: values})
	return nil
}

// HasValue reports whether v is a member, tracking the read. Either
// form of v matches (spec.md §6): a facade finds a membership recorded
// as its raw value and a raw value finds a membership recorded as its
// facade.
func (f *Facade) HasValue(v any) bool {
	m := f.meta
	if m.kind != KindUnordered || m.isDestroyed() {
		return false
	}
	trackRead(m, stringify(v))
	os := m.raw.(*OrderedSet)
	if _, rawContainer := dataPointer(v); !rawContainer {
		if os.Has(v) {
			return true
		}
	}
	if alt, ok := alternateForm(v); ok {
		return os.Has(alt)
	}
	return false
}

// SetLen reports the member count, tracking a whole-container read.
func (f *Facade) SetLen() int {
	m := f.meta
	if m.kind != KindUnordered || m.isDestroyed() {
		return 0
	}
	trackRead(m, SeqKey)
	return m.raw.(*OrderedSet).Len()
}

func (f *Facade) unorderedKeys() []string {
	values := f.meta.raw.(*OrderedSet).Values()
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = stringify(v)
	}
	return out
}
