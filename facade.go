package anchor

import (
	"fmt"
	"sync"

	"github.com/go-mizu/anchor/schema"
)

// Facade is the public reference consumers hold for an anchored
// state. It is a single tagged-variant type (spec.md §9's recommended
// design for compiled hosts): Kind selects which method subset below
// is valid, and the underlying raw value is reachable only through Get
// and the accessors in this package.
type Facade struct {
	meta *Meta

	// immutableOverride, when set, takes precedence over meta.configs
	// .Immutable for this particular Facade value: View constructs a
	// second Facade over the same Meta with its own override so an
	// Immutable/Writable pair can coexist without fighting over one
	// shared Configs.Immutable flag.
	immutableOverride *bool
}

// Kind reports which of the four recognized shapes f wraps.
func (f *Facade) Kind() Kind { return f.meta.kind }

// ID reports f's stable identity.
func (f *Facade) ID() ID { return f.meta.id }

// effectiveImmutable is the immutability check every mutating method
// uses: f's own override if it has one, otherwise the shared Meta's.
func (f *Facade) effectiveImmutable() bool {
	if f.immutableOverride != nil {
		return *f.immutableOverride
	}
	return f.meta.configs.Immutable
}

func (f *Facade) metaOrNil() *Meta {
	if f == nil {
		return nil
	}
	return f.meta
}

// rawRecord is the pointer-identity wrapper around a record's backing
// map[string]any. Go maps are not themselves usable as map keys in the
// registry (they are not comparable), so every record gets one of
// these as its true identity.
type rawRecord struct {
	mu   sync.Mutex
	data map[string]any
}

// rawSequence is the pointer-identity wrapper around a sequence's
// backing slice. All mutation goes through the Facade, so the slice
// header here is the single source of truth once anchored (spec.md §5
// "Consumers must not retain raw V alongside F for mutation").
type rawSequence struct {
	mu   sync.Mutex
	data []any
}

// reportAndZero is the common "report a violation, perform no
// mutation, return the idiomatic no-op value" path used by every write
// path that fails a precondition (destroyed state, immutable facade,
// reserved key).
func reportAndZero(m *Meta, kind ViolationKind, key string, err error) error {
	reportViolation(Violation{Kind: kind, ID: m.id, Key: key, Err: err})
	return err
}

// --- record operations ---

// Get returns the value stored at key on a record facade. If an
// observer is active the read is tracked; a linkable child is wrapped
// and linked per spec.md §4.2's read trap.
func (f *Facade) Get(key string) (any, bool) {
	m := f.meta
	if m.kind != KindRecord {
		reportAndZero(m, ViolationReservedKey, key, ErrWrongKind)
		return nil, false
	}
	if m.isDestroyed() {
		reportAndZero(m, ViolationDestroyedOp, key, ErrDestroyed)
		return nil, false
	}
	rr := m.raw.(*rawRecord)

	rr.mu.Lock()
	slot, ok := rr.data[key]
	rr.mu.Unlock()
	if !ok {
		trackRead(m, key)
		return nil, false
	}

	trackRead(m, key)
	value, circular := resolveSlot(m, key, slot, func(v any) {
		rr.mu.Lock()
		rr.data[key] = v
		rr.mu.Unlock()
	})
	if circular {
		reportViolation(Violation{Kind: ViolationCircular, ID: m.id, Key: key})
	}
	return value, true
}

// Keys returns a record facade's current key set.
func (f *Facade) Keys() []string {
	m := f.meta
	if m.kind != KindRecord || m.isDestroyed() {
		return nil
	}
	rr := m.raw.(*rawRecord)
	rr.mu.Lock()
	defer rr.mu.Unlock()
	out := make([]string, 0, len(rr.data))
	for k := range rr.data {
		out = append(out, k)
	}
	return out
}

// Set writes value at key on a record facade (spec.md §4.2 write
// trap): validated via the schema gate, a no-op if value equals the
// current slot, replacing and unlinking any prior reactive child
// before emitting a "set" event.
func (f *Facade) Set(key string, value any) error {
	m := f.meta
	if m.kind != KindRecord {
		return reportAndZero(m, ViolationReservedKey, key, ErrWrongKind)
	}
	if m.isDestroyed() {
		return reportAndZero(m, ViolationDestroyedOp, key, ErrDestroyed)
	}
	if f.effectiveImmutable() {
		return reportAndZero(m, ViolationImmutableWrite, key, ErrImmutable)
	}

	if isSelfAssignment(m, value) {
		reportViolation(Violation{Kind: ViolationCircular, ID: m.id, Key: key})
		return nil
	}

	parsed, err := gate(m.configs.Schema, key, value, m.configs.Strict)
	if err != nil {
		if err == errDiscardedWrite {
			return nil
		}
		return err
	}

	rr := m.raw.(*rawRecord)
	rr.mu.Lock()
	prev, existed := rr.data[key]
	if existed && isSameValue(prev, parsed) {
		rr.mu.Unlock()
		return nil
	}
	rr.data[key] = parsed
	rr.mu.Unlock()

	if prevMeta, ok := childMetaOf(prev); ok {
		unlinkChild(m, prevMeta)
	}

	emit(m, Event{Type: EventSet, Keys: []string{key}, Prev: unwrapPrev(prev), Value: parsed})
	return nil
}

// Delete removes key from a record facade (spec.md §4.2 delete trap):
// a no-op if the property is absent.
func (f *Facade) Delete(key string) error {
	m := f.meta
	if m.kind != KindRecord {
		return reportAndZero(m, ViolationReservedKey, key, ErrWrongKind)
	}
	if m.isDestroyed() {
		return reportAndZero(m, ViolationDestroyedOp, key, ErrDestroyed)
	}
	if f.effectiveImmutable() {
		return reportAndZero(m, ViolationImmutableWrite, key, ErrImmutable)
	}

	rr := m.raw.(*rawRecord)
	rr.mu.Lock()
	prev, existed := rr.data[key]
	if !existed {
		rr.mu.Unlock()
		return nil
	}
	delete(rr.data, key)
	rr.mu.Unlock()

	if prevMeta, ok := childMetaOf(prev); ok {
		unlinkChild(m, prevMeta)
	}

	emit(m, Event{Type: EventDelete, Keys: []string{key}, Prev: unwrapPrev(prev)})
	return nil
}

// Assign merges partial onto a record facade as one "assign" event
// covering every affected key (spec.md §4.3, §6, and SPEC_FULL.md's
// decision on the strict-mode Open Question: a key absent from the
// destination schema triggers full-object revalidation).
func (f *Facade) Assign(partial map[string]any) error {
	m := f.meta
	if m.kind != KindRecord {
		return reportAndZero(m, ViolationReservedKey, "", ErrWrongKind)
	}
	if m.isDestroyed() {
		return reportAndZero(m, ViolationDestroyedOp, "", ErrDestroyed)
	}
	if f.effectiveImmutable() {
		return reportAndZero(m, ViolationImmutableWrite, "", ErrImmutable)
	}

	rr := m.raw.(*rawRecord)

	if m.configs.Schema != nil && m.configs.Strict {
		rr.mu.Lock()
		candidate := make(map[string]any, len(rr.data)+len(partial))
		for k, v := range rr.data {
			candidate[k] = v
		}
		for k, v := range partial {
			candidate[k] = v
		}
		rr.mu.Unlock()
		res := m.configs.Schema.SafeParse(candidate)
		if !res.Success {
			reportViolation(Violation{Kind: ViolationSchemaReject, ID: m.id, Err: res.Error})
			if res.Error != nil {
				return fmt.Errorf("%w: %v", ErrValidation, res.Error)
			}
			return ErrValidation
		}
		if merged, ok := res.Data.(map[string]any); ok {
			candidate = merged
		}
		partial = candidate
		rr.mu.Lock()
		for k := range rr.data {
			if _, ok := partial[k]; !ok {
				partial[k] = rr.data[k]
			}
		}
		rr.mu.Unlock()
	}

	keys := make([]string, 0, len(partial))
	prevSnap := make(map[string]any, len(partial))
	valueSnap := make(map[string]any, len(partial))

	rr.mu.Lock()
	for k, v := range partial {
		parsed := v
		if m.configs.Schema != nil && !m.configs.Strict {
			if p, err := gate(m.configs.Schema, k, v, false); err == nil {
				parsed = p
			} else {
				continue
			}
		}
		prev := rr.data[k]
		if isSameValue(prev, parsed) {
			continue
		}
		rr.data[k] = parsed
		keys = append(keys, k)
		prevSnap[k] = unwrapPrev(prev)
		valueSnap[k] = parsed
	}
	rr.mu.Unlock()

	if len(keys) == 0 {
		return nil
	}

	emit(m, Event{Type: EventAssign, Keys: keys, Prev: prevSnap, Value: valueSnap})
	return nil
}

// gate runs the C7 schema gate for a record-style write: success
// replaces the value with the (possibly coerced) parsed result;
// failure in strict mode returns an error to the caller; failure in
// lenient mode reports a violation and discards the write, returning a
// sentinel so the caller treats it as "do not write" without
// propagating the error (spec.md §4.7, §7).
func gate(s schema.Schema, key string, value any, strict bool) (any, error) {
	if s == nil {
		return value, nil
	}
	sub := schema.KeyOf(s, key)
	if sub == nil {
		return value, nil
	}
	res := sub.SafeParse(value)
	if res.Success {
		return res.Data, nil
	}
	if strict {
		if res.Error != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, res.Error)
		}
		return nil, ErrValidation
	}
	reportViolation(Violation{Kind: ViolationSchemaReject, Key: key, Err: res.Error})
	return nil, errDiscardedWrite
}

var errDiscardedWrite = &discardedWriteError{}

type discardedWriteError struct{}

func (*discardedWriteError) Error() string { return "anchor: write discarded by lenient schema gate" }

// unwrapPrev turns a stored facade slot back into the value an event's
// Prev field should carry: for a reactive child, its current snapshot.
func unwrapPrev(v any) any {
	if child, ok := v.(*Facade); ok {
		return Snapshot(child)
	}
	return v
}

func childMetaOf(v any) (*Meta, bool) {
	if f, ok := v.(*Facade); ok {
		return reg.metaOf(f)
	}
	return nil, false
}

// isSelfAssignment reports whether value is m's own facade or raw
// storage: writing a state into one of its own slots is a no-op that
// reports a circular violation (spec.md §3 invariant 2).
func isSelfAssignment(m *Meta, value any) bool {
	if f, ok := value.(*Facade); ok {
		return f.meta == m
	}
	if cm, ok := reg.metaByDataPtr(value); ok {
		return cm == m
	}
	return value == m.raw
}
