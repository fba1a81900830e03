package anchor

import "github.com/go-mizu/anchor/schema"

// Anchor wraps value in a reactive facade (spec.md §4.1). Anchoring an
// already-anchored facade returns it unchanged. Anchoring a raw
// map/slice value that is already the backing store of some other
// known facade returns that facade instead of minting a second
// identity for the same storage (spec.md §4.1's registry invariant).
func Anchor(value any, opts ...Option) (*Facade, error) {
	if f, ok := value.(*Facade); ok {
		return f, nil
	}
	if !Linkable(value) {
		return nil, ErrNotLinkable
	}
	if m, ok := reg.metaByDataPtr(value); ok {
		return m.facade, nil
	}
	if m, ok := orderedIdentityMeta(value); ok {
		return m.facade, nil
	}
	cfg := applyOptions(opts)
	f, _ := construct(value, nil, cfg)
	return f, nil
}

// construct is the shared Meta/Facade allocation path used by Anchor
// for root states and wrapChild for children discovered during a read.
// The parent pointer used for upward bubbling is NOT set here: only
// link() materializes it, so an unbridged child never bubbles (spec.md
// §3 invariant 3).
func construct(value any, root *Meta, cfg Configs) (*Facade, *Meta) {
	kind, _ := kindOf(value)
	raw := wrapRaw(kind, value)

	m := newMeta(kind, raw, root, cfg)
	f := &Facade{meta: m}
	m.facade = f
	reg.register(raw, f, m)
	return f, m
}

// wrapRaw gives a plain map[string]any/[]any its pointer-identity
// wrapper; *OrderedMap/*OrderedSet already carry their own identity.
func wrapRaw(kind Kind, value any) any {
	switch kind {
	case KindRecord:
		return &rawRecord{data: value.(map[string]any)}
	case KindSequence:
		return &rawSequence{data: value.([]any)}
	default:
		return value
	}
}

// subSchemaFor narrows parent's schema to the sub-schema that governs
// key, or nil if parent carries no schema or the schema does not
// describe key (spec.md §4.2 step 4, §4.7).
func subSchemaFor(parent *Meta, key string) schema.Schema {
	if parent.configs.Schema == nil {
		return nil
	}
	return schema.KeyOf(parent.configs.Schema, key)
}

// View returns a facade sharing f's identity, storage, subscribers and
// relation-graph edges, but with its own immutable flag independent of
// f's (spec.md §9's derive/immutable, surfaced via derive.Immutable
// and derive.Writable). Mutating through one view does not affect
// whether another view of the same state accepts writes.
func View(f *Facade, immutable bool) *Facade {
	m, ok := reg.metaOf(f)
	if !ok {
		return f
	}
	v := &Facade{meta: m, immutableOverride: &immutable}
	reg.mu.Lock()
	reg.byFacade[v] = m
	reg.mu.Unlock()
	return v
}

// Has reports whether x is a facade or raw value the registry
// currently recognizes.
func Has(x any) bool {
	return reg.lookup(x) != lookupUnknown
}

// Get returns f's backing container value: a record or sequence as a
// plain map/slice (with previously-read reactive children left as
// facades in place), or a keyed/unordered facade's backing collection
// directly. The read is untracked; use Read for a tracked access.
func Get(f *Facade) (any, error) {
	m, ok := reg.metaOf(f)
	if !ok {
		return nil, ErrNotAnchored
	}
	return rawOf(m), nil
}

// Read is Get, additionally recording a whole-container dependency
// (keyed by SeqKey) for the currently active observer, for code that
// needs to react to any change under f without naming individual keys.
func Read(f *Facade) (any, error) {
	m, ok := reg.metaOf(f)
	if !ok {
		return nil, ErrNotAnchored
	}
	trackRead(m, SeqKey)
	return rawOf(m), nil
}

func rawOf(m *Meta) any {
	switch rw := m.raw.(type) {
	case *rawRecord:
		rw.mu.Lock()
		defer rw.mu.Unlock()
		return rw.data
	case *rawSequence:
		rw.mu.Lock()
		defer rw.mu.Unlock()
		return rw.data
	default:
		return m.raw
	}
}

// Register anchors value without recursive child wrapping: mutations
// through the returned facade are reactive, but children read through
// it stay raw. It gives a value a stable registry identity so later
// reads of it from a parent slot resolve to this facade, without
// paying for a reactive subtree.
func Register(value any, opts ...Option) (*Facade, error) {
	opts = append(opts, WithRecursive(RecursiveOff))
	return Anchor(value, opts...)
}

// Raw returns a fully unwrapped, cycle-safe deep copy of f's value
// with every reactive child resolved back to a plain value (spec.md
// §4.10). It is the inverse of Anchor: the value a consumer can hand
// to json.Marshal or a persistence driver without reactive plumbing
// attached.
func Raw(f *Facade) any {
	return Snapshot(f)
}

// Destroy tears down f's state: subscribers are dropped, outgoing
// relation edges unlinked, and the identity removed from the registry
// (spec.md §4.1, §4.4 invariant 3). Idempotent.
func Destroy(f *Facade) {
	if m, ok := reg.metaOf(f); ok {
		m.destroy()
	}
}

// Assign is record-only sugar for f.Assign, provided so generic code
// holding only a *Facade (not knowing it is a record ahead of time)
// can attempt a merge and get ErrWrongKind back rather than a panic.
func Assign(f *Facade, partial map[string]any) error {
	if f.Kind() != KindRecord {
		return ErrWrongKind
	}
	return f.Assign(partial)
}

// Keys returns a uniform view of f's member keys regardless of kind:
// field names for a record, indices-as-strings for a sequence, and
// each member's string form for a keyed or unordered collection.
func Keys(f *Facade) []string {
	switch f.Kind() {
	case KindRecord:
		return f.Keys()
	case KindSequence:
		n := f.Len()
		out := make([]string, n)
		for i := 0; i < n; i++ {
			out[i] = stringify(i)
		}
		return out
	case KindKeyed:
		return f.keyedKeys()
	case KindUnordered:
		return f.unorderedKeys()
	default:
		return nil
	}
}

// facadeValue is the value passed to subscriber handlers alongside
// each Event: f's current backing container, untracked (a subscriber
// callback is not a tracking context).
func facadeValue(f *Facade) any {
	m, ok := reg.metaOf(f)
	if !ok {
		return nil
	}
	return rawOf(m)
}

// Len reports the element count of f regardless of kind: map size for
// a record, slice length for a sequence, entry/member count for a
// keyed or unordered collection.
func Len(f *Facade) int {
	switch f.Kind() {
	case KindRecord:
		return len(f.Keys())
	case KindSequence:
		return f.Len()
	case KindKeyed:
		return f.KeyedLen()
	case KindUnordered:
		return f.SetLen()
	default:
		return 0
	}
}
