// Package anchor wraps ordinary Go values — records (map[string]any),
// sequences ([]any), keyed collections (*OrderedMap) and unordered
// collections (*OrderedSet) — in a façade that preserves their
// ergonomics while emitting precise change notifications, linking
// nested substates into a lifetime-managed dependency graph, and
// routing updates to subscribers (broadcast) and observers (tracking).
package anchor

import (
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// ID is the stable identity of an anchored state. It is a 16-byte
// value so registry keys compare cheaply and do not allocate.
type ID [16]byte

// String renders the ID in canonical UUID form.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

func newID() ID {
	return ID(uuid.New())
}

// Kind tags the shape of the raw value a Facade wraps.
type Kind int

const (
	KindRecord Kind = iota
	KindSequence
	KindKeyed
	KindUnordered
)

func (k Kind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindSequence:
		return "sequence"
	case KindKeyed:
		return "keyed"
	case KindUnordered:
		return "unordered"
	default:
		return "unknown"
	}
}

// Linkable reports whether v is a value anchor is willing to wrap:
// records, sequences, keyed maps and unordered sets. Primitives,
// dates, regexes, byte slices and values of any other shape are not
// linkable.
func Linkable(v any) bool {
	switch v.(type) {
	case map[string]any, []any, *OrderedMap, *OrderedSet:
		return true
	default:
		return false
	}
}

// lookupState describes what the registry knows about a value handed
// to Anchor or Get.
type lookupState int

const (
	lookupUnknown lookupState = iota
	lookupRaw
	lookupFacade
)

// registry is the process-wide identity table (C1). Four logical
// mappings share one struct and one lock: raw->facade, facade->raw
// (via meta.facade/meta.raw), facade->meta, and an init-alias map used
// to converge a value constructed by-value with the pointer that ends
// up owning canonical storage.
type registry struct {
	mu sync.RWMutex

	byRaw    map[any]*Meta // raw container pointer -> Meta
	byFacade map[*Facade]*Meta

	// byDataPtr maps the underlying map/slice data pointer of a
	// map[string]any or []any value to the Meta that first wrapped it,
	// so the read trap can recognize "this plain value is already the
	// backing store of some other known facade" (spec.md §4.2 read trap
	// step 2) even though map/slice values themselves cannot be used as
	// registry keys.
	byDataPtr map[uintptr]*Meta

	// busy holds the set of Meta currently emitting, guarding re-entrant
	// broadcast within one transaction (invariant 4, §5 ordering rule 3).
	busy map[*Meta]struct{}
}

var reg = &registry{
	byRaw:     make(map[any]*Meta),
	byFacade:  make(map[*Facade]*Meta),
	byDataPtr: make(map[uintptr]*Meta),
	busy:      make(map[*Meta]struct{}),
}

// lookup classifies x as unknown, a registered raw container, or a
// facade already returned by Anchor.
func (r *registry) lookup(x any) lookupState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f, ok := x.(*Facade); ok {
		if _, ok := r.byFacade[f]; ok {
			return lookupFacade
		}
		return lookupUnknown
	}
	if _, ok := r.byRaw[x]; ok {
		return lookupRaw
	}
	return lookupUnknown
}

func (r *registry) register(raw any, f *Facade, m *Meta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byRaw[raw]; ok {
		// Registering twice for the same raw value is a violation, not
		// an error: the existing facade wins (spec.md §4.1 Failure).
		reportViolation(Violation{Kind: ViolationDuplicateRegister, ID: existing.id})
		return
	}
	r.byRaw[raw] = m
	r.byFacade[f] = m
	if ptr, ok := dataPointer(m.dataValue()); ok {
		r.byDataPtr[ptr] = m
	}
}

// metaByDataPtr looks up a Meta by the underlying data pointer of a
// plain map[string]any/[]any value, for read-trap aliasing detection.
func (r *registry) metaByDataPtr(v any) (*Meta, bool) {
	ptr, ok := dataPointer(v)
	if !ok {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byDataPtr[ptr]
	return m, ok
}

func (r *registry) metaOf(f *Facade) (*Meta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byFacade[f]
	return m, ok
}

func (r *registry) metaOfRaw(raw any) (*Meta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byRaw[raw]
	return m, ok
}

func (r *registry) unregister(m *Meta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byRaw, m.raw)
	delete(r.byFacade, m.facade)
	if ptr, ok := dataPointer(m.dataValue()); ok {
		delete(r.byDataPtr, ptr)
	}
}

func (r *registry) markBusy(m *Meta) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.busy[m]; ok {
		return false
	}
	r.busy[m] = struct{}{}
	return true
}

func (r *registry) unmarkBusy(m *Meta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.busy, m)
}

func (r *registry) isBusy(m *Meta) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.busy[m]
	return ok
}

// kindOf reports the Kind for a linkable raw value.
func kindOf(v any) (Kind, bool) {
	switch v.(type) {
	case map[string]any:
		return KindRecord, true
	case []any:
		return KindSequence, true
	case *OrderedMap:
		return KindKeyed, true
	case *OrderedSet:
		return KindUnordered, true
	default:
		return 0, false
	}
}

// dataPointer returns the underlying data pointer of a map or slice
// value, for use as an aliasing-detection key. Anything else reports
// ok=false.
func dataPointer(v any) (uintptr, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	default:
		return 0, false
	}
}
