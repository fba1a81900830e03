package anchor

import "sync"

// SeqKey is the reserved observer key used for sequence-wide reads
// (iterating a sequence's length/order rather than one element).
const SeqKey = "@seq"

type subscriberEntry struct {
	id      uint64
	handler func(value any, ev Event)
}

// Meta is the process-wide metadata record for one anchored state
// (spec.md §3's M). Every Facade has exactly one Meta and vice versa.
type Meta struct {
	id   ID
	kind Kind
	raw  any // identity key into the registry; the concrete *rawRecord/*rawSequence/*OrderedMap/*OrderedSet
	facade *Facade

	root      *Meta // top-level ancestor, nil if this state is itself a root
	parent    *Meta
	parentKey string

	configs Configs

	mu            sync.Mutex
	subscribers   []subscriberEntry
	nextSubID     uint64
	subscriptions map[*Meta]func() // child Meta -> unlink closure (present iff subscribed AND read)
	observers     map[string]map[*Observer]struct{}
	destroyed     bool
}

func newMeta(kind Kind, raw any, root *Meta, cfg Configs) *Meta {
	return &Meta{
		id:            newID(),
		kind:          kind,
		raw:           raw,
		root:          root,
		configs:       cfg,
		subscriptions: make(map[*Meta]func()),
		observers:     make(map[string]map[*Observer]struct{}),
	}
}

// dataValue returns the plain map/slice value backing a record or
// sequence state, for aliasing-detection purposes; keyed/unordered
// states (already pointer types) return nil since they need no
// secondary identity key.
func (m *Meta) dataValue() any {
	switch rw := m.raw.(type) {
	case *rawRecord:
		return rw.data
	case *rawSequence:
		return rw.data
	default:
		return nil
	}
}

func (m *Meta) isDestroyed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyed
}

// addSubscriber registers handler and returns its subscription id.
func (m *Meta) addSubscriber(handler func(value any, ev Event)) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSubID++
	id := m.nextSubID
	m.subscribers = append(m.subscribers, subscriberEntry{id: id, handler: handler})
	return id
}

func (m *Meta) removeSubscriber(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.subscribers {
		if s.id == id {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			break
		}
	}
	// Losing the last subscriber eagerly tears down outgoing relation
	// edges (spec.md §4.4, invariant 3): child states remain registered
	// but are no longer bridged.
	if len(m.subscribers) == 0 {
		subs := m.subscriptions
		m.subscriptions = make(map[*Meta]func())
		m.mu.Unlock()
		for _, unlink := range subs {
			unlink()
		}
		m.mu.Lock()
	}
}

func (m *Meta) subscriberSnapshot() []subscriberEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]subscriberEntry, len(m.subscribers))
	copy(out, m.subscribers)
	return out
}

func (m *Meta) hasSubscribers() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers) > 0
}

func (m *Meta) hasSubscription(child *Meta) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.subscriptions[child]
	return ok
}

func (m *Meta) addSubscription(child *Meta, unlink func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[child] = unlink
}

func (m *Meta) removeSubscription(child *Meta) (func(), bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	unlink, ok := m.subscriptions[child]
	if ok {
		delete(m.subscriptions, child)
	}
	return unlink, ok
}

func (m *Meta) allSubscriptions() map[*Meta]func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[*Meta]func(), len(m.subscriptions))
	for k, v := range m.subscriptions {
		out[k] = v
	}
	return out
}

func (m *Meta) addObserver(key string, o *Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.observers[key]
	if !ok {
		set = make(map[*Observer]struct{})
		m.observers[key] = set
	}
	set[o] = struct{}{}
}

func (m *Meta) removeObserver(key string, o *Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.observers[key]; ok {
		delete(set, o)
		if len(set) == 0 {
			delete(m.observers, key)
		}
	}
}

// removeObserverEverywhere drops o from every key it registered on m,
// used by Observer.Destroy.
func (m *Meta) removeObserverEverywhere(o *Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, set := range m.observers {
		if _, ok := set[o]; ok {
			delete(set, o)
			if len(set) == 0 {
				delete(m.observers, key)
			}
		}
	}
}

func (m *Meta) observersFor(key string) []*Observer {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Observer
	if set, ok := m.observers[key]; ok {
		for o := range set {
			out = append(out, o)
		}
	}
	if key != SeqKey {
		if set, ok := m.observers[SeqKey]; ok {
			for o := range set {
				out = append(out, o)
			}
		}
	}
	return out
}

// destroy detaches all subscribers, unlinks all children and marks m
// defunct. Idempotent.
func (m *Meta) destroy() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.destroyed = true
	subs := m.subscriptions
	m.subscriptions = make(map[*Meta]func())
	m.subscribers = nil
	m.observers = make(map[string]map[*Observer]struct{})
	m.mu.Unlock()

	for _, unlink := range subs {
		unlink()
	}
	reg.unregister(m)
}
