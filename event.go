package anchor

// EventType names the canonical shape of a mutation event (spec.md §4.3, §6).
type EventType string

const (
	EventInit   EventType = "init"
	EventSet    EventType = "set"
	EventDelete EventType = "delete"
	EventAssign EventType = "assign"
	EventClear  EventType = "clear"

	// Sequence operations.
	EventPush       EventType = "push"
	EventPop        EventType = "pop"
	EventShift      EventType = "shift"
	EventUnshift    EventType = "unshift"
	EventSplice     EventType = "splice"
	EventSort       EventType = "sort"
	EventReverse    EventType = "reverse"
	EventFill       EventType = "fill"
	EventCopyWithin EventType = "copyWithin"

	// Keyed/unordered collection operations reuse EventSet/EventDelete/
	// EventClear; EventAdd distinguishes the unordered "add" verb from a
	// record "set".
	EventAdd EventType = "add"

	// EventViolation names the event type for a reported-not-thrown
	// failure (§7). The core does not emit events of this type itself:
	// violations reach OnViolation and the logger, not subscribers.
	EventViolation EventType = "violation"
)

// Event is the canonical payload delivered to subscribers and used to
// drive observer notification (spec.md §3, §4.3).
type Event struct {
	Type  EventType
	Keys  []string
	Prev  any
	Value any
	Err   error
}

// prefixed returns a copy of e with key prepended to Keys, used when a
// parent re-emits a child's event (spec.md §4.3, §4.4).
func (e Event) prefixed(key string) Event {
	keys := make([]string, 0, len(e.Keys)+1)
	keys = append(keys, key)
	keys = append(keys, e.Keys...)
	e.Keys = keys
	return e
}

// HasPrefix reports whether keys starts with prefix, by ordered
// element equality, for consumers that subscribe at intermediate depth
// and filter bubbled events by path.
func HasPrefix(keys, prefix []string) bool {
	if len(prefix) > len(keys) {
		return false
	}
	for i, k := range prefix {
		if keys[i] != k {
			return false
		}
	}
	return true
}
