package anchor

import "log/slog"

// Subscribe registers handler on f's state and returns an idempotent
// unsubscribe closure. handler is invoked once immediately with a
// synthetic init event, then once per subsequent mutation event in
// registration order (spec.md §4.5, §4.9, §8 "Subscription fairness").
func Subscribe(f *Facade, handler func(value any, ev Event)) (unsubscribe func()) {
	m, ok := reg.metaOf(f)
	if !ok || handler == nil {
		return func() {}
	}
	id := m.addSubscriber(handler)

	var once bool
	unsub := func() {
		if once {
			return
		}
		once = true
		m.removeSubscriber(id)
	}

	safeInvoke(m, handler, f, Event{Type: EventInit, Keys: []string{}})
	return unsub
}

// emit is the single entry point used by facade traps after a
// successful mutation: it marks m busy, delivers ev to m's own
// observers and subscribers, bubbles ev to relation-graph ancestors,
// and only then clears the busy mark. If m is already busy (a subscriber wrote
// back to m during its own emission) the delivery is skipped entirely,
// per invariant 4 and §5 ordering rule 3 — the mutation still applies,
// it simply does not re-broadcast for this transaction root.
func emit(m *Meta, ev Event) {
	if !reg.markBusy(m) {
		return
	}
	deliver(m, ev)
	bubble(m, ev)
	reg.unmarkBusy(m)
}

// deliver fans ev out to key-targeted observers first, then to
// subscribers in registration order (§4.5, §5 ordering rule 1: the
// specification's resolution of the observers-vs-subscribers Open
// Question). Handler panics are recovered, reported, and do not
// prevent later handlers from running.
func deliver(m *Meta, ev Event) {
	if ev.Type != EventInit {
		notified := make(map[*Observer]struct{})
		keys := ev.Keys
		if len(keys) == 0 {
			// Sequence-wide and whole-container events target the
			// reserved @seq observers only.
			keys = []string{SeqKey}
		}
		for _, key := range keys {
			for _, o := range m.observersFor(key) {
				if _, done := notified[o]; done {
					continue
				}
				notified[o] = struct{}{}
				o.notifyOnce()
			}
		}
	}

	for _, s := range m.subscriberSnapshot() {
		safeInvoke(m, s.handler, m.facade, ev)
	}
}

func safeInvoke(m *Meta, handler func(value any, ev Event), f *Facade, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			reportViolation(Violation{Kind: ViolationHandlerPanic, ID: m.id, Panic: r})
			log.Error("anchor: subscriber handler panicked", slog.Any("panic", r))
		}
	}()
	handler(facadeValue(f), ev)
}
