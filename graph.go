package anchor

// link creates a relation edge from parent to child keyed at key,
// materializing it only if the parent currently has subscribers, is
// itself bridged to a parent of its own, or an observer is active over
// a recursive read (spec.md §4.4). It is a no-op if the edge already
// exists.
func link(parent, child *Meta, key string) {
	if parent == nil || child == nil || parent == child {
		return
	}
	if parent.configs.Recursive == RecursiveFlat {
		return
	}
	parent.mu.Lock()
	bridged := parent.parent != nil
	parent.mu.Unlock()
	if !parent.hasSubscribers() && !bridged && getActiveObserver() == nil {
		return
	}
	if parent.hasSubscription(child) {
		return
	}

	child.mu.Lock()
	child.parent = parent
	child.parentKey = key
	child.mu.Unlock()

	unlink := func() {
		child.mu.Lock()
		if child.parent == parent {
			child.parent = nil
			child.parentKey = ""
		}
		child.mu.Unlock()
	}
	parent.addSubscription(child, unlink)
}

// unlinkChild removes the relation edge from parent to child, if any.
func unlinkChild(parent, child *Meta) {
	if parent == nil || child == nil {
		return
	}
	if unlink, ok := parent.removeSubscription(child); ok {
		unlink()
	}
}

// unlinkAll tears down every outgoing edge from m, used when m's last
// subscriber leaves (spec.md §4.4) and when m is destroyed.
func unlinkAll(m *Meta) {
	for _, unlink := range m.allSubscriptions() {
		unlink()
	}
}

// bubble re-emits ev from m's relation-graph ancestors upward,
// prepending each ancestor's own key as it goes, guarded by the busy
// set to prevent loops (spec.md §4.4, §4.5, invariant 4). init events
// are never propagated upward. It assumes the caller has already
// delivered ev to m itself. Every ancestor reached stays on the busy
// set until the whole transaction has been delivered, so a handler
// writing back into any state along the path mutates without
// re-broadcasting for this transaction root.
func bubble(m *Meta, ev Event) {
	if ev.Type == EventInit {
		return
	}
	var marked []*Meta
	cur := m
	event := ev
	for {
		cur.mu.Lock()
		parent := cur.parent
		key := cur.parentKey
		cur.mu.Unlock()
		if parent == nil {
			break
		}
		event = event.prefixed(key)
		if !reg.markBusy(parent) {
			// Already emitting for this transaction root; stop ascending
			// rather than re-entering (invariant 4, §5 ordering rule 3).
			break
		}
		marked = append(marked, parent)
		deliver(parent, event)
		cur = parent
	}
	for _, p := range marked {
		reg.unmarkBusy(p)
	}
}
