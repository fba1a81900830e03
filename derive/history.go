package derive

import (
	"sync"
	"sync/atomic"

	"github.com/go-mizu/anchor"
)

// HistoryOption configures a call to History.
type HistoryOption func(*Hist)

// WithMaxHistory bounds the backward stack to the n most recent
// mutations; older entries are dropped silently, the same trade-off
// anchor's batch package makes for coalesced notification.
func WithMaxHistory(n int) HistoryOption {
	return func(h *Hist) { h.maxHistory = n }
}

// Hist is an undo/redo log over one facade's mutation stream (spec.md
// §4.9's history).
type Hist struct {
	f *anchor.Facade

	mu         sync.Mutex
	backward   []anchor.Event
	forward    []anchor.Event
	maxHistory int

	muted atomic.Bool
	unsub func()
}

// History starts recording f's mutation events for undo/redo.
func History(f *anchor.Facade, opts ...HistoryOption) *Hist {
	h := &Hist{f: f}
	for _, o := range opts {
		o(h)
	}
	h.unsub = anchor.Subscribe(f, func(_ any, ev anchor.Event) {
		if ev.Type == anchor.EventInit || h.muted.Load() {
			return
		}
		h.mu.Lock()
		h.backward = append(h.backward, ev)
		if h.maxHistory > 0 && len(h.backward) > h.maxHistory {
			h.backward = h.backward[len(h.backward)-h.maxHistory:]
		}
		h.forward = nil
		h.mu.Unlock()
	})
	return h
}

// CanBackward reports whether Backward has anything to undo.
func (h *Hist) CanBackward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.backward) > 0
}

// CanForward reports whether Forward has anything to redo.
func (h *Hist) CanForward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.forward) > 0
}

// BackwardList returns the events Backward would undo, most recent
// last.
func (h *Hist) BackwardList() []anchor.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]anchor.Event, len(h.backward))
	copy(out, h.backward)
	return out
}

// ForwardList returns the events Forward would redo, most recently
// undone last.
func (h *Hist) ForwardList() []anchor.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]anchor.Event, len(h.forward))
	copy(out, h.forward)
	return out
}

// Backward undoes the most recent recorded mutation, moving it onto
// the forward (redo) stack. A no-op if there is nothing to undo. A
// splice entry is moved to the forward stack but f is left unchanged.
func (h *Hist) Backward() {
	h.mu.Lock()
	n := len(h.backward)
	if n == 0 {
		h.mu.Unlock()
		return
	}
	ev := h.backward[n-1]
	h.backward = h.backward[:n-1]
	h.forward = append(h.forward, ev)
	h.mu.Unlock()

	h.muted.Store(true)
	applyBackward(h.f, ev)
	h.muted.Store(false)
}

// Forward redoes the most recently undone mutation, moving it back
// onto the backward (undo) stack. A no-op if there is nothing to
// redo. A sort, splice or copyWithin entry is moved back to the
// backward stack but f is left unchanged.
func (h *Hist) Forward() {
	h.mu.Lock()
	n := len(h.forward)
	if n == 0 {
		h.mu.Unlock()
		return
	}
	ev := h.forward[n-1]
	h.forward = h.forward[:n-1]
	h.backward = append(h.backward, ev)
	h.mu.Unlock()

	h.muted.Store(true)
	applyForward(h.f, ev)
	h.muted.Store(false)
}

// Reset undoes every recorded mutation, returning f to the state it
// was in when History started.
func (h *Hist) Reset() {
	for h.CanBackward() {
		h.Backward()
	}
}

// Clear discards all recorded history without mutating f.
func (h *Hist) Clear() {
	h.mu.Lock()
	h.backward = nil
	h.forward = nil
	h.mu.Unlock()
}

// Destroy stops recording and discards all recorded history.
func (h *Hist) Destroy() {
	h.unsub()
	h.Clear()
}

func eventKey(ev anchor.Event) string {
	if len(ev.Keys) > 0 {
		return ev.Keys[0]
	}
	return ""
}

// applyBackward reverses ev against f. A set is reversed by writing
// Prev back, so a key that the set newly added is left holding nil
// rather than removed. Splice events are not reversed.
func applyBackward(f *anchor.Facade, ev anchor.Event) {
	key := eventKey(ev)
	switch ev.Type {
	case anchor.EventSet:
		setByKind(f, key, ev.Prev)
	case anchor.EventDelete:
		if f.Kind() == anchor.KindUnordered {
			_ = f.Add(ev.Prev)
			return
		}
		setByKind(f, key, ev.Prev)
	case anchor.EventAssign:
		if m, ok := ev.Prev.(map[string]any); ok {
			_ = f.Assign(m)
		}
	case anchor.EventPush:
		if items, ok := ev.Value.([]any); ok {
			for range items {
				_, _ = f.Pop()
			}
		}
	case anchor.EventUnshift:
		if items, ok := ev.Value.([]any); ok {
			for range items {
				_, _ = f.Shift()
			}
		}
	case anchor.EventPop:
		if ev.Prev != nil {
			_ = f.Push(ev.Prev)
		}
	case anchor.EventShift:
		if ev.Prev != nil {
			_ = f.Unshift(ev.Prev)
		}
	case anchor.EventAdd:
		_ = f.RemoveValue(ev.Value)
	case anchor.EventSort, anchor.EventReverse, anchor.EventFill, anchor.EventCopyWithin:
		// These carry the full prior order as Prev; restoring it is the
		// inverse regardless of what the operation did.
		if prev, ok := ev.Prev.([]any); ok {
			_, _ = f.Splice(0, f.Len(), prev...)
		}
	case anchor.EventClear:
		switch prev := ev.Prev.(type) {
		case []anchor.KeyValue:
			for _, kv := range prev {
				_ = f.SetKey(kv.Key, kv.Value)
			}
		case []any:
			for _, v := range prev {
				_ = f.Add(v)
			}
		}
	}
}

// applyForward replays ev against f. Sort, splice and copyWithin
// events are not replayed.
func applyForward(f *anchor.Facade, ev anchor.Event) {
	key := eventKey(ev)
	switch ev.Type {
	case anchor.EventSet:
		setByKind(f, key, ev.Value)
	case anchor.EventDelete:
		if f.Kind() == anchor.KindUnordered {
			_ = f.RemoveValue(ev.Prev)
			return
		}
		deleteByKind(f, key)
	case anchor.EventAssign:
		if m, ok := ev.Value.(map[string]any); ok {
			_ = f.Assign(m)
		}
	case anchor.EventPush:
		if items, ok := ev.Value.([]any); ok {
			_ = f.Push(items...)
		}
	case anchor.EventPop:
		_, _ = f.Pop()
	case anchor.EventShift:
		_, _ = f.Shift()
	case anchor.EventAdd:
		_ = f.Add(ev.Value)
	case anchor.EventUnshift:
		if items, ok := ev.Value.([]any); ok {
			_ = f.Unshift(items...)
		}
	case anchor.EventReverse:
		_ = f.Reverse()
	case anchor.EventFill:
		if args, ok := ev.Value.([]any); ok && len(args) == 3 {
			fillArgs(f, args)
		}
	case anchor.EventClear:
		clearByKind(f)
	}
}
