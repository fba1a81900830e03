package anchor

import (
	"sort"
	"strconv"
)

// --- sequence operations ---

// Len reports the element count, tracking a whole-container read.
func (f *Facade) Len() int {
	m := f.meta
	if m.kind != KindSequence || m.isDestroyed() {
		return 0
	}
	trackRead(m, SeqKey)
	rs := m.raw.(*rawSequence)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.data)
}

// At returns the element at index i, resolving and linking a linkable
// child per spec.md §4.2's read trap, exactly as a record's Get does.
func (f *Facade) At(i int) (any, bool) {
	m := f.meta
	if m.kind != KindSequence || m.isDestroyed() {
		return nil, false
	}
	key := strconv.Itoa(i)
	rs := m.raw.(*rawSequence)

	rs.mu.Lock()
	if i < 0 || i >= len(rs.data) {
		rs.mu.Unlock()
		trackRead(m, SeqKey)
		return nil, false
	}
	slot := rs.data[i]
	rs.mu.Unlock()

	// Sequence reads register sequence-wide interest (spec.md §4.2 step
	// 1): position-shifting operations invalidate every element read.
	trackRead(m, SeqKey)
	value, circular := resolveSlot(m, key, slot, func(v any) {
		rs.mu.Lock()
		if i < len(rs.data) {
			rs.data[i] = v
		}
		rs.mu.Unlock()
	})
	if circular {
		reportViolation(Violation{Kind: ViolationCircular, ID: m.id, Key: key})
	}
	return value, true
}

// SetAt writes value at index i. Out of range reports ErrOutOfRange. A
// no-op if value equals the current element.
func (f *Facade) SetAt(i int, value any) error {
	m := f.meta
	if m.kind != KindSequence {
		return reportAndZero(m, ViolationReservedKey, strconv.Itoa(i), ErrWrongKind)
	}
	if m.isDestroyed() {
		return reportAndZero(m, ViolationDestroyedOp, strconv.Itoa(i), ErrDestroyed)
	}
	if f.effectiveImmutable() {
		return reportAndZero(m, ViolationImmutableWrite, strconv.Itoa(i), ErrImmutable)
	}

	key := strconv.Itoa(i)
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

	rs := m.raw.(*rawSequence)
	rs.mu.Lock()
	if i < 0 || i >= len(rs.data) {
		rs.mu.Unlock()
		return ErrOutOfRange
	}
	prev := rs.data[i]
	if isSameValue(prev, parsed) {
		rs.mu.Unlock()
		return nil
	}
	rs.data[i] = parsed
	rs.mu.Unlock()

	if prevMeta, ok := childMetaOf(prev); ok {
		unlinkChild(m, prevMeta)
	}

	emit(m, Event{Type: EventSet, Keys: []string{key}, Prev: unwrapPrev(prev), Value: parsed})
	return nil
}

// gateItems validates each of items against the sequence's item schema
// (spec.md §4.7): strict-mode failure aborts the whole operation;
// lenient-mode failure reports a violation and discards the whole
// operation rather than just the offending item, per §4.7's "parse
// each added item ... on failure in strict mode abort the whole
// operation, in lenient mode skip the operation and report".
func gateItems(m *Meta, items []any) ([]any, error) {
	if m.configs.Schema == nil || len(items) == 0 {
		return items, nil
	}
	parsed := make([]any, len(items))
	for i, v := range items {
		p, err := gate(m.configs.Schema, "", v, m.configs.Strict)
		if err != nil {
			return nil, err
		}
		parsed[i] = p
	}
	return parsed, nil
}

// seqPrevSnapshot copies the sequence's current contents with reactive
// children unwrapped, for use as a sequence event's Prev payload
// (spec.md §6: "prev carries the pre-mutation snapshot").
func seqPrevSnapshot(rs *rawSequence) []any {
	rs.mu.Lock()
	items := make([]any, len(rs.data))
	copy(items, rs.data)
	rs.mu.Unlock()
	out := make([]any, len(items))
	for i, v := range items {
		out[i] = unwrapPrev(v)
	}
	return out
}

// Push appends items to the end, emitting one "push" event whose Prev
// is the pre-mutation snapshot and whose Value is the appended slice.
// A sequence event carries no Keys of its own; ancestors prefix theirs
// as it bubbles (spec.md §4.3, §6).
func (f *Facade) Push(items ...any) error {
	m := f.meta
	if err := checkMutable(f, KindSequence, ""); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	items, err := gateItems(m, items)
	if err != nil {
		if err == errDiscardedWrite {
			return nil
		}
		return err
	}

	rs := m.raw.(*rawSequence)
	prev := seqPrevSnapshot(rs)
	rs.mu.Lock()
	rs.data = append(rs.data, items...)
	rs.mu.Unlock()

	emit(m, Event{Type: EventPush, Keys: []string{}, Prev: prev, Value: items})
	return nil
}

// Pop removes and returns the last element.
func (f *Facade) Pop() (any, error) {
	m := f.meta
	if err := checkMutable(f, KindSequence, ""); err != nil {
		return nil, err
	}
	rs := m.raw.(*rawSequence)
	rs.mu.Lock()
	n := len(rs.data)
	if n == 0 {
		rs.mu.Unlock()
		return nil, nil
	}
	last := rs.data[n-1]
	rs.data = rs.data[:n-1]
	rs.mu.Unlock()

	if prevMeta, ok := childMetaOf(last); ok {
		unlinkChild(m, prevMeta)
	}
	emit(m, Event{Type: EventPop, Keys: []string{}, Prev: unwrapPrev(last)})
	return last, nil
}

// Shift removes and returns the first element.
func (f *Facade) Shift() (any, error) {
	m := f.meta
	if err := checkMutable(f, KindSequence, ""); err != nil {
		return nil, err
	}
	rs := m.raw.(*rawSequence)
	rs.mu.Lock()
	if len(rs.data) == 0 {
		rs.mu.Unlock()
		return nil, nil
	}
	first := rs.data[0]
	rs.data = rs.data[1:]
	rs.mu.Unlock()

	if prevMeta, ok := childMetaOf(first); ok {
		unlinkChild(m, prevMeta)
	}
	emit(m, Event{Type: EventShift, Keys: []string{}, Prev: unwrapPrev(first)})
	return first, nil
}

// Unshift prepends items to the front, emitting one "unshift" event.
func (f *Facade) Unshift(items ...any) error {
	m := f.meta
	if err := checkMutable(f, KindSequence, ""); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	items, err := gateItems(m, items)
	if err != nil {
		if err == errDiscardedWrite {
			return nil
		}
		return err
	}

	rs := m.raw.(*rawSequence)
	prev := seqPrevSnapshot(rs)
	rs.mu.Lock()
	rs.data = append(append(make([]any, 0, len(items)+len(rs.data)), items...), rs.data...)
	rs.mu.Unlock()

	emit(m, Event{Type: EventUnshift, Keys: []string{}, Prev: prev, Value: items})
	return nil
}

// Splice removes deleteCount elements starting at start and inserts
// items in their place, returning the removed elements (spec.md §6).
func (f *Facade) Splice(start, deleteCount int, items ...any) ([]any, error) {
	m := f.meta
	if err := checkMutable(f, KindSequence, ""); err != nil {
		return nil, err
	}
	items, err := gateItems(m, items)
	if err != nil {
		if err == errDiscardedWrite {
			return nil, nil
		}
		return nil, err
	}

	rs := m.raw.(*rawSequence)
	rs.mu.Lock()
	n := len(rs.data)
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	if deleteCount < 0 {
		deleteCount = 0
	}
	if start+deleteCount > n {
		deleteCount = n - start
	}
	removed := make([]any, deleteCount)
	copy(removed, rs.data[start:start+deleteCount])

	tail := append([]any{}, rs.data[start+deleteCount:]...)
	rs.data = append(rs.data[:start], items...)
	rs.data = append(rs.data, tail...)
	rs.mu.Unlock()

	for _, v := range removed {
		if prevMeta, ok := childMetaOf(v); ok {
			unlinkChild(m, prevMeta)
		}
	}

	prevSnap := make([]any, len(removed))
	for i, v := range removed {
		prevSnap[i] = unwrapPrev(v)
	}
	emit(m, Event{Type: EventSplice, Keys: []string{}, Prev: prevSnap, Value: items})
	return removed, nil
}

// Sort reorders elements in place using less, emitting one "sort"
// event whose Prev is a copy of the prior order. Elements still held as
// reactive children keep their facade identity; only their position
// changes.
func (f *Facade) Sort(less func(a, b any) bool) error {
	m := f.meta
	if err := checkMutable(f, KindSequence, ""); err != nil {
		return err
	}
	rs := m.raw.(*rawSequence)
	prev := seqPrevSnapshot(rs)
	rs.mu.Lock()
	sort.SliceStable(rs.data, func(i, j int) bool { return less(rs.data[i], rs.data[j]) })
	rs.mu.Unlock()

	emit(m, Event{Type: EventSort, Keys: []string{}, Prev: prev})
	return nil
}

// Reverse reverses element order in place, emitting one "reverse"
// event whose Prev is a copy of the prior order.
func (f *Facade) Reverse() error {
	m := f.meta
	if err := checkMutable(f, KindSequence, ""); err != nil {
		return err
	}
	rs := m.raw.(*rawSequence)
	prev := seqPrevSnapshot(rs)
	rs.mu.Lock()
	for i, j := 0, len(rs.data)-1; i < j; i, j = i+1, j-1 {
		rs.data[i], rs.data[j] = rs.data[j], rs.data[i]
	}
	rs.mu.Unlock()

	emit(m, Event{Type: EventReverse, Keys: []string{}, Prev: prev})
	return nil
}

// Fill overwrites elements in [start, end) with value, emitting one
// "fill" event.
func (f *Facade) Fill(value any, start, end int) error {
	m := f.meta
	if err := checkMutable(f, KindSequence, ""); err != nil {
		return err
	}
	filled, err := gateItems(m, []any{value})
	if err != nil {
		if err == errDiscardedWrite {
			return nil
		}
		return err
	}
	value = filled[0]

	rs := m.raw.(*rawSequence)
	prev := seqPrevSnapshot(rs)
	rs.mu.Lock()
	n := len(rs.data)
	start, end = clampRange(start, end, n)
	var displaced []any
	for i := start; i < end; i++ {
		displaced = append(displaced, rs.data[i])
		rs.data[i] = value
	}
	rs.mu.Unlock()

	for _, v := range displaced {
		if prevMeta, ok := childMetaOf(v); ok {
			unlinkChild(m, prevMeta)
		}
	}

	emit(m, Event{Type: EventFill, Keys: []string{}, Prev: prev, Value: []any{value, start, end}})
	return nil
}

// CopyWithin copies the slice [start, end) over the elements starting
// at target, in place: the length does not change and any part of the
// copy that would run past the end is dropped. Emits one "copyWithin"
// event.
func (f *Facade) CopyWithin(target, start, end int) error {
	m := f.meta
	if err := checkMutable(f, KindSequence, ""); err != nil {
		return err
	}
	rs := m.raw.(*rawSequence)
	prev := seqPrevSnapshot(rs)
	rs.mu.Lock()
	n := len(rs.data)
	start, end = clampRange(start, end, n)
	target = clampIndex(target, n)
	segment := append([]any{}, rs.data[start:end]...)
	for i, v := range segment {
		if target+i >= n {
			break
		}
		rs.data[target+i] = v
	}
	rs.mu.Unlock()

	emit(m, Event{Type: EventCopyWithin, Keys: []string{}, Prev: prev, Value: []any{target, start, end}})
	return nil
}

func clampRange(start, end, n int) (int, int) {
	start = clampIndex(start, n)
	end = clampIndex(end, n)
	if end < start {
		end = start
	}
	return start, end
}

func clampIndex(i, n int) int {
	if i < 0 {
		i = 0
	}
	if i > n {
		i = n
	}
	return i
}

func checkMutable(f *Facade, want Kind, key string) error {
	m := f.meta
	if m.kind != want {
		return reportAndZero(m, ViolationReservedKey, key, ErrWrongKind)
	}
	if m.isDestroyed() {
		return reportAndZero(m, ViolationDestroyedOp, key, ErrDestroyed)
	}
	if f.effectiveImmutable() {
		return reportAndZero(m, ViolationImmutableWrite, key, ErrImmutable)
	}
	return nil
}
