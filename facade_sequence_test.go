package anchor

import "testing"

func TestSequence_PushEventShape(t *testing.T) {
	f, _ := Anchor([]any{1, 2})

	var events []Event
	Subscribe(f, func(_ any, ev Event) { events = append(events, ev) })

	if err := f.Push(3, 4); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("received %d events, want 2 (init + push)", len(events))
	}
	ev := events[1]
	if ev.Type != EventPush {
		t.Errorf("Type = %v, want push", ev.Type)
	}
	if len(ev.Keys) != 0 {
		t.Errorf("Keys = %v, want empty (ancestors prefix their own)", ev.Keys)
	}
	prev, ok := ev.Prev.([]any)
	if !ok || len(prev) != 2 || prev[0] != 1 || prev[1] != 2 {
		t.Errorf("Prev = %v, want pre-mutation snapshot [1 2]", ev.Prev)
	}
	value, ok := ev.Value.([]any)
	if !ok || len(value) != 2 || value[0] != 3 || value[1] != 4 {
		t.Errorf("Value = %v, want appended slice [3 4]", ev.Value)
	}
}

func TestSequence_NestedPathBubbling(t *testing.T) {
	f, _ := Anchor(map[string]any{
		"todos": []any{map[string]any{"id": 1, "done": false}},
	})

	var events []Event
	Subscribe(f, func(_ any, ev Event) { events = append(events, ev) })

	todos, _ := f.Get("todos")
	tf := todos.(*Facade)
	first, _ := tf.At(0)
	ff := first.(*Facade)

	if err := ff.Set("done", true); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := tf.Push(map[string]any{"id": 2, "done": false}); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	if len(events) != 3 {
		t.Fatalf("received %d events, want 3 (init, set, push)", len(events))
	}

	set := events[1]
	if set.Type != EventSet || len(set.Keys) != 3 ||
		set.Keys[0] != "todos" || set.Keys[1] != "0" || set.Keys[2] != "done" {
		t.Errorf("set event = %+v, want keys [todos 0 done]", set)
	}
	if set.Prev != false || set.Value != true {
		t.Errorf("set prev/value = %v/%v, want false/true", set.Prev, set.Value)
	}

	push := events[2]
	if push.Type != EventPush || len(push.Keys) != 1 || push.Keys[0] != "todos" {
		t.Errorf("push event = %+v, want keys [todos]", push)
	}
	prev, ok := push.Prev.([]any)
	if !ok || len(prev) != 1 {
		t.Fatalf("push Prev = %v, want one-element pre-mutation snapshot", push.Prev)
	}
	entry, ok := prev[0].(map[string]any)
	if !ok || entry["done"] != true {
		t.Errorf("push Prev[0] = %v, want unwrapped {id:1 done:true}", prev[0])
	}
}

func TestSequence_PopShiftCarryRemovedElement(t *testing.T) {
	f, _ := Anchor([]any{"a", "b", "c"})

	var events []Event
	Subscribe(f, func(_ any, ev Event) { events = append(events, ev) })

	if v, _ := f.Pop(); v != "c" {
		t.Fatalf("Pop() = %v, want c", v)
	}
	if v, _ := f.Shift(); v != "a" {
		t.Fatalf("Shift() = %v, want a", v)
	}

	if events[1].Type != EventPop || events[1].Prev != "c" {
		t.Errorf("pop event = %+v, want Prev c", events[1])
	}
	if events[2].Type != EventShift || events[2].Prev != "a" {
		t.Errorf("shift event = %+v, want Prev a", events[2])
	}
	if got := f.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestSequence_SpliceReturnsRemoved(t *testing.T) {
	f, _ := Anchor([]any{1, 2, 3, 4})

	var seen Event
	Subscribe(f, func(_ any, ev Event) { seen = ev })

	removed, err := f.Splice(1, 2, "x")
	if err != nil {
		t.Fatalf("Splice() error = %v", err)
	}
	if len(removed) != 2 || removed[0] != 2 || removed[1] != 3 {
		t.Errorf("Splice() removed = %v, want [2 3]", removed)
	}

	if seen.Type != EventSplice {
		t.Errorf("Type = %v, want splice", seen.Type)
	}
	prev, _ := seen.Prev.([]any)
	if len(prev) != 2 || prev[0] != 2 || prev[1] != 3 {
		t.Errorf("Prev = %v, want removed slice [2 3]", seen.Prev)
	}
	value, _ := seen.Value.([]any)
	if len(value) != 1 || value[0] != "x" {
		t.Errorf("Value = %v, want inserted [x]", seen.Value)
	}

	want := []any{1, "x", 4}
	for i, w := range want {
		if got, _ := f.At(i); got != w {
			t.Errorf("At(%d) = %v, want %v", i, got, w)
		}
	}
}

func TestSequence_SortAndReverseCarryPriorOrder(t *testing.T) {
	f, _ := Anchor([]any{3, 1, 2})

	var events []Event
	Subscribe(f, func(_ any, ev Event) { events = append(events, ev) })

	if err := f.Sort(func(a, b any) bool { return a.(int) < b.(int) }); err != nil {
		t.Fatalf("Sort() error = %v", err)
	}
	prev, _ := events[1].Prev.([]any)
	if len(prev) != 3 || prev[0] != 3 || prev[1] != 1 || prev[2] != 2 {
		t.Errorf("sort Prev = %v, want prior order [3 1 2]", events[1].Prev)
	}
	for i, w := range []any{1, 2, 3} {
		if got, _ := f.At(i); got != w {
			t.Errorf("At(%d) after sort = %v, want %v", i, got, w)
		}
	}

	if err := f.Reverse(); err != nil {
		t.Fatalf("Reverse() error = %v", err)
	}
	prev, _ = events[2].Prev.([]any)
	if len(prev) != 3 || prev[0] != 1 {
		t.Errorf("reverse Prev = %v, want prior order [1 2 3]", events[2].Prev)
	}
	if got, _ := f.At(0); got != 3 {
		t.Errorf("At(0) after reverse = %v, want 3", got)
	}
}

func TestSequence_FillCarriesArguments(t *testing.T) {
	f, _ := Anchor([]any{1, 2, 3})

	var seen Event
	Subscribe(f, func(_ any, ev Event) { seen = ev })

	if err := f.Fill(0, 1, 3); err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	args, ok := seen.Value.([]any)
	if !ok || len(args) != 3 || args[0] != 0 || args[1] != 1 || args[2] != 3 {
		t.Errorf("fill Value = %v, want arguments [0 1 3]", seen.Value)
	}
	for i, w := range []any{1, 0, 0} {
		if got, _ := f.At(i); got != w {
			t.Errorf("At(%d) = %v, want %v", i, got, w)
		}
	}
}

func TestSequence_CopyWithin(t *testing.T) {
	f, _ := Anchor([]any{1, 2, 3, 4, 5})

	if err := f.CopyWithin(0, 3, 5); err != nil {
		t.Fatalf("CopyWithin() error = %v", err)
	}
	for i, w := range []any{4, 5, 3, 4, 5} {
		if got, _ := f.At(i); got != w {
			t.Errorf("At(%d) = %v, want %v", i, got, w)
		}
	}
}

func TestSequence_SetAtOutOfRange(t *testing.T) {
	f, _ := Anchor([]any{1})
	if err := f.SetAt(5, 9); err != ErrOutOfRange {
		t.Errorf("SetAt(5) error = %v, want ErrOutOfRange", err)
	}
}

func TestSequence_ImmutableRejectsMutations(t *testing.T) {
	f, _ := Anchor([]any{1, 2}, WithImmutable(true))

	if err := f.Push(3); err != ErrImmutable {
		t.Errorf("Push() error = %v, want ErrImmutable", err)
	}
	if _, err := f.Pop(); err != ErrImmutable {
		t.Errorf("Pop() error = %v, want ErrImmutable", err)
	}
	if got := f.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2 (no mutation applied)", got)
	}
}

func TestSequence_FlatDoesNotBubbleElementWrites(t *testing.T) {
	f, _ := Anchor([]any{map[string]any{"name": "John"}}, WithRecursive(RecursiveFlat))

	var rootEvents int
	Subscribe(f, func(_ any, _ Event) { rootEvents++ })

	elem, ok := f.At(0)
	if !ok {
		t.Fatalf("At(0) missing")
	}
	ef, ok := elem.(*Facade)
	if !ok {
		t.Fatalf("At(0) = %T, want *Facade even under RecursiveFlat", elem)
	}

	var childEvent Event
	Subscribe(ef, func(_ any, ev Event) { childEvent = ev })

	baseline := rootEvents
	if err := ef.Set("name", "Jane"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if rootEvents != baseline {
		t.Errorf("root received %d extra events, want 0 under flat", rootEvents-baseline)
	}
	if childEvent.Type != EventSet || len(childEvent.Keys) != 1 || childEvent.Keys[0] != "name" {
		t.Errorf("child event = %+v, want set [name]", childEvent)
	}
	if childEvent.Prev != "John" || childEvent.Value != "Jane" {
		t.Errorf("child prev/value = %v/%v, want John/Jane", childEvent.Prev, childEvent.Value)
	}
}
