package derive

import (
	"testing"

	"github.com/go-mizu/anchor"
)

func TestDerive_ReceivesSubtreeEventsImmediately(t *testing.T) {
	f, _ := anchor.Anchor(map[string]any{
		"user": map[string]any{"name": "ada"},
	})

	var events []anchor.Event
	unsub := Derive(f, func(_ any, ev anchor.Event) { events = append(events, ev) })
	defer unsub()

	// Derive's initial walk established the edge, so a child write must
	// bubble without the caller re-reading the child first.
	child, _ := f.Get("user")
	cf := child.(*anchor.Facade)
	if err := cf.Set("name", "grace"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("received %d events, want 2 (init + bubbled set)", len(events))
	}
	ev := events[1]
	if ev.Type != anchor.EventSet || len(ev.Keys) != 2 || ev.Keys[0] != "user" || ev.Keys[1] != "name" {
		t.Errorf("bubbled event = %+v, want set [user name]", ev)
	}
}

func TestPipe_ForwardsSetsOntoDestination(t *testing.T) {
	src, _ := anchor.Anchor(map[string]any{"n": 0})
	dst, _ := anchor.Anchor(map[string]any{"n": 0})

	unsub := Pipe(src, dst)
	defer unsub()

	if err := src.Set("n", 5); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, _ := dst.Get("n"); got != 5 {
		t.Errorf("dst n = %v, want 5", got)
	}
}

func TestPipe_TransformRecomputesValue(t *testing.T) {
	src, _ := anchor.Anchor(map[string]any{"n": 0})
	dst, _ := anchor.Anchor(map[string]any{"n": 0})

	unsub := Pipe(src, dst, func(snap any) any {
		m := snap.(map[string]any)
		if n, ok := m["n"].(int); ok {
			m["n"] = n * 2
		}
		return m
	})
	defer unsub()

	if err := src.Set("n", 3); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, _ := dst.Get("n"); got != 6 {
		t.Errorf("dst n = %v, want 6 (transformed)", got)
	}
}

func TestPipe_ForwardsSequenceOps(t *testing.T) {
	src, _ := anchor.Anchor([]any{1})
	dst, _ := anchor.Anchor([]any{1})

	unsub := Pipe(src, dst)
	defer unsub()

	if err := src.Push(2, 3); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if got := dst.Len(); got != 3 {
		t.Errorf("dst Len() = %d, want 3", got)
	}
	if _, err := src.Pop(); err != nil {
		t.Fatalf("Pop() error = %v", err)
	}
	if got := dst.Len(); got != 2 {
		t.Errorf("dst Len() after pop = %d, want 2", got)
	}
}

func TestBind_PropagatesBothWaysWithoutOscillation(t *testing.T) {
	a, _ := anchor.Anchor(map[string]any{"n": 0})
	b, _ := anchor.Anchor(map[string]any{"n": 0})

	var aEvents, bEvents int
	anchor.Subscribe(a, func(_ any, ev anchor.Event) {
		if ev.Type != anchor.EventInit {
			aEvents++
		}
	})
	anchor.Subscribe(b, func(_ any, ev anchor.Event) {
		if ev.Type != anchor.EventInit {
			bEvents++
		}
	})

	unbind := Bind(a, b, nil, nil)
	defer unbind()

	if err := a.Set("n", 5); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, _ := a.Get("n"); got != 5 {
		t.Errorf("a n = %v, want 5", got)
	}
	if got, _ := b.Get("n"); got != 5 {
		t.Errorf("b n = %v, want 5", got)
	}
	if aEvents != 1 || bEvents != 1 {
		t.Errorf("events a=%d b=%d, want exactly one each (no oscillation)", aEvents, bEvents)
	}

	if err := b.Set("n", 10); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, _ := a.Get("n"); got != 10 {
		t.Errorf("a n = %v, want 10", got)
	}
	if got, _ := b.Get("n"); got != 10 {
		t.Errorf("b n = %v, want 10", got)
	}
	if aEvents != 2 || bEvents != 2 {
		t.Errorf("events a=%d b=%d, want exactly two each", aEvents, bEvents)
	}
}

func TestImmutableAndWritableViews(t *testing.T) {
	f, _ := anchor.Anchor(map[string]any{"a": 1})

	ro := Immutable(f)
	if err := ro.Set("a", 2); err != anchor.ErrImmutable {
		t.Errorf("Set() on immutable view error = %v, want ErrImmutable", err)
	}

	rw := Writable(ro)
	if err := rw.Set("a", 2); err != nil {
		t.Fatalf("Set() on writable view error = %v", err)
	}
	if got, _ := f.Get("a"); got != 2 {
		t.Errorf("original value = %v, want 2 (views share storage)", got)
	}
}
