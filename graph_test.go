package anchor

import "testing"

func TestGraph_UnlinksWhenLastSubscriberLeaves(t *testing.T) {
	f, _ := Anchor(map[string]any{"child": map[string]any{"v": 1}})

	var events int
	unsub := Subscribe(f, func(_ any, _ Event) { events++ })

	child, _ := f.Get("child")
	cf := child.(*Facade)

	if err := cf.Set("v", 2); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if events != 2 { // init + bubbled set
		t.Fatalf("events = %d, want 2", events)
	}

	unsub()

	if err := cf.Set("v", 3); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if events != 2 {
		t.Errorf("events = %d after unsubscribe, want still 2 (edge should be torn down)", events)
	}
}

func TestGraph_NoLinkingWithoutSubscriberOrObserver(t *testing.T) {
	f, _ := Anchor(map[string]any{"child": map[string]any{"v": 1}})

	child, _ := f.Get("child")
	cf := child.(*Facade)

	var parentEvents int
	Subscribe(f, func(_ any, _ Event) { parentEvents++ })
	// The read above happened before any subscriber existed, so no edge
	// was created for it; a fresh read is needed to (re)materialize one.
	baseline := parentEvents

	if err := cf.Set("v", 9); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if parentEvents != baseline {
		t.Errorf("parentEvents = %d, want %d (no edge until the child is re-read)", parentEvents, baseline)
	}
}

func TestGraph_RecursiveFlatWrapsButDoesNotLink(t *testing.T) {
	f, _ := Anchor(map[string]any{"child": map[string]any{"v": 1}}, WithRecursive(RecursiveFlat))

	var events int
	Subscribe(f, func(_ any, _ Event) { events++ })

	child, ok := f.Get("child")
	if !ok {
		t.Fatalf("Get(\"child\") missing")
	}
	cf, ok := child.(*Facade)
	if !ok {
		t.Fatalf("Get(\"child\") = %T, want *Facade even under RecursiveFlat", child)
	}

	baseline := events
	if err := cf.Set("v", 2); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if events != baseline {
		t.Errorf("events = %d, want %d (RecursiveFlat must not bubble)", events, baseline)
	}
}
