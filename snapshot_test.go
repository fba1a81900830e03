package anchor

import "testing"

func TestSnapshot_UnwrapsNestedFacades(t *testing.T) {
	f, _ := Anchor(map[string]any{
		"user": map[string]any{"name": "ada"},
		"tags": []any{"x", "y"},
	})
	// Read children so they are wrapped and the snapshot must unwrap.
	f.Get("user")
	f.Get("tags")

	snap, ok := Snapshot(f).(map[string]any)
	if !ok {
		t.Fatalf("Snapshot() = %T, want map[string]any", Snapshot(f))
	}
	user, ok := snap["user"].(map[string]any)
	if !ok || user["name"] != "ada" {
		t.Errorf("snap[user] = %v, want plain {name:ada}", snap["user"])
	}
	tags, ok := snap["tags"].([]any)
	if !ok || len(tags) != 2 || tags[0] != "x" {
		t.Errorf("snap[tags] = %v, want [x y]", snap["tags"])
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	f, _ := Anchor(map[string]any{"n": 1})
	snap := Snapshot(f).(map[string]any)

	if err := f.Set("n", 2); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if snap["n"] != 1 {
		t.Errorf("snapshot mutated with source, want independent copy")
	}
}

func TestSnapshot_CycleSafe(t *testing.T) {
	a, _ := Anchor(map[string]any{"name": "a"})
	b, _ := Anchor(map[string]any{"name": "b"})
	if err := a.Set("peer", b); err != nil {
		t.Fatalf("Set(peer) error = %v", err)
	}
	if err := b.Set("peer", a); err != nil {
		t.Fatalf("Set(peer) error = %v", err)
	}

	snap, ok := Snapshot(a).(map[string]any)
	if !ok {
		t.Fatalf("Snapshot() = %T, want map[string]any", Snapshot(a))
	}
	peer, ok := snap["peer"].(map[string]any)
	if !ok {
		t.Fatalf("snap[peer] = %T, want map[string]any", snap["peer"])
	}
	back, ok := peer["peer"].(map[string]any)
	if !ok {
		t.Fatalf("cycle was not reproduced: peer[peer] = %T", peer["peer"])
	}
	// The snapshot reproduces the cycle at the same position: following
	// peer.peer lands back on the copy of a, not a fresh expansion.
	if back["name"] != "a" || peer["name"] != "b" {
		t.Errorf("cycle does not point back at the same structure: %v", snap)
	}
}

func TestSet_SelfAssignmentIsNoOp(t *testing.T) {
	f, _ := Anchor(map[string]any{"name": "root"})

	var violations []Violation
	OnViolation(func(v Violation) { violations = append(violations, v) })
	defer OnViolation(nil)

	if err := f.Set("self", f); err != nil {
		t.Fatalf("Set(self) error = %v, want nil no-op", err)
	}
	if _, ok := f.Get("self"); ok {
		t.Errorf("self-assignment was stored, want no-op")
	}
	if len(violations) != 1 || violations[0].Kind != ViolationCircular {
		t.Errorf("violations = %+v, want one ViolationCircular", violations)
	}
}

func TestSoftEqual_IdentityAndShallow(t *testing.T) {
	m := map[string]any{"a": 1}
	if !SoftEqual(m, m) {
		t.Errorf("SoftEqual(m, m) = false, want true (identity)")
	}
	if SoftEqual(map[string]any{"a": 1}, map[string]any{"a": 2}) {
		t.Errorf("SoftEqual on differing records = true, want false")
	}
	if !SoftEqual(1, 1) || SoftEqual(1, 2) {
		t.Errorf("SoftEqual on primitives misbehaved")
	}
}

func TestSoftEqual_Deep(t *testing.T) {
	a := map[string]any{"user": map[string]any{"name": "ada"}}
	b := map[string]any{"user": map[string]any{"name": "ada"}}
	if !SoftEqual(a, b, true) {
		t.Errorf("SoftEqual(deep) = false, want true for structurally equal records")
	}
	b["user"].(map[string]any)["name"] = "grace"
	if SoftEqual(a, b, true) {
		t.Errorf("SoftEqual(deep) = true after divergence, want false")
	}
}

func TestSoftEqual_SnapshotRoundTrip(t *testing.T) {
	f, _ := Anchor(map[string]any{"a": 1, "list": []any{1, 2}})
	f.Get("list")

	if !SoftEqual(Snapshot(f), Snapshot(f), true) {
		t.Errorf("two snapshots of the same quiescent state are not SoftEqual")
	}
}

func TestHasPrefix(t *testing.T) {
	keys := []string{"todos", "0", "done"}
	if !HasPrefix(keys, []string{"todos"}) {
		t.Errorf("HasPrefix([todos 0 done], [todos]) = false, want true")
	}
	if !HasPrefix(keys, []string{"todos", "0"}) {
		t.Errorf("HasPrefix([todos 0 done], [todos 0]) = false, want true")
	}
	if HasPrefix(keys, []string{"done"}) {
		t.Errorf("HasPrefix([todos 0 done], [done]) = true, want false")
	}
	if HasPrefix([]string{"a"}, []string{"a", "b"}) {
		t.Errorf("HasPrefix with longer prefix = true, want false")
	}
}
