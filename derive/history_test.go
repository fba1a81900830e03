package derive

import (
	"testing"

	"github.com/go-mizu/anchor"
)

func TestHistory_BackwardForward(t *testing.T) {
	f, _ := anchor.Anchor(map[string]any{"count": 0})
	h := History(f)
	defer h.Destroy()

	f.Set("count", 1)
	f.Set("count", 2)

	if !h.CanBackward() || h.CanForward() {
		t.Fatalf("CanBackward/CanForward = %v/%v, want true/false", h.CanBackward(), h.CanForward())
	}

	h.Backward()
	if got, _ := f.Get("count"); got != 1 {
		t.Errorf("count after one Backward = %v, want 1", got)
	}
	h.Backward()
	if got, _ := f.Get("count"); got != 0 {
		t.Errorf("count after two Backward = %v, want 0", got)
	}

	h.Forward()
	if got, _ := f.Get("count"); got != 1 {
		t.Errorf("count after Forward = %v, want 1", got)
	}
	h.Forward()
	if got, _ := f.Get("count"); got != 2 {
		t.Errorf("count after two Forward = %v, want 2", got)
	}
}

func TestHistory_MaxHistoryEvictsOldest(t *testing.T) {
	f, _ := anchor.Anchor(map[string]any{"count": 0})
	h := History(f, WithMaxHistory(2))
	defer h.Destroy()

	f.Set("count", 1)
	f.Set("count", 2)
	f.Set("count", 3)
	f.Set("count", 4)

	if got := len(h.BackwardList()); got != 2 {
		t.Fatalf("BackwardList() holds %d entries, want 2", got)
	}

	h.Backward()
	if got, _ := f.Get("count"); got != 3 {
		t.Errorf("count after one Backward = %v, want 3", got)
	}
	h.Backward()
	if got, _ := f.Get("count"); got != 2 {
		t.Errorf("count after two Backward = %v, want 2 (oldest entries evicted)", got)
	}
	if h.CanBackward() {
		t.Errorf("CanBackward() = true past the eviction horizon, want false")
	}
}

func TestHistory_NewWriteClearsForward(t *testing.T) {
	f, _ := anchor.Anchor(map[string]any{"count": 0})
	h := History(f)
	defer h.Destroy()

	f.Set("count", 1)
	h.Backward()
	if !h.CanForward() {
		t.Fatalf("CanForward() = false after Backward, want true")
	}

	f.Set("count", 9)
	if h.CanForward() {
		t.Errorf("CanForward() = true after a fresh write, want false (forward cleared)")
	}
	if got := len(h.ForwardList()); got != 0 {
		t.Errorf("ForwardList() holds %d entries, want 0", got)
	}
}

func TestHistory_SequenceUndo(t *testing.T) {
	f, _ := anchor.Anchor([]any{1})
	h := History(f)
	defer h.Destroy()

	f.Push(2, 3)
	h.Backward()
	if got := f.Len(); got != 1 {
		t.Errorf("Len() after undoing push = %d, want 1", got)
	}
	h.Forward()
	if got := f.Len(); got != 3 {
		t.Errorf("Len() after redoing push = %d, want 3", got)
	}
}

func TestHistory_ResetRewindsEverything(t *testing.T) {
	f, _ := anchor.Anchor(map[string]any{"count": 0})
	h := History(f)
	defer h.Destroy()

	f.Set("count", 1)
	f.Set("count", 2)
	h.Reset()

	if got, _ := f.Get("count"); got != 0 {
		t.Errorf("count after Reset = %v, want 0", got)
	}
}

func TestHistory_DestroyStopsRecording(t *testing.T) {
	f, _ := anchor.Anchor(map[string]any{"count": 0})
	h := History(f)
	h.Destroy()

	f.Set("count", 1)
	if h.CanBackward() {
		t.Errorf("CanBackward() = true after Destroy, want false")
	}
}
