package anchor

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-mizu/anchor/batch"
)

// Observer tracks every (Facade, key) pair read during a Run call and
// is notified when any of them changes (spec.md §4.6, §5, grounded on
// view/sync/signal_test.go's Signal/Computed/Effect trio, generalized
// from a single signal to arbitrary facade reads).
type Observer struct {
	id ID

	onChange func()

	mu      sync.Mutex
	reads   map[*Meta]map[string]struct{}
	active  bool // false once destroyed
	version atomic.Uint64

	pending atomic.Bool
	flush   func(func())
	cancel  func()
}

var (
	observerStackMu sync.Mutex
	observerStack   []*Observer
)

// CreateObserver returns a new Observer whose Run method tracks reads
// and whose onChange is invoked (coalesced, at most once per
// microtask) whenever a tracked (Facade,key) pair changes.
func CreateObserver(onChange func()) *Observer {
	o := &Observer{
		id:       newID(),
		onChange: onChange,
		reads:    make(map[*Meta]map[string]struct{}),
		active:   true,
	}
	o.flush, o.cancel = batch.Microtask()
	return o
}

// Version reports how many times o has been notified.
func (o *Observer) Version() uint64 { return o.version.Load() }

// Run pushes o as the active observer, executes fn, pops o, and
// returns fn's result. Nested Run calls are supported via an explicit
// stack (spec.md §4.6).
func (o *Observer) Run(fn func() any) any {
	observerStackMu.Lock()
	observerStack = append(observerStack, o)
	observerStackMu.Unlock()

	defer func() {
		observerStackMu.Lock()
		if n := len(observerStack); n > 0 && observerStack[n-1] == o {
			observerStack = observerStack[:n-1]
		}
		observerStackMu.Unlock()
	}()

	return fn()
}

// Assign pre-registers o's interest in keys on f without requiring a
// read, useful for an external binding (e.g. a persistence driver)
// that wants to mirror §4.6's tracking contract without running fn
// under Run.
func (o *Observer) Assign(f *Facade, keys ...any) {
	m, ok := reg.metaOf(f)
	if !ok {
		return
	}
	for _, k := range keys {
		key := toKeyString(k)
		o.track(m, key)
	}
}

// track records that o read (m,key) during its current Run, deduping
// repeated reads of the same pair and subscribing o to m.observers[key]
// exactly once (spec.md §4.6, §5 ordering rule 4).
func (o *Observer) track(m *Meta, key string) {
	o.mu.Lock()
	set, ok := o.reads[m]
	if !ok {
		set = make(map[string]struct{})
		o.reads[m] = set
	}
	_, already := set[key]
	if !already {
		set[key] = struct{}{}
	}
	o.mu.Unlock()

	if !already {
		m.addObserver(key, o)
	}
}

// notifyOnce coalesces notification within one synchronous batch: the
// first call schedules onChange on the microtask boundary and bumps
// the pending flag; subsequent calls before the microtask fires are
// no-ops (spec.md §5 ordering rule 4, §6 "exactly once per synchronous
// batch").
func (o *Observer) notifyOnce() {
	if !o.pending.CompareAndSwap(false, true) {
		return
	}
	o.version.Add(1)
	o.flush(func() {
		o.pending.Store(false)
		o.mu.Lock()
		active := o.active
		o.mu.Unlock()
		if active && o.onChange != nil {
			defer func() {
				if r := recover(); r != nil {
					reportViolation(Violation{Kind: ViolationHandlerPanic, ID: o.id, Panic: r})
					log.Error("anchor: observer handler panicked", slog.Any("panic", r))
				}
			}()
			o.onChange()
		}
	})
}

// Destroy removes o from every (Facade,key) it was registered on and
// clears its read set. Idempotent and safe to call from within o's own
// notify callback (spec.md §4.6 Cancellation, §5, §8).
func (o *Observer) Destroy() {
	o.mu.Lock()
	reads := o.reads
	o.reads = make(map[*Meta]map[string]struct{})
	o.active = false
	o.mu.Unlock()

	for m, keys := range reads {
		for key := range keys {
			m.removeObserver(key, o)
		}
	}
	o.cancel()
}

// getActiveObserver returns the currently active observer, or nil.
func getActiveObserver() *Observer {
	observerStackMu.Lock()
	defer observerStackMu.Unlock()
	if n := len(observerStack); n > 0 {
		return observerStack[n-1]
	}
	return nil
}

// GetObserver is the package-level accessor for the currently active
// observer (spec.md §6).
func GetObserver() *Observer { return getActiveObserver() }

// OutsideObserver runs fn with no active observer, then restores
// whichever observer was active before the call.
func OutsideObserver(fn func()) {
	observerStackMu.Lock()
	saved := observerStack
	observerStack = nil
	observerStackMu.Unlock()

	defer func() {
		observerStackMu.Lock()
		observerStack = saved
		observerStackMu.Unlock()
	}()

	fn()
}

// trackRead records a read of (f,key) against the currently active
// observer, if any, and if the facade's state has observation enabled
// (spec.md §4.2 read trap step 1).
func trackRead(m *Meta, key string) {
	if !m.configs.Observable {
		return
	}
	o := getActiveObserver()
	if o == nil {
		return
	}
	o.track(m, key)
}

func toKeyString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return stringify(k)
}
