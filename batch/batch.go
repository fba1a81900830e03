// Package batch implements the reactive core's minimal cooperative
// scheduling primitives (spec.md §4.8, §6): a microtask-coalesced
// single-pending-call scheduler, a keyed variant that coalesces by
// identity, and a cooperative recurring loop. The core's emission path
// is synchronous and does not use them; the core uses Microtask only to
// coalesce an Observer's change callback. They are also available to
// consumers, such as a persistence driver, that need to batch side
// effects off of the mutation stream.
//
// There is no single-process microtask-coalescing library anywhere in
// the retrieval pack this module was grounded on, so these are built
// directly on stdlib time.Timer and goroutines, in the idiom the
// teacher's app.go uses for its own background lifecycle (a context
// cancellation that stops a loop, a channel-based completion signal).
package batch

import (
	"context"
	"sync"
	"time"
)

// Microtask returns fn and cancel such that calling fn(f) schedules f
// to run at most once per tick: a call to fn before the previous
// pending call has fired replaces it rather than queuing a second
// invocation. cancel drops any pending call without running it.
func Microtask(delay ...time.Duration) (fn func(f func()), cancel func()) {
	d := resolveDelay(delay)

	var mu sync.Mutex
	var timer *time.Timer
	var generation uint64

	fn = func(f func()) {
		mu.Lock()
		defer mu.Unlock()
		generation++
		gen := generation
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, func() {
			mu.Lock()
			current := gen == generation
			mu.Unlock()
			if current && f != nil {
				f()
			}
		})
	}

	cancel = func() {
		mu.Lock()
		defer mu.Unlock()
		generation++
		if timer != nil {
			timer.Stop()
		}
	}

	return fn, cancel
}

// Microbatch coalesces distinct callbacks keyed by an arbitrary
// comparable identity into a single flush per tick: scheduling the
// same key twice before the tick fires replaces the pending callback
// for that key, but callbacks under different keys all run on the same
// flush.
func Microbatch(delay ...time.Duration) (schedule func(key any, f func()), cancel func()) {
	d := resolveDelay(delay)

	var mu sync.Mutex
	pending := make(map[any]func())
	var timer *time.Timer

	flush := func() {
		mu.Lock()
		batch := pending
		pending = make(map[any]func())
		timer = nil
		mu.Unlock()
		for _, f := range batch {
			if f != nil {
				f()
			}
		}
	}

	schedule = func(key any, f func()) {
		mu.Lock()
		defer mu.Unlock()
		pending[key] = f
		if timer == nil {
			timer = time.AfterFunc(d, flush)
		}
	}

	cancel = func() {
		mu.Lock()
		defer mu.Unlock()
		pending = make(map[any]func())
		if timer != nil {
			timer.Stop()
			timer = nil
		}
	}

	return schedule, cancel
}

// Microloop runs fn repeatedly on a cooperative loop every period
// until the returned stop function is called or its context is
// canceled, whichever comes first. stop blocks until the loop has
// observed cancellation and returned.
func Microloop(ctx context.Context, fn func(ctx context.Context), period time.Duration) (stop func()) {
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				fn(loopCtx)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func resolveDelay(delay []time.Duration) time.Duration {
	if len(delay) > 0 && delay[0] > 0 {
		return delay[0]
	}
	return time.Millisecond
}
