package derive

import "github.com/go-mizu/anchor"

// Pipe forwards src's state onto dst: on every non-init mutation event
// the current snapshot of src — optionally recomputed by transform —
// is assigned onto dst (spec.md §4.9). The assignment goes through
// dst's normal write path, so dst's own subscribers, schema gate and
// relation graph all see it as an ordinary mutation.
func Pipe(src, dst *anchor.Facade, transform ...func(any) any) (unsubscribe func()) {
	var xform func(any) any
	if len(transform) > 0 {
		xform = transform[0]
	}
	return anchor.Subscribe(src, func(_ any, ev anchor.Event) {
		if ev.Type == anchor.EventInit {
			return
		}
		snap := anchor.Snapshot(src)
		if xform != nil {
			snap = xform(snap)
		}
		applyWhole(dst, snap)
	})
}
