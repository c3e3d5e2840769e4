package timewalk

import (
	"context"
	"time"

	"github.com/halvorsenlabs/timewalk/internal"
)

// ClockFactory starts a background Duration-producing event on the
// timeline's scope, honoring the timeline's paused state. The core never
// constructs one itself; callers inject a concrete factory (see the clock
// subpackage) or a fake for tests.
type ClockFactory func(tl *Timeline, paused *State[bool]) *Event[time.Duration]

// Timeline is the handle surrounding programs hold. It owns every node
// created through it; dropping the handle without calling Close leaves the
// background scope (async listeners, clock) running until Close is called.
// The clock producer and the folded-duration node it feeds are shared state
// of the underlying timeline, not of this handle: every handle obtained via
// Initialize or Current for the same timeline observes the same clock.
type Timeline struct {
	inner *internal.Timeline
}

// Initialize creates a fresh Timeline and binds it to the calling
// goroutine, so later calls to Current() from the same goroutine (or any
// code invoked synchronously from it) resolve to it. clock may be nil if
// the program never calls (*Timeline).Clock().
func Initialize(timeTravel, debug, lazy bool, clock ClockFactory) *Timeline {
	tl := &Timeline{inner: internal.NewTimeline(timeTravel, debug, lazy)}
	internal.Bind(tl.inner)
	if clock != nil {
		tl.inner.SetClockFactory(func() any {
			return clock(tl, tl.Paused())
		})
	}
	return tl
}

// Current returns a handle onto the timeline bound to the calling
// goroutine, or ErrUninitializedTimeline if none was ever bound via
// Initialize. The returned handle reaches the same shared clock producer
// (if one was injected at Initialize) as every other handle onto that
// timeline.
func Current() (*Timeline, error) {
	inner, ok := internal.Lookup()
	if !ok {
		return nil, ErrUninitializedTimeline
	}
	return &Timeline{inner: inner}, nil
}

// Close tears down the timeline's background scope, stopping the clock
// producer and waiting for outstanding async listener dispatches, and
// unbinds it from the calling goroutine so a later Current() call correctly
// reports ErrUninitializedTimeline.
func (tl *Timeline) Close() {
	tl.inner.Close()
	internal.Unbind()
}

// Scope exposes the timeline's background goroutine group, so an injected
// ClockFactory can schedule its ticker on the same lifecycle as every other
// async dispatch instead of managing its own goroutine.
func (tl *Timeline) Scope() *Scope {
	return &Scope{inner: tl.inner.Scope()}
}

// Scope wraps the timeline's background goroutine group.
type Scope struct {
	inner *internal.Scope
}

// Go runs fn on the scope, recovering any panic so it never crashes the
// process.
func (s *Scope) Go(fn func()) { s.inner.Go(fn) }

// Context is cancelled when the owning timeline is closed.
func (s *Scope) Context() context.Context { return s.inner.Context() }

// RollbackState moves the timeline one frame back. Returns false (silent
// no-op) if time travel is disabled or there is no earlier frame.
func (tl *Timeline) RollbackState() bool { return tl.inner.RollbackState() }

// NextState moves the timeline one frame forward. Returns false (silent
// no-op) if time travel is disabled or there is no later frame.
func (tl *Timeline) NextState() bool { return tl.inner.NextState() }

// ResetState restores the timeline to the given frame. Returns false
// (silent no-op) if no snapshot exists for it.
func (tl *Timeline) ResetState(frame int) bool { return tl.inner.ResetState(frame) }

// EventTrace returns a copy of every external update recorded so far.
func (tl *Timeline) EventTrace() []ExternalEvent { return tl.inner.EventTrace() }

// ExternalNodes returns the ids of every node whose updates advance the
// frame counter.
func (tl *Timeline) ExternalNodes() []NodeID { return tl.inner.ExternalNodeIDs() }

// DumpFrame pretty-prints the persisted snapshot for frame, for debugging.
// Returns a placeholder string if no snapshot exists at that frame.
func (tl *Timeline) DumpFrame(frame int) string { return tl.inner.DumpFrame(frame) }

// CurrentFrame returns the frame the timeline is currently viewing.
func (tl *Timeline) CurrentFrame() int { return tl.inner.CurrentFrame() }

// LatestFrame returns the most recently recorded frame.
func (tl *Timeline) LatestFrame() int { return tl.inner.LatestFrame() }

// Paused is the internal state gating the clock producer.
func (tl *Timeline) Paused() *State[bool] {
	n := tl.inner.EnsurePausedNode()
	return &State[bool]{node: n, tl: tl}
}

// Clock lazily starts the injected clock factory on first access across
// every handle onto this timeline, and returns the Duration event it
// produces. Every subsequent call, from this handle or any other handle
// onto the same timeline, returns a wrapper around the same node: the
// underlying ticker goroutine is started at most once.
func (tl *Timeline) Clock() *Event[time.Duration] {
	node, ok := tl.inner.ClockNode(func(v any) *internal.Node {
		return v.(*Event[time.Duration]).node
	})
	if !ok {
		panic("timewalk: Clock() called but no ClockFactory was injected at Initialize")
	}
	return &Event[time.Duration]{node: node, tl: tl}
}

// TimeBehavior is the fold of the clock into accumulated duration, starting
// at zero when the fold node is built by the first TimeBehavior call onto
// this timeline; ticks delivered before that call are not counted. Like
// Clock, the underlying fold node is shared across every handle onto this
// timeline.
func (tl *Timeline) TimeBehavior() Behavior[time.Duration] {
	tick := tl.Clock()
	node := tl.inner.ClockTimeNode(func() *internal.Node {
		return NewFoldState(tl, time.Duration(0), tick, func(acc, d time.Duration) time.Duration {
			return acc + d
		}).node
	})
	return &State[time.Duration]{node: node, tl: tl}
}
