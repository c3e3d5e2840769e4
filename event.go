package timewalk

import "github.com/halvorsenlabs/timewalk/internal"

// Event is a handle onto a node whose value is an EventState[A]: present
// only at discrete instants, None everywhere else.
type Event[A any] struct {
	node *internal.Node
	tl   *Timeline
}

// Sample reads the event's current occurrence. Outside the frame an event
// fires in, this is always None.
func (e *Event[A]) Sample() EventState[A] {
	return eventStateFromOccurrence[A](fetch(e.tl, e.node))
}

// MapEvent derives a new event applying f to every fired value; None
// passes through unchanged.
func MapEvent[A, B any](e *Event[A], f func(A) B) *Event[B] {
	node := e.tl.inner.CreateMappedNode(e.node, func(v any) any {
		es := eventStateFromOccurrence[A](v)
		if !es.IsFired() {
			return internal.NoOccurrence
		}
		return Fired(f(es.Value())).toOccurrence()
	}, "mapEvent", true)
	return &Event[B]{node: node, tl: e.tl}
}

// Filter retains only fired occurrences for which p holds.
func (e *Event[A]) Filter(p func(A) bool) *Event[A] {
	node := e.tl.inner.CreateMappedNode(e.node, func(v any) any {
		es := eventStateFromOccurrence[A](v)
		if !es.IsFired() || !p(es.Value()) {
			return internal.NoOccurrence
		}
		return es.toOccurrence()
	}, "filterEvent", true)
	return &Event[A]{node: node, tl: e.tl}
}

// Gate retains a fired occurrence iff the behavior samples false. The
// polarity is inverted from the conventional reading by design: gate
// blocks when the condition is true.
func (e *Event[A]) Gate(behavior Behavior[bool]) *Event[A] {
	node := e.tl.inner.CreateMappedNode(e.node, func(v any) any {
		es := eventStateFromOccurrence[A](v)
		if !es.IsFired() || behavior.Sample() {
			return internal.NoOccurrence
		}
		return es.toOccurrence()
	}, "gateEvent", true)
	return &Event[A]{node: node, tl: e.tl}
}

// MergedEvents combines events with the Leftmost strategy: at any frame
// where more than one fires, the leftmost fired value wins.
func MergedEvents[A any](events ...*Event[A]) *Event[A] {
	return MergedEventsWith(Leftmost[A](), events...)
}

// MergedEventsWith combines events, resolving simultaneous firings with
// strategy. The merged event fires iff at least one parent fired.
func MergedEventsWith[A any](strategy MergeStrategy[A], events ...*Event[A]) *Event[A] {
	if len(events) == 0 {
		panic("timewalk: MergedEventsWith requires at least one event")
	}
	tl := events[0].tl
	parents := make([]*internal.Node, len(events))
	for i, e := range events {
		parents[i] = e.node
	}
	node := tl.inner.CreateCombinedNode(parents, func(vals []any) any {
		var fired []A
		for _, v := range vals {
			es := eventStateFromOccurrence[A](v)
			if es.IsFired() {
				fired = append(fired, es.Value())
			}
		}
		if len(fired) == 0 {
			return internal.NoOccurrence
		}
		return Fired(strategy(fired)).toOccurrence()
	}, "mergedEvent", true)
	return &Event[A]{node: node, tl: tl}
}

// Collect asynchronously delivers every fired value (unwrapped) to
// collector, on the timeline's background scope.
func (e *Event[A]) Collect(collector func(A)) {
	e.node.RegisterAsyncListener(func(v any) {
		es := eventStateFromOccurrence[A](v)
		if es.IsFired() {
			collector(es.Value())
		}
	})
}

// BroadcastEvent is an Event a program drives directly via Send.
type BroadcastEvent[A any] struct {
	*Event[A]
}

// Send pushes a new occurrence onto the event, invoking updateNodeValue.
func (b *BroadcastEvent[A]) Send(value A) {
	update(b.tl, b.node, Fired(value).toOccurrence())
}

// NewBroadcastEvent creates an external event node: its sends advance the
// timeline's frame counter and are recorded in the event trace.
func NewBroadcastEvent[A any](tl *Timeline, label string) *BroadcastEvent[A] {
	node := tl.inner.CreateEventNode(label, true)
	return &BroadcastEvent[A]{&Event[A]{node: node, tl: tl}}
}

// NewInternalBroadcastEvent creates an event node identical to
// NewBroadcastEvent except that its sends do not advance the frame counter
// or appear in the event trace.
func NewInternalBroadcastEvent[A any](tl *Timeline, label string) *BroadcastEvent[A] {
	node := tl.inner.CreateEventNode(label, false)
	return &BroadcastEvent[A]{&Event[A]{node: node, tl: tl}}
}
