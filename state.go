package timewalk

import "github.com/halvorsenlabs/timewalk/internal"

// State is a handle onto a node whose value is always present, stepping
// between values on event occurrences.
type State[A any] struct {
	node *internal.Node
	tl   *Timeline
}

// Sample reads the state's current value.
func (s *State[A]) Sample() A {
	return as[A](fetch(s.tl, s.node))
}

// Value is an alias for Sample.
func (s *State[A]) Value() A { return s.Sample() }

// MapState derives a state by applying f to every value of s.
func MapState[A, B any](s *State[A], f func(A) B) *State[B] {
	node := s.tl.inner.CreateMappedNode(s.node, func(v any) any {
		return f(as[A](v))
	}, "mapState", false)
	return &State[B]{node: node, tl: s.tl}
}

// CombineStates2 derives a state from two parents.
func CombineStates2[A, B, R any](sa *State[A], sb *State[B], combine func(A, B) R) *State[R] {
	node := sa.tl.inner.CreateCombinedNode([]*internal.Node{sa.node, sb.node}, func(vals []any) any {
		return combine(as[A](vals[0]), as[B](vals[1]))
	}, "combineState2", false)
	return &State[R]{node: node, tl: sa.tl}
}

// CombineStates3 derives a state from three parents.
func CombineStates3[A, B, C, R any](sa *State[A], sb *State[B], sc *State[C], combine func(A, B, C) R) *State[R] {
	node := sa.tl.inner.CreateCombinedNode([]*internal.Node{sa.node, sb.node, sc.node}, func(vals []any) any {
		return combine(as[A](vals[0]), as[B](vals[1]), as[C](vals[2]))
	}, "combineState3", false)
	return &State[R]{node: node, tl: sa.tl}
}

// CombineStates4 derives a state from four parents.
func CombineStates4[A, B, C, D, R any](sa *State[A], sb *State[B], sc *State[C], sd *State[D], combine func(A, B, C, D) R) *State[R] {
	node := sa.tl.inner.CreateCombinedNode([]*internal.Node{sa.node, sb.node, sc.node, sd.node}, func(vals []any) any {
		return combine(as[A](vals[0]), as[B](vals[1]), as[C](vals[2]), as[D](vals[3]))
	}, "combineState4", false)
	return &State[R]{node: node, tl: sa.tl}
}

// CombineStates5 derives a state from five parents.
func CombineStates5[A, B, C, D, E, R any](sa *State[A], sb *State[B], sc *State[C], sd *State[D], se *State[E], combine func(A, B, C, D, E) R) *State[R] {
	node := sa.tl.inner.CreateCombinedNode([]*internal.Node{sa.node, sb.node, sc.node, sd.node, se.node}, func(vals []any) any {
		return combine(as[A](vals[0]), as[B](vals[1]), as[C](vals[2]), as[D](vals[3]), as[E](vals[4]))
	}, "combineState5", false)
	return &State[R]{node: node, tl: sa.tl}
}

// CombineAllStates derives a state from a homogeneous list of parents.
func CombineAllStates[A, R any](tl *Timeline, states []*State[A], combine func([]A) R) *State[R] {
	parents := make([]*internal.Node, len(states))
	for i, s := range states {
		parents[i] = s.node
	}
	node := tl.inner.CreateCombinedNode(parents, func(vals []any) any {
		typed := make([]A, len(vals))
		for i, v := range vals {
			typed[i] = as[A](v)
		}
		return combine(typed)
	}, "combineAllStates", false)
	return &State[R]{node: node, tl: tl}
}

// FlatMapState is MapState followed by Flatten.
func FlatMapState[A, B any](s *State[A], f func(A) *State[B]) *State[B] {
	return FlattenState(MapState(s, f))
}

// FlattenState collapses a State of States into a State tracking whichever
// inner state is current. It works by keeping a sync listener on the outer
// state that, on change, tears down the previous inner subscription and
// installs a fresh one — never a back-pointer from the inner state to the
// outer one.
func FlattenState[A any](outer *State[*State[A]]) *State[A] {
	tl := outer.tl
	inner := outer.Sample()

	result := tl.inner.CreateNode("flattenState", inner.Sample(), false, nil, nil)
	view := &State[A]{node: result, tl: tl}

	var unsubscribeInner func()
	subscribeInner := func(s *State[A]) {
		token := s.node.RegisterSyncListener(func(v any) {
			update(tl, result, v)
		})
		unsubscribeInner = func() { s.node.UnregisterSyncListener(token) }
	}
	subscribeInner(inner)

	outer.node.RegisterSyncListener(func(v any) {
		next := as[*State[A]](v)
		if unsubscribeInner != nil {
			unsubscribeInner()
		}
		subscribeInner(next)
		update(tl, result, next.Sample())
	})

	return view
}

// Updated derives an event that fires with the state's value on every
// update to it. Before the first update it is None, never the state's
// current value.
func (s *State[A]) Updated() *Event[A] {
	node := s.tl.inner.CreateUpdatedNode(s.node, "stateUpdated")
	return &Event[A]{node: node, tl: s.tl}
}

// NewFoldState creates a state that starts at initial and becomes
// reducer(current, v) on every frame in which event fires with v.
func NewFoldState[A, E any](tl *Timeline, initial A, event *Event[E], reducer func(A, E) A) *State[A] {
	node := tl.inner.CreateFoldNode(initial, event.node, func(current, fired any) any {
		return reducer(as[A](current), as[E](fired))
	}, "foldState")
	return &State[A]{node: node, tl: tl}
}

// NewHoldState creates a state holding initial until event first fires,
// after which it holds the most recently fired value.
func NewHoldState[A any](tl *Timeline, initial A, event *Event[A]) *State[A] {
	node := tl.inner.CreateNode("holdState", initial, false, nil, nil)
	event.node.RegisterSyncListener(func(v any) {
		es := eventStateFromOccurrence[A](v)
		if es.IsFired() {
			update(tl, node, es.Value())
		}
	})
	return &State[A]{node: node, tl: tl}
}

// NewConstState creates a state that never changes.
func NewConstState[A any](tl *Timeline, value A) *State[A] {
	node := tl.inner.CreateNode("constState", value, false, nil, nil)
	return &State[A]{node: node, tl: tl}
}

// MutableState is a State with an explicit setter. Sets are external: they
// advance the timeline's frame counter and appear in the event trace.
type MutableState[A any] struct {
	*State[A]
}

// Set pushes a new value, invoking updateNodeValue.
func (m *MutableState[A]) Set(v A) {
	update(m.tl, m.node, v)
}

// NewMutableState creates an external state node.
func NewMutableState[A any](tl *Timeline, initial A, label string) *MutableState[A] {
	node := tl.inner.CreateNode(label, initial, true, nil, nil)
	return &MutableState[A]{&State[A]{node: node, tl: tl}}
}
