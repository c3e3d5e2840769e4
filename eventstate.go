package timewalk

import "github.com/halvorsenlabs/timewalk/internal"

// EventState is the occurrence variant an Event's node carries: either a
// fired value or the resting None. It is the generic-typed view of
// internal.Occurrence.
type EventState[A any] struct {
	fired bool
	value A
}

// Fired builds an occurrence carrying v.
func Fired[A any](v A) EventState[A] {
	return EventState[A]{fired: true, value: v}
}

// None builds the resting, non-firing occurrence.
func None[A any]() EventState[A] {
	return EventState[A]{}
}

// IsFired reports whether this occurrence carries a value.
func (es EventState[A]) IsFired() bool { return es.fired }

// Value returns the carried value, or the zero value of A when None.
func (es EventState[A]) Value() A { return es.value }

// Map applies f to a Fired occurrence, passing None through unchanged.
func (es EventState[A]) Map(f func(A) A) EventState[A] {
	if !es.fired {
		return es
	}
	return Fired(f(es.value))
}

func (es EventState[A]) toOccurrence() internal.Occurrence {
	if !es.fired {
		return internal.NoOccurrence
	}
	return internal.Occurrence{Fired: true, Value: es.value}
}

func eventStateFromOccurrence[A any](v any) EventState[A] {
	occ, ok := v.(internal.Occurrence)
	if !ok || !occ.Fired {
		return None[A]()
	}
	return Fired(as[A](occ.Value))
}

// MergeStrategy resolves simultaneously-fired values from a merged event
// into a single value. The list is always non-empty when the strategy is
// invoked.
type MergeStrategy[A any] func(fired []A) A

// Leftmost returns the first fired value, ignoring the rest. It is the
// default strategy for MergedEvents.
func Leftmost[A any]() MergeStrategy[A] {
	return func(fired []A) A { return fired[0] }
}
