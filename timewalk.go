// Package timewalk implements a push-pull reactive timeline: a dependency
// graph of Events (discrete occurrences), States (always-present stepwise
// values) and Behaviors (sampled, non-node values), propagated under a
// single coarse lock with optional time-travel.
package timewalk

import "github.com/halvorsenlabs/timewalk/internal"

// as performs the one downcast at the public/internal boundary. Every
// generic wrapper type in this package stores its value as `any` inside an
// internal.Node and uses this to recover the concrete type on read.
func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}

// convertUserPanic turns an internal.UserPanic re-panicked by the engine
// into a UserComputationError, so callers recovering at this boundary get a
// structured type instead of the raw internal representation.
func convertUserPanic() {
	r := recover()
	if r == nil {
		return
	}
	if up, ok := r.(internal.UserPanic); ok {
		panic(&UserComputationError{Label: up.Label, Panic: up.Value})
	}
	panic(r)
}

func fetch(tl *Timeline, n *internal.Node) any {
	defer convertUserPanic()
	return tl.inner.FetchNodeValue(n)
}

func update(tl *Timeline, n *internal.Node, v any) {
	defer convertUserPanic()
	tl.inner.UpdateNodeValue(n, v)
}
