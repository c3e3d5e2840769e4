package internal

import (
	"sync"

	"github.com/petermattis/goid"
)

// ambientTimelines binds "the current timeline" per goroutine: a sync.Map
// keyed by goroutine id, rather than a single mutable package-level global.
// This keeps Initialize-per-test isolated without threading a *Timeline
// through every call in a test file.
var ambientTimelines sync.Map // goid int64 -> *Timeline

// Bind installs tl as the current timeline for the calling goroutine,
// replacing whatever was bound before.
func Bind(tl *Timeline) {
	ambientTimelines.Store(goid.Get(), tl)
}

// Lookup returns the timeline bound to the calling goroutine, if any.
func Lookup() (*Timeline, bool) {
	v, ok := ambientTimelines.Load(goid.Get())
	if !ok {
		return nil, false
	}
	return v.(*Timeline), true
}

// Unbind clears the ambient binding for the calling goroutine. Used by
// Timeline.Close so a closed timeline can't be looked up from Current().
func Unbind() {
	ambientTimelines.Delete(goid.Get())
}
