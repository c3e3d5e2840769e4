package timewalk

import (
	"fmt"

	"github.com/halvorsenlabs/timewalk/internal"
)

// ErrUninitializedTimeline is returned by Current when no timeline is bound
// to the calling goroutine. Constructors take their *Timeline explicitly and
// never return it.
var ErrUninitializedTimeline = fmt.Errorf("timewalk: no timeline bound to this goroutine")

// UserComputationError wraps a panic recovered from a user-supplied
// recompute, reducer, or lazy initial value. updateNodeValue and
// fetchNodeValue convert a recovered panic into this type and re-panic with
// it, so a caller that chooses to recover gets something structured instead
// of the raw panic value. Listener panics are not converted: a panic in an
// async listener (such as a Collect collector) is recovered and logged on
// the timeline's scope, and a panic in a sync listener propagates as is.
type UserComputationError struct {
	Label string
	Panic any
}

func (e *UserComputationError) Error() string {
	return fmt.Sprintf("timewalk: user computation panicked in %q: %v", e.Label, e.Panic)
}

// Unwrap exposes the recovered panic value when it was itself an error, so
// errors.Is/errors.As can see through to it.
func (e *UserComputationError) Unwrap() error {
	if err, ok := e.Panic.(error); ok {
		return err
	}
	return nil
}

// ErrHistoryMiss is never returned to callers — per the engine's rollback
// contract, navigating past either end of history is a silent no-op
// (RollbackState/NextState/ResetState return false, not this error). It
// exists so a debug-logged no-op and this sentinel always describe the
// no-op in the same words; its text is internal.MsgHistoryMiss behind a
// "timewalk: " prefix.
var ErrHistoryMiss = fmt.Errorf("timewalk: %s", internal.MsgHistoryMiss)

// ErrTimeTravelDisabled is likewise never returned — RollbackState/NextState
// return false rather than this error when time travel is off — but shares
// its text with the debug log line RollbackState emits at that no-op, via
// internal.MsgTimeTravelDisabled. NextState returns false without logging.
var ErrTimeTravelDisabled = fmt.Errorf("timewalk: %s", internal.MsgTimeTravelDisabled)
