// Package clock provides a real, swappable ClockFactory backed by
// time.Ticker, kept outside the timewalk core so the engine itself never
// depends on wall-clock time.
package clock

import (
	"time"

	"github.com/halvorsenlabs/timewalk"
)

// Ticker returns a ClockFactory that starts a time.Ticker on the
// timeline's scope the first time the clock is accessed, and stops it when
// the timeline is closed. While paused.Sample() is true, ticks are dropped
// rather than queued.
func Ticker(interval time.Duration) timewalk.ClockFactory {
	return func(tl *timewalk.Timeline, paused *timewalk.State[bool]) *timewalk.Event[time.Duration] {
		tick := timewalk.NewInternalBroadcastEvent[time.Duration](tl, "clockTick")

		tl.Scope().Go(func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-tl.Scope().Context().Done():
					return
				case <-ticker.C:
					if paused.Sample() {
						continue
					}
					tick.Send(interval)
				}
			}
		})

		return tick.Event
	}
}
