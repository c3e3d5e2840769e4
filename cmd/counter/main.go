// Command counter is a minimal demonstration of a broadcast event folded
// into a state, with time travel enabled so the history can be rolled back.
package main

import (
	"fmt"

	"github.com/halvorsenlabs/timewalk"
)

type delta int

func main() {
	tl := timewalk.Initialize(true, false, true, nil)
	defer tl.Close()

	clicks := timewalk.NewBroadcastEvent[delta](tl, "clicks")
	count := timewalk.NewFoldState(tl, 0, clicks.Event, func(acc int, d delta) int {
		return acc + int(d)
	})

	for i := 0; i < 5; i++ {
		clicks.Send(1)
		fmt.Printf("frame %d: count = %d\n", tl.LatestFrame(), count.Sample())
	}

	tl.RollbackState()
	tl.RollbackState()
	fmt.Printf("after two rollbacks: count = %d\n", count.Sample())
}
