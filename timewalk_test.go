package timewalk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestTimeline(timeTravel bool) *Timeline {
	return Initialize(timeTravel, false, true, nil)
}

func TestMutableStateCombine(t *testing.T) {
	t.Run("sum of two states", func(t *testing.T) {
		tl := newTestTimeline(false)
		defer tl.Close()

		a := NewMutableState(tl, 1, "a")
		b := NewMutableState(tl, 2, "b")
		s := CombineStates2(a.State, b.State, func(x, y int) int { return x + y })

		assert.Equal(t, 3, s.Sample())

		a.Set(10)
		assert.Equal(t, 12, s.Sample())
	})
}

func TestLazyMap(t *testing.T) {
	t.Run("not evaluated until read", func(t *testing.T) {
		tl := newTestTimeline(false)
		defer tl.Close()

		flag := false
		a := NewMutableState(tl, 1, "a")
		m := MapState(a.State, func(v int) int {
			flag = true
			return v * 2
		})

		a.Set(5)
		assert.False(t, flag)

		assert.Equal(t, 10, m.Sample())
		assert.True(t, flag)
	})

	t.Run("evaluated eagerly once a listener is attached", func(t *testing.T) {
		tl := newTestTimeline(false)
		defer tl.Close()

		flag := false
		a := NewMutableState(tl, 1, "a")
		m := MapState(a.State, func(v int) int {
			flag = true
			return v * 2
		})

		m.node.RegisterSyncListener(func(any) {})

		a.Set(5)
		assert.True(t, flag)
	})
}

type counterEvent int

const (
	inc counterEvent = iota
	dec
)

func TestCounterFold(t *testing.T) {
	t.Run("counts increments and decrements", func(t *testing.T) {
		tl := newTestTimeline(false)
		defer tl.Close()

		events := NewBroadcastEvent[counterEvent](tl, "events")
		count := NewFoldState(tl, 0, events.Event, func(acc int, e counterEvent) int {
			if e == inc {
				return acc + 1
			}
			return acc - 1
		})

		events.Send(inc)
		events.Send(inc)
		events.Send(dec)

		assert.Equal(t, 1, count.Sample())
	})
}

func TestEventResetsToNone(t *testing.T) {
	t.Run("fires only during its own frame", func(t *testing.T) {
		tl := newTestTimeline(false)
		defer tl.Close()

		e := NewBroadcastEvent[int](tl, "e")
		last := MapEvent(e.Event, func(v int) int { return v })

		other := NewMutableState(tl, 0, "other")

		e.Send(7)
		assert.True(t, last.Sample().IsFired())
		assert.Equal(t, 7, last.Sample().Value())

		other.Set(1)
		assert.False(t, last.Sample().IsFired())
	})
}

func TestRollbackReplaysFold(t *testing.T) {
	t.Run("rollback twice lands on the state after the first increment", func(t *testing.T) {
		tl := newTestTimeline(true)
		defer tl.Close()

		events := NewBroadcastEvent[counterEvent](tl, "events")
		count := NewFoldState(tl, 0, events.Event, func(acc int, e counterEvent) int {
			if e == inc {
				return acc + 1
			}
			return acc - 1
		})

		events.Send(inc)
		events.Send(inc)
		events.Send(inc)
		assert.Equal(t, 3, count.Sample())

		assert.True(t, tl.RollbackState())
		assert.True(t, tl.RollbackState())
		assert.Equal(t, 1, count.Sample())
	})
}

func TestMergedEventsLeftmost(t *testing.T) {
	t.Run("leftmost wins on simultaneous fire", func(t *testing.T) {
		tl := newTestTimeline(false)
		defer tl.Close()

		src := NewInternalBroadcastEvent[string](tl, "src")
		a := MapEvent(src.Event, func(v string) string { return "left:" + v })
		b := MapEvent(src.Event, func(v string) string { return "right:" + v })
		merged := MergedEvents(a, b)

		src.Send("x")
		assert.Equal(t, "left:x", merged.Sample().Value())
	})
}

func TestCurrentRequiresInitialize(t *testing.T) {
	t.Run("uninitialized goroutine errors", func(t *testing.T) {
		done := make(chan error, 1)
		go func() {
			_, err := Current()
			done <- err
		}()
		err := <-done
		assert.ErrorIs(t, err, ErrUninitializedTimeline)
	})
}

func TestRollbackNoOpWithoutTimeTravel(t *testing.T) {
	t.Run("silent no-op", func(t *testing.T) {
		tl := newTestTimeline(false)
		defer tl.Close()

		assert.False(t, tl.RollbackState())
	})
}

func TestLazyMapNotForcedByTimeTravelSnapshot(t *testing.T) {
	t.Run("persisting a frame does not evaluate a lazy listener-less map", func(t *testing.T) {
		tl := newTestTimeline(true)
		defer tl.Close()

		flag := false
		a := NewMutableState(tl, 1, "a")
		m := MapState(a.State, func(v int) int {
			flag = true
			return v * 2
		})

		a.Set(5)
		assert.False(t, flag, "persisting the frame must not have forced the lazy map")

		assert.Equal(t, 10, m.Sample())
		assert.True(t, flag)
	})
}

func TestDumpFrame(t *testing.T) {
	t.Run("reports a snapshot once one exists", func(t *testing.T) {
		tl := newTestTimeline(true)
		defer tl.Close()

		a := NewMutableState(tl, 1, "a")
		a.Set(2)

		assert.NotEqual(t, "<no snapshot for frame>", tl.DumpFrame(tl.LatestFrame()))
	})

	t.Run("reports a placeholder for a frame never persisted", func(t *testing.T) {
		tl := newTestTimeline(true)
		defer tl.Close()

		assert.Equal(t, "<no snapshot for frame>", tl.DumpFrame(999))
	})
}

func TestClockSharedAcrossHandles(t *testing.T) {
	t.Run("Current reaches the same clock producer Initialize injected", func(t *testing.T) {
		ticks := 0
		fakeClock := func(tl *Timeline, paused *State[bool]) *Event[time.Duration] {
			ticks++
			return NewInternalBroadcastEvent[time.Duration](tl, "fakeClock").Event
		}

		tl := Initialize(false, false, true, ClockFactory(fakeClock))
		defer tl.Close()

		first := tl.Clock()

		current, err := Current()
		assert.NoError(t, err)
		second := current.Clock()

		assert.Equal(t, 1, ticks, "the clock factory must run at most once across handles")
		assert.Equal(t, first.node, second.node, "every handle must observe the same clock node")
	})
}
