package internal

import (
	"sync"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/petermattis/goid"
	"github.com/sanity-io/litter"
	"go.uber.org/zap"
)

// Timeline is the process- or scope-scoped container owning every node, the
// child adjacency, frame counters, the external-event trace, and history
// snapshots. It implements propagation under a single coarse lock.
type Timeline struct {
	ID uuid.UUID

	mu        sync.Mutex
	lockOwner atomic.Int64 // goroutine id currently holding mu, 0 when unlocked

	nodes    map[NodeID]*Node
	children map[NodeID][]NodeID

	currentFrame int
	latestFrame  int

	TimeTravel bool
	Lazy       bool
	Debug      bool

	externalNodes mapset.Set[NodeID]
	trace         []ExternalEvent
	history       map[int]GraphState

	queuedNextFrame []func()

	scope  *Scope
	logger *zap.SugaredLogger

	pausedNode *Node

	// clockFactory, clockNode and clockTimeNode are shared state of this
	// Timeline, not of whichever public handle happens to call Clock()
	// first: every handle onto the same Timeline must observe the same
	// clock producer and the same folded-duration node, never start a
	// second background ticker of its own.
	clockFactory  func() any
	clockNode     *Node
	clockTimeNode *Node
}

func NewTimeline(timeTravel, debug, lazy bool) *Timeline {
	id := uuid.New()
	logger := newLogger(debug).With("timeline", id.String())

	return &Timeline{
		ID:            id,
		nodes:         make(map[NodeID]*Node),
		children:      make(map[NodeID][]NodeID),
		TimeTravel:    timeTravel,
		Lazy:          lazy,
		Debug:         debug,
		externalNodes: mapset.NewSet[NodeID](),
		history:       make(map[int]GraphState),
		scope:         NewScope(logger),
		logger:        logger,
	}
}

func (tl *Timeline) Logger() *zap.SugaredLogger { return tl.logger }
func (tl *Timeline) Scope() *Scope              { return tl.scope }

// withLock runs fn with the coarse lock held, but is safe to call
// re-entrantly from the same goroutine (e.g. a sync listener invoked while
// the lock is held that itself calls Send/Set on another handle). fn
// receives whether this call is the outermost (non-reentrant) one.
func (tl *Timeline) withLock(fn func(outer bool)) {
	gid := goid.Get()
	if tl.lockOwner.Load() == gid {
		fn(false)
		return
	}

	tl.mu.Lock()
	tl.lockOwner.Store(gid)
	fn(true)
	tl.lockOwner.Store(0)
	tl.mu.Unlock()
}

// CreateNode creates an input (leaf) node. onUpdate, if non-nil, is
// registered as an initial synchronous listener. Pass external=true for
// nodes whose updates should advance the frame counter (broadcast events,
// mutable states).
func (tl *Timeline) CreateNode(label string, initial any, external bool, onUpdate func(any), onNextFrame func()) *Node {
	var n *Node
	tl.withLock(func(bool) {
		n = newNode(label, func() any { return initial }, nil, onNextFrame)
		if onUpdate != nil {
			n.RegisterSyncListener(onUpdate)
		}
		tl.nodes[n.ID] = n
		if external {
			tl.externalNodes.Add(n.ID)
		}
	})
	return n
}

// CreateEventNode creates a leaf event node: it starts at NoOccurrence and
// resets back to it after the frame it fires in, exactly like a mapped
// event node, but with no parent.
func (tl *Timeline) CreateEventNode(label string, external bool) *Node {
	var n *Node
	tl.withLock(func(bool) {
		n = newNode(label, func() any { return NoOccurrence }, nil, nil)
		n.onNextFrame = func() {
			n.raw = NoOccurrence
			n.dirty = false
			n.computed = true
		}
		tl.nodes[n.ID] = n
		if external {
			tl.externalNodes.Add(n.ID)
		}
	})
	return n
}

// CreateMappedNode creates a single-parent derived node. When eventReset is
// true the node is treated as event-valued: it resets to NoOccurrence after
// the frame it fires in.
func (tl *Timeline) CreateMappedNode(parent *Node, f func(any) any, label string, eventReset bool) *Node {
	var n *Node
	tl.withLock(func(bool) {
		compute := func() any { return f(tl.fetchNodeValueLocked(parent)) }
		n = newNode(label, compute, compute, nil)
		if eventReset {
			n.onNextFrame = func() {
				n.raw = NoOccurrence
				n.dirty = false
				n.computed = true
			}
		}
		tl.nodes[n.ID] = n
		tl.addEdgeLocked(parent.ID, n.ID)
	})
	return n
}

// CreateUpdatedNode creates an event-valued node that fires with parent's
// current value on every update to parent and is None everywhere else —
// including its own first read. Unlike CreateMappedNode, whose lazy initial
// value is whatever its mapping function produces from parent's current
// value (correct when the mapped function is itself occurrence-aware), an
// "updated" node has simply not fired yet until parent actually updates, so
// its initial must be None regardless of what parent currently holds.
func (tl *Timeline) CreateUpdatedNode(parent *Node, label string) *Node {
	var n *Node
	tl.withLock(func(bool) {
		n = newNode(label, func() any { return NoOccurrence }, func() any {
			return Occurrence{Fired: true, Value: tl.fetchNodeValueLocked(parent)}
		}, nil)
		n.onNextFrame = func() {
			n.raw = NoOccurrence
			n.dirty = false
			n.computed = true
		}
		tl.nodes[n.ID] = n
		tl.addEdgeLocked(parent.ID, n.ID)
	})
	return n
}

// CreateCombinedNode creates an N-ary derived node.
func (tl *Timeline) CreateCombinedNode(parents []*Node, combine func([]any) any, label string, eventReset bool) *Node {
	var n *Node
	tl.withLock(func(bool) {
		gather := func() any {
			vals := make([]any, len(parents))
			for i, p := range parents {
				vals[i] = tl.fetchNodeValueLocked(p)
			}
			return combine(vals)
		}
		n = newNode(label, gather, gather, nil)
		if eventReset {
			n.onNextFrame = func() {
				n.raw = NoOccurrence
				n.dirty = false
				n.computed = true
			}
		}
		tl.nodes[n.ID] = n
		for _, p := range parents {
			tl.addEdgeLocked(p.ID, n.ID)
		}
	})
	return n
}

// CreateFoldNode creates a fold-from-event node: it starts at initial and,
// on each frame in which eventNode is Fired(v), becomes reducer(current, v).
// Fold nodes are always eager (never marked dirty-and-deferred): the
// occurrence they must consume resets to None at the end of its frame
// regardless of whether laziness would otherwise have deferred the pull, so
// a fold node that waited to be pulled could silently miss it. Because a
// fold node is always eager, its raw value is already correct by the time
// persistLocked snapshots it on every external update — ResetState's
// generic restore of that snapshot is sufficient for rollback and forward
// navigation alike, so a fold node sets no onRollback hook of its own.
func (tl *Timeline) CreateFoldNode(initial any, eventNode *Node, reducer func(current, fired any) any, label string) *Node {
	var n *Node
	tl.withLock(func(bool) {
		n = newNode(label, func() any { return initial }, nil, nil)
		n.alwaysEager = true
		n.recompute = func() any {
			n.forceInitial()
			occ, _ := tl.fetchNodeValueLocked(eventNode).(Occurrence)
			if !occ.Fired {
				return n.raw
			}
			return reducer(n.raw, occ.Value)
		}

		tl.nodes[n.ID] = n
		tl.addEdgeLocked(eventNode.ID, n.ID)
	})
	return n
}

func (tl *Timeline) addEdgeLocked(parent, child NodeID) {
	tl.children[parent] = append(tl.children[parent], child)
}

// FetchNodeValue is the single entry point for any reader. If the node is
// not dirty it returns the stored value; otherwise it recomputes, clears
// dirty, and returns.
func (tl *Timeline) FetchNodeValue(n *Node) any {
	var v any
	tl.withLock(func(bool) {
		v = tl.fetchNodeValueLocked(n)
	})
	return v
}

func (tl *Timeline) fetchNodeValueLocked(n *Node) any {
	if !n.computed {
		n.forceInitial()
		return n.raw
	}
	if n.dirty {
		n.raw = tl.safeRecompute(n)
		n.dirty = false
	}
	return n.raw
}

// UpdateNodeValue is the heart of the engine: an eight-step contract
// covering frame-hook flushing, the write itself, frame advancement,
// listener dispatch, and propagation. It is safe to call re-entrantly (from
// inside a sync listener of an update already in flight on this goroutine),
// in which case it runs with internal semantics (no frame bump, no
// next-frame flush).
func (tl *Timeline) UpdateNodeValue(n *Node, newValue any) {
	tl.withLock(func(outer bool) {
		tl.updateNodeValueLocked(n, newValue, !outer)
	})
}

func (tl *Timeline) updateNodeValueLocked(n *Node, newValue any, internal bool) {
	// step 1: flush hooks queued by the previous external update.
	if !internal {
		hooks := tl.queuedNextFrame
		tl.queuedNextFrame = nil
		for _, hook := range hooks {
			hook()
		}
	}

	// step 2
	n.raw = newValue
	n.computed = true
	n.dirty = false

	// step 3
	if !internal && tl.TimeTravel && tl.externalNodes.Contains(n.ID) {
		tl.latestFrame++
		tl.currentFrame = tl.latestFrame
		tl.trace = append(tl.trace, ExternalEvent{Frame: tl.latestFrame, Node: n.ID, Label: n.Label, Value: newValue})
		if tl.Debug {
			tl.logger.Debugw("external update", "node", n.ID, "label", n.Label, "frame", tl.latestFrame)
		}
	}

	// step 4
	for _, listener := range n.syncListeners {
		if listener != nil {
			listener(newValue)
		}
	}

	// step 5
	if len(n.asyncListeners) > 0 {
		val := newValue
		for _, listener := range n.asyncListeners {
			l := listener
			tl.scope.Go(func() { l(val) })
		}
	}

	// step 6
	if !internal && n.onNextFrame != nil {
		tl.queuedNextFrame = append(tl.queuedNextFrame, n.onNextFrame)
	}

	// step 7
	tl.propagateLocked(n.ID)

	// step 8 — only the outermost call of a given external update persists;
	// nested re-entrant writes are already reflected by the time it does.
	if !internal && tl.TimeTravel {
		tl.persistLocked()
	}
}

func (tl *Timeline) propagateLocked(parentID NodeID) {
	for _, childID := range tl.children[parentID] {
		child := tl.nodes[childID]
		if child == nil {
			continue
		}

		if child.onNextFrame != nil {
			tl.queuedNextFrame = append(tl.queuedNextFrame, child.onNextFrame)
		}

		if tl.Lazy && !child.alwaysEager && !child.HasListeners() {
			child.MarkDirty()
			continue
		}

		child.raw = tl.safeRecompute(child)
		child.computed = true
		child.dirty = false

		for _, listener := range child.syncListeners {
			if listener != nil {
				listener(child.raw)
			}
		}
		if len(child.asyncListeners) > 0 {
			val := child.raw
			for _, listener := range child.asyncListeners {
				l := listener
				tl.scope.Go(func() { l(val) })
			}
		}

		tl.propagateLocked(child.ID)
	}
}

// persistLocked snapshots every node's raw value exactly as it stands —
// it never forces a recompute or a lazy initial. Forcing here would make a
// snapshot a side channel that evaluates lazy, listener-less nodes purely
// because a rollback happened to persist around them.
func (tl *Timeline) persistLocked() {
	values := make(map[NodeID]any, len(tl.nodes))
	dirty := make(map[NodeID]bool, len(tl.nodes))
	computed := make(map[NodeID]bool, len(tl.nodes))
	for id, n := range tl.nodes {
		values[id] = n.raw
		dirty[id] = n.dirty
		computed[id] = n.computed
	}
	tl.history[tl.latestFrame] = GraphState{
		Values:   values,
		Dirty:    dirty,
		Computed: computed,
		Children: cloneChildren(tl.children),
	}
}

// ResetState restores the timeline to a previously persisted frame. A
// missing snapshot (navigating past either end of history) is a silent
// no-op.
func (tl *Timeline) ResetState(frame int) bool {
	var ok bool
	tl.withLock(func(bool) {
		state, found := tl.history[frame]
		if !found {
			if tl.Debug {
				tl.logger.Debugw(MsgHistoryMiss, "frame", frame)
			}
			return
		}

		for id, n := range tl.nodes {
			if id == tl.pausedID() {
				continue
			}
			if v, present := state.Values[id]; present {
				n.raw = v
				n.computed = state.Computed[id]
				n.dirty = state.Dirty[id]
			}
		}

		tl.children = cloneChildren(state.Children)
		tl.latestFrame = frame
		tl.currentFrame = frame
		ok = true
	})
	return ok
}

func (tl *Timeline) pausedID() NodeID {
	if tl.pausedNode == nil {
		return 0
	}
	return tl.pausedNode.ID
}

// RollbackState moves one frame back. Silent no-op if time-travel is
// disabled or history has no earlier frame.
func (tl *Timeline) RollbackState() bool {
	if !tl.TimeTravel {
		if tl.Debug {
			tl.logger.Debugw(MsgTimeTravelDisabled)
		}
		return false
	}
	return tl.ResetState(tl.latestFrame - 1)
}

// NextState moves one frame forward. Silent no-op if time-travel is
// disabled or there is no later frame.
func (tl *Timeline) NextState() bool {
	if !tl.TimeTravel {
		return false
	}
	return tl.ResetState(tl.latestFrame + 1)
}

func (tl *Timeline) CurrentFrame() int {
	var f int
	tl.withLock(func(bool) { f = tl.currentFrame })
	return f
}

func (tl *Timeline) LatestFrame() int {
	var f int
	tl.withLock(func(bool) { f = tl.latestFrame })
	return f
}

func (tl *Timeline) EventTrace() []ExternalEvent {
	var out []ExternalEvent
	tl.withLock(func(bool) {
		out = append([]ExternalEvent(nil), tl.trace...)
	})
	return out
}

func (tl *Timeline) ExternalNodeIDs() []NodeID {
	var out []NodeID
	tl.withLock(func(bool) {
		out = tl.externalNodes.ToSlice()
	})
	return out
}

// DumpFrame pretty-prints a persisted snapshot for debugging, using the same
// struct-dumping convention the pack's eg-walker module uses for its
// internal state.
func (tl *Timeline) DumpFrame(frame int) string {
	var out string
	tl.withLock(func(bool) {
		state, ok := tl.history[frame]
		if !ok {
			out = "<no snapshot for frame>"
			return
		}
		out = litter.Sdump(state)
	})
	return out
}

// SetClockFactory installs the closure that lazily builds the clock
// producer. Called at most once, from Initialize; f returns an
// implementation-typed value (the public package's *Event[time.Duration])
// that extract, passed to ClockNode, knows how to unwrap.
func (tl *Timeline) SetClockFactory(f func() any) {
	tl.withLock(func(bool) { tl.clockFactory = f })
}

// ClockNode lazily invokes the stored clock factory at most once across
// every handle onto this Timeline and caches the resulting node, so two
// handles calling Clock() both observe the one producer instead of each
// starting its own background ticker. ok is false if no factory was ever
// installed.
func (tl *Timeline) ClockNode(extract func(any) *Node) (n *Node, ok bool) {
	tl.withLock(func(bool) {
		if tl.clockNode == nil {
			if tl.clockFactory == nil {
				return
			}
			tl.clockNode = extract(tl.clockFactory())
		}
		n = tl.clockNode
		ok = true
	})
	return n, ok
}

// ClockTimeNode lazily builds the folded-duration node at most once across
// every handle onto this Timeline, mirroring ClockNode.
func (tl *Timeline) ClockTimeNode(build func() *Node) *Node {
	tl.withLock(func(bool) {
		if tl.clockTimeNode == nil {
			tl.clockTimeNode = build()
		}
	})
	return tl.clockTimeNode
}

// EnsurePausedNode lazily constructs the internal paused state the clock
// producer is gated on.
func (tl *Timeline) EnsurePausedNode() *Node {
	var n *Node
	tl.withLock(func(bool) {
		if tl.pausedNode == nil {
			tl.pausedNode = newNode("__paused__", func() any { return false }, nil, nil)
			tl.nodes[tl.pausedNode.ID] = tl.pausedNode
		}
		n = tl.pausedNode
	})
	return n
}

// Close cancels the scope, stopping any background producers (the clock)
// and waiting for outstanding async listener dispatches to finish.
func (tl *Timeline) Close() {
	tl.scope.Close()
}
