package internal

import "sync/atomic"

// NodeID is an opaque, monotonically increasing vertex identifier. IDs are
// issued by a Timeline and never reused, even across rollback.
type NodeID uint64

var nextNodeID atomic.Uint64

func newNodeID() NodeID {
	return NodeID(nextNodeID.Add(1))
}

// Node is one vertex of the dependency graph. Its value is type-erased to
// `any`; the public Event[A]/State[A] wrappers do the single downcast at the
// boundary. A Node with a nil recompute is an input (leaf); everything else
// is derived.
type Node struct {
	ID    NodeID
	Label string

	// initial lazily supplies a derived node's first value. It is forced at
	// most once, on the first fetch of a node not yet computed, and never
	// again; creating a node does not run it.
	initial lazyInitial

	// recompute produces a fresh value by reading parent nodes through the
	// owning Timeline: when a dirty node is fetched, and during eager
	// propagation, which may run it on a node whose initial was never
	// forced. nil for input nodes.
	recompute func() any

	// alwaysEager bypasses lazy dirty-marking entirely. Fold nodes set this:
	// the occurrence they fold over resets to None at the end of its frame,
	// so a fold that waited to be pulled would lose it forever.
	alwaysEager bool

	// onNextFrame resets event-valued nodes back to None after the frame
	// they fired in. Queued by updateNodeValue, run at the start of the
	// next external update.
	onNextFrame func()

	raw      any
	computed bool // false until the first fetch forces the lazy initial value
	dirty    bool

	syncListeners  []func(any)
	asyncListeners []func(any)
}

// lazyInitial supplies a Node's value the first time it is fetched, without
// requiring a nullable sentinel for value types whose zero value (0, false,
// "") is meaningful on its own.
type lazyInitial func() any

func newNode(label string, initial lazyInitial, recompute func() any, onNextFrame func()) *Node {
	return &Node{
		ID:          newNodeID(),
		Label:       label,
		initial:     initial,
		recompute:   recompute,
		onNextFrame: onNextFrame,
	}
}

// forceInitial computes and stores the node's first value, exactly once.
// Until this runs, no side effect attached to the initial thunk has fired.
// A panicking initial thunk leaves the node uncomputed, matching the rule
// that a failed update never leaves a derived value silently in place.
func (n *Node) forceInitial() {
	if n.computed {
		return
	}
	if n.initial != nil {
		defer func() {
			if r := recover(); r != nil {
				if up, ok := r.(UserPanic); ok {
					panic(up)
				}
				panic(UserPanic{Label: n.Label, Value: r})
			}
		}()
		n.raw = n.initial()
	}
	n.initial = nil
	n.computed = true
	n.dirty = false
}

// RegisterSyncListener appends a synchronous listener and returns an index
// token that UnregisterSyncListener can use to remove it again. Registration
// is not deduplicated.
func (n *Node) RegisterSyncListener(fn func(any)) int {
	n.syncListeners = append(n.syncListeners, fn)
	return len(n.syncListeners) - 1
}

func (n *Node) UnregisterSyncListener(token int) {
	if token < 0 || token >= len(n.syncListeners) {
		return
	}
	n.syncListeners[token] = nil
}

// RegisterAsyncListener appends an async listener, dispatched outside the
// coarse lock via the Timeline's scope.
func (n *Node) RegisterAsyncListener(fn func(any)) {
	n.asyncListeners = append(n.asyncListeners, fn)
}

func (n *Node) HasListeners() bool {
	if len(n.asyncListeners) > 0 {
		return true
	}
	for _, l := range n.syncListeners {
		if l != nil {
			return true
		}
	}
	return false
}

func (n *Node) MarkDirty() { n.dirty = true }
