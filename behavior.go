package timewalk

// Behavior is a read-only sampled value. It is not itself a graph node:
// sampling a Behavior never creates an edge. Every State is also a
// Behavior; purely computed behaviors (e.g. a constant, or a derived
// computation over other behaviors) need not be backed by a node at all.
type Behavior[A any] interface {
	Sample() A
}

// behaviorFunc adapts a plain closure into a Behavior, for purely computed
// behaviors that never touch the graph.
type behaviorFunc[A any] func() A

func (f behaviorFunc[A]) Sample() A { return f() }

// BehaviorOf wraps a closure as a Behavior.
func BehaviorOf[A any](sample func() A) Behavior[A] {
	return behaviorFunc[A](sample)
}
