package timewalk

import "github.com/halvorsenlabs/timewalk/internal"

// NodeID identifies a graph vertex. It is never reused, even across
// rollback.
type NodeID = internal.NodeID

// ExternalEvent is one entry of the event trace: the external node that
// changed, the value it was given, and the frame it occurred on.
type ExternalEvent = internal.ExternalEvent
