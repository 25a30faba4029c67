package chat

import "sync/atomic"

// Stats is a point-in-time view of hub counters.
type Stats struct {
	Accepted       int64
	Active         int
	MessagesIn     int64
	FramesQueued   int64
	Overflows      int64
	ProtocolErrors int64
}

type counters struct {
	accepted       atomic.Int64
	messagesIn     atomic.Int64
	framesQueued   atomic.Int64
	overflows      atomic.Int64
	protocolErrors atomic.Int64
}
