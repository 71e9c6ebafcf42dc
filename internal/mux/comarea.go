package mux

import "sync/atomic"

// Edge identifies which ring index changed. Edges are retained here
// purely as a diagnostic surface (ComAreaStats, the muxctl CLI) rather
// than as the actual wake mechanism: a Go channel send into a
// capacity-1 buffer already latches an edge, so there is no
// lost-wakeup race to guard against with a separate enable/gate dance.
type Edge uint8

const (
	EdgeA2RTail Edge = 1 << iota // this side wrote to a2r
	EdgeR2AHead                  // this side consumed from r2a
	EdgeR2ATail                  // peer wrote to r2a
	EdgeA2RHead                  // peer consumed from a2r
)

func (e Edge) String() string {
	if e == 0 {
		return "none"
	}
	names := []struct {
		bit  Edge
		name string
	}{
		{EdgeA2RTail, "a2r_tail"},
		{EdgeR2AHead, "r2a_head"},
		{EdgeR2ATail, "r2a_tail"},
		{EdgeA2RHead, "a2r_head"},
	}
	s := ""
	for _, n := range names {
		if e&n.bit == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += n.name
	}
	return s
}

// ComArea is the shared mailbox between the two peers: two independent
// byte rings plus a pair of edge-latching wake channels. Both Cores
// attached to a ComArea hold a pointer to the same value; a single
// writer per direction plus atomic index publication is what makes
// that safe without a lock.
type ComArea struct {
	// A2R carries local -> remote traffic: the local side appends, the
	// remote side consumes. R2A is the mirror image.
	A2R Ring
	R2A Ring

	localEvents atomic.Uint32 // edges the peer has posted to us, for diagnostics
	peerEvents  atomic.Uint32 // edges we have posted to the peer, for diagnostics
	localArmed  atomic.Uint32 // edges the local Core is currently blocked waiting on
	peerArmed   atomic.Uint32

	localWake chan struct{}
	peerWake  chan struct{}
}

// NewComArea allocates a fresh, empty mailbox with its two wake channels
// ready. Each channel is buffered by 1: signalling is an edge, not a
// counter, so coalescing redundant wakes is correct and matches the
// register file's single-bit-per-edge semantics.
func NewComArea() *ComArea {
	return &ComArea{
		localWake: make(chan struct{}, 1),
		peerWake:  make(chan struct{}, 1),
	}
}

func wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Endpoint is one side's view of a ComArea: which ring it appends to,
// which it consumes from, and which wake channel it waits on. Local()
// and Remote() are the only two Endpoints a ComArea has; a Core is
// constructed against exactly one of them and never looks at the other.
type Endpoint struct {
	ca    *ComArea
	local bool
}

// Local returns the endpoint for the client-serving side: writes a2r,
// reads r2a.
func (c *ComArea) Local() Endpoint { return Endpoint{ca: c, local: true} }

// Remote returns the endpoint for the service-exposing side: writes
// r2a, reads a2r.
func (c *ComArea) Remote() Endpoint { return Endpoint{ca: c, local: false} }

// Out is the ring this endpoint appends frames to.
func (e Endpoint) Out() *Ring {
	if e.local {
		return &e.ca.A2R
	}
	return &e.ca.R2A
}

// In is the ring this endpoint reads frames from.
func (e Endpoint) In() *Ring {
	if e.local {
		return &e.ca.R2A
	}
	return &e.ca.A2R
}

// WakeChan is the channel this endpoint's main loop selects on to be
// woken by the other side's progress.
func (e Endpoint) WakeChan() chan struct{} {
	if e.local {
		return e.ca.localWake
	}
	return e.ca.peerWake
}

// NotifyPeer wakes the other endpoint and records which edges changed,
// for diagnostics. Call after appending to Out or consuming from In.
func (e Endpoint) NotifyPeer(edges Edge) {
	if edges == 0 {
		return
	}
	if e.local {
		e.ca.peerEvents.Or(uint32(edges))
		wake(e.ca.peerWake)
	} else {
		e.ca.localEvents.Or(uint32(edges))
		wake(e.ca.localWake)
	}
}

// SetArmed records, for diagnostics only, which edges this endpoint's
// main loop is currently blocked waiting on.
func (e Endpoint) SetArmed(edges Edge) {
	if e.local {
		e.ca.localArmed.Store(uint32(edges))
	} else {
		e.ca.peerArmed.Store(uint32(edges))
	}
}

// ComAreaStats is a snapshot for the muxctl CLI and tests.
type ComAreaStats struct {
	A2RUsed, R2AUsed   uint8
	LocalArmed         Edge
	PeerArmed          Edge
}

// Stats snapshots the current ring occupancy and armed-edge state.
func (c *ComArea) Stats() ComAreaStats {
	return ComAreaStats{
		A2RUsed:    c.A2R.Used(),
		R2AUsed:    c.R2A.Used(),
		LocalArmed: Edge(c.localArmed.Load()),
		PeerArmed:  Edge(c.peerArmed.Load()),
	}
}
