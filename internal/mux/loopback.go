package mux

import "context"

// ServiceHandler answers one service's inbound data. It returns the
// bytes to echo back as a DATA frame (nil for no immediate reply).
// Registered per service name against a Peer.
type ServiceHandler func(data []byte) []byte

// EchoHandler is the trivial ServiceHandler used by the loopback demo
// and by most tests: whatever the client writes is written back
// unchanged.
func EchoHandler(data []byte) []byte { return append([]byte(nil), data...) }

// peerStream is a Peer's bookkeeping for one stream it has accepted a
// CONNECT on; Peer has no client-request surface of its own, so its
// state is intentionally smaller than Socket.
type peerStream struct {
	handler           ServiceHandler
	rcvdEOSFromClient bool
	sentEOSToClient   bool
}

// Peer is a minimal remote-side responder over a ComArea's Remote
// endpoint: it answers CONNECT by looking up a registered service name,
// then runs DATA through that service's handler, mirrors EOS, and drops
// a stream on RESET without sending a RESET back.
// It exists so this repo can exercise the local Core end to end without
// a real second process. It is not part of the protocol core itself —
// service lookup and response generation are policy a real remote
// process would own.
type Peer struct {
	ep       Endpoint
	services map[string]ServiceHandler
	streams  map[uint8]*peerStream
}

// NewPeer constructs a Peer bound to ep (normally a ComArea's Remote
// endpoint), with the given named services.
func NewPeer(ep Endpoint, services map[string]ServiceHandler) *Peer {
	return &Peer{
		ep:       ep,
		services: services,
		streams:  make(map[uint8]*peerStream),
	}
}

// Run drains inbound frames and responds until ctx is cancelled. Unlike
// Core, Peer has no client-request channel to wait on; it only reacts
// to wire traffic, so it parks on the wake channel between bursts.
func (p *Peer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.ep.WakeChan():
		}
		p.drain()
	}
}

func (p *Peer) drain() {
	in := p.ep.In()
	for in.Used() > 0 {
		hdr := in.PeekHeader()
		payload := in.PeekPayload(hdr.Length)
		in.Consume(3 + hdr.Length)
		p.ep.NotifyPeer(inHeadEdge(p.ep))

		p.handleFrame(hdr, payload)
	}
}

func (p *Peer) handleFrame(hdr Header, payload []byte) {
	switch hdr.Type {
	case PacketConnect:
		p.handleConnect(hdr.StreamID, payload)
	case PacketData:
		p.handleData(hdr.StreamID, payload)
	case PacketEOS:
		p.handleEOS(hdr.StreamID)
	case PacketReset:
		delete(p.streams, hdr.StreamID)
	}
}

func (p *Peer) handleConnect(streamID uint8, payload []byte) {
	handler, ok := p.services[string(payload)]
	if !ok {
		p.reply(streamID, PacketConnectResponse, []byte{1})
		return
	}
	p.streams[streamID] = &peerStream{handler: handler}
	p.reply(streamID, PacketConnectResponse, []byte{0})
}

func (p *Peer) handleData(streamID uint8, payload []byte) {
	st := p.streams[streamID]
	if st == nil {
		return
	}
	if resp := st.handler(payload); resp != nil {
		p.reply(streamID, PacketData, resp)
	}
}

func (p *Peer) handleEOS(streamID uint8) {
	st := p.streams[streamID]
	if st == nil {
		return
	}
	st.rcvdEOSFromClient = true
	if !st.sentEOSToClient {
		p.reply(streamID, PacketEOS, nil)
		st.sentEOSToClient = true
	}
	if st.rcvdEOSFromClient && st.sentEOSToClient {
		delete(p.streams, streamID)
	}
}

func (p *Peer) reply(streamID uint8, pt PacketType, payload []byte) {
	out := p.ep.Out()
	if !out.RoomFor(len(payload)) {
		// The loopback peer has no send queue of its own: it is a
		// test/demo fixture, not a second protocol core, so a full
		// ring left with no consumer is treated as a fixture bug
		// rather than a condition production traffic must survive.
		panic("mux: loopback peer ring full, fixture is misconfigured")
	}
	out.Append(pt, streamID, payload)
	p.ep.NotifyPeer(outTailEdge(p.ep))
}
