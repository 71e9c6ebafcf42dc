package mux

// drainInbound parses every complete frame currently sitting in the
// inbound ring and dispatches it, advancing head past each as it is
// consumed. Returns whether it did any work, so the main loop's
// fixed-point drain knows whether to keep iterating.
func (c *Core) drainInbound() bool {
	in := c.ep.In()
	did := false

	for in.Used() > 0 {
		hdr := in.PeekHeader()
		payload := in.PeekPayload(hdr.Length)

		c.dispatchInbound(hdr, payload)

		in.Consume(3 + hdr.Length)
		c.ep.NotifyPeer(inHeadEdge(c.ep))
		did = true
	}

	return did
}

func (c *Core) dispatchInbound(hdr Header, payload []byte) {
	s := c.table.findByStreamID(hdr.StreamID)

	if s != nil && hdr.Type == PacketReset {
		c.log.Debug().Uint8("stream", hdr.StreamID).Msg("received RESET")
		c.closeSocket(s, false)
		return
	}

	if s == nil || s.closed() {
		// Only CONNECT could create a socket for an unknown stream, and
		// this side never accepts peer-initiated streams, so there is
		// nothing to dispatch to.
		return
	}

	switch hdr.Type {
	case PacketConnectResponse:
		c.handleConnectResponse(s, payload)
	case PacketData:
		c.handleData(s, payload)
	case PacketEOS:
		c.handleInboundEOS(s)
	default:
		c.log.Warn().Uint8("stream", hdr.StreamID).Str("type", hdr.Type.String()).
			Msg("protocol error: unexpected inbound packet type")
	}
}

func (c *Core) handleConnectResponse(s *Socket, payload []byte) {
	if s.pendingConnect == nil {
		c.log.Warn().Uint8("stream", s.streamID).
			Msg("invariant violation: CONNECT_RESPONSE without a pending connect")
		c.closeSocket(s, true)
		return
	}
	if len(payload) != 1 {
		c.log.Warn().Uint8("stream", s.streamID).Int("length", len(payload)).
			Msg("invariant violation: CONNECT_RESPONSE with length != 1")
		c.closeSocket(s, true)
		return
	}

	req := s.pendingConnect
	s.pendingConnect = nil

	if payload[0] == 0 {
		req.complete(ConnectOK, 0)
		return
	}
	req.complete(ConnectUnknownService, 0)
	c.closeSocket(s, false)
}

func (c *Core) handleData(s *Socket, payload []byte) {
	if s.pendingRead == nil {
		cp := append([]byte(nil), payload...)
		s.enqueueData(cp)
		return
	}

	req := s.pendingRead
	if len(req.Buffer) < len(payload) {
		s.pendingRead = nil
		req.complete(ReadReset, 0)
		c.closeSocket(s, true)
		return
	}

	n := copy(req.Buffer, payload)
	s.pendingRead = nil
	req.complete(ReadOK, n)
}

func (c *Core) handleInboundEOS(s *Socket) {
	s.flags |= FlagRcvdEOSFromPeer

	if s.pendingRead == nil {
		return
	}

	req := s.pendingRead
	s.pendingRead = nil
	req.complete(ReadEOS, 0)

	s.flags |= FlagSentEOSToClient
	if s.flags.has(FlagSentEOSToPeer) {
		c.closeSocket(s, false)
	}
}
