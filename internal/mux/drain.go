package mux

// drainOutbound pops sockets off the send queue and emits exactly one
// frame each, for as long as the queue is non-empty and the head
// socket's next frame fits. Head-of-line blocking is deliberate: a
// socket deeper in the queue never jumps ahead of a blocked head, which
// keeps per-stream ordering trivial to reason about.
func (c *Core) drainOutbound() bool {
	out := c.ep.Out()
	did := false

	for !c.sq.empty() {
		head := c.sq.head()
		if !out.RoomFor(head.sendQueueRequiredLength) {
			break
		}

		c.sq.popHead()
		c.emitOne(head)
		did = true
	}

	return did
}

func (c *Core) emitOne(s *Socket) {
	switch {
	case s.pendingConnect != nil:
		req := s.pendingConnect
		c.appendFrame(PacketConnect, s.streamID, req.Buffer[:req.Length])
		// CONNECT only completes once CONNECT_RESPONSE arrives; leave
		// pendingConnect set so drainInbound can find it.
		return

	case s.pendingWrite != nil && !s.writeIsEOS:
		req := s.pendingWrite
		s.pendingWrite = nil
		c.appendFrame(PacketData, s.streamID, req.Buffer[:req.Length])
		req.complete(WriteOK, req.Length)
		return

	case s.pendingWrite != nil && s.writeIsEOS:
		req := s.pendingWrite
		s.pendingWrite = nil
		c.appendFrame(PacketEOS, s.streamID, nil)
		req.complete(EOSOK, 0)

		s.flags |= FlagSentEOSToPeer
		if s.flags.has(FlagSentEOSToClient) {
			c.closeSocket(s, false)
		}
		return

	case s.flags.has(FlagShouldSendReset):
		c.appendFrame(PacketReset, s.streamID, nil)
		c.deleteSocket(s)
		return

	default:
		c.log.Warn().Uint8("stream", s.streamID).
			Msg("invariant violation: socket was queued with nothing to send")
		c.closeSocket(s, true)
	}
}
