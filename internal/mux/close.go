package mux

// closeSocket replies to and clears any pending client request, frees
// the receive queue, removes the socket from the send queue, marks it
// CLOSED, and either emits a trailing RESET immediately or defers it
// through the send queue. It never replies to a client request twice.
// Apart from the outbound drain, which deletes a socket directly once
// its deferred RESET is emitted, it is the only path that deletes a
// socket from the table.
func (c *Core) closeSocket(s *Socket, sendReset bool) {
	if s.pendingConnect != nil {
		s.pendingConnect.complete(ConnectReset, 0)
		s.pendingConnect = nil
	}
	if s.pendingRead != nil {
		s.pendingRead.complete(ReadReset, 0)
		s.pendingRead = nil
	}
	if s.pendingWrite != nil {
		outcome := WriteReset
		if s.writeIsEOS {
			outcome = EOSReset
		}
		s.pendingWrite.complete(outcome, 0)
		s.pendingWrite = nil
	}

	s.clearData()
	c.sq.remove(s)

	s.flags |= FlagClosed

	shouldDelete := true

	if sendReset {
		if c.sq.empty() && c.ep.Out().RoomFor(0) {
			c.appendFrame(PacketReset, s.streamID, nil)
		} else {
			s.flags |= FlagShouldSendReset
			c.sq.push(s, 0)
			shouldDelete = false
		}
	}

	if shouldDelete {
		c.deleteSocket(s)
	}
}

// deleteSocket removes s from the table and starts its stream_id's
// reuse cooldown.
func (c *Core) deleteSocket(s *Socket) {
	c.table.delete(s)
	c.alloc.release(s.streamID)
}
