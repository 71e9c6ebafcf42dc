package mux

// handleRequest dispatches one client request to the appropriate
// handler by command.
func (c *Core) handleRequest(req *Request) {
	s := c.table.find(req.OwnerTask, req.LocalID)

	switch req.Command {
	case CmdConnect:
		c.handleConnect(req, s)
	case CmdRead:
		c.handleRead(req, s)
	case CmdWrite:
		c.handleWrite(req, s)
	case CmdEOS:
		c.handleEOS(req, s)
	case CmdReset:
		c.handleReset(req, s)
	default:
		req.complete(NoCmd, 0)
	}
}

func (c *Core) handleConnect(req *Request, s *Socket) {
	if s != nil {
		req.complete(ConnectSocketInUse, 0)
		return
	}
	if req.Length+3 > 255 {
		req.complete(ConnectReset, 0)
		return
	}

	streamID, err := c.alloc.allocate(c.table.inUse)
	if err != nil {
		req.complete(ConnectReset, 0)
		return
	}

	s = newSocket(streamID, ownerKey{req.OwnerTask, req.LocalID})
	s.pendingConnect = req
	c.table.insert(s)

	if c.sq.empty() && c.ep.Out().RoomFor(req.Length) {
		c.appendFrame(PacketConnect, streamID, req.Buffer[:req.Length])
	} else {
		c.sq.push(s, req.Length)
	}
}

func (c *Core) handleRead(req *Request, s *Socket) {
	if s == nil || s.closed() {
		req.complete(ReadReset, 0)
		return
	}

	if s.pendingConnect != nil || s.pendingRead != nil {
		req.complete(ReadReset, 0)
		c.closeSocket(s, true)
		return
	}

	if queued := s.popData(); queued != nil {
		if len(req.Buffer) < len(queued) {
			req.complete(ReadReset, 0)
			c.closeSocket(s, true)
			return
		}
		n := copy(req.Buffer, queued)
		req.complete(ReadOK, n)
		return
	}

	if s.flags.has(FlagRcvdEOSFromPeer) {
		req.complete(ReadEOS, 0)
		s.flags |= FlagSentEOSToClient
		if s.flags.has(FlagSentEOSToPeer) {
			c.closeSocket(s, false)
		}
		return
	}

	s.pendingRead = req
}

func (c *Core) handleWrite(req *Request, s *Socket) {
	if s == nil || s.closed() {
		req.complete(WriteReset, 0)
		return
	}

	if s.pendingConnect != nil || s.pendingWrite != nil ||
		s.flags.has(FlagRcvdEOSFromClient) || req.Length+3 > 255 {
		req.complete(WriteReset, 0)
		c.closeSocket(s, true)
		return
	}

	if c.sq.empty() && c.ep.Out().RoomFor(req.Length) {
		c.appendFrame(PacketData, s.streamID, req.Buffer[:req.Length])
		req.complete(WriteOK, req.Length)
		return
	}

	s.pendingWrite = req
	s.writeIsEOS = false
	c.sq.push(s, req.Length)
}

func (c *Core) handleEOS(req *Request, s *Socket) {
	if s == nil || s.closed() {
		req.complete(EOSReset, 0)
		return
	}

	if s.pendingConnect != nil || s.pendingWrite != nil || s.flags.has(FlagRcvdEOSFromClient) {
		req.complete(EOSReset, 0)
		c.closeSocket(s, true)
		return
	}

	s.flags |= FlagRcvdEOSFromClient

	if c.sq.empty() && c.ep.Out().RoomFor(0) {
		c.appendFrame(PacketEOS, s.streamID, nil)
		req.complete(EOSOK, 0)

		s.flags |= FlagSentEOSToPeer
		if s.flags.has(FlagSentEOSToClient) {
			c.closeSocket(s, false)
		}
		return
	}

	s.pendingWrite = req
	s.writeIsEOS = true
	c.sq.push(s, 0)
}

func (c *Core) handleReset(req *Request, s *Socket) {
	req.complete(ResetOK, 0)

	if s == nil || s.closed() {
		return
	}
	c.closeSocket(s, true)
}
