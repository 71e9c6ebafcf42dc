package mux

import (
	"bytes"
	"testing"
)

// newPair builds a Core/Peer bound to opposite ends of a fresh ComArea.
// Tests drive both sides synchronously (no goroutines, no Run loop) so
// assertions can be made deterministically between each step; see
// core_test.go for a goroutine-driven exercise of Run itself.
func newPair(services map[string]ServiceHandler) (*Core, *Peer) {
	ca := NewComArea()
	core := NewCore(ca.Local(), 1, WithLogger(discardLogger()))
	peer := NewPeer(ca.Remote(), services)
	return core, peer
}

func mustReply(t *testing.T, req *Request) Reply {
	t.Helper()
	select {
	case r := <-req.Done():
		return r
	default:
		t.Fatalf("request %v/%v: no reply delivered yet", req.Command, req.LocalID)
		return Reply{}
	}
}

func noReplyYet(t *testing.T, req *Request) {
	t.Helper()
	select {
	case r := <-req.Done():
		t.Fatalf("request %v/%v: unexpected reply %+v", req.Command, req.LocalID, r)
	default:
	}
}

// Connect, write, eos, close: the happy path end to end.
func TestScenarioConnectWriteEOSClose(t *testing.T) {
	const owner, local = TaskID(1), SocketID(1)
	core, peer := newPair(map[string]ServiceHandler{"echo": EchoHandler})

	connect := NewRequest(CmdConnect, owner, local, []byte("echo"), 4)
	core.handleRequest(connect)
	peer.drain()
	core.drainInbound()

	if r := mustReply(t, connect); r.Outcome != ConnectOK {
		t.Fatalf("connect outcome = %v, want ConnectOK", r.Outcome)
	}

	write := NewRequest(CmdWrite, owner, local, []byte("hello"), 5)
	core.handleRequest(write)
	if r := mustReply(t, write); r.Outcome != WriteOK || r.Length != 5 {
		t.Fatalf("write reply = %+v, want WriteOK/5", r)
	}

	peer.drain() // peer echoes "hello" back as DATA
	core.drainInbound()

	read := NewRequest(CmdRead, owner, local, make([]byte, 16), 16)
	core.handleRequest(read)
	r := mustReply(t, read)
	if r.Outcome != ReadOK || !bytes.Equal(read.Buffer[:r.Length], []byte("hello")) {
		t.Fatalf("read reply = %+v buf=%q, want ReadOK/hello", r, read.Buffer[:r.Length])
	}

	eos := NewRequest(CmdEOS, owner, local, nil, 0)
	core.handleRequest(eos)
	if r := mustReply(t, eos); r.Outcome != EOSOK {
		t.Fatalf("eos outcome = %v, want EOSOK", r.Outcome)
	}

	peer.drain() // peer observes client EOS, mirrors EOS back, then drops the stream
	core.drainInbound()

	readEOS := NewRequest(CmdRead, owner, local, make([]byte, 16), 16)
	core.handleRequest(readEOS)
	if r := mustReply(t, readEOS); r.Outcome != ReadEOS {
		t.Fatalf("final read outcome = %v, want ReadEOS", r.Outcome)
	}

	if core.table.find(owner, local) != nil {
		t.Fatalf("socket still present after mutual EOS, want deleted")
	}
}

// Scenario 2: unknown service closes the socket silently (no RESET).
func TestScenarioUnknownService(t *testing.T) {
	const owner, local = TaskID(1), SocketID(1)
	core, peer := newPair(map[string]ServiceHandler{})

	connect := NewRequest(CmdConnect, owner, local, []byte("nosuchsvc"), 9)
	core.handleRequest(connect)
	peer.drain()
	core.drainInbound()

	if r := mustReply(t, connect); r.Outcome != ConnectUnknownService {
		t.Fatalf("connect outcome = %v, want ConnectUnknownService", r.Outcome)
	}
	if core.table.find(owner, local) != nil {
		t.Fatalf("socket still present after unknown-service close")
	}
	if core.ep.Out().Used() != 0 {
		t.Fatalf("a2r has %d bytes queued, want 0 (no outbound RESET for unknown service)", core.ep.Out().Used())
	}
}

// Scenario 3: an oversized inbound DATA frame against a smaller pending
// READ buffer forces READ_RESET to the client and an outbound RESET.
func TestScenarioOversizedReadBuffer(t *testing.T) {
	const owner, local = TaskID(1), SocketID(1)
	bigReply := func(data []byte) []byte { return make([]byte, 10) }
	core, peer := newPair(map[string]ServiceHandler{"big": bigReply})

	connect := NewRequest(CmdConnect, owner, local, []byte("big"), 3)
	core.handleRequest(connect)
	peer.drain()
	core.drainInbound()
	if r := mustReply(t, connect); r.Outcome != ConnectOK {
		t.Fatalf("connect outcome = %v, want ConnectOK", r.Outcome)
	}

	read := NewRequest(CmdRead, owner, local, make([]byte, 4), 4)
	core.handleRequest(read)
	noReplyYet(t, read)

	write := NewRequest(CmdWrite, owner, local, []byte("x"), 1)
	core.handleRequest(write)
	mustReply(t, write)

	peer.drain() // service replies with a 10-byte DATA frame
	core.drainInbound()

	if r := mustReply(t, read); r.Outcome != ReadReset {
		t.Fatalf("read outcome = %v, want ReadReset", r.Outcome)
	}
	if core.table.find(owner, local) != nil {
		t.Fatalf("socket still present after oversized-read close")
	}
}

// Scenario 4: backpressure — a WRITE that doesn't fit queues, and
// resumes once the peer frees enough room.
func TestScenarioBackpressure(t *testing.T) {
	const owner, local = TaskID(1), SocketID(1)
	core, peer := newPair(map[string]ServiceHandler{"echo": EchoHandler})

	connect := NewRequest(CmdConnect, owner, local, []byte("echo"), 4)
	core.handleRequest(connect)
	peer.drain()
	core.drainInbound()
	mustReply(t, connect)

	// Fill a2r to 254 used bytes with a filler frame the peer never
	// reads, so the next WRITE cannot fit (254+3+5 > 255).
	core.ep.Out().Append(PacketData, 99, make([]byte, 251))
	if got := core.ep.Out().Used(); got != 254 {
		t.Fatalf("a2r used = %d, want 254", got)
	}

	write := NewRequest(CmdWrite, owner, local, []byte("hello"), 5)
	core.handleRequest(write)
	noReplyYet(t, write)
	if core.sq.empty() {
		t.Fatalf("write should have queued on the send queue")
	}

	// Peer consumes 20 bytes of the filler frame, freeing room.
	core.ep.Out().Consume(20)
	core.drainOutbound()

	r := mustReply(t, write)
	if r.Outcome != WriteOK || r.Length != 5 {
		t.Fatalf("write reply after backpressure clears = %+v, want WriteOK/5", r)
	}
	_ = peer // peer unused once the ring is manipulated directly
}

// Scenario 5: mutual EOS race — client EOS completes first; when the
// peer's EOS later arrives and the client reads it, the socket closes
// without a RESET.
func TestScenarioMutualEOSRace(t *testing.T) {
	const owner, local = TaskID(1), SocketID(1)
	ca := NewComArea()
	core := NewCore(ca.Local(), 1, WithLogger(discardLogger()))
	peer := NewPeer(ca.Remote(), map[string]ServiceHandler{"echo": EchoHandler})

	connect := NewRequest(CmdConnect, owner, local, []byte("echo"), 4)
	core.handleRequest(connect)
	peer.drain()
	core.drainInbound()
	mustReply(t, connect)

	eos := NewRequest(CmdEOS, owner, local, nil, 0)
	core.handleRequest(eos)
	if r := mustReply(t, eos); r.Outcome != EOSOK {
		t.Fatalf("client eos outcome = %v, want EOSOK", r.Outcome)
	}

	// The peer observes the client's EOS and mirrors its own EOS back.
	peer.drain()
	core.drainInbound()

	s := core.table.find(owner, local)
	if s == nil {
		t.Fatalf("socket deleted too early, before client has read the peer's EOS")
	}
	if !s.flags.has(FlagRcvdEOSFromPeer) {
		t.Fatalf("RCVD_EOS_FROM_PEER not set after peer's EOS arrived")
	}

	read := NewRequest(CmdRead, owner, local, make([]byte, 16), 16)
	core.handleRequest(read)
	if r := mustReply(t, read); r.Outcome != ReadEOS {
		t.Fatalf("read outcome = %v, want ReadEOS", r.Outcome)
	}
	if core.table.find(owner, local) != nil {
		t.Fatalf("socket still present after mutual EOS delivered to client")
	}
}

// Scenario 6: a RESET arriving while CONNECT is pending completes the
// client with CONNECT_RESET and deletes the socket without an outbound
// RESET of our own.
func TestScenarioResetDuringPendingConnect(t *testing.T) {
	const owner, local = TaskID(1), SocketID(1)
	core, _ := newPair(nil)

	connect := NewRequest(CmdConnect, owner, local, []byte("svc"), 3)
	core.handleRequest(connect)
	noReplyYet(t, connect)

	s := core.table.find(owner, local)
	if s == nil {
		t.Fatalf("socket not created on CONNECT")
	}

	core.ep.In().Append(PacketReset, s.streamID, nil)
	core.drainInbound()

	if r := mustReply(t, connect); r.Outcome != ConnectReset {
		t.Fatalf("connect outcome = %v, want ConnectReset", r.Outcome)
	}
	if core.table.find(owner, local) != nil {
		t.Fatalf("socket still present after RESET during pending connect")
	}
}

// RESET is idempotent: issuing it twice both complete RESET_OK, and the
// second is a no-op.
func TestResetIdempotent(t *testing.T) {
	const owner, local = TaskID(1), SocketID(1)
	core, peer := newPair(map[string]ServiceHandler{"echo": EchoHandler})

	connect := NewRequest(CmdConnect, owner, local, []byte("echo"), 4)
	core.handleRequest(connect)
	peer.drain()
	core.drainInbound()
	mustReply(t, connect)

	reset1 := NewRequest(CmdReset, owner, local, nil, 0)
	core.handleRequest(reset1)
	if r := mustReply(t, reset1); r.Outcome != ResetOK {
		t.Fatalf("first reset outcome = %v, want ResetOK", r.Outcome)
	}

	reset2 := NewRequest(CmdReset, owner, local, nil, 0)
	core.handleRequest(reset2)
	if r := mustReply(t, reset2); r.Outcome != ResetOK {
		t.Fatalf("second reset outcome = %v, want ResetOK", r.Outcome)
	}
}

// Closing a socket that still has both a pending READ and queued
// receive data discards the queue and replies READ_RESET, never
// leaking the pending request.
func TestCloseSocketDiscardsPendingReadAndQueue(t *testing.T) {
	const owner, local = TaskID(1), SocketID(1)
	core, _ := newPair(nil)

	connect := NewRequest(CmdConnect, owner, local, []byte("svc"), 3)
	core.handleRequest(connect)
	s := core.table.find(owner, local)
	if s == nil {
		t.Fatalf("socket not created")
	}

	pendingRead := NewRequest(CmdRead, owner, local, make([]byte, 16), 16)
	s.pendingRead = pendingRead
	s.enqueueData([]byte("leftover"))

	core.closeSocket(s, true)

	if r := mustReply(t, pendingRead); r.Outcome != ReadReset {
		t.Fatalf("pending read outcome = %v, want ReadReset", r.Outcome)
	}
	if s.rq.Len() != 0 {
		t.Fatalf("receive queue not cleared on close")
	}
	if !s.closed() {
		t.Fatalf("socket not marked CLOSED")
	}
}
