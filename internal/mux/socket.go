package mux

import "container/list"

// SocketFlags are independent bits tracking a stream's half-close and
// teardown state.
type SocketFlags uint8

const (
	FlagClosed SocketFlags = 1 << iota
	FlagRcvdEOSFromPeer
	FlagSentEOSToPeer
	FlagSentEOSToClient
	FlagRcvdEOSFromClient
	FlagShouldSendReset
)

func (f SocketFlags) has(bit SocketFlags) bool { return f&bit != 0 }

// ownerKey is the client-facing identity of a socket: locally unique
// per (owner task, client-chosen id).
type ownerKey struct {
	owner TaskID
	local SocketID
}

// Socket is one multiplexed stream's full state, identity, and pending
// work. At most one of pendingConnect/pendingWrite is set at a time;
// pendingRead never coexists with pendingConnect but may coexist with
// pendingWrite.
type Socket struct {
	streamID uint8
	key      ownerKey

	flags SocketFlags

	pendingConnect *Request
	pendingRead    *Request
	pendingWrite   *Request
	writeIsEOS     bool // pendingWrite represents a CmdEOS rather than CmdWrite

	rq *list.List // FIFO of queued []byte payloads awaiting a READ

	sendQueueRequiredLength int
	sendElem                *list.Element // this socket's node in the Core's send queue, nil if not queued
}

func newSocket(streamID uint8, key ownerKey) *Socket {
	return &Socket{
		streamID: streamID,
		key:      key,
		rq:       list.New(),
	}
}

func (s *Socket) closed() bool { return s.flags.has(FlagClosed) }

// enqueueData appends a received payload to the socket's receive FIFO.
func (s *Socket) enqueueData(payload []byte) {
	s.rq.PushBack(payload)
}

// popData removes and returns the oldest queued payload, or nil if
// empty.
func (s *Socket) popData() []byte {
	front := s.rq.Front()
	if front == nil {
		return nil
	}
	s.rq.Remove(front)
	return front.Value.([]byte)
}

// clearData frees the entire receive FIFO (used by close).
func (s *Socket) clearData() {
	s.rq.Init()
}

// socketTable indexes the set of active sockets by both stream_id (for
// inbound dispatch) and by (owner_task, local_id) (for client
// requests).
type socketTable struct {
	byStream map[uint8]*Socket
	byOwner  map[ownerKey]*Socket
}

func newSocketTable() *socketTable {
	return &socketTable{
		byStream: make(map[uint8]*Socket),
		byOwner:  make(map[ownerKey]*Socket),
	}
}

func (t *socketTable) find(owner TaskID, local SocketID) *Socket {
	return t.byOwner[ownerKey{owner, local}]
}

func (t *socketTable) findByStreamID(streamID uint8) *Socket {
	return t.byStream[streamID]
}

func (t *socketTable) insert(s *Socket) {
	t.byStream[s.streamID] = s
	t.byOwner[s.key] = s
}

func (t *socketTable) delete(s *Socket) {
	delete(t.byStream, s.streamID)
	delete(t.byOwner, s.key)
}

func (t *socketTable) inUse(streamID uint8) bool {
	_, ok := t.byStream[streamID]
	return ok
}
