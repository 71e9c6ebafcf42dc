package mux

import "errors"

// Sentinel errors for conditions that never cross the client request ABI
// (those surface as an Outcome instead, see status.go).
var (
	// ErrStreamIDExhausted is returned by the stream id allocator when no
	// stream_id is available in this side's parity class.
	ErrStreamIDExhausted = errors.New("mux: stream id space exhausted")
)
