/*
 *
 * Copyright 2026 a314mux authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package mux

import "sync/atomic"

// RingCapacity is the frozen wire capacity of each ring in a ComArea: a
// single byte-granular buffer addressed by free-running uint8 indices.
// One slot is reserved to distinguish full from empty, so at most 255
// bytes are ever considered used.
const RingCapacity = 256

// Ring is a single-producer/single-consumer byte ring buffer with
// free-running 8-bit head/tail counters. Head is advanced only by the
// reader side, tail only by the writer side; the two sides may run on
// different goroutines (standing in for different processes sharing
// real memory), so both indices are stored atomically even though each
// is only ever mutated by one side.
type Ring struct {
	buf  [RingCapacity]byte
	head atomic.Uint32 // low 8 bits significant; free-running mod 256
	tail atomic.Uint32
}

// Used returns the number of bytes currently held in the ring.
func (r *Ring) Used() uint8 {
	return uint8(r.tail.Load() - r.head.Load())
}

// RoomFor reports whether a frame with the given payload length fits in
// the ring without exceeding the 255-used-byte limit.
func (r *Ring) RoomFor(payloadLen int) bool {
	return int(r.Used())+3+payloadLen <= 255
}

// Append writes a frame's header and payload, advancing tail. The
// caller must have already checked RoomFor; Append never blocks and
// never partially writes — it panics if the frame does not fit, since
// that would be a caller bug (an unchecked Append), not a runtime
// condition.
func (r *Ring) Append(pt PacketType, streamID uint8, payload []byte) {
	if len(payload) > MaxPayload {
		panic("mux: Append payload exceeds MaxPayload")
	}
	if !r.RoomFor(len(payload)) {
		panic("mux: Append called without RoomFor check")
	}

	idx := uint8(r.tail.Load())
	r.putByte(idx, byte(len(payload)))
	idx++
	r.putByte(idx, byte(pt))
	idx++
	r.putByte(idx, streamID)
	idx++
	for _, b := range payload {
		r.putByte(idx, b)
		idx++
	}
	r.tail.Store(uint32(idx))
}

func (r *Ring) putByte(idx uint8, b byte) {
	r.buf[idx] = b
}

func (r *Ring) getByte(idx uint8) byte {
	return r.buf[idx]
}

// Header is a parsed frame header, as peeked from the front of a ring
// without consuming it.
type Header struct {
	Length   uint8
	Type     PacketType
	StreamID uint8
}

// PeekHeader reads the 3-byte header at the current head without
// advancing it. The caller must have checked Used() >= 3 first (it will
// have, since Used()==0 means there is nothing to peek).
func (r *Ring) PeekHeader() Header {
	idx := uint8(r.head.Load())
	length := r.getByte(idx)
	pt := PacketType(r.getByte(idx + 1))
	sid := r.getByte(idx + 2)
	return Header{Length: length, Type: pt, StreamID: sid}
}

// PeekPayload returns a copy of the payload bytes following the header
// at head, given the header's declared length. It does not advance head.
func (r *Ring) PeekPayload(length uint8) []byte {
	if length == 0 {
		return nil
	}
	idx := uint8(r.head.Load()) + 3
	out := make([]byte, length)
	for i := range out {
		out[i] = r.getByte(idx)
		idx++
	}
	return out
}

// Consume advances head past a frame of n total bytes (3 + payload
// length), releasing that window back to the writer side.
func (r *Ring) Consume(n uint8) {
	r.head.Store(uint32(uint8(r.head.Load()) + n))
}
