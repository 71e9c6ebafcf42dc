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

import (
	"context"

	"github.com/rs/zerolog"
)

// Option configures a Core at construction time.
type Option func(*Core)

// WithLogger attaches a structured logger. The default is a
// console-writer zerolog.Logger at info level.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Core) { c.log = l }
}

// Core is the protocol state machine plus its socket table and send
// queue: one instance serves one local "client side" of a ComArea. It
// is constructed once at startup and passed explicitly to callers
// rather than reached through package globals.
type Core struct {
	ep    Endpoint
	table *socketTable
	sq    *sendQueue
	alloc *streamIDAllocator
	log   zerolog.Logger

	requestCh chan *Request
}

// NewCore constructs a Core bound to one endpoint of a ComArea.
// streamParity selects which half of the stream_id space this side
// allocates from (0 or 1); the two peers of a ComArea must use opposite
// parities or their stream_id allocations could collide.
func NewCore(ep Endpoint, streamParity uint8, opts ...Option) *Core {
	c := &Core{
		ep:        ep,
		table:     newSocketTable(),
		sq:        newSendQueue(),
		alloc:     newStreamIDAllocator(streamParity),
		log:       newDefaultLogger(),
		requestCh: make(chan *Request, 64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit hands a client request to the core's inbox. It never blocks on
// protocol state — the request channel is the one queuing point, and
// backpressure on actual protocol work happens later, inside Run.
func (c *Core) Submit(req *Request) {
	c.requestCh <- req
}

// Stats exposes the underlying ComArea's ring/armed-edge snapshot.
func (c *Core) Stats() ComAreaStats {
	return c.ep.ca.Stats()
}

// appendFrame writes one frame to this side's outbound ring and wakes
// the peer. The caller must already have confirmed RoomFor.
func (c *Core) appendFrame(pt PacketType, streamID uint8, payload []byte) {
	c.ep.Out().Append(pt, streamID, payload)
	c.ep.NotifyPeer(outTailEdge(c.ep))
}

func outTailEdge(ep Endpoint) Edge {
	if ep.local {
		return EdgeA2RTail
	}
	return EdgeR2ATail
}

func inHeadEdge(ep Endpoint) Edge {
	if ep.local {
		return EdgeR2AHead
	}
	return EdgeA2RHead
}

// Run is the protocol main loop: wait for a client request or a peer
// signal, then drain inbound and outbound work to a fixed point. It
// returns when ctx is cancelled; there is no orderly shutdown path — a
// cancellation simply abandons whatever sockets are in flight.
func (c *Core) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-c.requestCh:
			c.drainRequests(req)
		case <-c.ep.WakeChan():
		}

		c.drainToFixedPoint()
		c.alloc.tick()
		c.recomputeArmed()
	}
}

// drainRequests handles req and then every other request already
// queued, without blocking: once woken, drain the whole inbox before
// going back to draining wire traffic.
func (c *Core) drainRequests(first *Request) {
	c.handleRequest(first)
	for {
		select {
		case req := <-c.requestCh:
			c.handleRequest(req)
		default:
			return
		}
	}
}

// drainToFixedPoint alternates inbound demux and outbound drain until
// neither makes progress: an inbound RESET or oversized DATA closes a
// socket, which can take it off the send queue or queue a deferred
// RESET, and the peer keeps producing and consuming frames while either
// pass runs, so a single pass of either one is not enough to reach
// quiescence.
func (c *Core) drainToFixedPoint() {
	for {
		progressed := c.drainInbound()
		if c.drainOutbound() {
			progressed = true
		}
		if !progressed {
			return
		}
	}
}

// recomputeArmed records, purely for diagnostics, which peer edges
// would need to arrive to make more progress right now: with nothing
// queued to send, only new inbound data matters; with something queued
// that doesn't fit, the peer consuming from our outbound ring matters
// too. A latching channel send (NotifyPeer/WakeChan) is what actually
// wakes the main loop — this bookkeeping exists only so ComAreaStats
// can report what the loop is waiting on.
func (c *Core) recomputeArmed() {
	armed := Edge(0)
	if c.sq.empty() {
		armed = inTailEdge(c.ep)
	} else if !c.ep.Out().RoomFor(c.sq.head().sendQueueRequiredLength) {
		armed = inTailEdge(c.ep) | outHeadEdge(c.ep)
	}
	c.ep.SetArmed(armed)
}

func inTailEdge(ep Endpoint) Edge {
	if ep.local {
		return EdgeR2ATail
	}
	return EdgeA2RTail
}

func outHeadEdge(ep Endpoint) Edge {
	if ep.local {
		return EdgeA2RHead
	}
	return EdgeR2AHead
}
