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

// Package mux implements a bidirectional, stream-multiplexed packet
// transport over a pair of fixed-capacity ring buffers (a ComArea).
//
// Streams are cheap, independently reset-able, and carry small datagrams
// with in-order, at-most-once delivery per stream. Half-close (EOS) is
// supported in each direction independently; RESET tears a stream down
// immediately. The core owns framing, stream lifecycle, backpressure,
// and the pairing of client requests with asynchronous wire events; it
// does not own the medium itself (the ComArea is supplied by the caller)
// or the request-delivery mechanism (requests arrive over a channel).
package mux
