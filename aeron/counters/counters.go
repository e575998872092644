/*
Copyright 2016 Stanislav Liberman

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package counters models the cross-process 64-bit counters the driver
// maintains in a shared counters file (spec.md §6) — today only the
// publication-limit counter, since flow control and liveness policy are
// out of this core's scope (spec.md §1).
package counters

import "github.com/coriolislabs/aeron-go/aeron/atomic"

// Reader is a single named counter's view over a shared buffer.
type Reader struct {
	buffer *atomic.Buffer
	offset int32
}

// NewReader returns a Reader bound to offset within buffer.
func NewReader(buffer *atomic.Buffer, offset int32) *Reader {
	return &Reader{buffer: buffer, offset: offset}
}

// Get loads the counter's value with acquire semantics, the access
// pattern Publication.offer uses to read the publication limit.
func (r *Reader) Get() int64 {
	return r.buffer.GetInt64Volatile(r.offset)
}

// Writer extends Reader with the ability to publish a new value; only the
// driver (or, in this in-process test harness, the simulated driver) is
// expected to call Set.
type Writer struct {
	Reader
}

// NewWriter returns a Writer bound to offset within buffer.
func NewWriter(buffer *atomic.Buffer, offset int32) *Writer {
	return &Writer{Reader{buffer: buffer, offset: offset}}
}

// Set publishes a new counter value with release semantics.
func (w *Writer) Set(value int64) {
	w.buffer.PutInt64Ordered(w.offset, value)
}

// AddAndGet atomically increases the counter and returns the new value,
// used by a simulated driver to advance the publication limit.
func (w *Writer) AddAndGet(delta int64) int64 {
	return w.buffer.GetAndAddInt64(w.offset, delta) + delta
}
