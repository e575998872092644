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

package term

import (
	"github.com/coriolislabs/aeron-go/aeron/atomic"
	"github.com/coriolislabs/aeron-go/aeron/logbuffer"
)

// HeaderWriter stamps the per-frame header from a driver-supplied default
// header template (spec.md §4.6). It caches the session id and stream id
// out of the template once, then writes every header field except
// frame-length and reserved-value, which the caller writes; frame-length stays at its zero-value ("not yet
// published", spec.md §3) until the caller — Appender or BufferClaim —
// publishes it last via logbuffer.FrameLengthOrdered.
type HeaderWriter struct {
	sessionID int32
	streamID  int32
	scratch   atomic.Buffer
}

// Fill caches sessionID/streamID out of the driver-provided default frame
// header template.
func (w *HeaderWriter) Fill(defaultHeader *atomic.Buffer) {
	w.sessionID = defaultHeader.GetInt32(logbuffer.DataFrameHeader.SessionIDFieldOffset)
	w.streamID = defaultHeader.GetInt32(logbuffer.DataFrameHeader.StreamIDFieldOffset)
}

// Write stamps a data frame header at offset within termBuffer. frameLength
// is the total, unaligned length (header + payload); it is not published
// here — callers publish it last via logbuffer.FrameLengthOrdered once the
// payload (and reserved value) are in place.
func (w *HeaderWriter) Write(termBuffer *atomic.Buffer, offset, frameLength, termID int32) {
	w.scratch.Wrap(termBuffer.PtrAt(offset), logbuffer.DataFrameHeader.Length)

	w.scratch.PutInt8(logbuffer.DataFrameHeader.VersionFieldOffset, logbuffer.DataFrameHeader.CurrentVersion)
	w.scratch.PutUInt8(logbuffer.DataFrameHeader.FlagsFieldOffset, logbuffer.DataFrameHeader.UnfragmentedFlags)
	w.scratch.PutUInt16(logbuffer.DataFrameHeader.TypeFieldOffset, logbuffer.DataFrameHeader.TypeData)
	w.scratch.PutInt32(logbuffer.DataFrameHeader.TermOffsetFieldOffset, offset)
	w.scratch.PutInt32(logbuffer.DataFrameHeader.SessionIDFieldOffset, w.sessionID)
	w.scratch.PutInt32(logbuffer.DataFrameHeader.StreamIDFieldOffset, w.streamID)
	w.scratch.PutInt32(logbuffer.DataFrameHeader.TermIDFieldOffset, termID)
}
