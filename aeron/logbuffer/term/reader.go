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
	"github.com/coriolislabs/aeron-go/aeron/util"
)

// FragmentHandler is invoked once per fragment read, with the frame's
// header and the payload sub-range (header stripped).
type FragmentHandler func(buffer *atomic.Buffer, offset, length int32, header *logbuffer.Header)

// Read walks termBuffer starting at termOffset, invoking handler for each
// DATA frame (skipping PAD frames silently) until fragmentLimit frames
// have been delivered or a frame with a still-zero frame-length is
// reached (not yet published). It returns the offset immediately past
// the last frame consumed, which may be less than termLength.
//
// This is the minimal read-side counterpart needed to exercise the
// round-trip invariants in spec.md §8; it has no flow control, gap
// detection or multi-destination logic — those belong to the
// subscription-side fragment assembly, out of scope per spec.md §1.
func Read(termBuffer *atomic.Buffer, termOffset int32, handler FragmentHandler, fragmentLimit int, header *logbuffer.Header) (int32, int) {
	fragmentsRead := 0
	offset := termOffset
	capacity := termBuffer.Capacity()

	for fragmentsRead < fragmentLimit && offset < capacity {
		frameLength := logbuffer.FrameLengthVolatile(termBuffer, offset)
		if frameLength <= 0 {
			break
		}

		frameOffset := offset
		alignedLength := util.AlignInt32(frameLength, logbuffer.FrameAlignment)
		offset += alignedLength

		if logbuffer.FrameType(termBuffer, frameOffset) == logbuffer.DataFrameHeader.TypePad {
			continue
		}

		fragmentsRead++
		header.Wrap(termBuffer, frameOffset)

		payloadOffset := frameOffset + logbuffer.DataFrameHeader.Length
		payloadLength := frameLength - logbuffer.DataFrameHeader.Length
		payload := new(atomic.Buffer)
		payload.Wrap(termBuffer.PtrAt(payloadOffset), payloadLength)

		handler(payload, 0, payloadLength, header)
	}

	return offset, fragmentsRead
}
