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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coriolislabs/aeron-go/aeron/atomic"
	"github.com/coriolislabs/aeron-go/aeron/logbuffer"
	"github.com/coriolislabs/aeron-go/aeron/util"
)

func newTestLogBuffers(t *testing.T, termLength, sessionID, streamID int32) *logbuffer.LogBuffers {
	t.Helper()
	raw := make([]byte, int(termLength)*logbuffer.PartitionCount+int(logbuffer.LogMetaDataLength))
	lb, err := logbuffer.Wrap(raw, termLength)
	require.NoError(t, err)

	header := lb.Meta().DefaultFrameHeader.Get()
	header.PutInt32(logbuffer.DataFrameHeader.SessionIDFieldOffset, sessionID)
	header.PutInt32(logbuffer.DataFrameHeader.StreamIDFieldOffset, streamID)

	return lb
}

func wrapSource(data []byte) *atomic.Buffer {
	buf := new(atomic.Buffer)
	buf.WrapSlice(data)
	return buf
}

// TestTermTripAtEndOfTerm exercises spec.md §8 boundary scenario 1:
// termLength = 64 KiB, at termOffset 60 KiB an offer of 5 KiB must pad
// the remaining 4 KiB of the term and return AppenderTripped; the next
// call on the same (already tripped) partition returns AppenderFailed.
func TestTermTripAtEndOfTerm(t *testing.T) {
	const termLength = int32(64 * 1024)
	lb := newTestLogBuffers(t, termLength, 7, 11)

	appender := MakeAppender(lb, 0)
	appender.SetTailTermID(3)
	lb.Meta().TailCounter[0].Set(logbuffer.PackTail(3, 60*1024))

	src := wrapSource(make([]byte, 5*1024))

	result := appender.AppendUnfragmentedMessage(src, 0, 5*1024, nil)
	require.Equal(t, AppenderTripped, result)

	padOffset := int32(60 * 1024)
	assert.EqualValues(t, termLength-padOffset, logbuffer.FrameLengthVolatile(lb.Buffer(0), padOffset))
	assert.EqualValues(t, logbuffer.DataFrameHeader.TypePad, logbuffer.FrameType(lb.Buffer(0), padOffset))

	result = appender.AppendUnfragmentedMessage(src, 0, 5*1024, nil)
	assert.Equal(t, AppenderFailed, result)
}

// TestClaimThenAbortLeavesSkippablePad covers the BufferClaim
// abort-produces-pad-frame scenario from spec.md §8 boundary scenario 3,
// exercised through the Appender's Claim path.
func TestClaimThenAbortLeavesSkippablePad(t *testing.T) {
	lb := newTestLogBuffers(t, 4096, 1, 1)
	appender := MakeAppender(lb, 0)

	var claim logbuffer.Claim
	result := appender.Claim(&claim, 200, nil)
	require.Greater(t, result, int64(0))

	require.NoError(t, claim.Abort())

	assert.EqualValues(t, 232, logbuffer.FrameLengthVolatile(lb.Buffer(0), 0))
	assert.EqualValues(t, logbuffer.DataFrameHeader.TypePad, logbuffer.FrameType(lb.Buffer(0), 0))
}

// TestReservedValueSupplierRoundTrips covers spec.md §8 boundary scenario 5.
func TestReservedValueSupplierRoundTrips(t *testing.T) {
	lb := newTestLogBuffers(t, 4096, 1, 1)
	appender := MakeAppender(lb, 0)

	src := wrapSource(make([]byte, 100))
	supplier := func(*atomic.Buffer, int32, int32) int64 { return 0xDEADBEEFCAFE }

	result := appender.AppendUnfragmentedMessage(src, 0, 100, supplier)
	require.Greater(t, result, int64(0))

	reserved := lb.Buffer(0).GetInt64(logbuffer.DataFrameHeader.ReservedValueFieldOffset)
	assert.EqualValues(t, 0xDEADBEEFCAFE, reserved)
}

// TestAppendFragmentedMessageSplitsIntoBeginMidEnd covers spec.md §8
// boundary scenario 4: a 10000-byte message with maxPayloadLength 4064
// splits into 3 fragments of sizes 4064, 4064, 1872 with flags B, 0, E.
func TestAppendFragmentedMessageSplitsIntoBeginMidEnd(t *testing.T) {
	const termLength = int32(1024 * 1024)
	const maxPayloadLength = int32(4064)

	lb := newTestLogBuffers(t, termLength, 1, 1)
	appender := MakeAppender(lb, 0)
	appender.SetTailTermID(1)

	payload := make([]byte, 10000)
	for i := range payload {
		payload[i] = byte(i)
	}
	src := wrapSource(payload)

	result := appender.AppendFragmentedMessage(src, 0, 10000, maxPayloadLength, nil)
	require.Greater(t, result, int64(0))

	termBuffer := lb.Buffer(0)

	offset := int32(0)
	frame1 := logbuffer.FrameLengthVolatile(termBuffer, offset)
	assert.EqualValues(t, maxPayloadLength+logbuffer.DataFrameHeader.Length, frame1)
	assert.Equal(t, logbuffer.DataFrameHeader.BeginFlag, logbuffer.FrameFlagsVolatile(termBuffer, offset))
	assert.EqualValues(t, 1, logbuffer.FrameTermID(termBuffer, offset))
	offset += util.AlignInt32(frame1, logbuffer.FrameAlignment)

	frame2 := logbuffer.FrameLengthVolatile(termBuffer, offset)
	assert.EqualValues(t, maxPayloadLength+logbuffer.DataFrameHeader.Length, frame2)
	assert.EqualValues(t, 0, logbuffer.FrameFlagsVolatile(termBuffer, offset))
	offset += util.AlignInt32(frame2, logbuffer.FrameAlignment)

	frame3 := logbuffer.FrameLengthVolatile(termBuffer, offset)
	assert.EqualValues(t, (10000-2*maxPayloadLength)+logbuffer.DataFrameHeader.Length, frame3)
	assert.Equal(t, logbuffer.DataFrameHeader.EndFlag, logbuffer.FrameFlagsVolatile(termBuffer, offset))
}

// TestConcurrentOffersPartitionTheTerm covers spec.md §8's multi-producer
// linearisability property: N goroutines each performing K
// AppendUnfragmentedMessage calls reserve disjoint, contiguous
// termOffset ranges, totalling N*K*alignedLength bytes.
func TestConcurrentOffersPartitionTheTerm(t *testing.T) {
	const termLength = int32(4 * 1024 * 1024)
	const goroutines = 8
	const perGoroutine = 200
	const msgLength = int32(100)

	lb := newTestLogBuffers(t, termLength, 1, 1)
	appender := MakeAppender(lb, 0)

	alignedLength := util.AlignInt32(msgLength+logbuffer.DataFrameHeader.Length, logbuffer.FrameAlignment)

	src := wrapSource(make([]byte, msgLength))

	var wg sync.WaitGroup
	offsets := make(chan int32, goroutines*perGoroutine)

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				result := appender.AppendUnfragmentedMessage(src, 0, msgLength, nil)
				if result > 0 {
					offsets <- int32(result) - alignedLength
				}
			}
		}()
	}
	wg.Wait()
	close(offsets)

	seen := make(map[int32]bool)
	count := 0
	for offset := range offsets {
		assert.False(t, seen[offset], "duplicate termOffset %d claimed by two producers", offset)
		seen[offset] = true
		count++
	}

	assert.Equal(t, goroutines*perGoroutine, count)

	finalRawTail := appender.RawTail()
	finalOffset := logbuffer.TermOffsetFromRawTail(finalRawTail, termLength)
	assert.EqualValues(t, int32(goroutines*perGoroutine)*alignedLength, finalOffset)
}
