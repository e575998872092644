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

package aeron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coriolislabs/aeron-go/aeron/atomic"
	"github.com/coriolislabs/aeron-go/aeron/counters"
	"github.com/coriolislabs/aeron-go/aeron/logbuffer"
)

type testFixture struct {
	pub       *Publication
	logBuffers *logbuffer.LogBuffers
	limit     *counters.Writer
	conductor *ClientConductor
}

func newTestFixture(t *testing.T, termLength, mtuLength, initialTermID, sessionID, streamID int32, connected bool) *testFixture {
	t.Helper()

	raw := make([]byte, int(termLength)*logbuffer.PartitionCount+int(logbuffer.LogMetaDataLength))
	lb, err := logbuffer.Wrap(raw, termLength)
	require.NoError(t, err)

	meta := lb.Meta()
	meta.InitTermID.Set(initialTermID)
	meta.MTULength.Set(mtuLength)
	meta.TailCounter[0].Set(logbuffer.PackTail(initialTermID, 0))
	header := meta.DefaultFrameHeader.Get()
	header.PutInt32(logbuffer.DataFrameHeader.SessionIDFieldOffset, sessionID)
	header.PutInt32(logbuffer.DataFrameHeader.StreamIDFieldOffset, streamID)

	if connected {
		meta.SetConnected(true)
		meta.TimeOfLastStatusMsg.Set(time.Now().UnixMilli())
	}

	limitBuf := new(atomic.Buffer)
	limitBuf.WrapSlice(make([]byte, 8))
	limit := counters.NewWriter(limitBuf, 0)

	ctx := NewContext()
	conductor := NewClientConductor(ctx)

	pub := NewPublication(lb, conductor, &limit.Reader, "aeron:ipc", streamID, sessionID, 1, false)

	return &testFixture{pub: pub, logBuffers: lb, limit: limit, conductor: conductor}
}

func wrapPayload(data []byte) *atomic.Buffer {
	buf := new(atomic.Buffer)
	buf.WrapSlice(data)
	return buf
}

// TestOfferBackPressuredThenSucceedsAfterLimitAdvances covers spec.md §8
// boundary scenario 2.
func TestOfferBackPressuredThenSucceedsAfterLimitAdvances(t *testing.T) {
	fx := newTestFixture(t, 64*1024, 4096, 0, 1, 1, true)

	fx.limit.Set(0)

	payload := wrapPayload(make([]byte, 10))
	result := fx.pub.Offer(payload, 0, 10, nil)
	assert.Equal(t, BackPressured, result)

	fx.limit.Set(4096)

	payload = wrapPayload(make([]byte, 4000))
	result = fx.pub.Offer(payload, 0, 4000, nil)
	assert.Greater(t, result, int64(0))
}

func TestOfferNotConnectedWhenNoStatusMessage(t *testing.T) {
	fx := newTestFixture(t, 64*1024, 4096, 0, 1, 1, false)
	fx.limit.Set(0)

	payload := wrapPayload(make([]byte, 10))
	result := fx.pub.Offer(payload, 0, 10, nil)
	assert.Equal(t, NotConnected, result)
}

// TestOfferTripsTermAndRotatesOnRetry covers spec.md §8 boundary scenario
// 1 at the Publication level: a trip returns AdminAction and a retried
// offer lands at termOffset 0 of the rotated term.
func TestOfferTripsTermAndRotatesOnRetry(t *testing.T) {
	const termLength = int32(64 * 1024)
	fx := newTestFixture(t, termLength, 4096, 3, 1, 1, true)
	fx.limit.Set(int64(termLength) * 3)

	fx.logBuffers.Meta().TailCounter[0].Set(logbuffer.PackTail(3, 60*1024))

	payload := wrapPayload(make([]byte, 5*1024))
	result := fx.pub.Offer(payload, 0, 5*1024, nil)
	assert.Equal(t, AdminAction, result)
	assert.EqualValues(t, 1, fx.logBuffers.Meta().ActivePartitionIndex.GetVolatile())

	result = fx.pub.Offer(payload, 0, 100, nil)
	assert.Greater(t, result, int64(0))

	expectedPosition := logbuffer.ComputePosition(4, 160, 16, 3)
	assert.Equal(t, expectedPosition, result)
}

func TestCloseIsIdempotentAndNotifiesConductor(t *testing.T) {
	fx := newTestFixture(t, 4096, 512, 0, 1, 1, true)

	require.NoError(t, fx.pub.Close())
	require.NoError(t, fx.pub.Close())

	select {
	case id := <-fx.conductor.Releases():
		assert.EqualValues(t, 1, id)
	default:
		t.Fatal("expected a release notification on the conductor's channel")
	}

	assert.True(t, fx.pub.IsClosed())
	assert.Equal(t, PublicationClosed, fx.pub.Offer(wrapPayload(make([]byte, 1)), 0, 1, nil))
}

func TestTryClaimDebugModeAbortsOutstandingClaimsOnClose(t *testing.T) {
	fx := newTestFixture(t, 64*1024, 4096, 0, 1, 1, true)
	fx.limit.Set(64 * 1024)
	fx.pub.debugClaims = true
	fx.pub.claims = make(map[*logbuffer.Claim]struct{})

	var claim logbuffer.Claim
	result := fx.pub.TryClaim(100, &claim)
	require.Greater(t, result, int64(0))

	require.NoError(t, fx.pub.Close())

	assert.True(t, claim.IsResolved())
	assert.EqualValues(t, logbuffer.DataFrameHeader.TypePad, logbuffer.FrameType(fx.logBuffers.Buffer(0), 0))
}

func TestOfferPanicsOnNegativeLength(t *testing.T) {
	fx := newTestFixture(t, 4096, 512, 0, 1, 1, true)
	assert.PanicsWithValue(t, ErrLengthNegative, func() {
		fx.pub.Offer(wrapPayload(nil), 0, -1, nil)
	})
}

func TestOfferPanicsOnMessageTooLarge(t *testing.T) {
	fx := newTestFixture(t, 4096, 512, 0, 1, 1, true)
	assert.PanicsWithValue(t, ErrMessageTooLarge, func() {
		fx.pub.Offer(wrapPayload(make([]byte, 4096)), 0, 4096, nil)
	})
}

func TestTryClaimPanicsWhenLargerThanMaxPayloadLength(t *testing.T) {
	fx := newTestFixture(t, 64*1024, 4096, 0, 1, 1, true)
	var claim logbuffer.Claim
	assert.PanicsWithValue(t, ErrClaimTooLarge, func() {
		fx.pub.TryClaim(4096, &claim)
	})
}
