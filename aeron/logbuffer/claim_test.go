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

package logbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coriolislabs/aeron-go/aeron/atomic"
)

func newTermBuffer(t *testing.T, length int32) *atomic.Buffer {
	t.Helper()
	raw := make([]byte, length)
	buf := new(atomic.Buffer)
	buf.WrapSlice(raw)
	return buf
}

// TestClaimAbortWritesPadFrame exercises spec.md §8 boundary scenario 3:
// tryClaim(200) then abort() leaves a PAD frame whose frame-length field is
// 232 (200 + header, unaligned) visible to a subscriber scanning the log.
func TestClaimAbortWritesPadFrame(t *testing.T) {
	buffer := newTermBuffer(t, 4096)

	const payloadLength = int32(200)
	const frameLength = payloadLength + DataFrameHeader.Length // 232; occupies 256 bytes once aligned to 32

	var claim Claim
	claim.Wrap(buffer, 0, frameLength)

	require.NoError(t, claim.Abort())

	assert.EqualValues(t, frameLength, FrameLengthVolatile(buffer, 0))
	assert.EqualValues(t, DataFrameHeader.TypePad, FrameType(buffer, 0))
}

func TestClaimCommitPublishesFrameLength(t *testing.T) {
	buffer := newTermBuffer(t, 4096)

	var claim Claim
	claim.Wrap(buffer, 0, 64)
	claim.SetReservedValue(0xDEADBEEFCAFE)

	require.NoError(t, claim.Commit())

	assert.EqualValues(t, 64, FrameLengthVolatile(buffer, 0))
	assert.EqualValues(t, 0xDEADBEEFCAFE, claim.ReservedValue())
}

func TestClaimDataIsPayloadSubRange(t *testing.T) {
	buffer := newTermBuffer(t, 4096)

	var claim Claim
	claim.Wrap(buffer, 0, 64)

	data := claim.Data()
	assert.EqualValues(t, 64-DataFrameHeader.Length, data.Capacity())
}

func TestClaimResolvesOnlyOnce(t *testing.T) {
	buffer := newTermBuffer(t, 4096)

	var claim Claim
	claim.Wrap(buffer, 0, 64)

	require.NoError(t, claim.Commit())
	assert.ErrorIs(t, claim.Commit(), ErrClaimAlreadyResolved)
	assert.ErrorIs(t, claim.Abort(), ErrClaimAlreadyResolved)
}

func TestClaimNotInitialized(t *testing.T) {
	var claim Claim
	assert.ErrorIs(t, claim.Commit(), ErrClaimNotInitialized)
	assert.ErrorIs(t, claim.Abort(), ErrClaimNotInitialized)
}

func TestPrivilegedClaimSetsFlagsAndType(t *testing.T) {
	buffer := newTermBuffer(t, 4096)

	var claim PrivilegedClaim
	claim.Wrap(buffer, 0, 64)
	claim.SetFlags(DataFrameHeader.BeginFlag)
	claim.SetHeaderType(DataFrameHeader.TypeData)

	assert.Equal(t, DataFrameHeader.BeginFlag, FrameFlagsVolatile(buffer, 0))
	assert.EqualValues(t, DataFrameHeader.TypeData, FrameType(buffer, 0))
}
