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
)

func TestComputePositionRoundTrip(t *testing.T) {
	const shift = 16 // 64 KiB term
	const initialTermID = int32(7)

	cases := []struct {
		termID     int32
		termOffset int32
	}{
		{7, 0},
		{7, 4096},
		{8, 0},
		{8, 65535},
		{100, 1024},
	}

	for _, c := range cases {
		position := ComputePosition(c.termID, c.termOffset, shift, initialTermID)
		assert.Equal(t, c.termOffset, ComputeTermOffsetFromPosition(position, shift))
		assert.Equal(t, c.termID, ComputeTermIDFromPosition(position, shift, initialTermID))
	}
}

func TestComputePositionMonotonicAcrossTermRollover(t *testing.T) {
	const shift = 16
	const initialTermID = int32(0)

	endOfTerm := ComputePosition(0, 1<<shift, shift, initialTermID)
	startOfNextTerm := ComputePosition(1, 0, shift, initialTermID)

	assert.Equal(t, endOfTerm, startOfNextTerm)
}

func TestPackTailAndTermID(t *testing.T) {
	raw := PackTail(42, 1000)
	assert.EqualValues(t, 42, TermID(raw))
	assert.EqualValues(t, 1000, TermOffsetFromRawTail(raw, 1<<20))
}

func TestTermOffsetFromRawTailClampsToTermLength(t *testing.T) {
	raw := PackTail(1, 70000)
	assert.EqualValues(t, 65536, TermOffsetFromRawTail(raw, 65536))
}
