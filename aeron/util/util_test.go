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

package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignInt32(t *testing.T) {
	assert.EqualValues(t, 0, AlignInt32(0, 32))
	assert.EqualValues(t, 32, AlignInt32(1, 32))
	assert.EqualValues(t, 32, AlignInt32(32, 32))
	assert.EqualValues(t, 64, AlignInt32(33, 32))
	assert.EqualValues(t, 96, AlignInt32(65, 32))
}

func TestNumberOfTrailingZeroes(t *testing.T) {
	assert.EqualValues(t, 16, NumberOfTrailingZeroes(1<<16))
	assert.EqualValues(t, 20, NumberOfTrailingZeroes(1024*1024))
	assert.EqualValues(t, 0, NumberOfTrailingZeroes(1))
}

func TestIsPowerOfTwo(t *testing.T) {
	assert.True(t, IsPowerOfTwo(1))
	assert.True(t, IsPowerOfTwo(1024))
	assert.False(t, IsPowerOfTwo(0))
	assert.False(t, IsPowerOfTwo(-1024))
	assert.False(t, IsPowerOfTwo(100))
}

func TestFastMod3(t *testing.T) {
	for i := uint64(0); i < 20; i++ {
		assert.EqualValues(t, int32(i%3), FastMod3(i))
	}
}
