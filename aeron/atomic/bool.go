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

package atomic

import "sync/atomic"

// Bool is a simple atomic boolean flag, used for publication/image closed
// states where a CompareAndSet is needed to guarantee a single winner.
type Bool struct {
	value int32
}

// Get returns the current value.
func (b *Bool) Get() bool {
	return atomic.LoadInt32(&b.value) != 0
}

// Set stores value unconditionally.
func (b *Bool) Set(value bool) {
	atomic.StoreInt32(&b.value, boolToInt32(value))
}

// CompareAndSet atomically sets the value to update if it currently equals
// expected, returning whether the swap happened.
func (b *Bool) CompareAndSet(expected, update bool) bool {
	return atomic.CompareAndSwapInt32(&b.value, boolToInt32(expected), boolToInt32(update))
}

func boolToInt32(value bool) int32 {
	if value {
		return 1
	}
	return 0
}

// Int64 is a plain atomic int64 counter, used for positions and the
// publication-limit cache.
type Int64 struct {
	value int64
}

// Get returns the current value with acquire semantics.
func (i *Int64) Get() int64 {
	return atomic.LoadInt64(&i.value)
}

// Set stores value with release semantics.
func (i *Int64) Set(value int64) {
	atomic.StoreInt64(&i.value, value)
}

// GetAndAdd atomically adds delta and returns the value as it was before
// the add.
func (i *Int64) GetAndAdd(delta int64) int64 {
	return atomic.AddInt64(&i.value, delta) - delta
}
