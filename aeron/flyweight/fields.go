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

// Package flyweight provides zero-copy typed views of individual fields
// inside a shared atomic.Buffer, so metadata structures (tail counters,
// active partition index, etc.) can be addressed by name instead of raw
// offset arithmetic at every call site.
package flyweight

import "github.com/coriolislabs/aeron-go/aeron/atomic"

// Int64Field is a flyweight over a single 64-bit slot of a shared buffer.
type Int64Field struct {
	buffer *atomic.Buffer
	offset int32
}

// NewInt64Field returns a flyweight bound to offset within buffer.
func NewInt64Field(buffer *atomic.Buffer, offset int32) Int64Field {
	return Int64Field{buffer: buffer, offset: offset}
}

// Get reads the field with acquire semantics.
func (f Int64Field) Get() int64 {
	return f.buffer.GetInt64Volatile(f.offset)
}

// Set writes the field with release semantics.
func (f Int64Field) Set(value int64) {
	f.buffer.PutInt64Ordered(f.offset, value)
}

// GetAndAddInt64 is the fetch-and-add at the core of the tail-counter
// reserve operation.
func (f Int64Field) GetAndAddInt64(delta int64) int64 {
	return f.buffer.GetAndAddInt64(f.offset, delta)
}

// CompareAndSet is the single-writer-wins primitive used by term rotation.
func (f Int64Field) CompareAndSet(expected, update int64) bool {
	return f.buffer.CompareAndSetInt64(f.offset, expected, update)
}

// Int32Field is a flyweight over a single 32-bit slot of a shared buffer.
type Int32Field struct {
	buffer *atomic.Buffer
	offset int32
}

// NewInt32Field returns a flyweight bound to offset within buffer.
func NewInt32Field(buffer *atomic.Buffer, offset int32) Int32Field {
	return Int32Field{buffer: buffer, offset: offset}
}

// Get reads the field, plain load. The active-partition-index and most
// metadata scalars do not need acquire semantics on read since they are
// refreshed on every call; callers requiring acquire use GetVolatile.
func (f Int32Field) Get() int32 {
	return f.buffer.GetInt32(f.offset)
}

// GetVolatile reads the field with acquire semantics.
func (f Int32Field) GetVolatile() int32 {
	return f.buffer.GetInt32Volatile(f.offset)
}

// Set writes the field, plain store.
func (f Int32Field) Set(value int32) {
	f.buffer.PutInt32(f.offset, value)
}

// SetOrdered writes the field with release semantics, used to publish the
// active-partition-index after term rotation.
func (f Int32Field) SetOrdered(value int32) {
	f.buffer.PutInt32Ordered(f.offset, value)
}

// BufferField is a flyweight that exposes a fixed-length byte range of a
// shared buffer as its own atomic.Buffer, used for the default-frame-
// header template stored in the metadata section.
type BufferField struct {
	buffer *atomic.Buffer
	offset int32
	length int32
}

// NewBufferField returns a flyweight over [offset, offset+length) of buffer.
func NewBufferField(buffer *atomic.Buffer, offset, length int32) BufferField {
	return BufferField{buffer: buffer, offset: offset, length: length}
}

// Get returns an atomic.Buffer wrapping this field's region.
func (f BufferField) Get() *atomic.Buffer {
	view := new(atomic.Buffer)
	view.Wrap(f.buffer.PtrAt(f.offset), f.length)
	return view
}
