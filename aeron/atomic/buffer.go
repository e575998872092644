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

// Package atomic provides the lock-free, shared-memory friendly primitives
// the log-buffer append path is built on: a little-endian Buffer with
// plain, ordered (release-store) and fully atomic (fetch-add/CAS) field
// accessors, plus a handful of scalar atomics.
package atomic

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"
)

// Buffer wraps a byte slice (normally backing an mmap'd log or metadata
// region) and exposes typed, position-addressed field accessors. All
// multi-byte integer fields are little-endian on the wire, matching the
// frame header layout in the wire format.
type Buffer struct {
	ptr      unsafe.Pointer
	length   int32
}

// Wrap points the buffer at an arbitrary memory region of the given
// length. Used both to view a whole term/metadata section and to carve a
// sub-view (e.g. a single frame header) out of a larger buffer.
func (b *Buffer) Wrap(ptr unsafe.Pointer, length int32) {
	b.ptr = ptr
	b.length = length
}

// WrapSlice points the buffer at a Go byte slice. The slice must outlive
// the Buffer and must not be reallocated (append) while wrapped.
func (b *Buffer) WrapSlice(data []byte) {
	if len(data) == 0 {
		b.ptr = nil
		b.length = 0
		return
	}
	b.ptr = unsafe.Pointer(&data[0])
	b.length = int32(len(data))
}

// Ptr returns the raw pointer backing this buffer, used by callers that
// need to sub-wrap a region (e.g. the header writer carving out a frame).
func (b *Buffer) Ptr() unsafe.Pointer {
	return b.ptr
}

// PtrAt returns a pointer offset bytes into this buffer, used to sub-wrap
// a smaller region (a single frame header, a single metadata field).
func (b *Buffer) PtrAt(offset int32) unsafe.Pointer {
	return unsafe.Pointer(uintptr(b.ptr) + uintptr(offset))
}

// Capacity returns the length, in bytes, of the wrapped region.
func (b *Buffer) Capacity() int32 {
	return b.length
}

func (b *Buffer) byteAt(offset int32) *byte {
	return (*byte)(unsafe.Pointer(uintptr(b.ptr) + uintptr(offset)))
}

func (b *Buffer) int32At(offset int32) *int32 {
	return (*int32)(unsafe.Pointer(uintptr(b.ptr) + uintptr(offset)))
}

func (b *Buffer) int64At(offset int32) *int64 {
	return (*int64)(unsafe.Pointer(uintptr(b.ptr) + uintptr(offset)))
}

func (b *Buffer) slice(offset, length int32) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(b.ptr)+uintptr(offset))), length)
}

// GetInt8 reads a single signed byte.
func (b *Buffer) GetInt8(offset int32) int8 {
	return int8(*b.byteAt(offset))
}

// PutInt8 writes a single signed byte, plain store.
func (b *Buffer) PutInt8(offset int32, value int8) {
	*b.byteAt(offset) = byte(value)
}

// PutUInt8 writes a single unsigned byte, plain store.
func (b *Buffer) PutUInt8(offset int32, value uint8) {
	*b.byteAt(offset) = value
}

// GetUInt8 reads a single unsigned byte.
func (b *Buffer) GetUInt8(offset int32) uint8 {
	return *b.byteAt(offset)
}

// PutUInt8Ordered writes a single unsigned byte with release semantics by
// atomically updating the 4-byte word that contains it; the other three
// bytes of that word are left unchanged.
func (b *Buffer) PutUInt8Ordered(offset int32, value uint8) {
	word := (*uint32)(unsafe.Pointer(b.byteAt(offset &^ 3)))
	shift := uint((offset & 3) * 8)
	for {
		old := atomic.LoadUint32(word)
		updated := old&^(uint32(0xFF)<<shift) | uint32(value)<<shift
		if atomic.CompareAndSwapUint32(word, old, updated) {
			return
		}
	}
}

// GetUInt16 reads a little-endian unsigned 16-bit field.
func (b *Buffer) GetUInt16(offset int32) uint16 {
	return binary.LittleEndian.Uint16(b.slice(offset, 2))
}

// PutUInt16 writes a little-endian unsigned 16-bit field, plain store.
func (b *Buffer) PutUInt16(offset int32, value uint16) {
	binary.LittleEndian.PutUint16(b.slice(offset, 2), value)
}

// GetInt32 reads a little-endian signed 32-bit field, plain load.
func (b *Buffer) GetInt32(offset int32) int32 {
	return int32(binary.LittleEndian.Uint32(b.slice(offset, 4)))
}

// PutInt32 writes a little-endian signed 32-bit field, plain store.
func (b *Buffer) PutInt32(offset int32, value int32) {
	binary.LittleEndian.PutUint32(b.slice(offset, 4), uint32(value))
}

// GetInt32Volatile reads the 32-bit field with acquire semantics. Used by
// subscribers polling the frame-length field.
func (b *Buffer) GetInt32Volatile(offset int32) int32 {
	return atomic.LoadInt32(b.int32At(offset))
}

// PutInt32Ordered writes the 32-bit field with release semantics, i.e. no
// later store may be reordered before it. Used to publish frame-length.
func (b *Buffer) PutInt32Ordered(offset int32, value int32) {
	atomic.StoreInt32(b.int32At(offset), value)
}

// GetAndAddInt32 atomically adds delta to the 32-bit field and returns the
// previous value.
func (b *Buffer) GetAndAddInt32(offset int32, delta int32) int32 {
	return atomic.AddInt32(b.int32At(offset), delta) - delta
}

// CompareAndSetInt32 performs a 32-bit CAS.
func (b *Buffer) CompareAndSetInt32(offset, expected, update int32) bool {
	return atomic.CompareAndSwapInt32(b.int32At(offset), expected, update)
}

// GetInt64 reads a little-endian signed 64-bit field, plain load.
func (b *Buffer) GetInt64(offset int32) int64 {
	return int64(binary.LittleEndian.Uint64(b.slice(offset, 8)))
}

// PutInt64 writes a little-endian signed 64-bit field, plain store.
func (b *Buffer) PutInt64(offset int32, value int64) {
	binary.LittleEndian.PutUint64(b.slice(offset, 8), uint64(value))
}

// GetInt64Volatile reads the 64-bit field with acquire semantics.
func (b *Buffer) GetInt64Volatile(offset int32) int64 {
	return atomic.LoadInt64(b.int64At(offset))
}

// PutInt64Ordered writes the 64-bit field with release semantics.
func (b *Buffer) PutInt64Ordered(offset int32, value int64) {
	atomic.StoreInt64(b.int64At(offset), value)
}

// GetAndAddInt64 atomically adds delta to the 64-bit field (native,
// machine-endian) and returns the value as it was before the add. This is
// the tail-counter fetch-and-add at the heart of the term reserve
// operation.
func (b *Buffer) GetAndAddInt64(offset int32, delta int64) int64 {
	return atomic.AddInt64(b.int64At(offset), delta) - delta
}

// CompareAndSetInt64 performs a 64-bit CAS, used by term rotation to
// initialise the next partition's tail counter exactly once.
func (b *Buffer) CompareAndSetInt64(offset int32, expected, update int64) bool {
	return atomic.CompareAndSwapInt64(b.int64At(offset), expected, update)
}

// PutBytes copies length bytes from src (at srcOffset) into this buffer at
// offset. Plain, unordered memcpy — callers publish visibility separately
// via PutInt32Ordered on the frame-length field.
func (b *Buffer) PutBytes(offset int32, src *Buffer, srcOffset, length int32) {
	if length == 0 {
		return
	}
	dst := b.slice(offset, length)
	copy(dst, src.slice(srcOffset, length))
}

// PutBytesFromSlice copies a plain Go byte slice into the buffer.
func (b *Buffer) PutBytesFromSlice(offset int32, src []byte) {
	if len(src) == 0 {
		return
	}
	copy(b.slice(offset, int32(len(src))), src)
}

// GetBytes copies length bytes starting at offset into a new slice, used
// by the subscriber-side fragment reader and by tests.
func (b *Buffer) GetBytes(offset, length int32) []byte {
	out := make([]byte, length)
	copy(out, b.slice(offset, length))
	return out
}
