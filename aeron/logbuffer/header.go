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

// Package logbuffer is the shared, lock-free log-buffer format: the
// 32-byte data frame header, the position <-> (termId, termOffset)
// arithmetic, the metadata section view shared with the driver, and the
// BufferClaim zero-copy reservation handle.
package logbuffer

import "github.com/coriolislabs/aeron-go/aeron/atomic"

// PartitionCount is the fixed number of term buffers a log is split into.
const PartitionCount = 3

// FrameAlignment is the byte alignment every frame (data or pad) is
// padded out to.
const FrameAlignment int32 = 32

// frameDescriptor is the singleton describing the 32-byte data frame
// header layout from spec.md §3, mirroring the teacher's
// logbuffer.DataFrameHeader singleton.
type frameDescriptor struct {
	Length int32

	FrameLengthFieldOffset int32
	VersionFieldOffset     int32
	FlagsFieldOffset       int32
	TypeFieldOffset        int32
	TermOffsetFieldOffset  int32
	SessionIDFieldOffset   int32
	StreamIDFieldOffset    int32
	TermIDFieldOffset      int32
	ReservedValueFieldOffset int32

	CurrentVersion int8

	TypePad  uint16
	TypeData uint16

	BeginFlag      uint8
	EndFlag        uint8
	UnfragmentedFlags uint8
}

// DataFrameHeader is the layout singleton used throughout the logbuffer
// and term packages.
var DataFrameHeader = frameDescriptor{
	Length: 32,

	FrameLengthFieldOffset:   0,
	VersionFieldOffset:       4,
	FlagsFieldOffset:         5,
	TypeFieldOffset:          6,
	TermOffsetFieldOffset:    8,
	SessionIDFieldOffset:     12,
	StreamIDFieldOffset:      16,
	TermIDFieldOffset:        20,
	ReservedValueFieldOffset: 24,

	CurrentVersion: 0,

	TypePad:  0x00,
	TypeData: 0x01,

	BeginFlag:        0x80,
	EndFlag:          0x40,
	UnfragmentedFlags: 0x80 | 0x40,
}

// FrameLengthOrdered publishes the frame-length field with release
// semantics: the write visible to subscribers last, only after every
// other field of the frame has been stamped.
func FrameLengthOrdered(buffer *atomic.Buffer, frameOffset, length int32) {
	buffer.PutInt32Ordered(frameOffset+DataFrameHeader.FrameLengthFieldOffset, length)
}

// FrameLengthVolatile reads the frame-length field with acquire
// semantics; zero means "not yet published".
func FrameLengthVolatile(buffer *atomic.Buffer, frameOffset int32) int32 {
	return buffer.GetInt32Volatile(frameOffset + DataFrameHeader.FrameLengthFieldOffset)
}

// FrameFlags sets the per-frame flags byte (begin/end fragment markers).
func FrameFlags(buffer *atomic.Buffer, frameOffset int32, flags uint8) {
	buffer.PutUInt8(frameOffset+DataFrameHeader.FlagsFieldOffset, flags)
}

// FrameFlagsVolatile reads the flags byte.
func FrameFlagsVolatile(buffer *atomic.Buffer, frameOffset int32) uint8 {
	return buffer.GetUInt8(frameOffset + DataFrameHeader.FlagsFieldOffset)
}

// SetFrameType stamps the frame type field (PAD or DATA).
func SetFrameType(buffer *atomic.Buffer, frameOffset int32, frameType uint16) {
	buffer.PutUInt16(frameOffset+DataFrameHeader.TypeFieldOffset, frameType)
}

// FrameType reads the frame type field.
func FrameType(buffer *atomic.Buffer, frameOffset int32) uint16 {
	return buffer.GetUInt16(frameOffset + DataFrameHeader.TypeFieldOffset)
}

// TermOffset reads a frame's term-offset field.
func TermOffset(buffer *atomic.Buffer, frameOffset int32) int32 {
	return buffer.GetInt32(frameOffset + DataFrameHeader.TermOffsetFieldOffset)
}

// FrameTermID reads a frame's term-id field.
func FrameTermID(buffer *atomic.Buffer, frameOffset int32) int32 {
	return buffer.GetInt32(frameOffset + DataFrameHeader.TermIDFieldOffset)
}

// TermID extracts the high 32 bits (term id) from a packed raw tail value
// returned by the tail-counter fetch-and-add.
func TermID(rawTail int64) int32 {
	return int32(rawTail >> 32)
}

// TermOffsetFromRawTail extracts the low 32 bits (term offset) from a
// packed raw tail value, clamped to termLength when the reservation
// overran the term (the tripped/failed cases in §4.3).
func TermOffsetFromRawTail(rawTail int64, termLength int32) int32 {
	offset := int32(rawTail & 0xFFFFFFFF)
	if offset > termLength {
		return termLength
	}
	return offset
}

// PackTail packs a termId and rawTail (term offset) into the tail-counter
// representation: high 32 bits term id, low 32 bits offset.
func PackTail(termID int32, termOffset int32) int64 {
	return (int64(termID) << 32) | int64(uint32(termOffset))
}

// Header is a small subscriber-side cursor used by the fragment reader:
// it knows the initial term id and the positionBitsToShift needed to
// translate a frame's (termId, termOffset) into a stream position.
type Header struct {
	initialTermID       int32
	positionBitsToShift int32
	buffer              atomic.Buffer
	offset              int32
}

// SetInitialTermID configures the header's initial term id.
func (h *Header) SetInitialTermID(initialTermID int32) {
	h.initialTermID = initialTermID
}

// InitialTermID returns the configured initial term id.
func (h *Header) InitialTermID() int32 {
	return h.initialTermID
}

// SetPositionBitsToShift configures the log2(termLength) shift.
func (h *Header) SetPositionBitsToShift(shift int32) {
	h.positionBitsToShift = shift
}

// PositionBitsToShift returns the configured shift.
func (h *Header) PositionBitsToShift() int32 {
	return h.positionBitsToShift
}

// Wrap points the header at the frame currently being read.
func (h *Header) Wrap(buffer *atomic.Buffer, offset int32) {
	h.buffer = *buffer
	h.offset = offset
}

// TermID returns the term id of the frame currently wrapped.
func (h *Header) TermID() int32 {
	return FrameTermID(&h.buffer, h.offset)
}

// TermOffset returns the term offset of the frame currently wrapped.
func (h *Header) TermOffset() int32 {
	return TermOffset(&h.buffer, h.offset)
}

// Flags returns the flags byte of the frame currently wrapped.
func (h *Header) Flags() uint8 {
	return FrameFlagsVolatile(&h.buffer, h.offset)
}

// ReservedValue returns the reserved-value field of the frame currently
// wrapped.
func (h *Header) ReservedValue() int64 {
	return h.buffer.GetInt64(h.offset + DataFrameHeader.ReservedValueFieldOffset)
}

// Position computes the stream position at the end of the frame
// currently wrapped, given its aligned frame length.
func (h *Header) Position(alignedFrameLength int32) int64 {
	return ComputePosition(h.TermID(), h.TermOffset()+alignedFrameLength, uint8(h.positionBitsToShift), h.initialTermID)
}
