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
	"errors"

	"github.com/coriolislabs/aeron-go/aeron/atomic"
)

// ErrClaimNotInitialized is returned by Commit/Abort on a zero-value Claim
// that was never bound to a term region via Wrap.
var ErrClaimNotInitialized = errors.New("logbuffer: buffer claim not initialized")

// ErrClaimAlreadyResolved is returned by a second call to Commit or Abort
// on the same Claim; a claim resolves exactly once.
var ErrClaimAlreadyResolved = errors.New("logbuffer: buffer claim already committed or aborted")

// Claim is the zero-copy reservation handle returned by a successful
// Publication.tryClaim. It references a region of a term buffer that has
// already had its header stamped but not yet published (frame-length is
// still zero); the caller writes payload directly into Data() and must
// call exactly one of Commit or Abort (spec.md §3, §4.4).
//
// Claim exposes the "standard" capability set {ReservedValue, Commit,
// Abort}. PrivilegedClaim adds {Flags, Type} over the same region without
// subclassing, per the capability-set design note in spec.md §9.
type Claim struct {
	termBuffer *atomic.Buffer
	frameStart int32
	frameLength int32
	resolved    bool
}

// Wrap binds the claim to [frameOffset, frameOffset+frameLength) of
// termBuffer. Called by the term Appender immediately after a successful
// reserve; frame-length at this point is still zero.
func (c *Claim) Wrap(termBuffer *atomic.Buffer, frameOffset, frameLength int32) {
	c.termBuffer = termBuffer
	c.frameStart = frameOffset
	c.frameLength = frameLength
	c.resolved = false
}

// Buffer returns the underlying term buffer, for advanced callers that
// need direct access outside of Data().
func (c *Claim) Buffer() *atomic.Buffer {
	return c.termBuffer
}

// Offset returns the frame's starting offset within the term buffer.
func (c *Claim) Offset() int32 {
	return c.frameStart
}

// Length returns the total frame length, header included.
func (c *Claim) Length() int32 {
	return c.frameLength
}

// Data returns the payload sub-range of the claimed frame, i.e.
// [frameStart+HEADER_LENGTH, frameStart+frameLength).
func (c *Claim) Data() *atomic.Buffer {
	view := new(atomic.Buffer)
	payloadOffset := c.frameStart + DataFrameHeader.Length
	payloadLength := c.frameLength - DataFrameHeader.Length
	view.Wrap(c.termBuffer.PtrAt(payloadOffset), payloadLength)
	return view
}

// ReservedValue reads the reserved-value field (little-endian, offset 24).
func (c *Claim) ReservedValue() int64 {
	return c.termBuffer.GetInt64(c.frameStart + DataFrameHeader.ReservedValueFieldOffset)
}

// SetReservedValue writes the reserved-value field. Valid any time before
// Commit/Abort.
func (c *Claim) SetReservedValue(value int64) {
	c.termBuffer.PutInt64(c.frameStart+DataFrameHeader.ReservedValueFieldOffset, value)
}

// Commit publishes the frame by writing its real length with
// release semantics, making it visible to subscribers.
func (c *Claim) Commit() error {
	if c.termBuffer == nil {
		return ErrClaimNotInitialized
	}
	if c.resolved {
		return ErrClaimAlreadyResolved
	}

	FrameLengthOrdered(c.termBuffer, c.frameStart, c.frameLength)
	c.resolved = true
	return nil
}

// Abort converts the claimed region into a pad frame and publishes it,
// so subscribers skip over it instead of stalling on a zero frame-length.
func (c *Claim) Abort() error {
	if c.termBuffer == nil {
		return ErrClaimNotInitialized
	}
	if c.resolved {
		return ErrClaimAlreadyResolved
	}

	SetFrameType(c.termBuffer, c.frameStart, DataFrameHeader.TypePad)
	FrameLengthOrdered(c.termBuffer, c.frameStart, c.frameLength)
	c.resolved = true
	return nil
}

// IsResolved reports whether Commit or Abort has already been called.
func (c *Claim) IsResolved() bool {
	return c.resolved
}

// PrivilegedClaim extends Claim with the ability to overwrite the flags
// and type header fields directly, for callers that implement their own
// fragmentation or frame-type scheme on top of the log buffer (e.g. the
// archive/recording subsystem, out of scope here but sharing the format).
type PrivilegedClaim struct {
	Claim
}

// SetFlags overwrites the frame's flags byte.
func (c *PrivilegedClaim) SetFlags(flags uint8) {
	FrameFlags(c.termBuffer, c.frameStart, flags)
}

// SetHeaderType overwrites the frame's type field.
func (c *PrivilegedClaim) SetHeaderType(frameType uint16) {
	SetFrameType(c.termBuffer, c.frameStart, frameType)
}
