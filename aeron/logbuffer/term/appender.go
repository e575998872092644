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

// Package term implements the per-partition append path: atomically
// reserving space in a term buffer via fetch-and-add on its tail counter,
// then either stamping a pad frame (term tripped), handing back a zero-
// copy BufferClaim, or copying a message (fragmented or not) and
// publishing it.
package term

import (
	"github.com/coriolislabs/aeron-go/aeron/atomic"
	"github.com/coriolislabs/aeron-go/aeron/flyweight"
	"github.com/coriolislabs/aeron-go/aeron/logbuffer"
	"github.com/coriolislabs/aeron-go/aeron/util"
)

const (
	// AppenderTripped is returned when the reserve operation ran into the
	// end of the term; a pad frame has been written and the caller (the
	// Publication) must rotate to the next term before retrying.
	AppenderTripped int64 = -1

	// AppenderFailed is returned when the term was already tripped by a
	// concurrent writer before this reserve began; no frame was written.
	AppenderFailed int64 = -2
)

// DefaultReservedValueSupplier is the zero-value ReservedValueSupplier:
// callers that do not provide one get a reserved-value of 0 (spec.md §4.3).
var DefaultReservedValueSupplier ReservedValueSupplier = func(termBuffer *atomic.Buffer, termOffset, length int32) int64 {
	return 0
}

// ReservedValueSupplier computes the user-defined reserved-value field of
// a frame immediately before its length is published. It must be a pure
// function of the frame's own bytes — no global randomness, no I/O.
type ReservedValueSupplier func(termBuffer *atomic.Buffer, termOffset, length int32) int64

// Appender is the per-partition term writer: one per partition, bound to
// a single term buffer and its tail counter.
type Appender struct {
	termBuffer   *atomic.Buffer
	tailCounter  flyweight.Int64Field
	headerWriter HeaderWriter
}

// MakeAppender is the factory for a term Appender bound to partitionIndex
// of logBuffers, caching the driver-supplied default frame header.
func MakeAppender(logBuffers *logbuffer.LogBuffers, partitionIndex int) *Appender {
	appender := new(Appender)
	appender.termBuffer = logBuffers.Buffer(partitionIndex)
	appender.tailCounter = logBuffers.Meta().TailCounter[partitionIndex]
	appender.headerWriter.Fill(logBuffers.Meta().DefaultFrameHeader.Get())
	return appender
}

// RawTail is the accessor to the raw (packed termId<<32|termOffset) value
// of the tail counter, used by Publication to detect term rotation.
func (appender *Appender) RawTail() int64 {
	return appender.tailCounter.Get()
}

// RotateTo attempts to initialise this (the next) partition's tail
// counter to (nextTermID, 0) via CAS (spec.md §4.5.1). It reads the
// current raw tail itself rather than trusting a caller-supplied expected
// value, so concurrent rotators racing on the same trip all converge:
// at most one observes a stale raw tail and wins the CAS, the rest see
// a termID already >= nextTermID and back off without retrying.
func (appender *Appender) RotateTo(nextTermID int32) bool {
	rawTail := appender.tailCounter.Get()
	if logbuffer.TermID(rawTail) >= nextTermID {
		return false
	}
	return appender.tailCounter.CompareAndSet(rawTail, logbuffer.PackTail(nextTermID, 0))
}

// SetTailTermID force-initialises the tail counter, used only when
// bootstrapping the very first active term.
func (appender *Appender) SetTailTermID(termID int32) {
	appender.tailCounter.Set(logbuffer.PackTail(termID, 0))
}

func (appender *Appender) getAndAddRawTail(alignedLength int32) int64 {
	return appender.tailCounter.GetAndAddInt64(int64(alignedLength))
}

// reserve performs the fetch-and-add reservation described in spec.md
// §4.3 steps 1-4 for a region of exactly reservationLength bytes, and
// handles the end-of-term cases (pad + TRIPPED, or FAILED) uniformly for
// Claim, AppendUnfragmentedMessage and AppendFragmentedMessage.
//
// On success it returns (termOffset, termID, true). On TRIPPED/FAILED it
// writes a pad frame when appropriate, stores the sentinel into *outcome
// and returns ok=false.
func (appender *Appender) reserve(reservationLength int32, outcome *int64) (termOffset int32, termID int32, ok bool) {
	rawTail := appender.getAndAddRawTail(reservationLength)
	termID = logbuffer.TermID(rawTail)
	termOffset = int32(rawTail & 0xFFFFFFFF)

	termLength := appender.termBuffer.Capacity()
	resultOffset := termOffset + reservationLength

	if resultOffset > termLength {
		*outcome = appender.handleEndOfLogCondition(termID, termOffset, termLength)
		return 0, 0, false
	}

	return termOffset, termID, true
}

func (appender *Appender) handleEndOfLogCondition(termID, termOffset, termLength int32) int64 {
	if termOffset > termLength {
		// Another writer already reserved past the end; nothing to pad.
		return AppenderFailed
	}

	if termOffset < termLength {
		paddingLength := termLength - termOffset
		appender.headerWriter.Write(appender.termBuffer, termOffset, paddingLength, termID)
		logbuffer.SetFrameType(appender.termBuffer, termOffset, logbuffer.DataFrameHeader.TypePad)
		logbuffer.FrameLengthOrdered(appender.termBuffer, termOffset, paddingLength)
	}

	return AppenderTripped
}

// Claim reserves length bytes (plus header) and hands back a zero-copy
// BufferClaim instead of copying a payload; frame-length is left at zero
// until the caller commits or aborts. Returns the new termOffset on
// success, or AppenderTripped/AppenderFailed.
func (appender *Appender) Claim(claim *logbuffer.Claim, length int32, reservedValueSupplier ReservedValueSupplier) int64 {
	frameLength := length + logbuffer.DataFrameHeader.Length
	alignedLength := util.AlignInt32(frameLength, logbuffer.FrameAlignment)

	var outcome int64
	offset, termID, ok := appender.reserve(alignedLength, &outcome)
	if !ok {
		return outcome
	}

	appender.headerWriter.Write(appender.termBuffer, offset, frameLength, termID)
	if reservedValueSupplier == nil {
		reservedValueSupplier = DefaultReservedValueSupplier
	}
	reservedValue := reservedValueSupplier(appender.termBuffer, offset, frameLength)
	appender.termBuffer.PutInt64(offset+logbuffer.DataFrameHeader.ReservedValueFieldOffset, reservedValue)

	claim.Wrap(appender.termBuffer, offset, frameLength)

	return int64(offset) + int64(alignedLength)
}

// AppendUnfragmentedMessage copies a message that fits in a single frame
// (length ≤ maxPayloadLength) into the term and publishes it immediately.
func (appender *Appender) AppendUnfragmentedMessage(
	srcBuffer *atomic.Buffer, srcOffset, length int32, reservedValueSupplier ReservedValueSupplier,
) int64 {
	frameLength := length + logbuffer.DataFrameHeader.Length
	alignedLength := util.AlignInt32(frameLength, logbuffer.FrameAlignment)

	var outcome int64
	offset, termID, ok := appender.reserve(alignedLength, &outcome)
	if !ok {
		return outcome
	}

	appender.headerWriter.Write(appender.termBuffer, offset, frameLength, termID)
	appender.termBuffer.PutBytes(offset+logbuffer.DataFrameHeader.Length, srcBuffer, srcOffset, length)

	if reservedValueSupplier == nil {
		reservedValueSupplier = DefaultReservedValueSupplier
	}
	reservedValue := reservedValueSupplier(appender.termBuffer, offset, frameLength)
	appender.termBuffer.PutInt64(offset+logbuffer.DataFrameHeader.ReservedValueFieldOffset, reservedValue)

	logbuffer.FrameLengthOrdered(appender.termBuffer, offset, frameLength)

	return int64(offset) + int64(alignedLength)
}

// AppendFragmentedMessage splits a message longer than maxPayloadLength
// into a BEGIN / MID* / END chain (spec.md §4.3, §4.8). The entire chain
// is reserved with a single fetch-and-add so it either lands wholly
// within this term or trips the term as a whole.
func (appender *Appender) AppendFragmentedMessage(
	srcBuffer *atomic.Buffer, srcOffset, length, maxPayloadLength int32, reservedValueSupplier ReservedValueSupplier,
) int64 {
	numMaxPayloads := length / maxPayloadLength
	remainingPayload := length % maxPayloadLength

	var lastFrameLength int32
	if remainingPayload > 0 {
		lastFrameLength = util.AlignInt32(remainingPayload+logbuffer.DataFrameHeader.Length, logbuffer.FrameAlignment)
	}
	requiredLength := numMaxPayloads*util.AlignInt32(maxPayloadLength+logbuffer.DataFrameHeader.Length, logbuffer.FrameAlignment) + lastFrameLength

	var outcome int64
	offset, termID, ok := appender.reserve(requiredLength, &outcome)
	if !ok {
		return outcome
	}

	if reservedValueSupplier == nil {
		reservedValueSupplier = DefaultReservedValueSupplier
	}

	flags := logbuffer.DataFrameHeader.BeginFlag
	remaining := length
	frameOffset := offset

	for remaining > 0 {
		bytesToWrite := remaining
		if bytesToWrite > maxPayloadLength {
			bytesToWrite = maxPayloadLength
		}
		frameLength := bytesToWrite + logbuffer.DataFrameHeader.Length
		alignedLength := util.AlignInt32(frameLength, logbuffer.FrameAlignment)

		appender.headerWriter.Write(appender.termBuffer, frameOffset, frameLength, termID)
		appender.termBuffer.PutBytes(frameOffset+logbuffer.DataFrameHeader.Length, srcBuffer, srcOffset+(length-remaining), bytesToWrite)

		if remaining <= maxPayloadLength {
			flags |= logbuffer.DataFrameHeader.EndFlag
		}
		logbuffer.FrameFlags(appender.termBuffer, frameOffset, flags)

		reservedValue := reservedValueSupplier(appender.termBuffer, frameOffset, frameLength)
		appender.termBuffer.PutInt64(frameOffset+logbuffer.DataFrameHeader.ReservedValueFieldOffset, reservedValue)

		logbuffer.FrameLengthOrdered(appender.termBuffer, frameOffset, frameLength)

		flags = 0
		frameOffset += alignedLength
		remaining -= bytesToWrite
	}

	return int64(offset) + int64(requiredLength)
}
