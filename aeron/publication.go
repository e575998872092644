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

// Package aeron is the client-facing publish side: Publication orchestrates
// which term partition is active, tracks the publication limit, and
// delegates the actual reserve/append work to aeron/logbuffer/term.
package aeron

import (
	"math"
	"sync"

	"github.com/coriolislabs/aeron-go/aeron/atomic"
	"github.com/coriolislabs/aeron-go/aeron/counters"
	"github.com/coriolislabs/aeron-go/aeron/logbuffer"
	"github.com/coriolislabs/aeron-go/aeron/logbuffer/term"
	"github.com/coriolislabs/aeron-go/aeron/util"
)

// maxMessageLengthDivisor bounds an unfragmented-or-fragmented message at
// termLength/8 (spec.md §7), so a single message can never occupy so much
// of a term that back-pressure becomes unrecoverable.
const maxMessageLengthDivisor = 8

// Publication is a client's handle for appending messages to one stream
// within a channel. It is safe for concurrent use by any number of
// producer goroutines; all coordination is through the shared tail
// counters and active-partition-index (spec.md §5).
type Publication struct {
	logBuffers       *logbuffer.LogBuffers
	appenders        [logbuffer.PartitionCount]*term.Appender
	conductor        *ClientConductor
	publicationLimit *counters.Reader

	channel        string
	streamID       int32
	sessionID      int32
	registrationID int64

	initialTermID       int32
	termLength          int32
	mtuLength            int32
	maxPayloadLength     int32
	maxMessageLength     int32
	positionBitsToShift  uint8
	maxPossiblePosition  int64

	isClosed atomic.Bool

	debugClaims bool
	claimsMu    sync.Mutex
	claims      map[*logbuffer.Claim]struct{}
}

// NewPublication wires a Publication over logBuffers for the given
// channel/stream/session, using conductor for connectivity/limit
// bookkeeping. positionBitsToShift and initialTermID are derived from the
// log's own metadata.
func NewPublication(
	logBuffers *logbuffer.LogBuffers,
	conductor *ClientConductor,
	publicationLimit *counters.Reader,
	channel string,
	streamID, sessionID int32,
	registrationID int64,
	debugClaims bool,
) *Publication {
	meta := logBuffers.Meta()
	termLength := logBuffers.TermLength()

	pub := &Publication{
		logBuffers:          logBuffers,
		conductor:           conductor,
		publicationLimit:    publicationLimit,
		channel:             channel,
		streamID:            streamID,
		sessionID:           sessionID,
		registrationID:      registrationID,
		initialTermID:       meta.InitTermID.Get(),
		termLength:          termLength,
		mtuLength:           meta.MTULength.Get(),
		positionBitsToShift: util.NumberOfTrailingZeroes(termLength),
		debugClaims:         debugClaims,
	}

	pub.maxPayloadLength = pub.mtuLength - logbuffer.DataFrameHeader.Length
	pub.maxMessageLength = termLength / maxMessageLengthDivisor
	pub.maxPossiblePosition = int64(math.MaxInt32) << pub.positionBitsToShift

	for i := 0; i < logbuffer.PartitionCount; i++ {
		pub.appenders[i] = term.MakeAppender(logBuffers, i)
	}

	if debugClaims {
		pub.claims = make(map[*logbuffer.Claim]struct{})
	}

	return pub
}

// Channel returns the channel URI this publication was created for.
func (pub *Publication) Channel() string { return pub.channel }

// StreamID returns the logical stream id within the channel.
func (pub *Publication) StreamID() int32 { return pub.streamID }

// SessionID returns this publication's session identity.
func (pub *Publication) SessionID() int32 { return pub.sessionID }

// RegistrationID returns the id the driver assigned this publication on
// creation, used to correlate the release notification on Close.
func (pub *Publication) RegistrationID() int64 { return pub.registrationID }

// MaxPayloadLength returns the largest payload that fits unfragmented in
// a single frame (mtuLength - header length).
func (pub *Publication) MaxPayloadLength() int32 { return pub.maxPayloadLength }

// MaxMessageLength returns the largest payload offer will accept at all,
// fragmented or not (termLength / 8).
func (pub *Publication) MaxMessageLength() int32 { return pub.maxMessageLength }

// PublicationLimit returns the driver-maintained upper bound on the
// position this publication may reach.
func (pub *Publication) PublicationLimit() int64 {
	return pub.publicationLimit.Get()
}

// IsConnected reports whether the driver has posted a status message
// within the conductor's liveness window (spec.md §4.5.2).
func (pub *Publication) IsConnected() bool {
	if pub.isClosed.Get() {
		return false
	}
	return pub.conductor.IsPublicationConnected(pub.logBuffers.Meta())
}

// IsClosed reports whether Close has been called.
func (pub *Publication) IsClosed() bool {
	return pub.isClosed.Get()
}

// Position returns the current stream position: the active partition's
// tail counter translated through the position arithmetic (spec.md §3).
// It only ever increases, even as producers race on the tail counter,
// because the tail counter itself is monotonic.
func (pub *Publication) Position() int64 {
	if pub.isClosed.Get() {
		return PublicationClosed
	}

	partitionIndex := pub.activePartitionIndex()
	rawTail := pub.appenders[partitionIndex].RawTail()
	termID := logbuffer.TermID(rawTail)
	termOffset := logbuffer.TermOffsetFromRawTail(rawTail, pub.termLength)

	return logbuffer.ComputePosition(termID, termOffset, pub.positionBitsToShift, pub.initialTermID)
}

func (pub *Publication) activePartitionIndex() int32 {
	return pub.logBuffers.Meta().ActivePartitionIndex.GetVolatile()
}

// AddDestination registers an additional manual-multi-destination-cast
// endpoint with the driver for this publication's channel.
func (pub *Publication) AddDestination(endpointChannel string) error {
	if pub.isClosed.Get() {
		return ErrPublicationClosed
	}
	return pub.conductor.AddDestination(pub.registrationID, endpointChannel)
}

// RemoveDestination reverses a prior AddDestination.
func (pub *Publication) RemoveDestination(endpointChannel string) error {
	if pub.isClosed.Get() {
		return ErrPublicationClosed
	}
	return pub.conductor.RemoveDestination(pub.registrationID, endpointChannel)
}

// Close marks the publication closed and notifies the conductor so the
// driver can eventually reclaim the log. Any claim still outstanding from
// a debug-mode tryClaim is aborted here rather than left to stall
// subscribers forever (spec.md §9 open question, resolved in DESIGN.md).
func (pub *Publication) Close() error {
	if !pub.isClosed.CompareAndSet(false, true) {
		return nil
	}

	if pub.debugClaims {
		pub.claimsMu.Lock()
		for claim := range pub.claims {
			if !claim.IsResolved() {
				logger.Warningf("aborting outstanding BufferClaim on Close for registration %d", pub.registrationID)
				_ = claim.Abort()
			}
		}
		pub.claims = nil
		pub.claimsMu.Unlock()
	}

	pub.conductor.ReleasePublication(pub.registrationID)
	return nil
}

// Offer copies length bytes from buffer (at offset) into the log as one
// message, fragmenting automatically if length exceeds maxPayloadLength
// (spec.md §4.5, §4.8). reservedValueSupplier may be nil, in which case
// every frame's reserved-value field is 0.
func (pub *Publication) Offer(buffer *atomic.Buffer, offset, length int32, reservedValueSupplier term.ReservedValueSupplier) int64 {
	if length < 0 {
		panic(ErrLengthNegative)
	}
	if length > pub.maxMessageLength {
		panic(ErrMessageTooLarge)
	}
	if pub.isClosed.Get() {
		return PublicationClosed
	}

	limit, partitionIndex, termID, termOffset, position := pub.loadState()
	if position >= pub.maxPossiblePosition {
		return MaxPositionExceeded
	}
	if limit <= position {
		if pub.IsConnected() {
			return BackPressured
		}
		return NotConnected
	}

	appender := pub.appenders[partitionIndex]

	var result int64
	if length <= pub.maxPayloadLength {
		result = appender.AppendUnfragmentedMessage(buffer, offset, length, reservedValueSupplier)
	} else {
		result = appender.AppendFragmentedMessage(buffer, offset, length, pub.maxPayloadLength, reservedValueSupplier)
	}

	return pub.resolveAppendResult(result, partitionIndex, termID, termOffset)
}

// TryClaim reserves length bytes for zero-copy writing and wraps claim
// over the reserved region (spec.md §4.4, §4.5). The caller must
// subsequently call exactly one of claim.Commit() or claim.Abort().
// length must not exceed maxPayloadLength: a claim can never span more
// than one frame.
func (pub *Publication) TryClaim(length int32, claim *logbuffer.Claim) int64 {
	if length < 0 {
		panic(ErrLengthNegative)
	}
	if length > pub.maxPayloadLength {
		panic(ErrClaimTooLarge)
	}
	if pub.isClosed.Get() {
		return PublicationClosed
	}

	limit, partitionIndex, termID, termOffset, position := pub.loadState()
	if position >= pub.maxPossiblePosition {
		return MaxPositionExceeded
	}
	if limit <= position {
		if pub.IsConnected() {
			return BackPressured
		}
		return NotConnected
	}

	appender := pub.appenders[partitionIndex]
	result := appender.Claim(claim, length, nil)

	newPosition := pub.resolveAppendResult(result, partitionIndex, termID, termOffset)
	if newPosition >= 0 && pub.debugClaims {
		pub.claimsMu.Lock()
		pub.claims[claim] = struct{}{}
		pub.claimsMu.Unlock()
	}

	return newPosition
}

// TryClaimPrivileged is TryClaim for callers that need the privileged
// capability set (flags/type overrides), e.g. components sharing this
// wire format outside the core's own scope. See spec.md §9 on modeling
// the two claim flavours as capability sets rather than a subclass.
func (pub *Publication) TryClaimPrivileged(length int32, claim *logbuffer.PrivilegedClaim) int64 {
	return pub.TryClaim(length, &claim.Claim)
}

// loadState reads the active partition, its tail counter, and the
// publication limit in the order spec.md §4.5 fast-path steps 2-3
// prescribe, returning everything resolveAppendResult and the caller
// need to finish the decision.
func (pub *Publication) loadState() (limit int64, partitionIndex, termID, termOffset int32, position int64) {
	limit = pub.publicationLimit.Get()
	partitionIndex = pub.activePartitionIndex()

	rawTail := pub.appenders[partitionIndex].RawTail()
	termID = logbuffer.TermID(rawTail)
	termOffset = logbuffer.TermOffsetFromRawTail(rawTail, pub.termLength)
	position = logbuffer.ComputePosition(termID, termOffset, pub.positionBitsToShift, pub.initialTermID)

	return limit, partitionIndex, termID, termOffset, position
}

// resolveAppendResult turns an Appender outcome into the Publication-level
// sentinel or new stream position (spec.md §4.5 step 6).
func (pub *Publication) resolveAppendResult(result int64, partitionIndex, termID, termOffset int32) int64 {
	switch result {
	case term.AppenderTripped:
		pub.rotateTerm(partitionIndex, termID)
		return AdminAction
	case term.AppenderFailed:
		return AdminAction
	default:
		return logbuffer.ComputePosition(termID, int32(result), pub.positionBitsToShift, pub.initialTermID)
	}
}

// rotateTerm advances the active partition exactly once per term trip
// (spec.md §4.5.1): the appender whose CAS wins publishes the new active-
// partition-index with release semantics; everyone else's CAS loss is
// benign, they simply return without acting.
func (pub *Publication) rotateTerm(currentPartitionIndex, currentTermID int32) {
	nextIndex := (currentPartitionIndex + 1) % logbuffer.PartitionCount
	nextTermID := currentTermID + 1

	if pub.appenders[nextIndex].RotateTo(nextTermID) {
		pub.logBuffers.Meta().ActivePartitionIndex.SetOrdered(nextIndex)
		logger.Debugf("publication %d rotated to term %d partition %d", pub.registrationID, nextTermID, nextIndex)
	}
}
