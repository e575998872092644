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

package aeron

import (
	"github.com/coriolislabs/aeron-go/aeron/atomic"
	"github.com/coriolislabs/aeron-go/aeron/logbuffer"
	"github.com/coriolislabs/aeron-go/aeron/logbuffer/term"
	"github.com/coriolislabs/aeron-go/aeron/util"
)

// ImageClosed is returned by Poll once the image has been closed.
const ImageClosed int = -1

// Image is the minimal read side counterpart to Publication, included
// only to exercise the round-trip invariants in spec.md §8 ("a frame
// written with offer... is readable with identical bytes..."). It has no
// flow control, no loss detection and no multi-destination logic; the
// full subscription-side fragment assembly is out of scope (spec.md §1).
type Image struct {
	termBuffers [logbuffer.PartitionCount]*atomic.Buffer
	header      logbuffer.Header

	position int64
	logBuffers *logbuffer.LogBuffers

	sessionID           int32
	termLengthMask      int32
	positionBitsToShift uint8

	isClosed atomic.Bool
}

// NewImage wraps logBuffers for polling, starting at stream position 0.
func NewImage(sessionID int32, logBuffers *logbuffer.LogBuffers) *Image {
	image := &Image{
		logBuffers: logBuffers,
		sessionID:  sessionID,
	}

	for i := 0; i < logbuffer.PartitionCount; i++ {
		image.termBuffers[i] = logBuffers.Buffer(i)
	}

	termLength := logBuffers.TermLength()
	image.termLengthMask = termLength - 1
	image.positionBitsToShift = util.NumberOfTrailingZeroes(termLength)
	image.header.SetInitialTermID(logBuffers.Meta().InitTermID.Get())
	image.header.SetPositionBitsToShift(int32(image.positionBitsToShift))

	return image
}

// IsClosed reports whether Close has been called.
func (image *Image) IsClosed() bool {
	return image.isClosed.Get()
}

// Position returns the highest stream position consumed so far.
func (image *Image) Position() int64 {
	return image.position
}

// Poll reads up to fragmentLimit fragments starting from the image's
// current position, invoking handler for each, and advances the
// position. Returns the number of fragments delivered, or ImageClosed.
func (image *Image) Poll(handler term.FragmentHandler, fragmentLimit int) int {
	if image.IsClosed() {
		return ImageClosed
	}

	position := image.position
	termOffset := int32(position) & image.termLengthMask
	index := util.FastMod3(uint64(position) >> image.positionBitsToShift)
	termBuffer := image.termBuffers[index]

	newOffset, fragmentsRead := term.Read(termBuffer, termOffset, handler, fragmentLimit, &image.header)

	newPosition := position + int64(newOffset-termOffset)
	if newPosition > position {
		image.position = newPosition
	}

	return fragmentsRead
}

// Close marks the image unusable. Safe to call more than once.
func (image *Image) Close() error {
	if image.isClosed.CompareAndSet(false, true) {
		logger.Debugf("closing image for session %d", image.sessionID)
		return image.logBuffers.Close()
	}
	return nil
}
