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

import "errors"

// Sentinel return codes for Publication.offer/tryClaim (spec.md §4.7).
// These are a stable external contract: other components branch on the
// exact integer values, not just their sign.
const (
	NotConnected        int64 = -1
	BackPressured       int64 = -2
	AdminAction         int64 = -3
	PublicationClosed   int64 = -4
	MaxPositionExceeded int64 = -5
)

// Structured, programmer-error faults (spec.md §7). These never surface
// as sentinel return values; Offer/TryClaim panic with them, which
// terminates only the offending call and leaves the Publication usable.
var (
	// ErrLengthNegative is the panic value when a caller passes a negative
	// length.
	ErrLengthNegative = errors.New("aeron: length must not be negative")

	// ErrMessageTooLarge is the panic value when length exceeds
	// maxMessageLength (termLength/8).
	ErrMessageTooLarge = errors.New("aeron: encoded message exceeds maxMessageLength")

	// ErrClaimTooLarge is the panic value from tryClaim when length exceeds
	// maxPayloadLength; a claim cannot span multiple frames.
	ErrClaimTooLarge = errors.New("aeron: claim length exceeds maxPayloadLength")

	// ErrPublicationClosed is returned by AddDestination/RemoveDestination
	// calls made after Close, distinct from the PublicationClosed sentinel
	// returned by offer/tryClaim themselves.
	ErrPublicationClosed = errors.New("aeron: publication is closed")

	// errReleaseQueueFull is reported to the conductor's error handler
	// when a Publication's release notification cannot be enqueued.
	errReleaseQueueFull = errors.New("aeron: conductor release queue full")
)
