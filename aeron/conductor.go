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
	"time"

	"github.com/coriolislabs/aeron-go/aeron/logbuffer"
)

// releaseQueueDepth bounds the channel a Publication posts its release
// notification to on Close, per the weak-reference design note in
// spec.md §9: the Publication never calls back into the conductor
// synchronously, it just enqueues and moves on.
const releaseQueueDepth = 64

// ClientConductor is the minimal stand-in for the real client/driver
// conductor thread. The media driver itself is out of scope (spec.md
// §1); what remains in scope is the two contracts spec.md actually
// specifies for it: answering isConnected by checking the driver's
// time-of-last-status-message against a liveness window (§4.5.2), and
// accepting a Publication's release notification on Close without the
// two objects holding a live reference to each other (§9).
type ClientConductor struct {
	livenessTimeout time.Duration
	now             func() time.Time
	releases        chan int64
	errorHandler    func(error)
}

// NewClientConductor builds a conductor using ctx's configured liveness
// timeout and error handler.
func NewClientConductor(ctx *Context) *ClientConductor {
	return &ClientConductor{
		livenessTimeout: ctx.clientLivenessTimeout,
		now:             time.Now,
		releases:        make(chan int64, releaseQueueDepth),
		errorHandler:    ctx.errorHandler,
	}
}

// IsPublicationConnected reports whether meta's time-of-last-status-
// message falls within the conductor's liveness window of now. A zero
// timestamp (never received a status message) is never connected.
func (cc *ClientConductor) IsPublicationConnected(meta *logbuffer.Meta) bool {
	lastMillis := meta.TimeOfLastStatusMsg.Get()
	if lastMillis == 0 {
		return false
	}
	last := time.UnixMilli(lastMillis)
	return cc.now().Sub(last) <= cc.livenessTimeout
}

// ReleasePublication enqueues registrationID for release. It never
// blocks: a full queue means the conductor is falling behind, which is
// reported via the error handler and the release being posted is
// dropped rather than stalling the caller (typically a Publication.Close
// running on an application thread).
func (cc *ClientConductor) ReleasePublication(registrationID int64) {
	select {
	case cc.releases <- registrationID:
	default:
		cc.errorHandler(errReleaseQueueFull)
		logger.Warningf("release queue full, dropping release for registration %d", registrationID)
	}
}

// Releases exposes the release-notification channel for whatever owns
// the conductor's lifecycle to drain (a real implementation would forward
// each id to the driver over IPC; out of scope here).
func (cc *ClientConductor) Releases() <-chan int64 {
	return cc.releases
}

// AddDestination and RemoveDestination are stubs over the driver
// boundary: manual multi-destination-cast channel management is entirely
// a media-driver concern (spec.md §1 lists the driver as an external
// collaborator reached only through the log region and publication-limit
// counter), so here they only log the request.
func (cc *ClientConductor) AddDestination(registrationID int64, endpointChannel string) error {
	logger.Debugf("add destination %s for registration %d", endpointChannel, registrationID)
	return nil
}

// RemoveDestination mirrors AddDestination.
func (cc *ClientConductor) RemoveDestination(registrationID int64, endpointChannel string) error {
	logger.Debugf("remove destination %s for registration %d", endpointChannel, registrationID)
	return nil
}
