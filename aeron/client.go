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
	"sync/atomic"

	"github.com/coriolislabs/aeron-go/aeron/counters"
	"github.com/coriolislabs/aeron-go/aeron/logbuffer"
)

// Aeron is the client entry point: it owns the conductor and hands out
// Publications. Establishing the driver connection itself (media driver
// handshake, log-file creation) is out of scope (spec.md §1) — LogBuffers
// and the publication-limit counter are supplied by the caller, exactly
// as a real client would receive them from the driver on acknowledgement.
type Aeron struct {
	ctx       *Context
	conductor *ClientConductor

	nextRegistrationID int64
}

// Connect builds an Aeron client against ctx (or NewContext() defaults if
// ctx is nil).
func Connect(ctx *Context) *Aeron {
	if ctx == nil {
		ctx = NewContext()
	}
	return &Aeron{
		ctx:       ctx,
		conductor: NewClientConductor(ctx),
	}
}

// Conductor exposes the underlying conductor, mainly for tests that need
// to simulate driver liveness or drain release notifications.
func (a *Aeron) Conductor() *ClientConductor {
	return a.conductor
}

// AddPublication wires a Publication over logBuffers and
// publicationLimit, both already established with the driver (or, in
// tests, constructed directly via logbuffer.Wrap and counters.NewReader).
func (a *Aeron) AddPublication(
	logBuffers *logbuffer.LogBuffers,
	publicationLimit *counters.Reader,
	channel string,
	streamID, sessionID int32,
) *Publication {
	registrationID := atomic.AddInt64(&a.nextRegistrationID, 1)
	return NewPublication(logBuffers, a.conductor, publicationLimit, channel, streamID, sessionID, registrationID, a.ctx.debugClaims)
}

// Close releases client-level resources. Individual Publications must
// still be closed by their owners.
func (a *Aeron) Close() error {
	return nil
}
