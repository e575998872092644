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

import "time"

// defaultClientLivenessTimeout is the window within which the driver must
// have posted a status message for a Publication to be considered
// connected (spec.md §4.5.2). The exact value is driver-configured in a
// real deployment; this is the core's opaque default for the bundled
// ClientConductor.
const defaultClientLivenessTimeout = 5 * time.Second

// Context carries the connection-time configuration a client needs to
// talk to the driver and conductor: where the log/counters files live,
// how aggressively to idle between retries, and where to route errors
// the core itself never logs.
type Context struct {
	aeronDir              string
	idleStrategy           IdleStrategy
	errorHandler           func(error)
	clientLivenessTimeout time.Duration
	debugClaims           bool
}

// IdleStrategy is the external retry/backoff contract callers use around
// BackPressured/NotConnected/AdminAction sentinel returns (spec.md §5).
// Implementations live in aeron/idlestrategy; Context only references the
// interface so the core never depends on a concrete strategy.
type IdleStrategy interface {
	Idle(workCount int)
	Reset()
}

// NewContext returns a Context with the teacher's conventional defaults.
func NewContext() *Context {
	return &Context{
		aeronDir:              "/dev/shm/aeron",
		errorHandler:           func(error) {},
		clientLivenessTimeout: defaultClientLivenessTimeout,
	}
}

// AeronDir sets the directory the driver publishes log/counters files
// under.
func (c *Context) AeronDir(dir string) *Context {
	c.aeronDir = dir
	return c
}

// IdleStrategy stores an idle strategy on the Context. Nothing in this
// package reads it: offer/tryClaim never block and take no idle strategy.
func (c *Context) IdleStrategy(strategy IdleStrategy) *Context {
	c.idleStrategy = strategy
	return c
}

// ErrorHandler sets the handler the conductor invokes for its own faults
// (a release notification that cannot be enqueued) — never for the offer/
// tryClaim sentinel returns, which are not errors.
func (c *Context) ErrorHandler(handler func(error)) *Context {
	c.errorHandler = handler
	return c
}

// ClientLivenessTimeout overrides the window used to judge connectivity.
func (c *Context) ClientLivenessTimeout(d time.Duration) *Context {
	c.clientLivenessTimeout = d
	return c
}

// DebugClaims enables the outstanding-BufferClaim registry described in
// spec.md §9: Publications created with this Context track every
// tryClaim that hasn't yet been committed or aborted and abort them on
// Close, rather than leaving a zero frame-length slot to stall
// subscribers indefinitely. Off by default, as it costs a map insert per
// tryClaim.
func (c *Context) DebugClaims(enabled bool) *Context {
	c.debugClaims = enabled
	return c
}
