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

// Package idlestrategy provides the external backoff contract callers
// wrap around Publication.offer/tryClaim's negative sentinel returns
// (spec.md §5, §9) — the core itself never blocks or sleeps.
package idlestrategy

import (
	"runtime"
	"time"
)

// BusySpinIdleStrategy never yields; appropriate only when the caller has
// a dedicated core and wants the lowest possible retry latency.
type BusySpinIdleStrategy struct{}

// Idle is a no-op: the caller is expected to retry immediately.
func (BusySpinIdleStrategy) Idle(int) {}

// Reset is a no-op for a strategy with no internal state.
func (BusySpinIdleStrategy) Reset() {}

// BackoffIdleStrategy escalates from spinning to yielding to sleeping the
// longer a caller has gone without doing work, matching the upstream
// client's default idle strategy.
type BackoffIdleStrategy struct {
	maxSpins   int
	maxYields  int
	minParkNs  time.Duration
	maxParkNs  time.Duration

	spins    int
	yields   int
	parkTime time.Duration
}

// NewBackoffIdleStrategy returns a BackoffIdleStrategy with the teacher's
// conventional thresholds: 10 spins, then 5 yields, then parking starting
// at 1 microsecond and doubling up to 1 millisecond.
func NewBackoffIdleStrategy() *BackoffIdleStrategy {
	return &BackoffIdleStrategy{
		maxSpins:  10,
		maxYields: 5,
		minParkNs: time.Microsecond,
		maxParkNs: time.Millisecond,
	}
}

// Idle backs off one step further each time workCount is zero (no
// progress was made since the last call), and resets on any positive
// workCount.
func (s *BackoffIdleStrategy) Idle(workCount int) {
	if workCount > 0 {
		s.Reset()
		return
	}

	switch {
	case s.spins < s.maxSpins:
		s.spins++
	case s.yields < s.maxYields:
		s.yields++
		runtime.Gosched()
	default:
		if s.parkTime == 0 {
			s.parkTime = s.minParkNs
		} else if s.parkTime < s.maxParkNs {
			s.parkTime *= 2
			if s.parkTime > s.maxParkNs {
				s.parkTime = s.maxParkNs
			}
		}
		time.Sleep(s.parkTime)
	}
}

// Reset clears all backoff state, called whenever the caller observes
// progress (e.g. offer succeeded).
func (s *BackoffIdleStrategy) Reset() {
	s.spins = 0
	s.yields = 0
	s.parkTime = 0
}

// SleepingIdleStrategy parks for a fixed duration on every idle call
// regardless of history, useful for low-priority background callers.
type SleepingIdleStrategy struct {
	SleepDuration time.Duration
}

// Idle sleeps for SleepDuration.
func (s SleepingIdleStrategy) Idle(int) {
	time.Sleep(s.SleepDuration)
}

// Reset is a no-op for a strategy with no internal state.
func (SleepingIdleStrategy) Reset() {}
