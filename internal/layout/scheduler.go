/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"sync"
	"time"
)

// DefaultDebounce is one frame at 60Hz.
const DefaultDebounce = 16 * time.Millisecond

// Scheduler coalesces re-layout requests. Requests arriving within Delay of
// each other collapse into one run; a new request pushes the pending run
// back. Run must be safe to call repeatedly.
type Scheduler struct {
	Delay time.Duration
	Run   func()

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	stopped bool
	runs    int
}

// NewScheduler returns a scheduler with delay (DefaultDebounce when <= 0).
func NewScheduler(delay time.Duration, run func()) *Scheduler {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Scheduler{Delay: delay, Run: run}
}

// Request schedules a run after the debounce delay, superseding any pending one.
func (s *Scheduler) Request() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.pending = true
	s.timer = time.AfterFunc(s.Delay, s.fire)
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	if !s.pending || s.stopped {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.runs++
	s.mu.Unlock()
	s.Run()
}

// Flush runs a pending request now. It reports whether one was pending.
func (s *Scheduler) Flush() bool {
	s.mu.Lock()
	if !s.pending {
		s.mu.Unlock()
		return false
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.pending = false
	s.runs++
	s.mu.Unlock()
	s.Run()
	return true
}

// Pending reports whether a run is scheduled.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Runs counts completed or started runs.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// Stop cancels any pending run and ignores later requests.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.pending = false
	if s.timer != nil {
		s.timer.Stop()
	}
}
