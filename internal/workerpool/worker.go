// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package workerpool

import (
	"context"
	"runtime/debug"

	"github.com/fixedpool/fixedpool/internal/logger"
	"github.com/fixedpool/fixedpool/metrics"
	"github.com/fixedpool/fixedpool/tracing"
)

// work is the body of worker id. It drains the queue until the pool is closed
// and the queue is empty.
func (s *poolState) work(id int) {
	// Set on every return path; false only when a task called runtime.Goexit.
	returned := false
	defer func() {
		if returned {
			return
		}
		logger.Warnf("Pool %s: worker %d lost: task exited its goroutine", s.name, id)
		s.metricHandle.BusyWorkerCount(-1)
		s.mu.Lock()
		s.running--
		s.panicked++
		s.exitLocked(id)
		s.mu.Unlock()
	}()

	s.mu.Lock()
	for {
		if !s.tasks.IsEmpty() {
			qt := s.tasks.Pop()
			s.running++
			s.metricHandle.QueueDepth(-1)
			s.mu.Unlock()

			s.metricHandle.BusyWorkerCount(1)
			perr := s.execute(id, qt)
			s.metricHandle.BusyWorkerCount(-1)
			if perr != nil {
				s.handlePanic(perr)
			}

			s.mu.Lock()
			s.running--
			if perr == nil {
				s.completed++
				continue
			}

			s.panicked++
			if s.panicPolicy == PanicExitWorker {
				logger.Warnf("Pool %s: worker %d exiting after task panic", s.name, id)
				s.exitLocked(id)
				s.mu.Unlock()
				returned = true
				return
			}
			continue
		}

		if s.closed {
			break
		}

		s.idle++
		s.wakeup.Wait()
		s.idle--
	}

	s.exitLocked(id)
	s.mu.Unlock()
	returned = true
}

// LOCKS_REQUIRED(s.mu)
func (s *poolState) exitLocked(id int) {
	s.live--
	s.metricHandle.LiveWorkerCount(-1)
	logger.Tracef("Pool %s: worker %d exited, %d live", s.name, id, s.live)

	if s.live > 0 {
		return
	}
	close(s.allExited)
	if !s.closed {
		logger.Warnf("Pool %s: last worker exited while the pool is open; %d queued tasks will not run", s.name, s.tasks.Len())
	}
}

// execute runs one task outside the lock and converts a panic into a
// TaskPanicError.
func (s *poolState) execute(id int, qt queuedTask) (perr *TaskPanicError) {
	start := s.clock.Now()
	queued := start.Sub(qt.enqueued)

	ctx, span := s.traceHandle.StartSpan(context.Background(), tracing.TaskSpanName)
	s.traceHandle.SetTaskAttributes(span, s.name, id, queued)
	s.metricHandle.TaskQueueLatency(ctx, queued)

	finished := false
	defer func() {
		status := metrics.StatusSuccessfulAttr
		if r := recover(); r != nil {
			perr = &TaskPanicError{Pool: s.name, WorkerID: id, Value: r, Stack: debug.Stack()}
			logger.Errorf("%v\n%s", perr, perr.Stack)
		}
		if !finished {
			status = metrics.StatusPanickedAttr
		}
		if perr != nil {
			s.traceHandle.RecordError(span, perr)
		}
		s.metricHandle.TaskExecutionLatency(ctx, s.clock.Now().Sub(start), status)
		s.metricHandle.TaskCompleteCount(1, status)
		s.traceHandle.EndSpan(span)
	}()

	qt.task.Execute()
	finished = true
	return nil
}

func (s *poolState) handlePanic(perr *TaskPanicError) {
	if s.panicHandler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Pool %s: panic handler panicked: %v", s.name, r)
		}
	}()
	s.panicHandler(perr)
}
