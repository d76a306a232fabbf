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
	"github.com/fixedpool/fixedpool/metrics"
	"github.com/fixedpool/fixedpool/tracing"
	"github.com/google/uuid"
	"github.com/jacobsa/timeutil"
)

// PanicPolicy selects what a worker does after the task it ran panicked.
type PanicPolicy int

const (
	// PanicResume keeps the worker serving the queue.
	PanicResume PanicPolicy = iota

	// PanicExitWorker terminates the worker. The pool is not replenished.
	PanicExitWorker
)

func (p PanicPolicy) String() string {
	switch p {
	case PanicResume:
		return "resume"
	case PanicExitWorker:
		return "exit-worker"
	default:
		return "unknown"
	}
}

type options struct {
	name          string
	metricHandle  metrics.MetricHandle
	traceHandle   tracing.TraceHandle
	clock         timeutil.Clock
	panicPolicy   PanicPolicy
	panicHandler  func(*TaskPanicError)
	maxQueueDepth int
}

// Option configures a Pool.
type Option func(*options)

func defaultOptions() options {
	return options{
		name:         "pool-" + uuid.NewString()[:8],
		metricHandle: metrics.NewNoopMetrics(),
		traceHandle:  tracing.NewNoopTracer(),
		clock:        timeutil.RealClock(),
		panicPolicy:  PanicResume,
	}
}

// WithName sets the name used in logs, metrics and traces.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

func WithMetricHandle(h metrics.MetricHandle) Option {
	return func(o *options) {
		if h != nil {
			o.metricHandle = h
		}
	}
}

func WithTraceHandle(h tracing.TraceHandle) Option {
	return func(o *options) {
		if h != nil {
			o.traceHandle = h
		}
	}
}

// WithClock sets the clock used to measure queue and execution latency.
func WithClock(c timeutil.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func WithPanicPolicy(p PanicPolicy) Option {
	return func(o *options) {
		o.panicPolicy = p
	}
}

// WithPanicHandler registers a callback invoked on the worker goroutine after
// a task panicked. The pool lock is not held while it runs.
func WithPanicHandler(fn func(*TaskPanicError)) Option {
	return func(o *options) {
		o.panicHandler = fn
	}
}

// WithMaxQueueDepth bounds the number of queued tasks. Submit returns
// ErrQueueFull once the bound is reached. Zero or less means unbounded.
func WithMaxQueueDepth(n int) Option {
	return func(o *options) {
		if n < 0 {
			n = 0
		}
		o.maxQueueDepth = n
	}
}
