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

package metrics

import (
	"context"
	"time"
)

// Reason is the attribute attached to rejected submissions.
type Reason string

const (
	ReasonClosedAttr    Reason = "closed"
	ReasonNilTaskAttr   Reason = "nil_task"
	ReasonNoWorkersAttr Reason = "no_workers"
	ReasonQueueFullAttr Reason = "queue_full"
)

// Status is the attribute describing how a task execution ended.
type Status string

const (
	StatusPanickedAttr   Status = "panicked"
	StatusSuccessfulAttr Status = "successful"
)

// MetricHandle provides an interface for recording worker pool metrics.
type MetricHandle interface {
	// BusyWorkerCount - The number of workers currently executing a task.
	BusyWorkerCount(inc int64)

	// LiveWorkerCount - The number of workers that have not exited.
	LiveWorkerCount(inc int64)

	// QueueDepth - The number of tasks waiting for a worker.
	QueueDepth(inc int64)

	// TaskCompleteCount - The cumulative number of executed tasks along with how the execution ended: successful or panicked.
	TaskCompleteCount(inc int64, status Status)

	// TaskExecutionLatency - The cumulative distribution of task execution latencies along with how the execution ended.
	TaskExecutionLatency(ctx context.Context, latency time.Duration, status Status)

	// TaskQueueLatency - The cumulative distribution of the time tasks spent queued before a worker picked them up.
	TaskQueueLatency(ctx context.Context, latency time.Duration)

	// TaskRejectCount - The cumulative number of submissions refused by the pool along with the reason: closed, nil_task, no_workers or queue_full.
	TaskRejectCount(inc int64, reason Reason)

	// TaskSubmitCount - The cumulative number of tasks accepted by the pool.
	TaskSubmitCount(inc int64)
}
