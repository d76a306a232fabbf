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
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fixedpool/fixedpool/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName   = "fixedpool"
	logInterval = 5 * time.Minute
)

var (
	unrecognizedAttr atomic.Value

	taskCompleteCountStatusPanickedAttrSet      = metric.WithAttributeSet(attribute.NewSet(attribute.String("status", string(StatusPanickedAttr))))
	taskCompleteCountStatusSuccessfulAttrSet    = metric.WithAttributeSet(attribute.NewSet(attribute.String("status", string(StatusSuccessfulAttr))))
	taskExecutionLatencyStatusPanickedAttrSet   = metric.WithAttributeSet(attribute.NewSet(attribute.String("status", string(StatusPanickedAttr))))
	taskExecutionLatencyStatusSuccessfulAttrSet = metric.WithAttributeSet(attribute.NewSet(attribute.String("status", string(StatusSuccessfulAttr))))
	taskRejectCountReasonClosedAttrSet          = metric.WithAttributeSet(attribute.NewSet(attribute.String("reason", string(ReasonClosedAttr))))
	taskRejectCountReasonNilTaskAttrSet         = metric.WithAttributeSet(attribute.NewSet(attribute.String("reason", string(ReasonNilTaskAttr))))
	taskRejectCountReasonNoWorkersAttrSet       = metric.WithAttributeSet(attribute.NewSet(attribute.String("reason", string(ReasonNoWorkersAttr))))
	taskRejectCountReasonQueueFullAttrSet       = metric.WithAttributeSet(attribute.NewSet(attribute.String("reason", string(ReasonQueueFullAttr))))

	// Latencies of synthetic and real tasks range from microseconds to minutes.
	latencyBucketsUs = []float64{10, 50, 100, 200, 400, 800, 1200, 2000, 5000, 10000, 20000, 50000, 100000, 200000, 500000, 1000000, 2000000, 5000000, 10000000, 60000000, 300000000}
)

type histogramRecord struct {
	ctx        context.Context
	instrument metric.Int64Histogram
	value      int64
	attributes metric.RecordOption
}

type otelMetrics struct {
	ch chan histogramRecord
	wg *sync.WaitGroup

	// mu guards closed against records racing with Close.
	mu     sync.RWMutex
	closed bool

	busyWorkerCountAtomic                   *atomic.Int64
	liveWorkerCountAtomic                   *atomic.Int64
	queueDepthAtomic                        *atomic.Int64
	taskCompleteCountStatusPanickedAtomic   *atomic.Int64
	taskCompleteCountStatusSuccessfulAtomic *atomic.Int64
	taskRejectCountReasonClosedAtomic       *atomic.Int64
	taskRejectCountReasonNilTaskAtomic      *atomic.Int64
	taskRejectCountReasonNoWorkersAtomic    *atomic.Int64
	taskRejectCountReasonQueueFullAtomic    *atomic.Int64
	taskSubmitCountAtomic                   *atomic.Int64
	taskExecutionLatency                    metric.Int64Histogram
	taskQueueLatency                        metric.Int64Histogram
}

func (o *otelMetrics) BusyWorkerCount(inc int64) {
	o.busyWorkerCountAtomic.Add(inc)
}

func (o *otelMetrics) LiveWorkerCount(inc int64) {
	o.liveWorkerCountAtomic.Add(inc)
}

func (o *otelMetrics) QueueDepth(inc int64) {
	o.queueDepthAtomic.Add(inc)
}

func (o *otelMetrics) TaskCompleteCount(inc int64, status Status) {
	if inc < 0 {
		logger.Errorf("Counter metric pool/task_complete_count received a negative increment: %d", inc)
		return
	}
	switch status {
	case StatusPanickedAttr:
		o.taskCompleteCountStatusPanickedAtomic.Add(inc)
	case StatusSuccessfulAttr:
		o.taskCompleteCountStatusSuccessfulAtomic.Add(inc)
	default:
		updateUnrecognizedAttribute(string(status))
	}
}

func (o *otelMetrics) TaskExecutionLatency(ctx context.Context, latency time.Duration, status Status) {
	var record histogramRecord
	switch status {
	case StatusPanickedAttr:
		record = histogramRecord{ctx: ctx, instrument: o.taskExecutionLatency, value: latency.Microseconds(), attributes: taskExecutionLatencyStatusPanickedAttrSet}
	case StatusSuccessfulAttr:
		record = histogramRecord{ctx: ctx, instrument: o.taskExecutionLatency, value: latency.Microseconds(), attributes: taskExecutionLatencyStatusSuccessfulAttrSet}
	default:
		updateUnrecognizedAttribute(string(status))
		return
	}
	o.record(record)
}

func (o *otelMetrics) TaskQueueLatency(ctx context.Context, latency time.Duration) {
	o.record(histogramRecord{ctx: ctx, instrument: o.taskQueueLatency, value: latency.Microseconds()})
}

func (o *otelMetrics) TaskRejectCount(inc int64, reason Reason) {
	if inc < 0 {
		logger.Errorf("Counter metric pool/task_reject_count received a negative increment: %d", inc)
		return
	}
	switch reason {
	case ReasonClosedAttr:
		o.taskRejectCountReasonClosedAtomic.Add(inc)
	case ReasonNilTaskAttr:
		o.taskRejectCountReasonNilTaskAtomic.Add(inc)
	case ReasonNoWorkersAttr:
		o.taskRejectCountReasonNoWorkersAtomic.Add(inc)
	case ReasonQueueFullAttr:
		o.taskRejectCountReasonQueueFullAtomic.Add(inc)
	default:
		updateUnrecognizedAttribute(string(reason))
	}
}

func (o *otelMetrics) TaskSubmitCount(inc int64) {
	if inc < 0 {
		logger.Errorf("Counter metric pool/task_submit_count received a negative increment: %d", inc)
		return
	}
	o.taskSubmitCountAtomic.Add(inc)
}

func (o *otelMetrics) record(r histogramRecord) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return
	}
	select {
	case o.ch <- r: // Do nothing
	default: // Unblock writes to channel if it's full.
	}
}

// NewOTelMetrics registers the pool instruments on the global meter provider.
// Histogram samples are handed to workers goroutines through a channel of
// size bufferSize; Close stops them.
func NewOTelMetrics(ctx context.Context, workers int, bufferSize int) (*otelMetrics, error) {
	ch := make(chan histogramRecord, bufferSize)
	var wg sync.WaitGroup
	startSampledLogging(ctx)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for record := range ch {
				if record.attributes != nil {
					record.instrument.Record(record.ctx, record.value, record.attributes)
				} else {
					record.instrument.Record(record.ctx, record.value)
				}
			}
		}()
	}
	meter := otel.Meter(meterName)

	var busyWorkerCountAtomic,
		liveWorkerCountAtomic,
		queueDepthAtomic atomic.Int64

	var taskCompleteCountStatusPanickedAtomic,
		taskCompleteCountStatusSuccessfulAtomic atomic.Int64

	var taskRejectCountReasonClosedAtomic,
		taskRejectCountReasonNilTaskAtomic,
		taskRejectCountReasonNoWorkersAtomic,
		taskRejectCountReasonQueueFullAtomic atomic.Int64

	var taskSubmitCountAtomic atomic.Int64

	_, err0 := meter.Int64ObservableUpDownCounter("pool/busy_workers",
		metric.WithDescription("The number of workers currently executing a task."),
		metric.WithUnit(""),
		metric.WithInt64Callback(func(_ context.Context, obsrv metric.Int64Observer) error {
			observeUpDownCounter(obsrv, &busyWorkerCountAtomic)
			return nil
		}))

	_, err1 := meter.Int64ObservableUpDownCounter("pool/live_workers",
		metric.WithDescription("The number of workers that have not exited."),
		metric.WithUnit(""),
		metric.WithInt64Callback(func(_ context.Context, obsrv metric.Int64Observer) error {
			observeUpDownCounter(obsrv, &liveWorkerCountAtomic)
			return nil
		}))

	_, err2 := meter.Int64ObservableUpDownCounter("pool/queue_depth",
		metric.WithDescription("The number of tasks waiting for a worker."),
		metric.WithUnit(""),
		metric.WithInt64Callback(func(_ context.Context, obsrv metric.Int64Observer) error {
			observeUpDownCounter(obsrv, &queueDepthAtomic)
			return nil
		}))

	_, err3 := meter.Int64ObservableCounter("pool/task_complete_count",
		metric.WithDescription("The cumulative number of executed tasks along with how the execution ended: successful or panicked."),
		metric.WithUnit(""),
		metric.WithInt64Callback(func(_ context.Context, obsrv metric.Int64Observer) error {
			conditionallyObserve(obsrv, &taskCompleteCountStatusPanickedAtomic, taskCompleteCountStatusPanickedAttrSet)
			conditionallyObserve(obsrv, &taskCompleteCountStatusSuccessfulAtomic, taskCompleteCountStatusSuccessfulAttrSet)
			return nil
		}))

	taskExecutionLatency, err4 := meter.Int64Histogram("pool/task_execution_latency",
		metric.WithDescription("The cumulative distribution of task execution latencies along with how the execution ended."),
		metric.WithUnit("us"),
		metric.WithExplicitBucketBoundaries(latencyBucketsUs...))

	taskQueueLatency, err5 := meter.Int64Histogram("pool/task_queue_latency",
		metric.WithDescription("The cumulative distribution of the time tasks spent queued before a worker picked them up."),
		metric.WithUnit("us"),
		metric.WithExplicitBucketBoundaries(latencyBucketsUs...))

	_, err6 := meter.Int64ObservableCounter("pool/task_reject_count",
		metric.WithDescription("The cumulative number of submissions refused by the pool along with the reason: closed, nil_task, no_workers or queue_full."),
		metric.WithUnit(""),
		metric.WithInt64Callback(func(_ context.Context, obsrv metric.Int64Observer) error {
			conditionallyObserve(obsrv, &taskRejectCountReasonClosedAtomic, taskRejectCountReasonClosedAttrSet)
			conditionallyObserve(obsrv, &taskRejectCountReasonNilTaskAtomic, taskRejectCountReasonNilTaskAttrSet)
			conditionallyObserve(obsrv, &taskRejectCountReasonNoWorkersAtomic, taskRejectCountReasonNoWorkersAttrSet)
			conditionallyObserve(obsrv, &taskRejectCountReasonQueueFullAtomic, taskRejectCountReasonQueueFullAttrSet)
			return nil
		}))

	_, err7 := meter.Int64ObservableCounter("pool/task_submit_count",
		metric.WithDescription("The cumulative number of tasks accepted by the pool."),
		metric.WithUnit(""),
		metric.WithInt64Callback(func(_ context.Context, obsrv metric.Int64Observer) error {
			conditionallyObserve(obsrv, &taskSubmitCountAtomic)
			return nil
		}))

	errs := []error{err0, err1, err2, err3, err4, err5, err6, err7}
	if err := errors.Join(errs...); err != nil {
		close(ch)
		wg.Wait()
		return nil, err
	}

	return &otelMetrics{
		ch:                                      ch,
		wg:                                      &wg,
		busyWorkerCountAtomic:                   &busyWorkerCountAtomic,
		liveWorkerCountAtomic:                   &liveWorkerCountAtomic,
		queueDepthAtomic:                        &queueDepthAtomic,
		taskCompleteCountStatusPanickedAtomic:   &taskCompleteCountStatusPanickedAtomic,
		taskCompleteCountStatusSuccessfulAtomic: &taskCompleteCountStatusSuccessfulAtomic,
		taskRejectCountReasonClosedAtomic:       &taskRejectCountReasonClosedAtomic,
		taskRejectCountReasonNilTaskAtomic:      &taskRejectCountReasonNilTaskAtomic,
		taskRejectCountReasonNoWorkersAtomic:    &taskRejectCountReasonNoWorkersAtomic,
		taskRejectCountReasonQueueFullAtomic:    &taskRejectCountReasonQueueFullAtomic,
		taskSubmitCountAtomic:                   &taskSubmitCountAtomic,
		taskExecutionLatency:                    taskExecutionLatency,
		taskQueueLatency:                        taskQueueLatency,
	}, nil
}

// Close flushes the pending histogram samples. Samples recorded afterwards are
// dropped.
func (o *otelMetrics) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.ch)
	o.mu.Unlock()
	o.wg.Wait()
}

func conditionallyObserve(obsrv metric.Int64Observer, counter *atomic.Int64, obsrvOptions ...metric.ObserveOption) {
	if val := counter.Load(); val > 0 {
		obsrv.Observe(val, obsrvOptions...)
	}
}

func observeUpDownCounter(obsrv metric.Int64Observer, counter *atomic.Int64, obsrvOptions ...metric.ObserveOption) {
	obsrv.Observe(counter.Load(), obsrvOptions...)
}

func updateUnrecognizedAttribute(newValue string) {
	unrecognizedAttr.CompareAndSwap("", newValue)
}

// startSampledLogging starts a goroutine that logs unrecognized attributes periodically.
func startSampledLogging(ctx context.Context) {
	unrecognizedAttr.Store("")

	go func() {
		ticker := time.NewTicker(logInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logUnrecognizedAttribute()
			}
		}
	}()
}

// logUnrecognizedAttribute retrieves and logs any unrecognized attributes.
func logUnrecognizedAttribute() {
	// Atomically load and reset the attribute name, then generate a log
	// if an unrecognized attribute was encountered.
	if currentAttr := unrecognizedAttr.Swap("").(string); currentAttr != "" {
		logger.Tracef("Attribute %s is not declared", currentAttr)
	}
}
