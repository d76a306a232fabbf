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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupOTel(ctx context.Context, t *testing.T) (*otelMetrics, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)

	m, err := NewOTelMetrics(ctx, 2, 100)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, reader
}

// gatherNonZeroCounterMetrics collects all non-zero Sum[int64] metrics from
// the reader keyed by metric name and encoded attributes.
func gatherNonZeroCounterMetrics(ctx context.Context, t *testing.T, rd *metric.ManualReader) map[string]map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, rd.Collect(ctx, &rm))

	results := make(map[string]map[string]int64)
	encoder := attribute.DefaultEncoder()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			metricMap := make(map[string]int64)
			for _, dp := range sum.DataPoints {
				if dp.Value == 0 {
					continue
				}
				metricMap[dp.Attributes.Encoded(encoder)] = dp.Value
			}
			if len(metricMap) > 0 {
				results[m.Name] = metricMap
			}
		}
	}
	return results
}

func TestTaskRejectCount(t *testing.T) {
	tests := []struct {
		name     string
		f        func(m *otelMetrics)
		expected map[attribute.Set]int64
	}{
		{
			name: "reason_closed",
			f: func(m *otelMetrics) {
				m.TaskRejectCount(5, ReasonClosedAttr)
			},
			expected: map[attribute.Set]int64{
				attribute.NewSet(attribute.String("reason", string(ReasonClosedAttr))): 5,
			},
		},
		{
			name: "multiple_attributes_summed",
			f: func(m *otelMetrics) {
				m.TaskRejectCount(1, ReasonQueueFullAttr)
				m.TaskRejectCount(2, ReasonNilTaskAttr)
				m.TaskRejectCount(3, ReasonQueueFullAttr)
				m.TaskRejectCount(1, ReasonNoWorkersAttr)
			},
			expected: map[attribute.Set]int64{
				attribute.NewSet(attribute.String("reason", string(ReasonQueueFullAttr))): 4,
				attribute.NewSet(attribute.String("reason", string(ReasonNilTaskAttr))):   2,
				attribute.NewSet(attribute.String("reason", string(ReasonNoWorkersAttr))): 1,
			},
		},
		{
			name: "negative_increment",
			f: func(m *otelMetrics) {
				m.TaskRejectCount(-5, ReasonClosedAttr)
				m.TaskRejectCount(2, ReasonClosedAttr)
			},
			expected: map[attribute.Set]int64{
				attribute.NewSet(attribute.String("reason", string(ReasonClosedAttr))): 2,
			},
		},
		{
			name: "unrecognized_reason",
			f: func(m *otelMetrics) {
				m.TaskRejectCount(2, Reason("bogus"))
			},
			expected: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			encoder := attribute.DefaultEncoder()
			m, rd := setupOTel(ctx, t)

			tc.f(m)

			metrics := gatherNonZeroCounterMetrics(ctx, t, rd)
			metric, ok := metrics["pool/task_reject_count"]
			if len(tc.expected) == 0 {
				assert.False(t, ok, "pool/task_reject_count metric should not be found")
				return
			}
			require.True(t, ok, "pool/task_reject_count metric not found")
			expectedMap := make(map[string]int64)
			for k, v := range tc.expected {
				expectedMap[k.Encoded(encoder)] = v
			}
			assert.Equal(t, expectedMap, metric)
		})
	}
}

func TestTaskCompleteAndSubmitCount(t *testing.T) {
	ctx := context.Background()
	m, rd := setupOTel(ctx, t)

	m.TaskSubmitCount(3)
	m.TaskSubmitCount(-1)
	m.TaskCompleteCount(2, StatusSuccessfulAttr)
	m.TaskCompleteCount(1, StatusPanickedAttr)

	VerifyCounterMetric(t, ctx, rd, "pool/task_submit_count", *attribute.EmptySet(), 3)
	VerifyCounterMetric(t, ctx, rd, "pool/task_complete_count", attribute.NewSet(attribute.String("status", "successful")), 2)
	VerifyCounterMetric(t, ctx, rd, "pool/task_complete_count", attribute.NewSet(attribute.String("status", "panicked")), 1)
}

func TestUpDownCounters(t *testing.T) {
	ctx := context.Background()
	m, rd := setupOTel(ctx, t)

	m.LiveWorkerCount(4)
	m.LiveWorkerCount(-1)
	m.BusyWorkerCount(2)
	m.QueueDepth(5)
	m.QueueDepth(-5)

	VerifyCounterMetric(t, ctx, rd, "pool/live_workers", *attribute.EmptySet(), 3)
	VerifyCounterMetric(t, ctx, rd, "pool/busy_workers", *attribute.EmptySet(), 2)
	VerifyCounterMetric(t, ctx, rd, "pool/queue_depth", *attribute.EmptySet(), 0)
}

func TestTaskLatencies(t *testing.T) {
	ctx := context.Background()
	m, rd := setupOTel(ctx, t)

	m.TaskExecutionLatency(ctx, 100*time.Microsecond, StatusSuccessfulAttr)
	m.TaskExecutionLatency(ctx, 2*time.Millisecond, StatusSuccessfulAttr)
	m.TaskExecutionLatency(ctx, time.Millisecond, StatusPanickedAttr)
	m.TaskExecutionLatency(ctx, time.Millisecond, Status("bogus"))
	m.TaskQueueLatency(ctx, 50*time.Microsecond)
	// Close drains the histogram channel.
	m.Close()

	VerifyHistogramMetric(t, ctx, rd, "pool/task_execution_latency", attribute.NewSet(attribute.String("status", "successful")), 2)
	VerifyHistogramMetric(t, ctx, rd, "pool/task_execution_latency", attribute.NewSet(attribute.String("status", "panicked")), 1)
	VerifyHistogramMetric(t, ctx, rd, "pool/task_queue_latency", *attribute.EmptySet(), 1)
}

func TestRecordAfterCloseIsDropped(t *testing.T) {
	ctx := context.Background()
	m, _ := setupOTel(ctx, t)
	m.Close()

	assert.NotPanics(t, func() {
		m.TaskQueueLatency(ctx, time.Millisecond)
		m.Close()
	})
}

func TestUnrecognizedAttributeIsSampled(t *testing.T) {
	ctx := context.Background()
	m, _ := setupOTel(ctx, t)

	m.TaskCompleteCount(1, Status("bogus"))
	m.TaskCompleteCount(1, Status("other"))

	assert.Equal(t, "bogus", unrecognizedAttr.Load())
	logUnrecognizedAttribute()
	assert.Equal(t, "", unrecognizedAttr.Load())
}

func TestNoopMetrics(t *testing.T) {
	m := NewNoopMetrics()

	assert.NotPanics(t, func() {
		m.TaskSubmitCount(1)
		m.TaskRejectCount(1, ReasonClosedAttr)
		m.TaskCompleteCount(1, StatusSuccessfulAttr)
		m.TaskExecutionLatency(context.Background(), time.Second, StatusSuccessfulAttr)
		m.TaskQueueLatency(context.Background(), time.Second)
		m.QueueDepth(1)
		m.LiveWorkerCount(1)
		m.BusyWorkerCount(1)
	})
}
