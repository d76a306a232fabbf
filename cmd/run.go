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

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fixedpool/fixedpool/cfg"
	"github.com/fixedpool/fixedpool/common"
	"github.com/fixedpool/fixedpool/internal/locker"
	"github.com/fixedpool/fixedpool/internal/logger"
	"github.com/fixedpool/fixedpool/internal/monitor"
	"github.com/fixedpool/fixedpool/internal/util"
	"github.com/fixedpool/fixedpool/internal/workerpool"
	"github.com/fixedpool/fixedpool/metrics"
	"github.com/fixedpool/fixedpool/tracing"
)

const shutdownTimeout = 10 * time.Second

func panicPolicy(p cfg.PanicPolicy) workerpool.PanicPolicy {
	if p == cfg.PanicPolicyExitWorker {
		return workerpool.PanicExitWorker
	}
	return workerpool.PanicResume
}

func newMetricHandle(ctx context.Context, c *cfg.MetricsConfig) (metrics.MetricHandle, func()) {
	mh, err := metrics.NewOTelMetrics(ctx, int(c.Workers), int(c.BufferSize))
	if err != nil {
		logger.Errorf("Failed to create metric handle, continuing without metrics: %v", err)
		return metrics.NewNoopMetrics(), func() {}
	}
	return mh, mh.Close
}

func newTraceHandle(c *cfg.MonitoringConfig) tracing.TraceHandle {
	if c.TracingMode == cfg.TracingModeNone {
		return tracing.NewNoopTracer()
	}
	return tracing.NewOTelTracer()
}

// Run builds a pool from c, drives the synthetic load against it and shuts it
// down. SIGINT and SIGTERM stop the load early.
func Run(c *cfg.Config) error {
	if err := logger.InitLogFile(c.Logging); err != nil {
		return fmt.Errorf("init log file: %w", err)
	}
	defer logger.Close()

	if c.Debug.ExitOnInvariantViolation {
		locker.EnableInvariantsCheck()
	}
	if c.Debug.LogMutex {
		locker.EnableDebugMessages()
	}
	if s, err := util.Stringify(c); err == nil {
		logger.Infof("fixedpool %s starting with config: %s", common.GetVersion(), s)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownFn := common.JoinShutdownFunc(
		monitor.SetupOTelMetricExporters(ctx, c),
		monitor.SetupTracing(ctx, c),
	)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if serr := shutdownFn(sctx); serr != nil {
			logger.Errorf("Error while shutting down exporters: %v", serr)
		}
	}()

	metricHandle, closeMetrics := newMetricHandle(ctx, &c.Metrics)
	defer closeMetrics()

	pool, err := workerpool.New(int(c.Pool.Workers),
		workerpool.WithName(c.Pool.Name),
		workerpool.WithMetricHandle(metricHandle),
		workerpool.WithTraceHandle(newTraceHandle(&c.Monitoring)),
		workerpool.WithPanicPolicy(panicPolicy(c.Pool.PanicPolicy)),
		workerpool.WithMaxQueueDepth(int(c.Pool.MaxQueueDepth)),
	)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}

	start := time.Now()
	res, loadErr := runLoad(ctx, pool, &c.Load)
	if ctx.Err() != nil {
		logger.Infof("Received signal, closing pool %s.", pool.Name())
	}
	logger.Infof("Load finished after %v: %d tasks accepted, %d rejected as queue full", time.Since(start), res.accepted.Load(), res.rejected.Load())

	if c.Load.WaitForDrain {
		drainPool(pool, c.Load.DrainTimeout)
	} else {
		pool.Close()
	}

	stats := pool.Stats()
	logger.Infof("Pool %s finished in %v: submitted=%d completed=%d panicked=%d queued=%d live=%d",
		stats.Name, time.Since(start), stats.Submitted, stats.Completed, stats.Panicked, stats.Queued, stats.LiveWorkers)
	return loadErr
}

// drainPool closes pool and waits for its workers. A zero timeout waits
// without bound.
func drainPool(pool *workerpool.Pool, timeout time.Duration) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := pool.CloseAndWait(ctx); err != nil {
		logger.Warnf("Pool %s did not drain within %v: %v", pool.Name(), timeout, err)
	}
}
