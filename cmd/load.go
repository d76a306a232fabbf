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
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fixedpool/fixedpool/cfg"
	"github.com/fixedpool/fixedpool/internal/logger"
	"github.com/fixedpool/fixedpool/internal/ratelimit"
	"github.com/fixedpool/fixedpool/internal/workerpool"
	"golang.org/x/sync/errgroup"
)

// Window over which the submit rate is enforced.
const submitRateWindow = time.Second

// syntheticTask sleeps for a fixed duration, or panics when asked to.
type syntheticTask struct {
	seq      int64
	duration time.Duration
	panics   bool
}

func (t *syntheticTask) Execute() {
	if t.duration > 0 {
		time.Sleep(t.duration)
	}
	if t.panics {
		panic(fmt.Sprintf("synthetic panic in task %d", t.seq))
	}
}

type loadResult struct {
	accepted atomic.Int64
	rejected atomic.Int64
}

func newSubmitThrottle(submitRate float64) (ratelimit.Throttle, error) {
	if submitRate <= 0 {
		return ratelimit.NewUnlimitedThrottle(), nil
	}
	capacity, err := ratelimit.ChooseLimiterCapacity(submitRate, submitRateWindow)
	if err != nil {
		return nil, fmt.Errorf("choose submit burst: %w", err)
	}
	return ratelimit.NewThrottle(submitRate, int(capacity)), nil
}

// runLoad submits c.Tasks synthetic tasks to pool from c.Producers goroutines.
// It stops early without error when ctx is cancelled or the pool is closed.
func runLoad(ctx context.Context, pool workerpool.WorkerPool, c *cfg.LoadConfig) (*loadResult, error) {
	res := &loadResult{}
	throttle, err := newSubmitThrottle(c.SubmitRate)
	if err != nil {
		return res, err
	}
	// Sequence number of the last task claimed by a producer.
	var seq atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for range c.Producers {
		g.Go(func() error {
			return produce(gctx, pool, c, throttle, &seq, res)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		err = nil
	}
	return res, err
}

func produce(ctx context.Context, pool workerpool.WorkerPool, c *cfg.LoadConfig, throttle ratelimit.Throttle, seq *atomic.Int64, res *loadResult) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := seq.Add(1)
		if c.Tasks > 0 && n > c.Tasks {
			return nil
		}
		if err := throttle.Wait(ctx, 1); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("wait for submit slot: %w", err)
		}

		task := &syntheticTask{
			seq:      n,
			duration: c.TaskDuration,
			panics:   c.PanicEvery > 0 && n%c.PanicEvery == 0,
		}
		err := pool.Submit(task)
		switch {
		case err == nil:
			res.accepted.Add(1)
		case errors.Is(err, workerpool.ErrQueueFull):
			res.rejected.Add(1)
		case errors.Is(err, workerpool.ErrPoolClosed):
			logger.Debugf("Producer stopped: %v", err)
			return nil
		default:
			return fmt.Errorf("submit task %d: %w", n, err)
		}
	}
}
