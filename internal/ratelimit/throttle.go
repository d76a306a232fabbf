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

package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// A simple interface for limiting the rate of some event.
//
// Safe for concurrent access.
type Throttle interface {
	// Return the maximum number of tokens that can be requested in a call to
	// Wait.
	Capacity() (c uint64)

	// Acquire the given number of tokens, sleeping until they are available. If
	// the context is cancelled before then, return early with an error.
	//
	// REQUIRES: tokens <= capacity
	Wait(ctx context.Context, tokens uint64) (err error)
}

type limiter struct {
	*rate.Limiter
}

// NewThrottle returns a throttle admitting rateHz events per second with
// bursts of up to capacity events.
func NewThrottle(
	rateHz float64,
	capacity int) (t Throttle) {
	typed := &limiter{rate.NewLimiter(rate.Limit(rateHz), capacity)}
	t = typed
	return
}

// NewUnlimitedThrottle returns a throttle whose Wait never sleeps.
func NewUnlimitedThrottle() Throttle {
	return &limiter{rate.NewLimiter(rate.Inf, 1)}
}

func (l *limiter) Capacity() (c uint64) {
	return uint64(l.Burst())
}

func (l *limiter) Wait(
	ctx context.Context,
	tokens uint64) (err error) {
	return l.WaitN(ctx, int(tokens))
}

// ChooseLimiterCapacity picks a burst size that keeps the events admitted in
// any window of the given size within about 2% of rateHz * window. Rates too
// low to allow a burst get a capacity of one.
func ChooseLimiterCapacity(
	rateHz float64,
	window time.Duration) (capacity uint64, err error) {
	if rateHz <= 0 || math.IsInf(rateHz, 0) || rateHz >= math.MaxFloat64 {
		err = fmt.Errorf("Illegal rate: %f", rateHz)
		return
	}

	if window <= 0 {
		err = fmt.Errorf("Illegal window: %v", window)
		return
	}

	// With a burst C <= W*R/N the admitted events in a window of size W exceed
	// W*R by at most a factor of (N+1)/N.
	const N = 50

	w := float64(window) / float64(time.Second)
	capacityFloat := math.Floor(w * rateHz / N)
	if capacityFloat >= float64(math.MaxInt32) {
		err = fmt.Errorf(
			"Can't limit to %f Hz over a window of %v: burst too large",
			rateHz,
			window)
		return
	}

	capacity = uint64(max(capacityFloat, 1))
	return
}
