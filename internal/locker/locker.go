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

// Provides sync.Locker implementations with optional debug utils.
package locker

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fixedpool/fixedpool/internal/logger"
	"github.com/jacobsa/syncutil"
)

var (
	gEnableInvariantsCheck atomic.Bool
	gEnableDebugMessages   atomic.Bool

	// gHeldTooLong is how long a lock may be held before it is reported.
	gHeldTooLong = 5 * time.Second

	reportHeldTooLong = func(name, holder string) {
		logger.Tracef("debug_mutex: Potential dead lock detected for a lock %q held by: %v\n", name, holder)
	}
)

// EnableInvariantsCheck makes lockers created afterwards run their check
// function on every Lock and Unlock. A violated invariant panics.
func EnableInvariantsCheck() {
	gEnableInvariantsCheck.Store(true)
	syncutil.EnableInvariantChecking()
}

// EnableDebugMessages makes lockers created afterwards log the acquiring
// stack when the lock is held for too long.
func EnableDebugMessages() {
	gEnableDebugMessages.Store(true)
}

// New returns a locker with potential capability for debugging. check may be
// nil when the guarded state has no invariants.
func New(name string, check func()) sync.Locker {
	var l sync.Locker = &sync.Mutex{}

	if gEnableInvariantsCheck.Load() && check != nil {
		mu := syncutil.NewInvariantMutex(check)
		l = &mu
	}

	if gEnableDebugMessages.Load() {
		l = &debugger{
			locker: l,
			name:   name,
		}
	}

	return l
}

type debugger struct {
	locker sync.Locker
	name   string
	timer  *time.Timer
}

func (d *debugger) Lock() {
	d.locker.Lock()

	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false /* all */)
	holder := string(buf[:n])

	d.timer = time.AfterFunc(gHeldTooLong, func() {
		reportHeldTooLong(d.name, holder)
	})
}

func (d *debugger) Unlock() {
	d.timer.Stop()
	d.timer = nil

	d.locker.Unlock()
}
