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
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/fixedpool/fixedpool/common"
	"github.com/fixedpool/fixedpool/internal/locker"
	"github.com/fixedpool/fixedpool/internal/logger"
	"github.com/fixedpool/fixedpool/metrics"
)

// DefaultWorkerCount is the number of workers started by NewDefault.
const DefaultWorkerCount = 8

type queuedTask struct {
	task     Task
	enqueued time.Time
}

// Pool runs submitted tasks on a fixed set of worker goroutines, in the order
// they were submitted.
//
// Dropping the last reference to a Pool closes it; workers exit once the
// queue drains.
type Pool struct {
	state *poolState
}

var _ WorkerPool = (*Pool)(nil)

// Stats is a consistent snapshot of a pool's counters. OldestQueued is how
// long the task at the front of the queue has waited, or zero when the queue
// is empty.
type Stats struct {
	Name           string
	Workers        int
	LiveWorkers    int
	IdleWorkers    int
	RunningWorkers int
	Queued         int
	OldestQueued   time.Duration
	Submitted      uint64
	Completed      uint64
	Panicked       uint64
	Closed         bool
}

type poolState struct {
	options

	workers int

	// Signalled once per accepted task and broadcast on close.
	wakeup *sync.Cond

	// Closed by the last worker to exit.
	allExited chan struct{}

	/////////////////////////
	// Mutable state
	/////////////////////////

	mu sync.Locker

	// Tasks waiting for a worker, oldest first.
	//
	// INVARIANT: maxQueueDepth == 0 || tasks.Len() <= maxQueueDepth
	//
	// GUARDED_BY(mu)
	tasks *common.Queue[queuedTask]

	// Set by Close and never cleared.
	//
	// INVARIANT: closedSeen implies closed
	//
	// GUARDED_BY(mu)
	closed bool

	// Records closed as last observed by checkInvariants, so that a reset of
	// the flag is caught on the next lock transition.
	//
	// GUARDED_BY(mu)
	closedSeen bool

	// INVARIANT: 0 <= idle && 0 <= running
	// INVARIANT: idle + running <= live <= workers
	//
	// GUARDED_BY(mu)
	live    int
	idle    int
	running int

	// INVARIANT: submitted == tasks.Len() + running + completed + panicked
	//
	// GUARDED_BY(mu)
	submitted uint64
	completed uint64
	panicked  uint64
}

// New starts a pool of threadCount workers. It returns ErrInvalidWorkerCount
// when threadCount is not positive.
func New(threadCount int, opts ...Option) (*Pool, error) {
	if threadCount <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkerCount, threadCount)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &poolState{
		options:   o,
		workers:   threadCount,
		allExited: make(chan struct{}),
		tasks:     common.NewQueue[queuedTask](),
		live:      threadCount,
	}
	s.mu = locker.New(s.name, s.checkInvariants)
	s.wakeup = sync.NewCond(s.mu)

	s.metricHandle.LiveWorkerCount(int64(threadCount))
	for i := range threadCount {
		go s.work(i)
	}
	logger.Infof("Pool %s: started %d workers (panic policy: %s, max queue depth: %d)", s.name, threadCount, s.panicPolicy, s.maxQueueDepth)

	p := &Pool{state: s}
	runtime.AddCleanup(p, func(s *poolState) { s.close() }, s)
	return p, nil
}

// NewDefault starts a pool of DefaultWorkerCount workers.
func NewDefault(opts ...Option) *Pool {
	return MustNew(DefaultWorkerCount, opts...)
}

// MustNew is like New but panics on error.
func MustNew(threadCount int, opts ...Option) *Pool {
	p, err := New(threadCount, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Pool) Submit(task Task) error {
	err := p.state.submit(task)
	runtime.KeepAlive(p)
	return err
}

// SubmitFunc submits fn as a task.
func (p *Pool) SubmitFunc(fn func()) error {
	var task Task
	if fn != nil {
		task = TaskFunc(fn)
	}
	err := p.state.submit(task)
	runtime.KeepAlive(p)
	return err
}

func (p *Pool) Close() {
	p.state.close()
	runtime.KeepAlive(p)
}

func (p *Pool) CloseAndWait(ctx context.Context) error {
	p.state.close()
	select {
	case <-p.state.allExited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) Stats() Stats {
	s := p.state
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldest time.Duration
	if !s.tasks.IsEmpty() {
		oldest = s.clock.Now().Sub(s.tasks.Peek().enqueued)
	}

	return Stats{
		Name:           s.name,
		Workers:        s.workers,
		LiveWorkers:    s.live,
		IdleWorkers:    s.idle,
		RunningWorkers: s.running,
		Queued:         s.tasks.Len(),
		OldestQueued:   oldest,
		Submitted:      s.submitted,
		Completed:      s.completed,
		Panicked:       s.panicked,
		Closed:         s.closed,
	}
}

func (p *Pool) Name() string {
	return p.state.name
}

// NumWorkers returns the number of workers the pool was started with.
func (p *Pool) NumWorkers() int {
	return p.state.workers
}

////////////////////////////////////////////////////////////////////////
// Helpers
////////////////////////////////////////////////////////////////////////

func isNilTask(task Task) bool {
	if task == nil {
		return true
	}
	fn, ok := task.(TaskFunc)
	return ok && fn == nil
}

func (s *poolState) reject(reason metrics.Reason, err error) error {
	s.metricHandle.TaskRejectCount(1, reason)
	logger.Tracef("Pool %s: rejected task: %v", s.name, err)
	return err
}

func (s *poolState) submit(task Task) error {
	if isNilTask(task) {
		return s.reject(metrics.ReasonNilTaskAttr, ErrNilTask)
	}

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return s.reject(metrics.ReasonClosedAttr, ErrPoolClosed)
	case s.live == 0:
		s.mu.Unlock()
		return s.reject(metrics.ReasonNoWorkersAttr, ErrNoWorkers)
	case s.maxQueueDepth > 0 && s.tasks.Len() >= s.maxQueueDepth:
		s.mu.Unlock()
		return s.reject(metrics.ReasonQueueFullAttr, ErrQueueFull)
	}

	s.tasks.Push(queuedTask{task: task, enqueued: s.clock.Now()})
	s.submitted++
	s.metricHandle.QueueDepth(1)
	s.mu.Unlock()

	s.wakeup.Signal()
	s.metricHandle.TaskSubmitCount(1)
	return nil
}

func (s *poolState) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	queued := s.tasks.Len()
	s.mu.Unlock()

	s.wakeup.Broadcast()
	logger.Debugf("Pool %s: closed with %d queued tasks", s.name, queued)
}

// LOCKS_REQUIRED(s.mu)
func (s *poolState) checkInvariants() {
	// INVARIANT: 0 <= idle && 0 <= running
	if s.idle < 0 || s.running < 0 {
		panic(fmt.Sprintf("negative worker counters: idle=%d running=%d", s.idle, s.running))
	}

	// INVARIANT: idle + running <= live <= workers
	if s.idle+s.running > s.live || s.live > s.workers || s.live < 0 {
		panic(fmt.Sprintf(
			"worker counters out of range: idle=%d running=%d live=%d workers=%d",
			s.idle, s.running, s.live, s.workers))
	}

	// INVARIANT: closedSeen implies closed
	if s.closedSeen && !s.closed {
		panic("closed flag was cleared after close")
	}
	s.closedSeen = s.closed

	// INVARIANT: maxQueueDepth == 0 || tasks.Len() <= maxQueueDepth
	if s.maxQueueDepth > 0 && s.tasks.Len() > s.maxQueueDepth {
		panic(fmt.Sprintf("queue depth %d exceeds limit %d", s.tasks.Len(), s.maxQueueDepth))
	}

	// INVARIANT: submitted == tasks.Len() + running + completed + panicked
	accounted := uint64(s.tasks.Len()) + uint64(s.running) + s.completed + s.panicked
	if s.submitted != accounted {
		panic(fmt.Sprintf(
			"task accounting mismatch: submitted=%d queued=%d running=%d completed=%d panicked=%d",
			s.submitted, s.tasks.Len(), s.running, s.completed, s.panicked))
	}
}
