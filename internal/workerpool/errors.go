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
	"errors"
	"fmt"
)

var (
	// ErrInvalidWorkerCount is returned when a pool is created with zero or a
	// negative number of workers.
	ErrInvalidWorkerCount = errors.New("workerpool: worker count must be positive")

	// ErrPoolClosed is returned by Submit once Close has been called.
	ErrPoolClosed = errors.New("workerpool: pool is closed")

	// ErrNilTask is returned by Submit for a nil task.
	ErrNilTask = errors.New("workerpool: nil task")

	// ErrQueueFull is returned by Submit when a maximum queue depth is
	// configured and reached.
	ErrQueueFull = errors.New("workerpool: task queue is full")

	// ErrNoWorkers is returned by Submit when every worker has exited after a
	// task panic while the pool is still open.
	ErrNoWorkers = errors.New("workerpool: no live workers")
)

// TaskPanicError describes a panic raised by a task.
type TaskPanicError struct {
	Pool     string
	WorkerID int
	Value    any
	Stack    []byte
}

func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("workerpool: task panicked on pool %s worker %d: %v", e.Pool, e.WorkerID, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *TaskPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
