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

import "context"

// Task interface defines the contract for a runnable task.
type Task interface {
	Execute()
}

// TaskFunc adapts an ordinary function to a Task.
type TaskFunc func()

func (f TaskFunc) Execute() {
	f()
}

type WorkerPool interface {
	// Submit queues a task for execution on one of the workers. It is safe to
	// call from any goroutine, including from a task running on the pool.
	Submit(task Task) error

	// Close stops the pool from accepting tasks. Tasks already queued still
	// run; Close does not wait for them.
	Close()

	// CloseAndWait closes the pool and waits until every worker has exited or
	// ctx is done.
	CloseAndWait(ctx context.Context) error
}
