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

package common

const minQueueCapacity = 16

// Queue is a generic FIFO queue backed by a growable ring buffer.
// It is not safe for concurrent use; callers hold their own lock.
type Queue[T any] struct {
	buf  []T
	head int
	size int
}

// NewQueue creates a new empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{buf: make([]T, minQueueCapacity)}
}

// IsEmpty returns true if the queue is empty.
func (q *Queue[T]) IsEmpty() bool {
	return q.size == 0
}

// Peek returns the front of the queue without removing it, or the zero value
// of T if the queue is empty.
func (q *Queue[T]) Peek() T {
	if q.size == 0 {
		var zero T
		return zero
	}
	return q.buf[q.head]
}

// Push puts an item on the end of the queue.
func (q *Queue[T]) Push(value T) {
	if q.size == len(q.buf) {
		q.resize(2 * len(q.buf))
	}
	q.buf[(q.head+q.size)%len(q.buf)] = value
	q.size++
}

// Pop removes and returns the front item from the queue, or the zero value of
// T if the queue is empty.
func (q *Queue[T]) Pop() T {
	var zero T
	if q.size == 0 {
		return zero
	}

	v := q.buf[q.head]
	// Release the reference so that popped closures can be collected.
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.size--

	if len(q.buf) > minQueueCapacity && q.size <= len(q.buf)/4 {
		q.resize(len(q.buf) / 2)
	}
	return v
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	return q.size
}

func (q *Queue[T]) resize(n int) {
	buf := make([]T, n)
	for i := 0; i < q.size; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
}
