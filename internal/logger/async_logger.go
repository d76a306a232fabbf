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

package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// AsyncLogger is an io.WriteCloser that hands each write to a single
// background goroutine through a bounded buffer. When the buffer is full the
// message is dropped instead of blocking the caller.
type AsyncLogger struct {
	w       io.WriteCloser
	ch      chan []byte
	done    chan struct{}
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewAsyncLogger starts the writer goroutine for w with room for bufferSize
// pending messages.
func NewAsyncLogger(w io.WriteCloser, bufferSize int) *AsyncLogger {
	a := &AsyncLogger{
		w:    w,
		ch:   make(chan []byte, bufferSize),
		done: make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncLogger) run() {
	defer close(a.done)
	for msg := range a.ch {
		if _, err := a.w.Write(msg); err != nil {
			fmt.Fprintf(os.Stderr, "asynclogger: write failed: %v\n", err)
		}
	}
}

// Write copies p and queues it. It never blocks on the underlying writer.
func (a *AsyncLogger) Write(p []byte) (int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return 0, os.ErrClosed
	}

	msg := make([]byte, len(p))
	copy(msg, p)
	select {
	case a.ch <- msg:
	default:
		a.dropped.Add(1)
		fmt.Fprintln(os.Stderr, "asynclogger: log buffer is full, dropping message.")
	}
	return len(p), nil
}

// Dropped returns the number of messages discarded because the buffer was full.
func (a *AsyncLogger) Dropped() uint64 {
	return a.dropped.Load()
}

// Close flushes the queued messages and closes the underlying writer.
func (a *AsyncLogger) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	<-a.done
	return a.w.Close()
}
