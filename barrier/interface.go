/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package barrier implements the shared coordination primitives the
// connection and driver layers rendezvous on: a per-worker sync signal and
// the two process-wide gates (send, read). All three share the same
// one-shot, resettable latch shape; they differ only in who is allowed to
// raise and lower them.
package barrier

import (
	"context"
	"sync"
)

// Latch is a one-shot, resettable rendezvous point. Raise is idempotent;
// concurrent waiters all observe the same raise. Lower rearms it for the
// next wave.
type Latch interface {
	// Raise marks the latch as raised, releasing every current and future
	// waiter until Lower is called. Raising an already-raised latch is a no-op.
	Raise()
	// Lower rearms the latch. Lowering an already-lowered latch is a no-op.
	Lower()
	// Wait blocks until the latch is raised or ctx is done, whichever comes
	// first. It returns true if the latch was observed raised, false if ctx
	// ended the wait first. A nil ctx waits indefinitely.
	Wait(ctx context.Context) bool
	// IsRaised reports the current state without blocking.
	IsRaised() bool
}

// Signal is a per-worker latch: the owning worker raises it, the Driver
// lowers it after observing all live workers have arrived.
type Signal = Latch

// Gate is a process-wide latch: only the Driver raises and lowers it.
type Gate = Latch

// NewSignal returns a lowered Signal.
func NewSignal() Signal {
	return newLatch()
}

// NewGate returns a lowered Gate.
func NewGate() Gate {
	return newLatch()
}

func newLatch() Latch {
	return &latch{
		ch: make(chan struct{}),
	}
}

type latch struct {
	mu     sync.Mutex
	ch     chan struct{}
	raised bool
}

func (l *latch) Raise() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.raised {
		return
	}

	l.raised = true
	close(l.ch)
}

func (l *latch) Lower() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.raised {
		return
	}

	l.raised = false
	l.ch = make(chan struct{})
}

func (l *latch) IsRaised() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.raised
}

func (l *latch) Wait(ctx context.Context) bool {
	l.mu.Lock()
	ch := l.ch
	l.mu.Unlock()

	if ctx == nil {
		<-ch
		return true
	}

	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}
