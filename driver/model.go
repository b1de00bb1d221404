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

package driver

import (
	stdctx "context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nabbar/httprace/barrier"
	libconn "github.com/nabbar/httprace/conn"
	libctx "github.com/nabbar/httprace/context"
	errpool "github.com/nabbar/httprace/errors/pool"
	liblog "github.com/nabbar/httprace/logger"
	"github.com/nabbar/httprace/worker"
)

// Process spawns opts.WorkerCount workers over an independent deep copy of
// queue each, then drives them through waves of the barrier protocol until
// every worker has drained its queue, failed fatally, or been pruned for
// tardiness. It returns one Result per spawned worker, in spawn order,
// regardless of whether that worker ever completed.
func (d *Driver) Process(ctx stdctx.Context, queue []worker.WorkItem, opts Options) ([]Result, error) {
	opts = opts.withDefaults()

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	for _, item := range queue {
		if err := item.Validate(); err != nil {
			return nil, ErrorInvalidWorkQueue.Error(err)
		}
	}

	if ctx == nil {
		ctx = stdctx.Background()
	}

	factory := libconn.NewFactory(d.resolver, d.log)

	workers := make([]*worker.Worker, opts.WorkerCount)
	results := make([]Result, opts.WorkerCount)
	sendGate := barrier.NewGate()
	readGate := barrier.NewGate()
	warnings := errpool.New()
	d.warnings = warnings

	for i := 0; i < opts.WorkerCount; i++ {
		cohort := worker.Cohort{
			Index:    i,
			Shared:   libctx.New(ctx),
			Sync:     barrier.NewSignal(),
			SendGate: sendGate,
			ReadGate: readGate,
			Warnings: warnings,
			Options: worker.Options{
				ConnectMode:     opts.ConnectMode,
				DoEval:          opts.DoEval,
				FakeSend:        opts.FakeSend,
				SaveSentCookies: opts.SaveSentCookies,
				SendTimeout:     opts.Timeout.Time(),
			},
		}

		w, err := worker.New(i, queue, factory, cohort, opts.TLSConfig, d.log)
		if err != nil {
			return nil, err
		}

		workers[i] = w
		results[i].Worker = w
	}

	var grp errgroup.Group
	for i, w := range workers {
		i, w := i, w
		grp.Go(func() error {
			results[i].Err = w.Run(ctx)
			return nil
		})
	}

	d.runWaves(workers, sendGate, readGate, opts.Timeout.Time(), opts.SendDelay.Time())

	// joinOne only reports whether the worker had already finished by
	// joinTimeout; Process still blocks on grp.Wait() below regardless, since
	// results reference live *worker.Worker values a caller may read from
	// concurrently with a still-running goroutine otherwise.
	joinTimeout := opts.Timeout.Time()
	for _, w := range workers {
		if !joinOne(w, joinTimeout) {
			d.log.Entry(liblog.WarnLevel, "worker had not joined within the join timeout, still waiting for it to finish").
				FieldAdd("worker_index", w.WorkerIndex()).
				Log()
		}
	}

	_ = grp.Wait()

	return results, nil
}

// runWaves is the wave loop of the package doc comment. It returns once no
// worker remains alive, after lowering both gates a last time.
func (d *Driver) runWaves(workers []*worker.Worker, sendGate, readGate barrier.Gate, timeout, sendDelay time.Duration) {
	active := append([]*worker.Worker(nil), workers...)

	for len(active) > 0 {
		sendGate.Lower()
		readGate.Lower()

		ready, pending := classify(active, timeout)
		participants := append(ready, pending...)

		if sendDelay > 0 {
			time.Sleep(sendDelay)
		}

		sendGate.Raise()
		readGate.Lower()

		ready, pending = classify(participants, timeout)
		participants = append(ready, pending...)

		sendGate.Lower()
		readGate.Raise()

		ready, pending = classify(participants, timeout)
		active = append(ready, pending...)
	}

	sendGate.Lower()
	readGate.Lower()
}

func joinOne(w *worker.Worker, timeout time.Duration) bool {
	if timeout <= 0 {
		<-w.Done()
		return true
	}

	select {
	case <-w.Done():
		return true
	case <-time.After(timeout):
		return false
	}
}

// classify waits for every worker in pending to raise its sync signal, die,
// or run out of time, narrowing the per-iteration timeout to
// remaining/pending_count so tardy workers are retried in shrinking windows
// rather than serially. A non-positive timeout waits indefinitely.
func classify(pending []*worker.Worker, timeout time.Duration) (ready, stillPending []*worker.Worker) {
	unbounded := timeout <= 0
	deadline := time.Now().Add(timeout)

	remaining := append([]*worker.Worker(nil), pending...)

	for len(remaining) > 0 {
		var iterTimeout time.Duration

		if !unbounded {
			left := time.Until(deadline)
			if left <= 0 {
				break
			}
			iterTimeout = left / time.Duration(len(remaining))
		}

		arrived, alive := waitOnce(remaining, iterTimeout, unbounded)
		ready = append(ready, arrived...)
		remaining = alive
	}

	return ready, remaining
}

type waveResult struct {
	w      *worker.Worker
	raised bool
	alive  bool
}

// waitOnce waits, concurrently across ws, for each worker to either raise
// its sync signal, close its Done channel, or exhaust timeout.
func waitOnce(ws []*worker.Worker, timeout time.Duration, unbounded bool) (raised, stillAlive []*worker.Worker) {
	var (
		iterCtx stdctx.Context
		cancel  stdctx.CancelFunc
	)

	if unbounded {
		iterCtx, cancel = stdctx.WithCancel(stdctx.Background())
	} else {
		iterCtx, cancel = stdctx.WithTimeout(stdctx.Background(), timeout)
	}
	defer cancel()

	resCh := make(chan waveResult, len(ws))

	for _, w := range ws {
		w := w
		go func() {
			raisedCh := make(chan bool, 1)
			go func() { raisedCh <- w.Sync().Wait(iterCtx) }()

			select {
			case r := <-raisedCh:
				if r {
					resCh <- waveResult{w, true, true}
					return
				}
				select {
				case <-w.Done():
					resCh <- waveResult{w, false, false}
				default:
					resCh <- waveResult{w, false, true}
				}
			case <-w.Done():
				resCh <- waveResult{w, false, false}
			}
		}()
	}

	for i := 0; i < len(ws); i++ {
		r := <-resCh
		if r.raised {
			r.w.Sync().Lower()
			raised = append(raised, r.w)
		} else if r.alive {
			stillAlive = append(stillAlive, r.w)
		}
	}

	return raised, stillAlive
}
