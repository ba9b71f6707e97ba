// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

package hook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
)

// CancelFunc stops a periodic timer. It is safe to call more than once and
// from inside the timer's own tick.
type CancelFunc func()

// Timers is the host's periodic timer facility.
type Timers interface {
	// Every runs tick repeatedly, first after one interval. Ticks never
	// overlap with other ticks from the same facility.
	Every(interval time.Duration, tick func()) CancelFunc
}

// loopTimer is the cancellation token shared by a Loop's bookkeeping and
// the goroutine waiting on the timer's cadence.
type loopTimer struct {
	stopped atomic.Bool
	stop    chan struct{}
	once    sync.Once
}

func (t *loopTimer) cancel() {
	t.once.Do(func() {
		t.stopped.Store(true)
		close(t.stop)
	})
}

// Loop is a Timers implementation that executes every tick on a single
// scheduling goroutine, one at a time. Per-timer goroutines only wait out
// the cadence and hand their tick to the loop.
//
// Loop is safe for concurrent use. Close must not be called from a tick.
type Loop struct {
	tasks    chan func()
	done     chan struct{}
	loopDone chan struct{}

	jitterPercent uint64

	mu     sync.Mutex
	timers map[uint64]*loopTimer
	nextID uint64
	closed bool

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithJitterPercent spreads each timer's interval by up to p percent so that
// many hooks deferred together do not recheck in lockstep.
func WithJitterPercent(p uint64) LoopOption {
	return func(l *Loop) {
		l.jitterPercent = p
	}
}

// NewLoop starts a scheduling loop.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		tasks:    make(chan func()),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
		timers:   make(map[uint64]*loopTimer),
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.loopDone)
	for {
		select {
		case <-l.done:
			return
		case task := <-l.tasks:
			task()
		}
	}
}

// Every implements Timers. After Close it returns a no-op CancelFunc and
// never ticks.
func (l *Loop) Every(interval time.Duration, tick func()) CancelFunc {
	t := &loopTimer{stop: make(chan struct{})}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return func() {}
	}
	id := l.nextID
	l.nextID++
	l.timers[id] = t
	l.wg.Add(1)
	l.mu.Unlock()

	backoff := retry.NewConstant(interval)
	if l.jitterPercent > 0 {
		backoff = retry.WithJitterPercent(l.jitterPercent, backoff)
	}
	go l.wait(t, backoff, tick)

	return func() {
		t.cancel()
		l.mu.Lock()
		delete(l.timers, id)
		l.mu.Unlock()
	}
}

func (l *Loop) wait(t *loopTimer, backoff retry.Backoff, tick func()) {
	defer l.wg.Done()

	for {
		d, stop := backoff.Next()
		if stop {
			return
		}

		timer := time.NewTimer(d)
		select {
		case <-t.stop:
			timer.Stop()
			return
		case <-l.done:
			timer.Stop()
			return
		case <-timer.C:
		}

		task := func() {
			// A cancel may land between hand-off and execution.
			if !t.stopped.Load() {
				tick()
			}
		}
		select {
		case l.tasks <- task:
		case <-t.stop:
			return
		case <-l.done:
			return
		}
	}
}

// Active returns the number of timers that have not been cancelled.
func (l *Loop) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

// Close cancels every outstanding timer and waits for the loop and all
// timer goroutines to exit.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		for id, t := range l.timers {
			t.cancel()
			delete(l.timers, id)
		}
		l.mu.Unlock()
		close(l.done)
	})
	l.wg.Wait()
	<-l.loopDone
}
