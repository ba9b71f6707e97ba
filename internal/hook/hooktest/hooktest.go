// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

// Package hooktest provides deterministic test doubles for the hook package.
package hooktest

import (
	"context"
	"sync"
	"time"

	"github.com/Foxius/wither-pass/internal/hook"
)

// ManualTimers is a hook.Timers whose timers only fire when Tick is called.
type ManualTimers struct {
	mu      sync.Mutex
	timers  []*manualTimer
	created int
}

type manualTimer struct {
	interval  time.Duration
	tick      func()
	cancelled bool
}

// NewManualTimers creates an empty timer facility.
func NewManualTimers() *ManualTimers {
	return &ManualTimers{}
}

// Every implements hook.Timers.
func (m *ManualTimers) Every(interval time.Duration, tick func()) hook.CancelFunc {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &manualTimer{interval: interval, tick: tick}
	m.timers = append(m.timers, t)
	m.created++

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		t.cancelled = true
	}
}

// Tick fires every live timer once, in creation order. Timers cancelled by
// an earlier tick in the same round do not fire.
func (m *ManualTimers) Tick() {
	m.mu.Lock()
	timers := append([]*manualTimer(nil), m.timers...)
	m.mu.Unlock()

	for _, t := range timers {
		m.mu.Lock()
		live := !t.cancelled
		m.mu.Unlock()
		if live {
			t.tick()
		}
	}
}

// TickN calls Tick n times.
func (m *ManualTimers) TickN(n int) {
	for range n {
		m.Tick()
	}
}

// Active returns the number of timers not yet cancelled.
func (m *ManualTimers) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, t := range m.timers {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Created returns how many timers were ever installed.
func (m *ManualTimers) Created() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created
}

// Intervals returns the interval of every timer ever installed.
func (m *ManualTimers) Intervals() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]time.Duration, len(m.timers))
	for i, t := range m.timers {
		out[i] = t.interval
	}
	return out
}

// Registrar records every listener registered with it.
type Registrar struct {
	// Err, when set, is returned from Register instead of recording.
	Err error

	mu        sync.Mutex
	listeners []hook.Listener
}

// Register implements hook.Registrar.
func (r *Registrar) Register(_ context.Context, l hook.Listener) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.listeners = append(r.listeners, l)
	return nil
}

// Listeners returns the registered listeners in order.
func (r *Registrar) Listeners() []hook.Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]hook.Listener(nil), r.listeners...)
}

// CountingInstaller counts how often it is installed.
type CountingInstaller struct {
	mu    sync.Mutex
	calls int
	// Err is returned from Install when set.
	Err error
}

// Install implements hook.Installer.
func (c *CountingInstaller) Install(ctx context.Context, r hook.Registrar) error {
	c.mu.Lock()
	c.calls++
	err := c.Err
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return r.Register(ctx, c)
}

// Calls returns how many times Install ran.
func (c *CountingInstaller) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
