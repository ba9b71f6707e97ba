// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

package hook

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

func newRecordID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// AttemptInfo is a point-in-time view of a hook's retry state.
type AttemptInfo struct {
	ID       string
	Attempts int
	// Active is false once the timer was cancelled, whether by activation,
	// exhaustion or shutdown.
	Active bool
}

// attemptRecord tracks the periodic recheck of one deferred hook.
type attemptRecord struct {
	id       ulid.ULID
	attempts int
	cancel   CancelFunc
	stopped  bool
}

// increment records one more tick and returns the new count.
func (r *attemptRecord) increment() int {
	r.attempts++
	return r.attempts
}

// stop cancels the timer. It reports whether this call did the cancelling.
func (r *attemptRecord) stop() bool {
	if r.stopped {
		return false
	}
	r.stopped = true
	if r.cancel != nil {
		r.cancel()
	}
	return true
}

func (r *attemptRecord) info() AttemptInfo {
	return AttemptInfo{
		ID:       r.id.String(),
		Attempts: r.attempts,
		Active:   !r.stopped,
	}
}

// attemptTracker owns at most one attemptRecord per normalized name.
// Records are never removed: an exhausted record keeps a new timer from
// being installed for the same name. Callers serialize access.
type attemptTracker struct {
	records map[string]*attemptRecord
}

func newAttemptTracker() *attemptTracker {
	return &attemptTracker{records: make(map[string]*attemptRecord)}
}

func (t *attemptTracker) get(key string) (*attemptRecord, bool) {
	r, ok := t.records[key]
	return r, ok
}

// start reserves a record for key. It returns nil when one already exists.
func (t *attemptTracker) start(key string) *attemptRecord {
	if _, ok := t.records[key]; ok {
		return nil
	}
	r := &attemptRecord{id: newRecordID()}
	t.records[key] = r
	return r
}

// stopAll cancels every running timer.
func (t *attemptTracker) stopAll() int {
	n := 0
	for _, r := range t.records {
		if r.stop() {
			n++
		}
	}
	return n
}

// pending counts records whose timer is still running.
func (t *attemptTracker) pending() int {
	n := 0
	for _, r := range t.records {
		if !r.stopped {
			n++
		}
	}
	return n
}
