// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

// Package hook decides when optional integrations with other modules are
// activated.
//
// A hook depends on a module that may load late, be disabled, or run an
// unsupported version. The Scheduler activates a hook as soon as its module
// is ready, rechecks periodically while it is not, and gives up after a
// fixed number of attempts. Every hook name is activated at most once per
// process.
package hook

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Foxius/wither-pass/pkg/errutil"
)

// Default recheck cadence and attempt budget: a ten minute discovery window.
const (
	DefaultInterval    = 10 * time.Second
	DefaultMaxAttempts = 60
)

const tracerName = "github.com/Foxius/wither-pass/internal/hook"

// ModuleStatus is what the module host reports about a dependency.
type ModuleStatus struct {
	Present bool
	Enabled bool
	Authors []string
	Version string
}

// Ready reports whether the module is loaded and enabled.
func (s ModuleStatus) Ready() bool {
	return s.Present && s.Enabled
}

// HasAuthor reports whether author is among the declared authors.
func (s ModuleStatus) HasAuthor(author string) bool {
	for _, a := range s.Authors {
		if a == author {
			return true
		}
	}
	return false
}

// Outcome is the result of one activation attempt.
type Outcome int

// Activation outcomes.
const (
	OutcomeActivated Outcome = iota + 1
	OutcomeDeferred
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeActivated:
		return "activated"
	case OutcomeDeferred:
		return "deferred"
	case OutcomeSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Reason explains an Outcome.
type Reason string

// Decision reasons.
const (
	ReasonReady              Reason = "ready"
	ReasonDisabled           Reason = "disabled"
	ReasonAlreadyActive      Reason = "already-active"
	ReasonAbsent             Reason = "absent"
	ReasonModuleDisabled     Reason = "module-disabled"
	ReasonRejected           Reason = "rejected"
	ReasonUnsupportedVersion Reason = "unsupported-version"
	ReasonBadVersion         Reason = "bad-version"
)

// Decision is the scheduler's verdict for one request.
type Decision struct {
	Outcome Outcome
	Reason  Reason
}

// Found reports whether the dependency was present and enabled when the
// decision was made, regardless of whether the hook was activated.
func (d Decision) Found() bool {
	switch d.Reason {
	case ReasonDisabled, ReasonAbsent, ReasonModuleDisabled:
		return false
	default:
		return true
	}
}

// Request describes one hook to activate.
type Request struct {
	// Name identifies the dependency. Matching is case-insensitive.
	Name string
	// Disabled skips the hook outright.
	Disabled bool
	// Lookup queries the current state of the dependency.
	Lookup func() ModuleStatus
	// Accept optionally rejects a ready module, e.g. on author mismatch.
	Accept func(ModuleStatus) bool
	// Gate optionally restricts the supported module versions.
	Gate VersionPredicate
	// Activate wires the integration into the host. It runs at most once
	// per name.
	Activate func(ctx context.Context) error
}

// Scheduler activates hooks once their dependency is ready and manages the
// bounded periodic recheck of hooks that are not.
//
// Scheduler is safe for concurrent use.
type Scheduler struct {
	timers      Timers
	interval    time.Duration
	maxAttempts int
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer

	mu         sync.Mutex
	attempts   *attemptTracker
	claimed    map[string]struct{}
	registered map[string]string
	closed     bool
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval sets the recheck cadence.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.interval = d
	}
}

// WithMaxAttempts sets how many rechecks run before a deferred hook is
// abandoned. The tick after the last allowed attempt cancels the timer.
func WithMaxAttempts(n int) SchedulerOption {
	return func(s *Scheduler) {
		s.maxAttempts = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithMetrics enables prometheus metrics.
func WithMetrics(m *Metrics) SchedulerOption {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithTracerProvider sets the provider used for activation spans.
func WithTracerProvider(tp trace.TracerProvider) SchedulerOption {
	return func(s *Scheduler) {
		s.tracer = tp.Tracer(tracerName)
	}
}

// NewScheduler creates a scheduler that installs rechecks on timers.
func NewScheduler(timers Timers, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		timers:      timers,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracerName),
		attempts:    newAttemptTracker(),
		claimed:     make(map[string]struct{}),
		registered:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TryActivate evaluates req once. A ready dependency is activated in the
// calling goroutine; one that is missing or disabled gets a recheck timer
// unless it already has one.
func (s *Scheduler) TryActivate(ctx context.Context, req Request) Decision {
	key := normalize(req.Name)
	logger := s.logger.With("hook", req.Name)

	if req.Disabled {
		return s.decide(logger, OutcomeSkipped, ReasonDisabled)
	}
	if s.isClaimed(key) {
		s.stopRecheck(key)
		return s.decide(logger, OutcomeSkipped, ReasonAlreadyActive)
	}

	status := req.Lookup()
	if !status.Ready() {
		s.scheduleRecheck(ctx, key, req)
		if status.Present {
			return s.decide(logger, OutcomeDeferred, ReasonModuleDisabled)
		}
		return s.decide(logger, OutcomeDeferred, ReasonAbsent)
	}

	if req.Accept != nil && !req.Accept(status) {
		s.stopRecheck(key)
		logger.Info("hook dependency present but not accepted")
		return s.decide(logger, OutcomeSkipped, ReasonRejected)
	}

	if req.Gate != nil {
		version, err := ParseVersion(status.Version)
		if err != nil {
			s.stopRecheck(key)
			errutil.LogWarn(logger, "hook dependency present but its version could not be parsed", err,
				"reported_version", status.Version)
			return s.decide(logger, OutcomeSkipped, ReasonBadVersion)
		}
		logger.Info("using reported version for hook", "version", version.String())
		if !req.Gate(version) {
			s.stopRecheck(key)
			logger.Warn("hook dependency present but its version is not supported",
				"version", version.String())
			return s.decide(logger, OutcomeSkipped, ReasonUnsupportedVersion)
		}
	}

	if !s.claim(key) {
		s.stopRecheck(key)
		return s.decide(logger, OutcomeSkipped, ReasonAlreadyActive)
	}
	s.stopRecheck(key)
	s.activate(ctx, key, req, logger)
	return s.decide(logger, OutcomeActivated, ReasonReady)
}

func (s *Scheduler) decide(logger *slog.Logger, outcome Outcome, reason Reason) Decision {
	d := Decision{Outcome: outcome, Reason: reason}
	s.metrics.decision(d)
	logger.Debug("hook decision", "outcome", outcome.String(), "reason", string(reason))
	return d
}

func (s *Scheduler) isClaimed(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.claimed[key]
	return ok
}

// claim marks key as activated. Only the first caller wins.
func (s *Scheduler) claim(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claimed[key]; ok {
		return false
	}
	s.claimed[key] = struct{}{}
	return true
}

func (s *Scheduler) activate(ctx context.Context, key string, req Request, logger *slog.Logger) {
	ctx, span := s.tracer.Start(ctx, "hook.activate",
		trace.WithAttributes(attribute.String("hook.name", req.Name)))
	defer span.End()

	if err := runActivation(ctx, req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "activation failed")
		s.metrics.activation(req.Name, "failed")
		errutil.LogError(logger, "hook activation failed", err)
		return
	}

	s.mu.Lock()
	s.registered[key] = req.Name
	s.mu.Unlock()

	s.metrics.activation(req.Name, "ok")
	logger.Info("hooked into dependency")
}

// runActivation converts a panicking activation into an error so a faulty
// integration cannot take the host down.
func runActivation(ctx context.Context, req Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = oops.
				Code("HOOK_ACTIVATION_PANIC").
				With("hook", req.Name).
				Errorf("hook activation panicked: %v", r)
		}
	}()
	if req.Activate == nil {
		return nil
	}
	return req.Activate(ctx)
}

// scheduleRecheck installs the periodic recheck for key unless a record,
// live or exhausted, already exists, the name was claimed by a concurrent
// caller, or the scheduler is closed.
func (s *Scheduler) scheduleRecheck(ctx context.Context, key string, req Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if _, ok := s.claimed[key]; ok {
		return
	}
	rec := s.attempts.start(key)
	if rec == nil {
		return
	}

	tickCtx := context.WithoutCancel(ctx)
	rec.cancel = s.timers.Every(s.interval, func() {
		s.tick(tickCtx, key, req)
	})
	s.metrics.pending(s.attempts.pending())

	s.logger.Debug("scheduled hook recheck",
		"hook", req.Name,
		"attempt_id", rec.id.String(),
		"interval", s.interval)
}

func (s *Scheduler) tick(ctx context.Context, key string, req Request) {
	s.mu.Lock()
	rec, ok := s.attempts.get(key)
	if !ok || rec.stopped {
		s.mu.Unlock()
		return
	}
	n := rec.increment()
	exhausted := n > s.maxAttempts
	if exhausted {
		rec.stop()
		s.metrics.pending(s.attempts.pending())
	}
	s.mu.Unlock()

	s.metrics.recheck()
	if exhausted {
		s.metrics.exhausted()
		s.logger.Info("giving up on hook after repeated rechecks",
			"hook", req.Name,
			"attempt_id", rec.id.String(),
			"attempts", n)
	}

	s.TryActivate(ctx, req)
}

func (s *Scheduler) stopRecheck(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.attempts.get(key)
	if !ok {
		return
	}
	if rec.stop() {
		s.metrics.pending(s.attempts.pending())
	}
}

// Attempt returns the retry state recorded for name.
func (s *Scheduler) Attempt(name string) (AttemptInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.attempts.get(normalize(name))
	if !ok {
		return AttemptInfo{}, false
	}
	return rec.info(), true
}

// Pending returns the number of hooks with a running recheck timer.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts.pending()
}

// IsActive reports whether name was activated successfully.
func (s *Scheduler) IsActive(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.registered[normalize(name)]
	return ok
}

// Active returns the names of successfully activated hooks, sorted.
func (s *Scheduler) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.registered))
	for _, name := range s.registered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close cancels all outstanding rechecks. Later requests are still
// evaluated but never install timers.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if n := s.attempts.stopAll(); n > 0 {
		s.logger.Debug("cancelled pending hook rechecks", "count", n)
	}
	s.metrics.pending(0)
}
