// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

package hook

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// DefaultHostHookName is the name under which the host-readiness hook is
// disabled and listed.
const DefaultHostHookName = "PlaceholderAPI"

// Listener is an event handler in whatever form the host's Registrar
// understands.
type Listener = any

// Registrar is the host's event-registration facility.
type Registrar interface {
	Register(ctx context.Context, listener Listener) error
}

// Installer is the activation routine of a hook: it wires the integration
// into the host.
type Installer interface {
	Install(ctx context.Context, r Registrar) error
}

// InstallerFunc adapts a function to Installer.
type InstallerFunc func(ctx context.Context, r Registrar) error

// Install calls f.
func (f InstallerFunc) Install(ctx context.Context, r Registrar) error {
	return f(ctx, r)
}

// ListenerInstaller returns an Installer that builds a listener with newFn
// and registers it with the host.
func ListenerInstaller(newFn func() Listener) Installer {
	return InstallerFunc(func(ctx context.Context, r Registrar) error {
		//nolint:wrapcheck // registrar errors are logged by the scheduler with their own context
		return r.Register(ctx, newFn())
	})
}

// ModuleHost reports the state of the modules loaded by the host
// application and of the host itself.
type ModuleHost interface {
	// Lookup returns the state of the named module.
	Lookup(name string) ModuleStatus
	// HostEnabled reports whether the host application is fully enabled.
	HostEnabled() bool
}

// Snapshot is a point-in-time view of the registry.
type Snapshot struct {
	Active   []string `json:"active"`
	Disabled []string `json:"disabled"`
	Pending  int      `json:"pending"`
}

// Registry is the entry point for declaring hooks. It checks the disabled
// list and hands each hook to the Scheduler.
//
// None of its methods fail the caller: every outcome is logged.
type Registry struct {
	host      ModuleHost
	registrar Registrar
	disabled  *DisabledSet
	scheduler *Scheduler
	hostHook  string
	logger    *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithHostHookName overrides DefaultHostHookName.
func WithHostHookName(name string) RegistryOption {
	return func(r *Registry) {
		r.hostHook = name
	}
}

// WithRegistryLogger sets the logger.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry creates a registry. A nil disabled set disables nothing.
func NewRegistry(host ModuleHost, registrar Registrar, disabled *DisabledSet, scheduler *Scheduler, opts ...RegistryOption) *Registry {
	r := &Registry{
		host:      host,
		registrar: registrar,
		disabled:  disabled,
		scheduler: scheduler,
		hostHook:  DefaultHostHookName,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Activate activates a hook on the named module, now if it is ready or
// later once it becomes ready. A non-empty author restricts the hook to
// modules declaring that author.
//
// It returns whether the module was present and enabled, not whether the
// hook was activated.
func (r *Registry) Activate(ctx context.Context, name string, inst Installer, author string) bool {
	return r.ActivateVersioned(ctx, name, inst, author, nil)
}

// ActivateVersioned is Activate with a version gate evaluated against the
// module's reported version.
func (r *Registry) ActivateVersioned(ctx context.Context, name string, inst Installer, author string, gate VersionPredicate) bool {
	req := Request{
		Name:     name,
		Disabled: r.IsDisabled(name),
		Lookup: func() ModuleStatus {
			return r.host.Lookup(name)
		},
		Gate:     gate,
		Activate: r.install(inst),
	}
	if author != "" {
		req.Accept = func(s ModuleStatus) bool {
			return s.HasAuthor(author)
		}
	}
	return r.scheduler.TryActivate(ctx, req).Found()
}

// ActivateOnHostReady activates inst once the host application itself
// reports fully enabled. It is disabled and listed under the host hook
// name.
func (r *Registry) ActivateOnHostReady(ctx context.Context, inst Installer) bool {
	req := Request{
		Name:     r.hostHook,
		Disabled: r.IsDisabled(r.hostHook),
		Lookup: func() ModuleStatus {
			return ModuleStatus{Present: true, Enabled: r.host.HostEnabled()}
		},
		Activate: r.install(inst),
	}
	return r.scheduler.TryActivate(ctx, req).Found()
}

// Install registers built-in listeners unconditionally. It stops at the
// first failure.
func (r *Registry) Install(ctx context.Context, installers ...Installer) error {
	for i, inst := range installers {
		if err := inst.Install(ctx, r.registrar); err != nil {
			return oops.
				Code("INSTALL_FAILED").
				With("index", i).
				Wrap(err)
		}
	}
	r.logger.Debug("installed built-in listeners", "count", len(installers))
	return nil
}

func (r *Registry) install(inst Installer) func(context.Context) error {
	return func(ctx context.Context) error {
		//nolint:wrapcheck // wrapped by the scheduler's logging
		return inst.Install(ctx, r.registrar)
	}
}

// ListActiveHooks returns the hooks activated so far. Hooks may still
// activate later, so this is not a final list during startup.
func (r *Registry) ListActiveHooks() []string {
	return r.scheduler.Active()
}

// ListDisabledHooks returns the hooks disabled by configuration.
func (r *Registry) ListDisabledHooks() []string {
	return r.disabled.List()
}

// IsDisabled reports whether name is disabled by configuration. This is
// not the same as not being active.
func (r *Registry) IsDisabled(name string) bool {
	return r.disabled.Contains(name)
}

// Snapshot returns the current registry state.
func (r *Registry) Snapshot() Snapshot {
	return Snapshot{
		Active:   r.ListActiveHooks(),
		Disabled: r.ListDisabledHooks(),
		Pending:  r.scheduler.Pending(),
	}
}

// Close cancels outstanding rechecks.
func (r *Registry) Close() {
	r.scheduler.Close()
}
