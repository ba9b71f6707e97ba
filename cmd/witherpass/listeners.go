// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Foxius/wither-pass/internal/config"
	"github.com/Foxius/wither-pass/internal/hook"
)

// moduleListener handles the events of a hooked module.
type moduleListener struct {
	Module string
}

// builtinListener handles events that need no external module.
type builtinListener struct {
	Name string
}

// hostListener serves placeholders once the host is running.
type hostListener struct{}

// logRegistrar registers listeners by logging them. It stands in for the
// host's event bus.
type logRegistrar struct {
	logger *slog.Logger
}

func newLogRegistrar(logger *slog.Logger) *logRegistrar {
	return &logRegistrar{logger: logger}
}

// Register implements hook.Registrar.
func (r *logRegistrar) Register(ctx context.Context, l hook.Listener) error {
	r.logger.InfoContext(ctx, "registered listener", "listener", fmt.Sprintf("%T", l))
	return nil
}

// builtins are installed unconditionally at startup.
func builtins() []hook.Installer {
	return []hook.Installer{
		hook.ListenerInstaller(func() hook.Listener { return builtinListener{Name: "progress"} }),
		hook.ListenerInstaller(func() hook.Listener { return builtinListener{Name: "rewards"} }),
	}
}

// declareHooks hands every configured hook to the registry.
func declareHooks(ctx context.Context, registry *hook.Registry, specs []config.HookSpec) {
	for _, spec := range specs {
		gate, err := spec.Gate()
		if err != nil {
			// Validated at load time.
			continue
		}
		name := spec.Name
		inst := hook.ListenerInstaller(func() hook.Listener { return moduleListener{Module: name} })
		registry.ActivateVersioned(ctx, spec.Name, inst, spec.Author, gate)
	}
}
