// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/Foxius/wither-pass/internal/config"
	"github.com/Foxius/wither-pass/internal/hook"
	"github.com/Foxius/wither-pass/internal/modhost"
)

// Hook states reported by the hooks command.
const (
	stateActive      = "active"
	stateDisabled    = "disabled"
	stateMissing     = "missing"
	stateUnsupported = "unsupported"
)

// HookStatus is the evaluated state of one configured hook.
type HookStatus struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Version string `json:"version,omitempty"`
}

// hooksConfig holds configuration for the hooks command.
type hooksConfig struct {
	jsonOutput bool
}

// NewHooksCmd creates the hooks subcommand.
func NewHooksCmd() *cobra.Command {
	cfg := &hooksConfig{}

	cmd := &cobra.Command{
		Use:   "hooks",
		Short: "Show which configured hooks would activate now",
		Long: `Evaluates every configured hook once against the modules directory
and prints whether it is active, disabled, missing or unsupported.
Nothing is rechecked.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHooksStatus(cmd.Context(), cmd, cfg)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

func runHooksStatus(ctx context.Context, cmd *cobra.Command, hcfg *hooksConfig) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	disabled, err := cfg.DisabledSet()
	if err != nil {
		return oops.Wrap(err)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	loop := hook.NewLoop()
	defer loop.Close()

	host := modhost.NewDirectory(cfg.ModulesDir, modhost.WithLogger(quiet))
	registry := hook.NewRegistry(host, newLogRegistrar(quiet), disabled,
		hook.NewScheduler(loop, hook.WithLogger(quiet)),
		hook.WithRegistryLogger(quiet),
	)
	defer registry.Close()

	statuses := evaluateHooks(ctx, registry, host, cfg.Hooks)

	if hcfg.jsonOutput {
		data, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return oops.Wrapf(err, "failed to format JSON")
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), formatHooksTable(statuses))
	return err
}

// evaluateHooks activates every configured hook once and classifies the result.
func evaluateHooks(ctx context.Context, registry *hook.Registry, host hook.ModuleHost, specs []config.HookSpec) []HookStatus {
	found := make(map[string]bool, len(specs))
	for _, spec := range specs {
		gate, err := spec.Gate()
		if err != nil {
			continue
		}
		name := spec.Name
		inst := hook.ListenerInstaller(func() hook.Listener { return moduleListener{Module: name} })
		found[spec.Name] = registry.ActivateVersioned(ctx, spec.Name, inst, spec.Author, gate)
	}

	active := make(map[string]bool)
	for _, name := range registry.ListActiveHooks() {
		active[strings.ToLower(name)] = true
	}

	statuses := make([]HookStatus, 0, len(specs))
	for _, spec := range specs {
		status := HookStatus{Name: spec.Name, Version: host.Lookup(spec.Name).Version}
		switch {
		case registry.IsDisabled(spec.Name):
			status.State = stateDisabled
		case active[strings.ToLower(spec.Name)]:
			status.State = stateActive
		case found[spec.Name]:
			status.State = stateUnsupported
		default:
			status.State = stateMissing
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func formatHooksTable(statuses []HookStatus) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "HOOK\tSTATE\tVERSION")
	for _, s := range statuses {
		version := s.Version
		if version == "" {
			version = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, s.State, version)
	}
	_ = w.Flush()
	return sb.String()
}
