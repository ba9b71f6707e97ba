// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

package main

import (
	"context"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/Foxius/wither-pass/internal/config"
	"github.com/Foxius/wither-pass/internal/modhost"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate every module manifest without running hooks",
		Long: `Validates the module.yaml manifest of every module in the modules
directory against the manifest schema.
Exits with code 0 on success, non-zero on failure.

Useful in CI pipelines to catch broken manifests early:
  witherpass validate --modules-dir ./modules`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd.Context(), cmd)
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

func runValidate(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	modules, problems, err := modhost.NewDirectory(cfg.ModulesDir).Scan(ctx)
	if err != nil {
		return oops.Wrap(err)
	}

	for _, m := range modules {
		cmd.Printf("ok      %s %s\n", m.Manifest.Name, m.Manifest.Version)
	}
	for _, p := range problems {
		cmd.Printf("invalid %s: %s\n", filepath.Base(p.Dir), modhost.FormatSchemaError(p.Err))
	}

	if len(problems) > 0 {
		return oops.
			Code("MANIFEST_INVALID").
			With("dir", cfg.ModulesDir).
			Errorf("validation failed: %d of %d modules invalid", len(problems), len(modules)+len(problems))
	}
	cmd.Printf("%d modules valid\n", len(modules))
	return nil
}
