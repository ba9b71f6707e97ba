// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/Foxius/wither-pass/internal/modhost"
)

// NewSchemaCmd creates the schema subcommand.
func NewSchemaCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the module manifest JSON Schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchema(cmd, out)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write the schema to this file instead of stdout")

	return cmd
}

func runSchema(cmd *cobra.Command, out string) error {
	schema, err := modhost.GenerateSchema()
	if err != nil {
		return oops.Wrapf(err, "failed to generate schema")
	}

	if out == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), string(schema))
		return err
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
		return oops.With("path", out).Wrapf(err, "failed to create directory")
	}
	if err := os.WriteFile(out, schema, 0o600); err != nil {
		return oops.With("path", out).Wrapf(err, "failed to write schema")
	}
	cmd.Printf("Generated %s\n", out)
	return nil
}
