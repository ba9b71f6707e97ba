// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/Foxius/wither-pass/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Wither Pass CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "witherpass",
		Short: "Wither Pass - optional module hooks",
		Long: `Wither Pass activates optional integrations once the modules they
depend on are loaded, enabled and at a supported version, rechecking
missing modules on a bounded schedule.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/witherpass/config.yaml)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewHooksCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}

// loadConfig loads settings for cmd from the config file and its flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	//nolint:wrapcheck // config errors carry their own code and context
	return config.Load(config.ResolvePath(configFile), cmd.Flags())
}
