// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the NetDodge CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "netdodge",
		Short: "NetDodge - multiplayer identity and session client",
		Long: `NetDodge authenticates a player against a federated identity
backend and manages multiplayer matchmaking sessions: create,
discover, join, leave, and invite handling.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG config dir)")

	cmd.AddCommand(NewClientCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}
