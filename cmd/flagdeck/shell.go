// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/flagdeck/flagdeck/internal/shell"
)

// NewShellCmd creates the interactive shell subcommand.
func NewShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Long: `Start an interactive session. Views render in place and notifications
appear as they happen. Logs go to $XDG_STATE_HOME/flagdeck/shell.log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := newRuntime(cmd, runtimeOptions{shellMode: true})
			if err != nil {
				return err
			}
			defer r.Close()

			sh, err := shell.New(r.app, r.notes, r.in, r.out, shell.WithLogger(r.logger))
			if err != nil {
				return err
			}
			return sh.Run(r.ctx)
		},
	}
}
