// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/flagdeck/flagdeck/internal/config"
)

// surfacedError marks a failure the user has already been shown, either as
// a notification or a printed message.
type surfacedError struct {
	err error
}

func (e *surfacedError) Error() string {
	return e.err.Error()
}

func (e *surfacedError) Unwrap() error {
	return e.err
}

func surfaced(err error) error {
	if err == nil {
		return nil
	}
	return &surfacedError{err: err}
}

func isSurfaced(err error) bool {
	var s *surfacedError
	return errors.As(err, &s)
}

// NewRootCmd creates the root command for the flagdeck CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flagdeck",
		Short: "flagdeck - a terminal client for CTF platforms",
		Long: `flagdeck talks to a CTF platform API from the terminal: log in,
browse challenges, submit flags, follow the scoreboard and, for admins,
manage challenges. Run 'flagdeck shell' for an interactive session.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewLoginCmd())
	cmd.AddCommand(NewRegisterCmd())
	cmd.AddCommand(NewLogoutCmd())
	cmd.AddCommand(NewWhoamiCmd())
	cmd.AddCommand(NewChallengesCmd())
	cmd.AddCommand(NewSubmitCmd())
	cmd.AddCommand(NewScoreboardCmd())
	cmd.AddCommand(NewAdminCmd())
	cmd.AddCommand(NewShellCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}
