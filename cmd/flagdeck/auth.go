// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/flagdeck/flagdeck/internal/api"
	"github.com/flagdeck/flagdeck/internal/shell"
)

// readPassword returns the --password flag or prompts for it.
func readPassword(r *runtime, cmd *cobra.Command) (string, error) {
	password, err := cmd.Flags().GetString("password")
	if err != nil {
		return "", err
	}
	if password != "" {
		return password, nil
	}
	return r.in.Password(r.ctx, "Password: ")
}

// NewLoginCmd creates the login subcommand.
func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and store the session token",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(func(r *runtime, cmd *cobra.Command, args []string) error {
			password, err := readPassword(r, cmd)
			if err != nil {
				return err
			}
			return surfaced(r.app.Login(r.ctx, args[0], password))
		}),
	}
	cmd.Flags().String("password", "", "password (prompted without echo when omitted)")
	return cmd
}

// NewRegisterCmd creates the register subcommand.
func NewRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(func(r *runtime, cmd *cobra.Command, args []string) error {
			password, err := readPassword(r, cmd)
			if err != nil {
				return err
			}
			return surfaced(r.app.Register(r.ctx, api.Credentials{Username: args[0], Password: password}))
		}),
	}
	cmd.Flags().String("password", "", "password (prompted without echo when omitted)")
	return cmd
}

// NewLogoutCmd creates the logout subcommand.
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: withRuntime(func(r *runtime, _ *cobra.Command, _ []string) error {
			r.app.Logout(r.ctx)
			r.out.Print("Logged out.\n")
			return nil
		}),
	}
}

// NewWhoamiCmd creates the whoami subcommand.
func NewWhoamiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: withRuntime(func(r *runtime, cmd *cobra.Command, _ []string) error {
			user, err := r.restore()
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return r.printJSON(user)
			}
			r.out.Print(shell.FormatUser(user))
			return nil
		}),
	}
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}
