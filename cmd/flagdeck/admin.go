// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package main

import (
	"context"
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/flagdeck/flagdeck/internal/app"
	"github.com/flagdeck/flagdeck/internal/shell"
	"github.com/flagdeck/flagdeck/internal/view"
)

// NewAdminCmd creates the admin command group.
func NewAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage challenges (admins only)",
	}
	cmd.AddCommand(newAdminListCmd())
	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminDeleteCmd())
	return cmd
}

func newAdminListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List challenges with their ids",
		Args:  cobra.NoArgs,
		RunE: withRuntime(func(r *runtime, cmd *cobra.Command, _ []string) error {
			if _, err := r.restore(); err != nil {
				return err
			}
			if err := r.app.Admin.Load(r.ctx); err != nil {
				r.errOut.Print(shell.FormatAdmin(r.app.Screen().Admin()))
				return surfaced(err)
			}
			list := r.app.Screen().Admin()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				items := list.Items
				if items == nil {
					items = []view.AdminItem{}
				}
				return r.printJSON(items)
			}
			r.out.Print(shell.FormatAdmin(list))
			return nil
		}),
	}
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}

func newAdminCreateCmd() *cobra.Command {
	var form view.AdminForm
	var points int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a challenge",
		Args:  cobra.NoArgs,
		RunE: withRuntime(func(r *runtime, _ *cobra.Command, _ []string) error {
			if _, err := r.restore(); err != nil {
				return err
			}
			form.Points = strconv.Itoa(points)
			r.app.Screen().SetForm(form)
			created, err := r.app.Admin.CreateFromForm(r.ctx)
			if err != nil {
				return surfaced(err)
			}
			r.out.Printf("Created challenge %d.\n", created.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&form.Title, "title", "", "challenge title")
	cmd.Flags().StringVar(&form.Description, "description", "", "challenge description")
	cmd.Flags().IntVar(&points, "points", 100, "points awarded")
	cmd.Flags().StringVar(&form.Category, "category", "", "challenge category")
	cmd.Flags().StringVar(&form.Flag, "flag", "", "expected flag")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("flag")
	return cmd
}

func newAdminDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a challenge after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseChallengeID(args[0])
			if err != nil {
				return err
			}
			var opts runtimeOptions
			if yes, _ := cmd.Flags().GetBool("yes"); yes {
				opts.confirm = app.ConfirmFunc(func(context.Context, string) bool { return true })
			}
			r, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			defer r.Close()

			if _, err := r.restore(); err != nil {
				return err
			}
			err = r.app.Admin.Delete(r.ctx, id)
			if oopsErr, ok := oops.AsOops(err); ok && oopsErr.Code() == app.CodeDeclined {
				r.out.Print("Cancelled.\n")
				return nil
			}
			return surfaced(err)
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	return cmd
}
