// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/flagdeck/flagdeck/internal/shell"
	"github.com/flagdeck/flagdeck/internal/view"
)

func parseChallengeID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, oops.Code("ARG_INVALID").With("id", raw).Errorf("invalid challenge id %q", raw)
	}
	return id, nil
}

// NewChallengesCmd creates the challenges subcommand.
func NewChallengesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "challenges",
		Short: "List active challenges",
		Args:  cobra.NoArgs,
		RunE: withRuntime(func(r *runtime, cmd *cobra.Command, _ []string) error {
			pattern, _ := cmd.Flags().GetString("category")
			filter, err := view.NewCategoryFilter(pattern)
			if err != nil {
				return err
			}
			if _, err := r.restore(); err != nil {
				return err
			}
			if err := r.app.Challenges.Load(r.ctx); err != nil {
				return surfaced(err)
			}

			screen := r.app.Screen()
			screen.SetFilter(filter)
			list := screen.VisibleChallenges()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				cards := list.Cards
				if cards == nil {
					cards = []view.ChallengeCard{}
				}
				return r.printJSON(cards)
			}
			r.out.Print(shell.FormatChallenges(list))
			return nil
		}),
	}
	cmd.Flags().String("category", "", "only show categories matching this glob, e.g. 'web*'")
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}

// NewSubmitCmd creates the submit subcommand.
func NewSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <id> <flag>",
		Short: "Submit a flag for a challenge",
		Args:  cobra.ExactArgs(2),
		RunE: withRuntime(func(r *runtime, _ *cobra.Command, args []string) error {
			id, err := parseChallengeID(args[0])
			if err != nil {
				return err
			}
			if _, err := r.restore(); err != nil {
				return err
			}
			_, err = r.app.Challenges.Submit(r.ctx, id, args[1])
			return surfaced(err)
		}),
	}
}

// NewScoreboardCmd creates the scoreboard subcommand.
func NewScoreboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scoreboard",
		Short: "Show the ranked standings",
		Args:  cobra.NoArgs,
		RunE: withRuntime(func(r *runtime, cmd *cobra.Command, _ []string) error {
			if _, err := r.restore(); err != nil {
				return err
			}
			if err := r.app.Scores.Load(r.ctx); err != nil {
				return surfaced(err)
			}
			table := r.app.Screen().Scoreboard()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				rows := table.Rows
				if rows == nil {
					rows = []view.ScoreRow{}
				}
				return r.printJSON(rows)
			}
			r.out.Print(shell.FormatScoreboard(table))
			return nil
		}),
	}
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}
