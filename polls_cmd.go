// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/vote-x/auth"
	"github.com/danielhkuo/vote-x/models"
	"github.com/danielhkuo/vote-x/render"
)

var (
	listSearch   string
	listCategory string

	draft models.PollDraft

	watchInterval time.Duration
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the polls visible to you",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := a.load(cmd.Context()); err != nil {
			return err
		}
		polls := slices.Collect(a.store.Filter(listSearch, listCategory))
		fmt.Fprint(cmd.OutOrStdout(), render.Listing(polls, a.session.Viewer()))
		return nil
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the categories of visible polls",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := a.load(cmd.Context()); err != nil {
			return err
		}
		for _, c := range a.store.Categories() {
			fmt.Fprintln(cmd.OutOrStdout(), c)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show POLL_ID",
	Short: "Show a poll and its results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := a.load(cmd.Context()); err != nil {
			return err
		}
		p, err := a.store.RefreshPoll(cmd.Context(), id)
		if err != nil {
			return err
		}
		if p.Visibility == models.VisibilityRestricted && p.IsOwner {
			if users, err := a.store.AllowedUsers(cmd.Context(), id); err == nil {
				p.AllowedUsers = users
			} else {
				slog.Warn("failed to load allowed users", "poll_id", id, "error", err)
			}
		}
		choice, _ := a.store.Choice(id)
		fmt.Fprint(cmd.OutOrStdout(), render.Detail(p, a.session.Viewer(), choice, time.Now()))
		return nil
	},
}

var voteCmd = &cobra.Command{
	Use:   "vote POLL_ID OPTION_ID",
	Short: "Vote for an option",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pollID, err := parseID(args[0])
		if err != nil {
			return err
		}
		optionID, err := parseID(args[1])
		if err != nil {
			return err
		}
		if err := a.load(cmd.Context()); err != nil {
			return err
		}
		p, err := a.store.Vote(cmd.Context(), pollID, optionID)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), render.Detail(p, a.session.Viewer(), optionID, time.Now()))
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a poll",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := a.load(cmd.Context()); err != nil {
			return err
		}
		p, err := a.store.Create(cmd.Context(), draft)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created poll #%d\n\n", p.ID)
		fmt.Fprint(cmd.OutOrStdout(), render.Detail(p, a.session.Viewer(), 0, time.Now()))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete POLL_ID",
	Short: "Delete a poll you own",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := a.load(cmd.Context()); err != nil {
			return err
		}
		if err := a.store.Remove(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted poll #%d\n", id)
		return nil
	},
}

var allowedCmd = &cobra.Command{
	Use:   "allowed POLL_ID",
	Short: "List the users allowed on a restricted poll",
	Args:  cobra.ExactArgs(1),
	RunE: allowlistRun(func(cmd *cobra.Command, id int64, _ string) ([]models.SimpleUser, error) {
		return a.store.AllowedUsers(cmd.Context(), id)
	}),
}

var allowCmd = &cobra.Command{
	Use:   "allow POLL_ID EMAIL",
	Short: "Allow a registered user on a restricted poll",
	Args:  cobra.ExactArgs(2),
	RunE: allowlistRun(func(cmd *cobra.Command, id int64, email string) ([]models.SimpleUser, error) {
		return a.store.AddAllowedUser(cmd.Context(), id, email)
	}),
}

var disallowCmd = &cobra.Command{
	Use:   "disallow POLL_ID EMAIL",
	Short: "Remove a user from a restricted poll",
	Args:  cobra.ExactArgs(2),
	RunE: allowlistRun(func(cmd *cobra.Command, id int64, email string) ([]models.SimpleUser, error) {
		return a.store.RemoveAllowedUser(cmd.Context(), id, email)
	}),
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reprint the poll listing periodically",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if watchInterval <= 0 {
			return fmt.Errorf("interval must be positive")
		}

		if path := a.db.Path(); path != "" {
			w := auth.NewWatcher(path, func() {
				if err := a.session.Reload(); err != nil {
					slog.Warn("failed to reload session", "error", err)
				}
			})
			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("failed to watch session store: %w", err)
			}
			defer w.Stop()
		}

		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()
		for {
			if err := a.load(ctx); err != nil {
				slog.Warn("refresh failed", "error", err)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", time.Now().Format(time.TimeOnly))
				fmt.Fprint(cmd.OutOrStdout(), render.Listing(a.store.List(), a.session.Viewer()))
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	},
}

func allowlistRun(op func(cmd *cobra.Command, id int64, email string) ([]models.SimpleUser, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		var email string
		if len(args) > 1 {
			email = args[1]
		}
		if err := a.load(cmd.Context()); err != nil {
			return err
		}
		users, err := op(cmd, id, email)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), render.AllowedUsers(users))
		return nil
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func init() {
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Filter by title or description")
	listCmd.Flags().StringVar(&listCategory, "category", models.CategoryAll, "Filter by category")

	f := createCmd.Flags()
	f.StringVar(&draft.Title, "title", "", "Poll title")
	f.StringVar(&draft.Description, "description", "", "Poll description")
	f.StringVar(&draft.Category, "category", "", "Category (default "+models.CategoryDefault+")")
	f.StringVar(&draft.Duration, "duration", models.DefaultDuration, "How long the poll runs, e.g. \"1 week\"")
	f.StringVar((*string)(&draft.Visibility), "visibility", string(models.VisibilityPublic), "public, private or restricted")
	f.BoolVar(&draft.AllowGuestVotes, "guest-votes", false, "Let signed-out visitors vote")
	f.StringArrayVarP(&draft.Options, "option", "o", nil, "Option text (repeat for each option)")
	f.StringArrayVar(&draft.AllowedUsers, "allow", nil, "Email allowed on a restricted poll (repeatable)")

	watchCmd.Flags().DurationVar(&watchInterval, "interval", 30*time.Second, "Refresh interval")

	rootCmd.AddCommand(listCmd, categoriesCmd, showCmd, voteCmd, createCmd, deleteCmd,
		allowedCmd, allowCmd, disallowCmd, watchCmd)
}
