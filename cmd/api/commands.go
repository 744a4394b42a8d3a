package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/spec-kit/request-tracker/internal/persistence"
	"github.com/spec-kit/request-tracker/internal/report"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, c *container) error {
				return c.prepareSchema(ctx)
			})
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default admin and support users when no admin exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, c *container) error {
				seed := c.cfg.Seed
				seed.DefaultUsers = true
				created, err := persistence.SeedDefaultUsers(ctx, c.users, seed, c.cfg.Auth.BcryptCost, c.logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %d user(s)\n", created)
				return nil
			})
		},
	}
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "report", Short: "Print metrics reports"}
	cmd.AddCommand(reportSummaryCmd())
	cmd.AddCommand(reportBacklogCmd())
	return cmd
}

func reportSummaryCmd() *cobra.Command {
	var (
		period   string
		extended bool
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Dashboard summary for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, c *container) error {
				summary, err := c.reports.Summary(ctx, period, extended)
				if err != nil {
					return err
				}
				report.RenderSummary(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", "week", "day|week|month")
	cmd.Flags().BoolVar(&extended, "extended", false, "include SLA, feedback and review sections")
	return cmd
}

func reportBacklogCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "backlog",
		Short: "Daily new/closed/backlog for the last N days",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, c *container) error {
				trend, err := c.reports.BacklogTrend(ctx, days)
				if err != nil {
					return err
				}
				report.RenderBacklog(cmd.OutOrStdout(), trend)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 14, "number of days, including today")
	return cmd
}

func tokenCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return errors.New("--username is required")
			}
			return withContainer(cmd.Context(), func(ctx context.Context, c *container) error {
				user, err := c.users.GetByUsername(ctx, username)
				if errors.Is(err, pgx.ErrNoRows) {
					return fmt.Errorf("user %q not found", username)
				}
				if err != nil {
					return err
				}
				_, token, exp, err := c.auth.IssueToken(user)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "directory username")
	return cmd
}

// withContainer wires the store for a one-shot command. Redis is skipped.
func withContainer(ctx context.Context, fn func(context.Context, *container) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := bootstrap(ctx, false)
	if err != nil {
		return err
	}
	defer c.close()
	return fn(ctx, c)
}
