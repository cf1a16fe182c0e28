package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kislikjeka/memechain/internal/transport/httpapi/middleware"
)

func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API operator tokens",
	}

	var ttl time.Duration
	issue := &cobra.Command{
		Use:   "issue <subject>",
		Short: "Issue an operator token signed with JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}

			token, err := middleware.NewJWTService(cfg.JWTSecret).GenerateToken(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout(), token)
			return nil
		},
	}
	issue.Flags().DurationVar(&ttl, "ttl", middleware.DefaultTokenTTL, "Token lifetime")

	cmd.AddCommand(issue)
	return cmd
}

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the shared read view cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached battle view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.config(); err != nil {
				return err
			}
			cache := a.viewCache(cmd.Context())
			if cache == nil {
				return fmt.Errorf("view cache is unreachable at %s", a.cfg.RedisURL)
			}

			n, err := cache.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout(), "Removed %d cached views\n", n)
			return nil
		},
	})

	return cmd
}

func newFlowsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flows",
		Short: "Inspect the flow journal",
	}

	var (
		name  string
		limit int
	)
	history := &cobra.Command{
		Use:   "history",
		Short: "List journaled runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			journal, err := a.flowJournal(cmd.Context())
			if err != nil {
				return err
			}
			if journal == nil {
				return fmt.Errorf("DATABASE_URL is not configured")
			}

			runs, err := journal.ListRecent(cmd.Context(), name, limit)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(runs)
			}

			tw := tabwriter.NewWriter(a.stdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tFLOW\tBATTLE\tSTATUS\tTXS\tERROR")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%s\n",
					r.StartedAt.Format(time.RFC3339), r.Flow, r.BattleID, r.Status, len(r.TxHashes), r.ErrorCategory)
			}
			return tw.Flush()
		},
	}
	history.Flags().StringVar(&name, "flow", "", "Only runs of this flow")
	history.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")

	cmd.AddCommand(history)
	return cmd
}
