package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kislikjeka/memechain/internal/platform/battle"
	"github.com/kislikjeka/memechain/internal/platform/wallet"
	"github.com/kislikjeka/memechain/pkg/money"
)

func newBattlesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "battles",
		Short: "Inspect battles",
	}

	var open bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List battles, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := a.battles(cmd.Context())
			if err != nil {
				return err
			}
			battles, err := reader.ListBattles(cmd.Context())
			if err != nil {
				return err
			}
			if open {
				battles = battle.OpenForSubmission(battles)
			}
			if a.jsonOutput {
				return a.printJSON(battles)
			}

			tw := tabwriter.NewWriter(a.stdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTHEME\tPHASE\tMEMES\tPRIZE POOL\tMIN STAKE")
			for _, b := range battles {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
					b.ID, b.Theme, b.Phase, b.MemeCount, money.Format(b.PrizePool), money.Format(b.MinStake))
			}
			return tw.Flush()
		},
	}
	list.Flags().BoolVar(&open, "open", false, "Only battles open for submission")

	show := &cobra.Command{
		Use:   "show <battle-id>",
		Short: "Show one battle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			reader, err := a.battles(cmd.Context())
			if err != nil {
				return err
			}
			d, err := reader.GetBattle(cmd.Context(), id)
			if err != nil {
				return err
			}
			if d == nil {
				return fmt.Errorf("battle %d not found", id)
			}
			if a.jsonOutput {
				return a.printJSON(d)
			}

			tw := tabwriter.NewWriter(a.stdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "ID\t%d\n", d.ID)
			fmt.Fprintf(tw, "Theme\t%s\n", d.Theme)
			fmt.Fprintf(tw, "Phase\t%s\n", d.Phase)
			fmt.Fprintf(tw, "Submissions\t%s to %s\n", unixTime(d.SubmissionStart), unixTime(d.SubmissionEnd))
			fmt.Fprintf(tw, "Voting ends\t%s\n", unixTime(d.VotingEnd))
			fmt.Fprintf(tw, "Min stake\t%s USDC\n", money.Format(d.MinStake))
			fmt.Fprintf(tw, "Max per user\t%s\n", maxPerUser(d.MaxSubmissionsPerUser))
			fmt.Fprintf(tw, "Prize pool\t%s USDC\n", money.Format(d.PrizePool))
			return tw.Flush()
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func newMemesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memes",
		Short: "Inspect memes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <battle-id>",
		Short: "List the memes of a battle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			reader, err := a.battles(cmd.Context())
			if err != nil {
				return err
			}
			memes, err := reader.ListMemes(cmd.Context(), id)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(memes)
			}

			tw := tabwriter.NewWriter(a.stdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATOR\tVOTES\tIMAGE")
			for _, m := range memes {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", m.ID, m.Creator, money.Format(m.TotalVoteWeight), m.ImageURL)
			}
			return tw.Flush()
		},
	})

	return cmd
}

func newBalanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <address>",
		Short: "Show a USDC balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := wallet.ValidateAddress(args[0])
			if err != nil {
				return err
			}
			reader, err := a.battles(cmd.Context())
			if err != nil {
				return err
			}
			balance, err := reader.Balance(cmd.Context(), address)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(map[string]string{
					"address":   address,
					"balance":   balance.String(),
					"formatted": money.Format(balance),
				})
			}
			fmt.Fprintf(a.stdout(), "%s USDC (%s)\n", money.Format(balance), money.FormatCompact(balance))
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func unixTime(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}

func maxPerUser(n int64) string {
	if n == 0 {
		return "unlimited"
	}
	return strconv.FormatInt(n, 10)
}
