package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kislikjeka/memechain/internal/module/create"
	"github.com/kislikjeka/memechain/internal/module/phase"
	"github.com/kislikjeka/memechain/internal/module/vote"
	"github.com/kislikjeka/memechain/internal/platform/media"
	"github.com/kislikjeka/memechain/internal/platform/wallet"
	"github.com/kislikjeka/memechain/pkg/money"
)

func newVoteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vote",
		Short: "Inspect or cast votes",
	}

	show := &cobra.Command{
		Use:   "show <battle-id> <voter>",
		Short: "Show a voter's current vote",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			voter, err := wallet.ValidateAddress(args[1])
			if err != nil {
				return err
			}
			reader, err := a.battles(cmd.Context())
			if err != nil {
				return err
			}
			v, err := reader.GetUserVote(cmd.Context(), id, voter)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(v)
			}
			if v == nil || v.MemeID == 0 {
				fmt.Fprintln(a.stdout(), "No vote")
				return nil
			}
			fmt.Fprintf(a.stdout(), "Meme %d with %s USDC\n", v.MemeID, money.Format(v.Amount))
			return nil
		},
	}

	cast := &cobra.Command{
		Use:   "cast <battle-id> <meme-id> <amount>",
		Short: "Vote for a meme; amount is the total USDC stake",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			battleID, err := parseID(args[0])
			if err != nil {
				return err
			}
			memeID, err := parseID(args[1])
			if err != nil {
				return err
			}
			amount, err := money.ToBaseUnits(args[2], money.USDCDecimals)
			if err != nil {
				return fmt.Errorf("invalid amount: %w", err)
			}

			f, err := a.flows(cmd.Context())
			if err != nil {
				return err
			}
			result, err := f.vote.Run(cmd.Context(), f.session, vote.Params{BattleID: battleID, MemeID: memeID, Amount: amount})
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(result)
			}
			fmt.Fprintf(a.stdout(), "Voted %s USDC for meme %d in battle %d", money.Format(result.Amount), memeID, battleID)
			if result.Approved {
				fmt.Fprint(a.stdout(), " (allowance approved)")
			}
			fmt.Fprintf(a.stdout(), "\nBalance: %s USDC\n", money.Format(result.Balance))
			return nil
		},
	}

	cmd.AddCommand(show, cast)
	return cmd
}

func newBattleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "battle",
		Short: "Manage battles (battle manager owner only)",
	}

	var (
		theme      string
		start      string
		submission time.Duration
		voting     time.Duration
		minStake   string
		maxPerUser int64
		autoStart  bool
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a battle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := buildSchedule(start, time.Now(), submission, voting)
			if err != nil {
				return err
			}
			stake, err := money.ToBaseUnits(minStake, money.USDCDecimals)
			if err != nil {
				return fmt.Errorf("invalid min stake: %w", err)
			}

			f, err := a.flows(cmd.Context())
			if err != nil {
				return err
			}
			result, err := f.create.Run(cmd.Context(), f.session, create.Params{
				Theme:                 theme,
				SubmissionStart:       sched.submissionStart,
				SubmissionEnd:         sched.submissionEnd,
				VotingEnd:             sched.votingEnd,
				MinStake:              stake,
				MaxSubmissionsPerUser: maxPerUser,
				AutoStart:             autoStart,
			})
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(result)
			}
			fmt.Fprintf(a.stdout(), "Created battle %d\n", result.BattleID)
			if autoStart && !result.Activated {
				fmt.Fprintln(a.stdout(), create.ActivationAdvisory)
			}
			return nil
		},
	}
	createCmd.Flags().StringVar(&theme, "theme", "", "Battle theme")
	createCmd.Flags().StringVar(&start, "start", "now", "Submission start (RFC3339 or \"now\")")
	createCmd.Flags().DurationVar(&submission, "submission", 24*time.Hour, "Length of the submission window")
	createCmd.Flags().DurationVar(&voting, "voting", 24*time.Hour, "Length of the voting window")
	createCmd.Flags().StringVar(&minStake, "min-stake", "1", "Minimum vote stake in USDC")
	createCmd.Flags().Int64Var(&maxPerUser, "max-per-user", 0, "Submissions allowed per user (0 = unlimited)")
	createCmd.Flags().BoolVar(&autoStart, "auto-start", true, "Open submissions once the start time is reached")
	_ = createCmd.MarkFlagRequired("theme")

	cmd.AddCommand(createCmd)
	return cmd
}

func newPhaseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phase",
		Short: "Advance a battle phase (battle manager owner only)",
	}

	for _, action := range phase.Actions {
		action := action
		cmd.AddCommand(&cobra.Command{
			Use:   string(action) + " <battle-id>",
			Short: "Call " + action.Method() + " on a battle",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				f, err := a.flows(cmd.Context())
				if err != nil {
					return err
				}
				svc, err := f.phases.Get(action)
				if err != nil {
					return err
				}
				result, err := svc.Run(cmd.Context(), f.session, id)
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return a.printJSON(result)
				}
				fmt.Fprintf(a.stdout(), "Battle %d: %s confirmed\n", result.BattleID, result.Action)
				return nil
			},
		})
	}

	return cmd
}

func newMemeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meme",
		Short: "Submit memes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "submit <battle-id> <file>",
		Short: "Pin an image and submit it to a battle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}

			f, err := a.flows(cmd.Context())
			if err != nil {
				return err
			}
			result, err := f.submit.Run(cmd.Context(), f.session, id, media.File{
				Name: filepath.Base(args[1]),
				Data: data,
			})
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(result)
			}
			if result.MemeID > 0 {
				fmt.Fprintf(a.stdout(), "Submitted meme %d to battle %d\n", result.MemeID, result.BattleID)
			} else {
				fmt.Fprintf(a.stdout(), "Submitted to battle %d\n", result.BattleID)
			}
			fmt.Fprintln(a.stdout(), result.URL)
			return nil
		},
	})

	return cmd
}

// schedule is a battle timeline in unix seconds
type schedule struct {
	submissionStart int64
	submissionEnd   int64
	votingEnd       int64
}

func buildSchedule(start string, now time.Time, submission, voting time.Duration) (schedule, error) {
	if submission <= 0 || voting <= 0 {
		return schedule{}, fmt.Errorf("submission and voting windows must be positive")
	}

	begin := now
	if start != "" && start != "now" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return schedule{}, fmt.Errorf("invalid start time %q: %w", start, err)
		}
		begin = t
	}

	submissionEnd := begin.Add(submission)
	return schedule{
		submissionStart: begin.Unix(),
		submissionEnd:   submissionEnd.Unix(),
		votingEnd:       submissionEnd.Add(voting).Unix(),
	}, nil
}
