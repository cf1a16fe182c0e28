package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&app{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "battlectl",
		Short:         "Read and drive MemeChain meme battles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.contractsPath, "contracts", "", "Path to contracts YAML (overrides CONTRACTS_CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&a.jsonOutput, "json", "j", false, "Print results as JSON")

	rootCmd.AddCommand(
		newBattlesCmd(a),
		newMemesCmd(a),
		newVoteCmd(a),
		newBalanceCmd(a),
		newBattleCmd(a),
		newPhaseCmd(a),
		newMemeCmd(a),
		newTokenCmd(a),
		newCacheCmd(a),
		newFlowsCmd(a),
	)

	return rootCmd
}
