package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().String("game", "", "Only count results for this game")
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize stored check-in history",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	gameName, _ := cmd.Flags().GetString("game")
	if gameName != "" {
		if _, ok := app.catalog.Get(gameName); !ok {
			return fmt.Errorf("unknown game %q", gameName)
		}
	}

	stats, err := app.accounts.Stats(ctx, gameName)
	if err != nil {
		return err
	}

	scope := stats.GameName
	if scope == "" {
		scope = "all games"
	}
	if stats.TotalResults == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: no check-in results recorded yet\n", scope)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d results, %d claimed, %d already claimed, %d failed (%.1f%% success)\n",
		scope, stats.TotalResults, stats.Successes, stats.AlreadyClaimed, stats.Failures, stats.SuccessRate())
	return nil
}
