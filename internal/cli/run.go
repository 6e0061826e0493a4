package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/rollcall/internal/domain/model"
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("game", "", "Game to run; defaults to the sole configured game")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Check in every enabled account once",
	Long: `Execute one check-in run: authenticate each enabled account, claim the
daily attendance reward when it is still unclaimed, and record the outcome.
Exits non-zero when any account fails, so schedulers can alert on it.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.requireSecretKey(); err != nil {
		return err
	}

	gameName, _ := cmd.Flags().GetString("game")
	game, err := app.resolveGame(gameName)
	if err != nil {
		return err
	}

	report, err := app.checkin.Run(ctx, game)
	if err != nil {
		return err
	}

	printReport(cmd.OutOrStdout(), report)

	if failed := report.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d accounts failed", failed, len(report.Results))
	}
	return nil
}

func printReport(w io.Writer, report *model.RunReport) {
	fmt.Fprintf(w, "%s: %d claimed, %d already claimed, %d failed in %s\n",
		report.GameName, report.Succeeded(), report.AlreadyClaimed(), report.Failed(),
		report.Duration().Round(time.Millisecond))

	if len(report.Results) == 0 {
		fmt.Fprintln(w, "no enabled accounts registered")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, res := range report.Results {
		day := ""
		if res.SignedDays > 0 {
			day = fmt.Sprintf("day %d", res.SignedDays)
		}
		detail := res.Detail
		if res.Outcome == model.OutcomeSuccess && res.Reward != "" {
			detail = res.Reward
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", res.Label, res.Outcome, day, detail)
	}
	_ = tw.Flush()
}
