package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsEnableCmd)
	accountsCmd.AddCommand(accountsDisableCmd)

	accountsCmd.Flags().String("game", "", "Only list accounts for this game")
	accountsCmd.Flags().Bool("all", false, "Include disabled accounts")
	accountsEnableCmd.Flags().Int64("account-id", 0, "Account id to enable (required)")
	_ = accountsEnableCmd.MarkFlagRequired("account-id")
	accountsDisableCmd.Flags().Int64("account-id", 0, "Account id to disable (required)")
	_ = accountsDisableCmd.MarkFlagRequired("account-id")
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List registered accounts",
	Long: `List registered accounts in registration order. Disabled accounts are
hidden unless --all is set. Listing needs no secret key; tokens stay
encrypted at rest.`,
	Args: cobra.NoArgs,
	RunE: runAccounts,
}

func runAccounts(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	gameName, _ := cmd.Flags().GetString("game")
	all, _ := cmd.Flags().GetBool("all")

	if gameName != "" {
		if _, ok := app.catalog.Get(gameName); !ok {
			return fmt.Errorf("unknown game %q", gameName)
		}
	}

	accounts, err := app.accounts.List(ctx, gameName, !all)
	if err != nil {
		return err
	}

	if len(accounts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no accounts to show; register one with \"rollcall register\"")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGAME\tACCOUNT\tLABEL\tTOKEN\tENABLED\tLAST CHECK-IN\tFAILURES")
	for _, a := range accounts {
		last := a.LastCheckinDate
		if last == "" {
			last = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%t\t%s\t%d\n",
			a.ID, a.GameName, a.AccountID, a.Label, a.TokenKind, a.Enabled, last, a.FailureCount)
	}
	return tw.Flush()
}

var accountsEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Include an account in runs again",
	Long: `Re-enable a disabled account. Enabling does not reset the failure streak;
replacing the token does.`,
	Args: cobra.NoArgs,
	RunE: runAccountsEnable,
}

func runAccountsEnable(cmd *cobra.Command, _ []string) error {
	return setAccountEnabled(cmd, true)
}

var accountsDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Exclude an account from runs",
	Args:  cobra.NoArgs,
	RunE:  runAccountsDisable,
}

func runAccountsDisable(cmd *cobra.Command, _ []string) error {
	return setAccountEnabled(cmd, false)
}

func setAccountEnabled(cmd *cobra.Command, enabled bool) error {
	ctx := cmd.Context()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	accountID, _ := cmd.Flags().GetInt64("account-id")
	if err := app.accounts.SetEnabled(ctx, accountID, enabled); err != nil {
		return err
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "account %d %s\n", accountID, state)
	return nil
}
