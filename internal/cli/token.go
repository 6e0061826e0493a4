package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().Int64("account-id", 0, "Account id as shown by \"rollcall accounts\" (required)")
	tokenCmd.Flags().String("token-file", "", "File containing the token; stdin is read when omitted")
	_ = tokenCmd.MarkFlagRequired("account-id")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Replace a stored account token",
	Long: `Replace the stored token for one account, keeping its history and failure
streak. Use this when a session token expires. The token is read from
--token-file or stdin, never from an argument.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func runToken(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.requireSecretKey(); err != nil {
		return err
	}

	accountID, _ := cmd.Flags().GetInt64("account-id")

	token, err := readToken(cmd)
	if err != nil {
		return err
	}

	kind, err := app.accounts.ReplaceToken(ctx, accountID, token)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "token replaced for account %d (kind %s)\n", accountID, kind)
	warnNonSession(cmd.ErrOrStderr(), kind)
	return nil
}
