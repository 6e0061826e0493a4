package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/rollcall/internal/domain/model"
)

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().String("game", "", "Game the account belongs to; defaults to the sole configured game")
	registerCmd.Flags().String("account", "", "External account identifier (required)")
	registerCmd.Flags().String("label", "", "Display label; defaults to the account identifier")
	registerCmd.Flags().String("token-file", "", "File containing the token; stdin is read when omitted")
	_ = registerCmd.MarkFlagRequired("account")
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register an account credential",
	Long: `Register a game account and its token for daily check-ins. The token is
read from --token-file or stdin, never from an argument, and is stored
encrypted. Registering an existing account again replaces its token and
re-enables it.`,
	Args: cobra.NoArgs,
	RunE: runRegister,
}

func runRegister(cmd *cobra.Command, _ []string) error {
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

	accountID, _ := cmd.Flags().GetString("account")
	label, _ := cmd.Flags().GetString("label")

	token, err := readToken(cmd)
	if err != nil {
		return err
	}

	account, err := app.accounts.Register(ctx, game.Name, accountID, label, token)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "registered %s account %q (id %d, token kind %s)\n",
		account.GameName, account.Label, account.ID, account.TokenKind)
	warnNonSession(cmd.ErrOrStderr(), account.TokenKind)
	return nil
}

// readToken reads the credential from --token-file or stdin. Tokens never
// travel through arguments or flag values, where they would land in shell
// history and the process table.
func readToken(cmd *cobra.Command) (string, error) {
	var (
		data []byte
		err  error
	)
	if path, _ := cmd.Flags().GetString("token-file"); path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading token file: %w", err)
		}
	} else {
		if info, statErr := os.Stdin.Stat(); statErr == nil && info.Mode()&os.ModeCharDevice != 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "Paste the token, then press Enter and Ctrl-D:")
		}
		data, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading token from stdin: %w", err)
		}
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", errors.New("no token provided; pipe it on stdin or pass --token-file")
	}
	return token, nil
}

// warnNonSession nudges the operator when a stored token can never pass
// authentication.
func warnNonSession(w io.Writer, kind model.TokenKind) {
	if kind == model.TokenSession {
		return
	}
	fmt.Fprintf(w, "warning: a %s token cannot authenticate check-in calls; runs will report token_invalid until a session token replaces it\n", kind)
}
