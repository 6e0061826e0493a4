package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/rollcall/internal/domain/port/driven"
)

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.Flags().String("set-url", "", "Webhook URL to receive run reports")
	notifyCmd.Flags().Bool("clear", false, "Remove the stored webhook URL")
	notifyCmd.MarkFlagsMutuallyExclusive("set-url", "clear")
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Show or change the run report webhook",
	Long: `Every run posts its report to a webhook URL when one is configured. The
stored URL wins over ROLLCALL_WEBHOOK_URL; clearing it falls back to the
environment. Without flags, the current target is printed.`,
	Args: cobra.NoArgs,
	RunE: runNotify,
}

func runNotify(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.OutOrStdout()

	if clear, _ := cmd.Flags().GetBool("clear"); clear {
		if err := app.settings.Delete(ctx, driven.SettingWebhookURL); err != nil {
			return err
		}
		fmt.Fprintln(out, "stored webhook URL cleared")
		return nil
	}

	if raw, _ := cmd.Flags().GetString("set-url"); raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("webhook URL must be an absolute http(s) URL, got %q", raw)
		}
		if err := app.settings.Set(ctx, driven.SettingWebhookURL, raw); err != nil {
			return err
		}
		fmt.Fprintf(out, "run reports will be posted to %s\n", raw)
		return nil
	}

	stored, err := app.settings.Get(ctx, driven.SettingWebhookURL)
	if err != nil {
		return err
	}
	switch {
	case stored != "":
		fmt.Fprintf(out, "webhook: %s (stored)\n", stored)
	case app.cfg.WebhookURL != "":
		fmt.Fprintf(out, "webhook: %s (from ROLLCALL_WEBHOOK_URL)\n", app.cfg.WebhookURL)
	default:
		fmt.Fprintln(out, "no webhook configured; run reports are logged only")
	}
	return nil
}
