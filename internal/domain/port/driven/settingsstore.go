// Package driven defines secondary port interfaces for external adapters.
package driven

import "context"

// SettingsStore defines the driven port for small operator-set runtime
// settings, such as the report webhook destination.
type SettingsStore interface {
	Set(ctx context.Context, key, value string) error
	// Get returns ("", nil) when the key has never been set.
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Setting keys the application uses.
const (
	// SettingWebhookURL overrides the configured report webhook URL.
	SettingWebhookURL = "webhook_url"
)
