package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ericfisherdev/rollcall/internal/domain/model"
	"github.com/ericfisherdev/rollcall/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunReporter = (*Resolver)(nil)

// Resolver resolves the delivery URL at report time, so a URL stored through
// the settings endpoint takes effect without a restart. The configured
// fallback applies when no setting is stored; with neither, reports are
// silently skipped.
type Resolver struct {
	settings driven.SettingsStore
	fallback string
	http     *http.Client
}

// NewResolver creates a resolver over the settings store with an optional
// fallback URL from configuration.
func NewResolver(settings driven.SettingsStore, fallback string) *Resolver {
	return &Resolver{
		settings: settings,
		fallback: fallback,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// NewResolverWithHTTPClient creates a Resolver with a custom http.Client.
// This constructor is intended for testing.
func NewResolverWithHTTPClient(settings driven.SettingsStore, fallback string, httpClient *http.Client) *Resolver {
	return &Resolver{settings: settings, fallback: fallback, http: httpClient}
}

// Report delivers the run report to the currently configured URL, if any.
func (r *Resolver) Report(ctx context.Context, report model.RunReport) error {
	url, err := r.settings.Get(ctx, driven.SettingWebhookURL)
	if err != nil {
		return fmt.Errorf("resolving webhook url: %w", err)
	}
	if url == "" {
		url = r.fallback
	}
	if url == "" {
		return nil
	}

	return NewReporterWithHTTPClient(url, r.http).Report(ctx, report)
}
