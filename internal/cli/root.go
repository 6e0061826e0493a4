// Package cli implements the rollcall command tree. Commands are thin
// wrappers over the application services; all of them share the same
// dependency wiring through newApp.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/rollcall/internal/adapter/driven/skport"
	"github.com/ericfisherdev/rollcall/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/rollcall/internal/adapter/driven/webhook"
	"github.com/ericfisherdev/rollcall/internal/application"
	"github.com/ericfisherdev/rollcall/internal/config"
	"github.com/ericfisherdev/rollcall/internal/domain/model"
)

var rootCmd = &cobra.Command{
	Use:   "rollcall",
	Short: "Daily check-in runner for game attendance rewards",
	Long: `rollcall claims daily attendance rewards for registered game accounts.

Configuration comes from ROLLCALL_* environment variables and a TOML games
catalog. rollcall has no scheduler of its own: point cron, a systemd timer,
or a container orchestrator at "rollcall run" or at POST /api/v1/runs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree. The context carries signal cancellation
// from main so a Ctrl-C interrupts an in-flight run or server.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// app bundles the wired dependencies a command needs. Every command builds
// the same graph so behavior cannot drift between the CLI and the server.
type app struct {
	cfg      *config.Config
	catalog  *config.Catalog
	db       *sqlite.DB
	settings *sqlite.SettingsRepo
	accounts *application.AccountService
	checkin  *application.CheckinService
}

// newApp loads configuration, opens the database, and wires the services.
// The caller owns the returned app and must Close it.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	catalog, err := config.LoadGames(cfg.GamesPath)
	if err != nil {
		return nil, err
	}

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	store := sqlite.NewAccountRepo(db, cfg.SecretKey, cfg.MaxFailures)
	if err := store.SyncGames(ctx, catalog.All()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("syncing games catalog: %w", err)
	}
	settings := sqlite.NewSettingsRepo(db)

	validator := application.NewSessionValidator()
	reporter := webhook.NewResolver(settings, cfg.WebhookURL)
	checkin := application.NewCheckinService(store, skport.NewClient(), validator, reporter, application.RunConfig{
		RetryAttempts: cfg.RetryAttempts,
		RetryBackoff:  cfg.RetryBackoff,
		RunTimeout:    cfg.RunTimeout,
		Workers:       cfg.Workers,
	})

	return &app{
		cfg:      cfg,
		catalog:  catalog,
		db:       db,
		settings: settings,
		accounts: application.NewAccountService(store, validator),
		checkin:  checkin,
	}, nil
}

// Close releases the database. Safe to defer immediately after newApp.
func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// requireSecretKey guards commands that read or write stored tokens. The
// check runs up front so the operator gets one clear message instead of a
// per-account failure.
func (a *app) requireSecretKey() error {
	if !a.cfg.HasSecretKey() {
		return errors.New("ROLLCALL_SECRET_KEY is not set; it is required to store or use account tokens")
	}
	return nil
}

// resolveGame maps a --game value to a catalog entry. An empty value is
// allowed only when exactly one game is configured.
func (a *app) resolveGame(name string) (model.Game, error) {
	if name == "" {
		game, ok := a.catalog.Sole()
		if !ok {
			return model.Game{}, errors.New("multiple games configured; pass --game")
		}
		return game, nil
	}
	game, ok := a.catalog.Get(name)
	if !ok {
		return model.Game{}, fmt.Errorf("unknown game %q; configured: %s", name, strings.Join(a.gameNames(), ", "))
	}
	return game, nil
}

func (a *app) gameNames() []string {
	games := a.catalog.All()
	names := make([]string, 0, len(games))
	for _, g := range games {
		names = append(names, g.Name)
	}
	return names
}
