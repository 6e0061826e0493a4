package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/rollcall/internal/domain/model"
	"github.com/ericfisherdev/rollcall/internal/domain/port/driven"
)

// AccountService handles account registration and maintenance on behalf of
// the driving surfaces. Tokens are classified before storage so operators
// get immediate feedback on unusable credentials.
type AccountService struct {
	store     driven.CredentialStore
	validator *SessionValidator
}

// NewAccountService creates a new AccountService.
func NewAccountService(store driven.CredentialStore, validator *SessionValidator) *AccountService {
	return &AccountService{store: store, validator: validator}
}

// Register stores a credential for (gameName, accountID), replacing any
// existing one. The label defaults to the account id. A token that cannot
// authenticate check-in calls is stored anyway (re-registration is the fix
// for a bad paste) but logged so the operator notices before the next run.
func (s *AccountService) Register(ctx context.Context, gameName, accountID, label, rawToken string) (model.Account, error) {
	gameName = strings.TrimSpace(gameName)
	accountID = strings.TrimSpace(accountID)
	label = strings.TrimSpace(label)

	if gameName == "" {
		return model.Account{}, fmt.Errorf("game name is required")
	}
	if accountID == "" {
		return model.Account{}, fmt.Errorf("account id is required")
	}
	if strings.TrimSpace(rawToken) == "" {
		return model.Account{}, fmt.Errorf("token is required")
	}
	if label == "" {
		label = accountID
	}

	kind := s.validator.Classify(rawToken)
	acct, err := s.store.PutAccount(ctx, gameName, accountID, label, rawToken, kind)
	if err != nil {
		return model.Account{}, err
	}

	if kind != model.TokenSession {
		slog.Warn("registered token cannot authenticate check-in calls",
			"game", gameName, "account", label, "kind", string(kind))
	} else {
		slog.Info("account registered", "game", gameName, "account", label)
	}
	return acct, nil
}

// ReplaceToken swaps the stored token for an account, reclassifying it.
func (s *AccountService) ReplaceToken(ctx context.Context, accountID int64, rawToken string) (model.TokenKind, error) {
	if strings.TrimSpace(rawToken) == "" {
		return "", fmt.Errorf("token is required")
	}

	kind := s.validator.Classify(rawToken)
	if err := s.store.ReplaceToken(ctx, accountID, rawToken, kind); err != nil {
		return "", err
	}

	if kind != model.TokenSession {
		slog.Warn("replacement token cannot authenticate check-in calls",
			"account_id", accountID, "kind", string(kind))
	}
	return kind, nil
}

// SetEnabled toggles whether runs include the account.
func (s *AccountService) SetEnabled(ctx context.Context, accountID int64, enabled bool) error {
	return s.store.SetEnabled(ctx, accountID, enabled)
}

// List returns registered accounts. An empty gameName matches every game.
func (s *AccountService) List(ctx context.Context, gameName string, enabledOnly bool) ([]model.Account, error) {
	return s.store.Accounts(ctx, gameName, enabledOnly)
}

// History returns an account's most recent results, newest first.
func (s *AccountService) History(ctx context.Context, accountID int64, limit int) ([]model.CheckinResult, error) {
	return s.store.Results(ctx, accountID, limit)
}

// Stats aggregates stored results. An empty gameName matches every game.
func (s *AccountService) Stats(ctx context.Context, gameName string) (model.CheckinStats, error) {
	return s.store.Stats(ctx, gameName)
}
