package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/rollcall/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations when
// ROLLCALL_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set ROLLCALL_SECRET_KEY")

// ErrDecryptFailed is returned by Token when a stored token cannot be
// decrypted, which happens after a key rotation or row corruption. The
// account needs its credential re-registered.
var ErrDecryptFailed = errors.New("stored token failed to decrypt")

// ErrUnknownGame is returned when an operation names a game that is not in
// the catalog.
var ErrUnknownGame = errors.New("unknown game")

// ErrAccountNotFound is returned when an operation references an account
// that does not exist.
var ErrAccountNotFound = errors.New("account not found")

// CredentialStore defines the driven port for encrypted account credential
// and check-in history persistence. The adapter layer owns encryption;
// plaintext tokens cross this boundary only as inputs to PutAccount and
// ReplaceToken and as the lazily decrypted result of Token.
type CredentialStore interface {
	// PutAccount registers the credential for (gameName, accountID) or
	// replaces it if one exists, re-enabling the account and resetting its
	// failure streak. Returns ErrUnknownGame if the game is not in the
	// catalog and ErrEncryptionKeyNotSet if the adapter was constructed
	// without an encryption key.
	PutAccount(ctx context.Context, gameName, accountID, label, rawToken string, kind model.TokenKind) (model.Account, error)

	// Accounts returns registered accounts in registration order. An empty
	// gameName matches every game. With enabledOnly set, disabled accounts
	// are excluded.
	Accounts(ctx context.Context, gameName string, enabledOnly bool) ([]model.Account, error)

	// Token decrypts and returns the stored token for the account. Returns
	// ErrDecryptFailed when the ciphertext cannot be opened with the
	// configured key.
	Token(ctx context.Context, accountID int64) (string, error)

	// ReplaceToken swaps the stored token for the account, leaving its
	// history and failure streak untouched.
	ReplaceToken(ctx context.Context, accountID int64, rawToken string, kind model.TokenKind) error

	// SetEnabled toggles whether runs include the account.
	SetEnabled(ctx context.Context, accountID int64, enabled bool) error

	// UpdateAfterRun appends the result to the account's history and, in
	// the same transaction, maintains the account row: a success advances
	// the last check-in date (never backwards), any successful outcome
	// resets the failure streak, transient and fatal failures extend it,
	// and an account whose streak reaches the disable threshold is
	// disabled. A token_invalid outcome leaves the streak unchanged.
	UpdateAfterRun(ctx context.Context, accountID int64, result model.CheckinResult) error

	// Results returns the account's most recent results, newest first.
	Results(ctx context.Context, accountID int64, limit int) ([]model.CheckinResult, error)

	// Stats aggregates stored results. An empty gameName matches every game.
	Stats(ctx context.Context, gameName string) (model.CheckinStats, error)
}
