package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/rollcall/internal/domain/model"
	"github.com/ericfisherdev/rollcall/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*AccountRepo)(nil)

// AccountRepo is the SQLite implementation of the CredentialStore port.
// Tokens are encrypted with AES-256-GCM before write and decrypted lazily,
// one account at a time, on read.
type AccountRepo struct {
	db          *DB
	key         []byte // 32-byte AES-256 key; nil when encryption is disabled.
	maxFailures int    // Consecutive-failure threshold that disables an account; 0 disables the check.
}

// NewAccountRepo creates a new AccountRepo. key must be 32 bytes for
// AES-256-GCM, or nil to disable token storage (credential operations will
// return ErrEncryptionKeyNotSet).
func NewAccountRepo(db *DB, key []byte, maxFailures int) *AccountRepo {
	return &AccountRepo{db: db, key: key, maxFailures: maxFailures}
}

// SyncGames upserts the games catalog into the games table so account rows
// have their foreign key target. Games removed from the catalog are kept;
// existing accounts and history stay resolvable.
func (r *AccountRepo) SyncGames(ctx context.Context, games []model.Game) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin games sync: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO games (name, display_name, base_url, status_path, claim_path, required_token)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			display_name = excluded.display_name,
			base_url = excluded.base_url,
			status_path = excluded.status_path,
			claim_path = excluded.claim_path,
			required_token = excluded.required_token
	`
	for _, game := range games {
		if _, err := tx.ExecContext(ctx, query,
			game.Name, game.DisplayName, game.BaseURL, game.StatusPath, game.ClaimPath, string(game.RequiredToken),
		); err != nil {
			return fmt.Errorf("sync game %q: %w", game.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit games sync: %w", err)
	}
	return nil
}

// PutAccount registers or replaces the credential for (gameName, accountID).
// Replacing re-enables the account and resets its failure streak; history
// rows are untouched.
func (r *AccountRepo) PutAccount(ctx context.Context, gameName, accountID, label, rawToken string, kind model.TokenKind) (model.Account, error) {
	encrypted, err := r.encrypt(rawToken)
	if err != nil {
		return model.Account{}, err
	}

	var known int
	if err := r.db.Reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM games WHERE name = ?`, gameName).Scan(&known); err != nil {
		return model.Account{}, fmt.Errorf("look up game %q: %w", gameName, err)
	}
	if known == 0 {
		return model.Account{}, fmt.Errorf("%w: %q", driven.ErrUnknownGame, gameName)
	}

	const query = `
		INSERT INTO accounts (game_name, account_id, label, encrypted_token, token_kind, enabled, failure_count)
		VALUES (?, ?, ?, ?, ?, 1, 0)
		ON CONFLICT(game_name, account_id) DO UPDATE SET
			label = excluded.label,
			encrypted_token = excluded.encrypted_token,
			token_kind = excluded.token_kind,
			enabled = 1,
			failure_count = 0,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.Writer.ExecContext(ctx, query, gameName, accountID, label, encrypted, string(kind)); err != nil {
		return model.Account{}, fmt.Errorf("put account %s/%s: %w", gameName, accountID, err)
	}

	const sel = selectAccountColumns + ` WHERE game_name = ? AND account_id = ?`
	acct, err := scanAccount(r.db.Reader.QueryRowContext(ctx, sel, gameName, accountID))
	if err != nil {
		return model.Account{}, fmt.Errorf("read back account %s/%s: %w", gameName, accountID, err)
	}
	return acct, nil
}

// Accounts returns registered accounts in registration order. An empty
// gameName matches every game.
func (r *AccountRepo) Accounts(ctx context.Context, gameName string, enabledOnly bool) ([]model.Account, error) {
	query := selectAccountColumns
	var conditions []string
	var args []any
	if gameName != "" {
		conditions = append(conditions, "game_name = ?")
		args = append(args, gameName)
	}
	if enabledOnly {
		conditions = append(conditions, "enabled = 1")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

// Token decrypts and returns the stored token for the account.
func (r *AccountRepo) Token(ctx context.Context, accountID int64) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT encrypted_token FROM accounts WHERE id = ?`
	var encrypted string
	err := r.db.Reader.QueryRowContext(ctx, query, accountID).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("account %d: %w", accountID, driven.ErrAccountNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get token for account %d: %w", accountID, err)
	}

	plaintext, err := r.decrypt(encrypted)
	if err != nil {
		return "", fmt.Errorf("account %d: %w: %v", accountID, driven.ErrDecryptFailed, err)
	}
	return plaintext, nil
}

// ReplaceToken swaps the stored token, leaving history and the failure
// streak untouched.
func (r *AccountRepo) ReplaceToken(ctx context.Context, accountID int64, rawToken string, kind model.TokenKind) error {
	encrypted, err := r.encrypt(rawToken)
	if err != nil {
		return err
	}

	const query = `UPDATE accounts SET encrypted_token = ?, token_kind = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.Writer.ExecContext(ctx, query, encrypted, string(kind), accountID)
	if err != nil {
		return fmt.Errorf("replace token for account %d: %w", accountID, err)
	}
	return requireRow(res, accountID)
}

// SetEnabled toggles whether runs include the account.
func (r *AccountRepo) SetEnabled(ctx context.Context, accountID int64, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}

	const query = `UPDATE accounts SET enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.Writer.ExecContext(ctx, query, v, accountID)
	if err != nil {
		return fmt.Errorf("set enabled for account %d: %w", accountID, err)
	}
	return requireRow(res, accountID)
}

// UpdateAfterRun appends the result to the account's history and maintains
// the account row in the same transaction: a success advances the
// last check-in date (never backwards), successful outcomes reset the
// failure streak, transient and fatal failures extend it, and reaching the
// disable threshold disables the account. A token_invalid outcome leaves
// the streak unchanged.
func (r *AccountRepo) UpdateAfterRun(ctx context.Context, accountID int64, result model.CheckinResult) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run update: %w", err)
	}
	defer tx.Rollback()

	var failures, enabled int
	err = tx.QueryRowContext(ctx, `SELECT failure_count, enabled FROM accounts WHERE id = ?`, accountID).Scan(&failures, &enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("account %d: %w", accountID, driven.ErrAccountNotFound)
	}
	if err != nil {
		return fmt.Errorf("load account %d: %w", accountID, err)
	}

	const insert = `
		INSERT INTO checkin_results (account_id, outcome, reward, detail, signed_days, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, insert,
		accountID, string(result.Outcome), result.Reward, result.Detail,
		result.SignedDays, result.Attempts, result.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("insert result for account %d: %w", accountID, err)
	}

	disabled := false
	switch result.Outcome {
	case model.OutcomeSuccess:
		date := result.CreatedAt.UTC().Format("2006-01-02")
		const update = `
			UPDATE accounts SET
				last_checkin_date = CASE
					WHEN last_checkin_date IS NULL OR last_checkin_date < ? THEN ?
					ELSE last_checkin_date
				END,
				failure_count = 0,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`
		if _, err := tx.ExecContext(ctx, update, date, date, accountID); err != nil {
			return fmt.Errorf("record success for account %d: %w", accountID, err)
		}

	case model.OutcomeAlreadyClaimed:
		const update = `UPDATE accounts SET failure_count = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
		if _, err := tx.ExecContext(ctx, update, accountID); err != nil {
			return fmt.Errorf("record already-claimed for account %d: %w", accountID, err)
		}

	case model.OutcomeTransientError, model.OutcomeFatalError:
		failures++
		if r.maxFailures > 0 && failures >= r.maxFailures && enabled == 1 {
			enabled = 0
			disabled = true
		}
		const update = `UPDATE accounts SET failure_count = ?, enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
		if _, err := tx.ExecContext(ctx, update, failures, enabled, accountID); err != nil {
			return fmt.Errorf("record failure for account %d: %w", accountID, err)
		}

	case model.OutcomeTokenInvalid:
		const update = `UPDATE accounts SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`
		if _, err := tx.ExecContext(ctx, update, accountID); err != nil {
			return fmt.Errorf("record token-invalid for account %d: %w", accountID, err)
		}

	default:
		return fmt.Errorf("account %d: unknown outcome %q", accountID, result.Outcome)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run update for account %d: %w", accountID, err)
	}

	if disabled {
		slog.Warn("account disabled after repeated failures",
			"account_id", accountID, "failures", failures, "threshold", r.maxFailures)
	}
	return nil
}

// Results returns the account's most recent results, newest first.
func (r *AccountRepo) Results(ctx context.Context, accountID int64, limit int) ([]model.CheckinResult, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT cr.id, cr.account_id, a.game_name, a.label, cr.outcome, cr.reward,
		       cr.detail, cr.signed_days, cr.attempts, cr.created_at
		FROM checkin_results cr
		JOIN accounts a ON a.id = cr.account_id
		WHERE cr.account_id = ?
		ORDER BY cr.id DESC
		LIMIT ?
	`
	rows, err := r.db.Reader.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list results for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var results []model.CheckinResult
	for rows.Next() {
		var res model.CheckinResult
		var outcome, createdAt string
		if err := rows.Scan(&res.ID, &res.AccountID, &res.GameName, &res.Label,
			&outcome, &res.Reward, &res.Detail, &res.SignedDays, &res.Attempts, &createdAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		res.Outcome = model.Outcome(outcome)
		if res.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at for result %d: %w", res.ID, err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	return results, nil
}

// Stats aggregates stored results. An empty gameName matches every game.
func (r *AccountRepo) Stats(ctx context.Context, gameName string) (model.CheckinStats, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN cr.outcome = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN cr.outcome = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN cr.outcome IN (?, ?, ?) THEN 1 ELSE 0 END), 0)
		FROM checkin_results cr
		JOIN accounts a ON a.id = cr.account_id
	`
	args := []any{
		string(model.OutcomeSuccess),
		string(model.OutcomeAlreadyClaimed),
		string(model.OutcomeTokenInvalid),
		string(model.OutcomeTransientError),
		string(model.OutcomeFatalError),
	}
	if gameName != "" {
		query += " WHERE a.game_name = ?"
		args = append(args, gameName)
	}

	stats := model.CheckinStats{GameName: gameName}
	err := r.db.Reader.QueryRowContext(ctx, query, args...).
		Scan(&stats.TotalResults, &stats.Successes, &stats.AlreadyClaimed, &stats.Failures)
	if err != nil {
		return model.CheckinStats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	return stats, nil
}

const selectAccountColumns = `
	SELECT id, game_name, account_id, label, token_kind, enabled,
	       COALESCE(last_checkin_date, ''), failure_count, created_at, updated_at
	FROM accounts
`

// scanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (model.Account, error) {
	var acct model.Account
	var kind string
	var enabled int
	var createdAt, updatedAt string

	err := s.Scan(&acct.ID, &acct.GameName, &acct.AccountID, &acct.Label, &kind,
		&enabled, &acct.LastCheckinDate, &acct.FailureCount, &createdAt, &updatedAt)
	if err != nil {
		return model.Account{}, err
	}

	acct.TokenKind = model.TokenKind(kind)
	acct.Enabled = enabled == 1
	if acct.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Account{}, fmt.Errorf("parse created_at: %w", err)
	}
	if acct.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Account{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return acct, nil
}

// requireRow converts a zero-row UPDATE into ErrAccountNotFound.
func requireRow(res sql.Result, accountID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for account %d: %w", accountID, err)
	}
	if n == 0 {
		return fmt.Errorf("account %d: %w", accountID, driven.ErrAccountNotFound)
	}
	return nil
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded
// string containing the nonce (12 bytes) prepended to the ciphertext.
func (r *AccountRepo) encrypt(plaintext string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *AccountRepo) decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}
