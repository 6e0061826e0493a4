package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/rollcall/internal/domain/model"
	"github.com/ericfisherdev/rollcall/internal/domain/port/driven"
)

func putTestAccount(t *testing.T, repo *AccountRepo, accountID, token string) model.Account {
	t.Helper()
	acct, err := repo.PutAccount(context.Background(), testGame.Name, accountID, "acct "+accountID, token, model.TokenSession)
	require.NoError(t, err)
	return acct
}

func resultAt(outcome model.Outcome, at time.Time) model.CheckinResult {
	return model.CheckinResult{Outcome: outcome, Detail: "test", CreatedAt: at}
}

func TestAccountRepo_PutAndList(t *testing.T) {
	repo := newTestRepo(t, 0)
	ctx := context.Background()

	acct, err := repo.PutAccount(ctx, "endfield", "uid-1", "main", "raw-token", model.TokenSession)
	require.NoError(t, err)
	assert.NotZero(t, acct.ID)
	assert.Equal(t, "endfield", acct.GameName)
	assert.Equal(t, "uid-1", acct.AccountID)
	assert.Equal(t, "main", acct.Label)
	assert.Equal(t, model.TokenSession, acct.TokenKind)
	assert.True(t, acct.Enabled)
	assert.Empty(t, acct.LastCheckinDate)
	assert.Zero(t, acct.FailureCount)

	accounts, err := repo.Accounts(ctx, "endfield", false)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, acct.ID, accounts[0].ID)
}

func TestAccountRepo_PutUnknownGame(t *testing.T) {
	repo := newTestRepo(t, 0)

	_, err := repo.PutAccount(context.Background(), "nonexistent", "uid-1", "main", "raw-token", model.TokenSession)

	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrUnknownGame)
}

func TestAccountRepo_PutUpsertsExisting(t *testing.T) {
	repo := newTestRepo(t, 0)
	ctx := context.Background()

	first := putTestAccount(t, repo, "uid-1", "old-token")

	// Break the account, then re-register it.
	require.NoError(t, repo.UpdateAfterRun(ctx, first.ID, resultAt(model.OutcomeTransientError, time.Now())))
	require.NoError(t, repo.SetEnabled(ctx, first.ID, false))

	second, err := repo.PutAccount(ctx, "endfield", "uid-1", "renamed", "new-token", model.TokenCredential)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "re-registering must keep the row identity")
	assert.Equal(t, "renamed", second.Label)
	assert.Equal(t, model.TokenCredential, second.TokenKind)
	assert.True(t, second.Enabled)
	assert.Zero(t, second.FailureCount)

	token, err := repo.Token(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-token", token)
}

func TestAccountRepo_ListOrderAndFilters(t *testing.T) {
	repo := newTestRepo(t, 0)
	ctx := context.Background()

	a := putTestAccount(t, repo, "uid-1", "t1")
	b := putTestAccount(t, repo, "uid-2", "t2")
	c := putTestAccount(t, repo, "uid-3", "t3")
	require.NoError(t, repo.SetEnabled(ctx, b.ID, false))

	all, err := repo.Accounts(ctx, "", false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{a.ID, b.ID, c.ID}, []int64{all[0].ID, all[1].ID, all[2].ID})

	enabled, err := repo.Accounts(ctx, "endfield", true)
	require.NoError(t, err)
	require.Len(t, enabled, 2)
	assert.Equal(t, a.ID, enabled[0].ID)
	assert.Equal(t, c.ID, enabled[1].ID)

	none, err := repo.Accounts(ctx, "other-game", false)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAccountRepo_TokenRoundTrip(t *testing.T) {
	repo := newTestRepo(t, 0)
	ctx := context.Background()

	acct := putTestAccount(t, repo, "uid-1", "eyJhbGciOiJIUzI1NiJ9.secret.payload")

	token, err := repo.Token(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "eyJhbGciOiJIUzI1NiJ9.secret.payload", token)

	// The stored column must never contain the plaintext token.
	var stored string
	err = repo.db.Reader.QueryRowContext(ctx, `SELECT encrypted_token FROM accounts WHERE id = ?`, acct.ID).Scan(&stored)
	require.NoError(t, err)
	assert.NotContains(t, stored, "secret")
	assert.NotEqual(t, token, stored)
}

func TestAccountRepo_TokenWrongKey(t *testing.T) {
	repo := newTestRepo(t, 0)
	acct := putTestAccount(t, repo, "uid-1", "raw-token")

	otherKey := []byte("ffffffffffffffffffffffffffffffff")
	rotated := NewAccountRepo(repo.db, otherKey, 0)

	_, err := rotated.Token(context.Background(), acct.ID)

	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrDecryptFailed)
}

func TestAccountRepo_NoKeyConfigured(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccountRepo(db, nil, 0)
	require.NoError(t, repo.SyncGames(context.Background(), []model.Game{testGame}))

	_, err := repo.PutAccount(context.Background(), "endfield", "uid-1", "main", "raw-token", model.TokenSession)
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)

	_, err = repo.Token(context.Background(), 1)
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}

func TestAccountRepo_TokenMissingAccount(t *testing.T) {
	repo := newTestRepo(t, 0)

	_, err := repo.Token(context.Background(), 9999)

	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrAccountNotFound)
}

func TestAccountRepo_ReplaceToken(t *testing.T) {
	repo := newTestRepo(t, 0)
	ctx := context.Background()

	acct := putTestAccount(t, repo, "uid-1", "old-token")
	require.NoError(t, repo.UpdateAfterRun(ctx, acct.ID, resultAt(model.OutcomeTransientError, time.Now())))

	err := repo.ReplaceToken(ctx, acct.ID, "new-token", model.TokenSession)
	require.NoError(t, err)

	token, err := repo.Token(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-token", token)

	// Replacing the token is not a run outcome; the failure streak stays.
	accounts, err := repo.Accounts(ctx, "endfield", false)
	require.NoError(t, err)
	assert.Equal(t, 1, accounts[0].FailureCount)
}

func TestAccountRepo_ReplaceTokenMissingAccount(t *testing.T) {
	repo := newTestRepo(t, 0)

	err := repo.ReplaceToken(context.Background(), 9999, "new-token", model.TokenSession)

	assert.ErrorIs(t, err, driven.ErrAccountNotFound)
}

func TestAccountRepo_SetEnabledMissingAccount(t *testing.T) {
	repo := newTestRepo(t, 0)

	err := repo.SetEnabled(context.Background(), 9999, true)

	assert.ErrorIs(t, err, driven.ErrAccountNotFound)
}

func TestAccountRepo_UpdateAfterRun_Success(t *testing.T) {
	repo := newTestRepo(t, 0)
	ctx := context.Background()

	acct := putTestAccount(t, repo, "uid-1", "token")
	require.NoError(t, repo.UpdateAfterRun(ctx, acct.ID, resultAt(model.OutcomeTransientError, time.Now())))

	at := time.Date(2026, 8, 22, 10, 30, 0, 0, time.UTC)
	res := model.CheckinResult{Outcome: model.OutcomeSuccess, Reward: "Orundum x100", SignedDays: 5, Attempts: 1, CreatedAt: at}
	require.NoError(t, repo.UpdateAfterRun(ctx, acct.ID, res))

	accounts, err := repo.Accounts(ctx, "endfield", false)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-22", accounts[0].LastCheckinDate)
	assert.Zero(t, accounts[0].FailureCount, "success resets the failure streak")
}

func TestAccountRepo_UpdateAfterRun_DateNeverRegresses(t *testing.T) {
	repo := newTestRepo(t, 0)
	ctx := context.Background()

	acct := putTestAccount(t, repo, "uid-1", "token")

	newer := time.Date(2026, 8, 22, 1, 0, 0, 0, time.UTC)
	older := time.Date(2026, 8, 21, 23, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateAfterRun(ctx, acct.ID, resultAt(model.OutcomeSuccess, newer)))
	require.NoError(t, repo.UpdateAfterRun(ctx, acct.ID, resultAt(model.OutcomeSuccess, older)))

	accounts, err := repo.Accounts(ctx, "endfield", false)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-22", accounts[0].LastCheckinDate)
}

func TestAccountRepo_UpdateAfterRun_AlreadyClaimed(t *testing.T) {
	repo := newTestRepo(t, 0)
	ctx := context.Background()

	acct := putTestAccount(t, repo, "uid-1", "token")
	require.NoError(t, repo.UpdateAfterRun(ctx, acct.ID, resultAt(model.OutcomeTransientError, time.Now())))
	require.NoError(t, repo.UpdateAfterRun(ctx, acct.ID, resultAt(model.OutcomeAlreadyClaimed, time.Now())))

	accounts, err := repo.Accounts(ctx, "endfield", false)
	require.NoError(t, err)
	assert.Zero(t, accounts[0].FailureCount, "already-claimed resets the failure streak")
	assert.Empty(t, accounts[0].LastCheckinDate, "only a success advances the date")
}

func TestAccountRepo_UpdateAfterRun_FailureStreak(t *testing.T) {
	repo := newTestRepo(t, 0)
	ctx := context.Background()

	acct := putTestAccount(t, repo, "uid-1", "token")

	require.NoError(t, repo.UpdateAfterRun(ctx, acct.ID, resultAt(model.OutcomeTransientError, time.Now())))
	require.NoError(t, repo.UpdateAfterRun(ctx, acct.ID, resultAt(model.OutcomeFatalError, time.Now())))

	accounts, err := repo.Accounts(ctx, "endfield", false)
	require.NoError(t, err)
	assert.Equal(t, 2, accounts[0].FailureCount)
	assert.True(t, accounts[0].Enabled)

	// token_invalid does not extend the streak.
	require.NoError(t, repo.UpdateAfterRun(ctx, acct.ID, resultAt(model.OutcomeTokenInvalid, time.Now())))
	accounts, err = repo.Accounts(ctx, "endfield", false)
	require.NoError(t, err)
	assert.Equal(t, 2, accounts[0].FailureCount)
}

func TestAccountRepo_UpdateAfterRun_DisablesAtThreshold(t *testing.T) {
	repo := newTestRepo(t, 2)
	ctx := context.Background()

	acct := putTestAccount(t, repo, "uid-1", "token")

	require.NoError(t, repo.UpdateAfterRun(ctx, acct.ID, resultAt(model.OutcomeTransientError, time.Now())))
	accounts, err := repo.Accounts(ctx, "endfield", false)
	require.NoError(t, err)
	assert.True(t, accounts[0].Enabled)

	require.NoError(t, repo.UpdateAfterRun(ctx, acct.ID, resultAt(model.OutcomeTransientError, time.Now())))
	accounts, err = repo.Accounts(ctx, "endfield", false)
	require.NoError(t, err)
	assert.False(t, accounts[0].Enabled, "reaching the threshold disables the account")
	assert.Equal(t, 2, accounts[0].FailureCount)
}

func TestAccountRepo_UpdateAfterRun_MissingAccount(t *testing.T) {
	repo := newTestRepo(t, 0)

	err := repo.UpdateAfterRun(context.Background(), 9999, resultAt(model.OutcomeSuccess, time.Now()))

	assert.ErrorIs(t, err, driven.ErrAccountNotFound)
}

func TestAccountRepo_ResultsNewestFirst(t *testing.T) {
	repo := newTestRepo(t, 0)
	ctx := context.Background()

	acct := putTestAccount(t, repo, "uid-1", "token")

	base := time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateAfterRun(ctx, acct.ID, resultAt(model.OutcomeTransientError, base)))
	require.NoError(t, repo.UpdateAfterRun(ctx, acct.ID, resultAt(model.OutcomeSuccess, base.AddDate(0, 0, 1))))
	require.NoError(t, repo.UpdateAfterRun(ctx, acct.ID, resultAt(model.OutcomeAlreadyClaimed, base.AddDate(0, 0, 2))))

	results, err := repo.Results(ctx, acct.ID, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, model.OutcomeAlreadyClaimed, results[0].Outcome)
	assert.Equal(t, model.OutcomeSuccess, results[1].Outcome)
	assert.Equal(t, "endfield", results[0].GameName)
	assert.Equal(t, "acct uid-1", results[0].Label)
}

func TestAccountRepo_Stats(t *testing.T) {
	repo := newTestRepo(t, 0)
	ctx := context.Background()

	a := putTestAccount(t, repo, "uid-1", "t1")
	b := putTestAccount(t, repo, "uid-2", "t2")

	require.NoError(t, repo.UpdateAfterRun(ctx, a.ID, resultAt(model.OutcomeSuccess, time.Now())))
	require.NoError(t, repo.UpdateAfterRun(ctx, a.ID, resultAt(model.OutcomeAlreadyClaimed, time.Now())))
	require.NoError(t, repo.UpdateAfterRun(ctx, b.ID, resultAt(model.OutcomeTokenInvalid, time.Now())))
	require.NoError(t, repo.UpdateAfterRun(ctx, b.ID, resultAt(model.OutcomeTransientError, time.Now())))

	stats, err := repo.Stats(ctx, "endfield")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalResults)
	assert.Equal(t, 1, stats.Successes)
	assert.Equal(t, 1, stats.AlreadyClaimed)
	assert.Equal(t, 2, stats.Failures)
	assert.InDelta(t, 50.0, stats.SuccessRate(), 0.001)

	empty, err := repo.Stats(ctx, "other-game")
	require.NoError(t, err)
	assert.Zero(t, empty.TotalResults)
	assert.Zero(t, empty.SuccessRate())
}
