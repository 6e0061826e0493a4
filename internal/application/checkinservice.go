// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/rollcall/internal/domain/model"
	"github.com/ericfisherdev/rollcall/internal/domain/port/driven"
)

// persistTimeout bounds the result write after an account finishes, so a
// run-level timeout cannot turn a decided outcome into a lost row.
const persistTimeout = 10 * time.Second

// RunConfig bounds one run of the check-in state machine.
type RunConfig struct {
	RetryAttempts int           // Total tries per retryable remote operation.
	RetryBackoff  time.Duration // Base of the increasing delay between tries.
	RunTimeout    time.Duration // Wall-clock bound for one whole run; 0 means unbounded.
	Workers       int           // Accounts processed concurrently.
}

// CheckinService drives one check-in run across the enabled accounts of a
// game. It holds no durable state of its own; everything that survives a
// run lives behind the credential store.
type CheckinService struct {
	store     driven.CredentialStore
	client    driven.AttendanceClient
	validator *SessionValidator
	reporter  driven.RunReporter // Optional; nil disables report delivery.
	cfg       RunConfig

	mu    sync.Mutex
	locks map[int64]*sync.Mutex // Serializes overlapping runs per account.
}

// NewCheckinService creates a new CheckinService. reporter may be nil.
func NewCheckinService(
	store driven.CredentialStore,
	client driven.AttendanceClient,
	validator *SessionValidator,
	reporter driven.RunReporter,
	cfg RunConfig,
) *CheckinService {
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	return &CheckinService{
		store:     store,
		client:    client,
		validator: validator,
		reporter:  reporter,
		cfg:       cfg,
		locks:     make(map[int64]*sync.Mutex),
	}
}

// Run executes the check-in state machine for every enabled account of the
// game and returns the ordered report. Per-account problems become result
// outcomes, never a run error; the returned error covers only run-level
// failures such as being unable to load the account list.
func (s *CheckinService) Run(ctx context.Context, game model.Game) (*model.RunReport, error) {
	started := time.Now().UTC()

	accounts, err := s.store.Accounts(ctx, game.Name, true)
	if err != nil {
		return nil, fmt.Errorf("load accounts for %s: %w", game.Name, err)
	}

	runCtx := ctx
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	// Results land by index so the report keeps account load order no
	// matter which worker finishes first.
	results := make([]model.CheckinResult, len(accounts))
	sem := make(chan struct{}, s.cfg.Workers)
	var wg sync.WaitGroup

	for i, acct := range accounts {
		wg.Add(1)
		go func(i int, acct model.Account) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-runCtx.Done():
				// Fall through; the account records a timeout outcome.
			}
			results[i] = s.checkinAccount(runCtx, game, acct)
		}(i, acct)
	}
	wg.Wait()

	report := &model.RunReport{
		GameName:   game.Name,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Results:    results,
	}

	slog.Info("run complete",
		"game", game.Name,
		"accounts", len(accounts),
		"succeeded", report.Succeeded(),
		"already_claimed", report.AlreadyClaimed(),
		"failed", report.Failed(),
		"duration", report.Duration().Round(time.Millisecond),
	)

	if s.reporter != nil {
		if err := s.reporter.Report(ctx, *report); err != nil {
			slog.Error("report delivery failed", "game", game.Name, "error", err)
		}
	}

	return report, nil
}

// checkinAccount runs the state machine for one account and persists its
// result. The per-account lock keeps overlapping runs from interleaving
// remote calls for the same account.
func (s *CheckinService) checkinAccount(ctx context.Context, game model.Game, acct model.Account) model.CheckinResult {
	lock := s.accountLock(acct.ID)
	lock.Lock()
	defer lock.Unlock()

	var result model.CheckinResult
	if err := ctx.Err(); err != nil {
		result = model.CheckinResult{
			Outcome: model.OutcomeTransientError,
			Detail:  "run timed out before this account was attempted",
		}
	} else {
		result = s.attemptCheckin(ctx, game, acct)
	}

	result.AccountID = acct.ID
	result.GameName = game.Name
	result.Label = acct.Label
	result.CreatedAt = time.Now().UTC()

	// Persist on a context detached from the run deadline: the outcome is
	// already decided and must reach the history even when the run budget
	// has just expired.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.store.UpdateAfterRun(persistCtx, acct.ID, result); err != nil {
		slog.Error("persist result failed", "game", game.Name, "account", acct.Label, "error", err)
		result.Outcome = model.OutcomeFatalError
		result.Reward = ""
		result.Detail = fmt.Sprintf("result not persisted: %v", err)
	}

	s.logResult(game, acct, result)
	return result
}

// attemptCheckin walks one account through decrypt, classify, authenticate,
// status check, and claim, translating every failure into an outcome.
func (s *CheckinService) attemptCheckin(ctx context.Context, game model.Game, acct model.Account) model.CheckinResult {
	raw, err := s.store.Token(ctx, acct.ID)
	if err != nil {
		if errors.Is(err, driven.ErrDecryptFailed) {
			return model.CheckinResult{
				Outcome: model.OutcomeTokenInvalid,
				Detail:  "stored token failed to decrypt; re-register the credential",
			}
		}
		return model.CheckinResult{
			Outcome: model.OutcomeFatalError,
			Detail:  fmt.Sprintf("load token: %v", err),
		}
	}

	if kind := s.validator.Classify(raw); kind != model.TokenSession {
		return model.CheckinResult{
			Outcome: model.OutcomeTokenInvalid,
			Detail:  fmt.Sprintf("token kind %s cannot authenticate check-in calls", kind),
		}
	}

	var session model.GameSession
	attempts, err := s.callRemote(ctx, func(ctx context.Context) error {
		var aerr error
		session, aerr = s.client.Authenticate(ctx, game, raw)
		return aerr
	})
	if err != nil {
		return remoteFailure("authenticate", err, attempts)
	}

	var status model.AttendanceStatus
	attempts, err = s.callRemote(ctx, func(ctx context.Context) error {
		var serr error
		status, serr = s.client.CheckStatus(ctx, game, session)
		return serr
	})
	if err != nil {
		return remoteFailure("check status", err, attempts)
	}

	if status.State == model.AttendanceAlreadyClaimed {
		return model.CheckinResult{
			Outcome:    model.OutcomeAlreadyClaimed,
			Detail:     "attendance already claimed today",
			SignedDays: status.SignedDays,
			Attempts:   attempts,
		}
	}

	var claim model.ClaimResult
	attempts, err = s.callRemote(ctx, func(ctx context.Context) error {
		var cerr error
		claim, cerr = s.client.Claim(ctx, game, session)
		return cerr
	})
	if err != nil {
		return remoteFailure("claim", err, attempts)
	}

	if claim.State == model.ClaimAlreadyClaimed {
		// Someone claimed between our status check and the claim call.
		return model.CheckinResult{
			Outcome:    model.OutcomeAlreadyClaimed,
			Detail:     "attendance claimed by an earlier run",
			SignedDays: status.SignedDays,
			Attempts:   attempts,
		}
	}

	return model.CheckinResult{
		Outcome:    model.OutcomeSuccess,
		Reward:     claim.Reward,
		Detail:     "claimed today's attendance",
		SignedDays: status.SignedDays + 1,
		Attempts:   attempts,
	}
}

// callRemote invokes fn up to the configured try budget with an increasing
// delay between tries. Credential rejections return immediately; retrying
// cannot make a bad token good.
func (s *CheckinService) callRemote(ctx context.Context, fn func(context.Context) error) (int, error) {
	var err error
	for attempt := 1; attempt <= s.cfg.RetryAttempts; attempt++ {
		err = fn(ctx)
		if err == nil || errors.Is(err, driven.ErrAuthRejected) {
			return attempt, err
		}
		if attempt == s.cfg.RetryAttempts {
			return attempt, err
		}
		if !sleepContext(ctx, time.Duration(attempt)*s.cfg.RetryBackoff) {
			return attempt, err
		}
	}
	return s.cfg.RetryAttempts, err
}

// remoteFailure maps a remote error class to its outcome: credential
// rejection marks the token invalid, everything else is transient and
// eligible for the next scheduled run.
func remoteFailure(op string, err error, attempts int) model.CheckinResult {
	outcome := model.OutcomeTransientError
	if errors.Is(err, driven.ErrAuthRejected) {
		outcome = model.OutcomeTokenInvalid
	}
	return model.CheckinResult{
		Outcome:  outcome,
		Detail:   fmt.Sprintf("%s: %v", op, err),
		Attempts: attempts,
	}
}

func (s *CheckinService) logResult(game model.Game, acct model.Account, result model.CheckinResult) {
	switch result.Outcome {
	case model.OutcomeSuccess:
		slog.Info("check-in succeeded",
			"game", game.Name, "account", acct.Label,
			"reward", result.Reward, "signed_days", result.SignedDays)
	case model.OutcomeAlreadyClaimed:
		slog.Info("attendance already claimed",
			"game", game.Name, "account", acct.Label, "signed_days", result.SignedDays)
	case model.OutcomeTokenInvalid:
		slog.Warn("check-in skipped, credential unusable",
			"game", game.Name, "account", acct.Label, "detail", result.Detail)
	default:
		slog.Error("check-in failed",
			"game", game.Name, "account", acct.Label,
			"outcome", string(result.Outcome), "detail", result.Detail, "attempts", result.Attempts)
	}
}

// accountLock returns the mutex for an account, creating it on first use.
func (s *CheckinService) accountLock(accountID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[accountID] = lock
	}
	return lock
}

// sleepContext waits for d or until the context is done. Returns false when
// the context ended the wait.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
