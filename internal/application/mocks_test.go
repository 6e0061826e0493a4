package application_test

import (
	"context"
	"sync"

	"github.com/ericfisherdev/rollcall/internal/domain/model"
)

// --- Mock implementations shared by the application tests ---

type putCall struct {
	gameName  string
	accountID string
	label     string
	rawToken  string
	kind      model.TokenKind
}

type updateCall struct {
	accountID int64
	result    model.CheckinResult
}

type mockStore struct {
	mu sync.Mutex

	accounts  []model.Account
	tokens    map[int64]string
	tokenErrs map[int64]error
	listErr   error
	updateErr error
	putErr    error

	puts         []putCall
	updates      []updateCall
	replaceKinds map[int64]model.TokenKind
	enabledSets  map[int64]bool
}

func newMockStore() *mockStore {
	return &mockStore{
		tokens:       make(map[int64]string),
		tokenErrs:    make(map[int64]error),
		replaceKinds: make(map[int64]model.TokenKind),
		enabledSets:  make(map[int64]bool),
	}
}

func (m *mockStore) PutAccount(_ context.Context, gameName, accountID, label, rawToken string, kind model.TokenKind) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return model.Account{}, m.putErr
	}
	m.puts = append(m.puts, putCall{gameName, accountID, label, rawToken, kind})
	return model.Account{
		ID:        int64(len(m.puts)),
		GameName:  gameName,
		AccountID: accountID,
		Label:     label,
		TokenKind: kind,
		Enabled:   true,
	}, nil
}

func (m *mockStore) Accounts(_ context.Context, _ string, _ bool) ([]model.Account, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.accounts, nil
}

func (m *mockStore) Token(_ context.Context, accountID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.tokenErrs[accountID]; err != nil {
		return "", err
	}
	return m.tokens[accountID], nil
}

func (m *mockStore) ReplaceToken(_ context.Context, accountID int64, _ string, kind model.TokenKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceKinds[accountID] = kind
	return nil
}

func (m *mockStore) SetEnabled(_ context.Context, accountID int64, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabledSets[accountID] = enabled
	return nil
}

func (m *mockStore) UpdateAfterRun(_ context.Context, accountID int64, result model.CheckinResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates = append(m.updates, updateCall{accountID, result})
	return nil
}

func (m *mockStore) Results(_ context.Context, _ int64, _ int) ([]model.CheckinResult, error) {
	return nil, nil
}

func (m *mockStore) Stats(_ context.Context, gameName string) (model.CheckinStats, error) {
	return model.CheckinStats{GameName: gameName}, nil
}

func (m *mockStore) recordedUpdates() []updateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]updateCall(nil), m.updates...)
}

type mockClient struct {
	mu sync.Mutex

	authenticate func(ctx context.Context, game model.Game, token string) (model.GameSession, error)
	checkStatus  func(ctx context.Context, game model.Game, session model.GameSession) (model.AttendanceStatus, error)
	claim        func(ctx context.Context, game model.Game, session model.GameSession) (model.ClaimResult, error)

	authCalls   int
	statusCalls int
	claimCalls  int
}

// Authenticate defaults to a session whose Cred carries the input token so
// status and claim stubs can key behavior per account.
func (m *mockClient) Authenticate(ctx context.Context, game model.Game, token string) (model.GameSession, error) {
	m.mu.Lock()
	m.authCalls++
	m.mu.Unlock()
	if m.authenticate != nil {
		return m.authenticate(ctx, game, token)
	}
	return model.GameSession{Cred: token, SignToken: "sign-token", GameRole: "3_role_server"}, nil
}

func (m *mockClient) CheckStatus(ctx context.Context, game model.Game, session model.GameSession) (model.AttendanceStatus, error) {
	m.mu.Lock()
	m.statusCalls++
	m.mu.Unlock()
	if m.checkStatus != nil {
		return m.checkStatus(ctx, game, session)
	}
	return model.AttendanceStatus{State: model.AttendanceNotClaimed, SignedDays: 4}, nil
}

func (m *mockClient) Claim(ctx context.Context, game model.Game, session model.GameSession) (model.ClaimResult, error) {
	m.mu.Lock()
	m.claimCalls++
	m.mu.Unlock()
	if m.claim != nil {
		return m.claim(ctx, game, session)
	}
	return model.ClaimResult{State: model.ClaimClaimed, Reward: "Orundum x100"}, nil
}

func (m *mockClient) calls() (auth, status, claim int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authCalls, m.statusCalls, m.claimCalls
}

type mockReporter struct {
	mu      sync.Mutex
	reports []model.RunReport
	err     error
}

func (m *mockReporter) Report(_ context.Context, report model.RunReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.reports = append(m.reports, report)
	return nil
}

func (m *mockReporter) received() []model.RunReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.RunReport(nil), m.reports...)
}
