package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/rollcall/internal/domain/model"
)

// Remote failure classes. Adapters wrap these sentinels with call context;
// callers classify with errors.Is.
var (
	// ErrAuthRejected means the remote service refused the credential.
	// Retrying cannot help; the account needs a fresh token.
	ErrAuthRejected = errors.New("remote service rejected the credential")

	// ErrNetwork means the transport failed before a usable response
	// arrived.
	ErrNetwork = errors.New("network failure calling remote service")

	// ErrRemoteAPI means the remote service answered with an unexpected
	// status or body.
	ErrRemoteAPI = errors.New("unexpected remote service response")
)

// AttendanceClient defines the driven port for a remote daily attendance
// API. Implementations are stateless and safe for concurrent use across
// accounts; per-account session state lives in the GameSession value the
// caller threads through one account's state machine.
type AttendanceClient interface {
	// Authenticate exchanges a stored session token for fresh remote
	// session state: the cred value, the request signing token, and the
	// player role binding where one exists.
	Authenticate(ctx context.Context, game model.Game, sessionToken string) (model.GameSession, error)

	// CheckStatus reports whether today's attendance is already claimed
	// and how many days are claimed this period.
	CheckStatus(ctx context.Context, game model.Game, session model.GameSession) (model.AttendanceStatus, error)

	// Claim submits today's attendance. A remote "already claimed" answer
	// is a ClaimResult state, not an error.
	Claim(ctx context.Context, game model.Game, session model.GameSession) (model.ClaimResult, error)
}
