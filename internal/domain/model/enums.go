package model

// TokenKind classifies the structural shape of a stored credential.
type TokenKind string

const (
	TokenSession    TokenKind = "session-token"   // JWT-shaped bearer token; the only kind the check-in API accepts.
	TokenCredential TokenKind = "credential-only" // Short opaque cred value; refused before any network call.
	TokenMalformed  TokenKind = "malformed"       // Neither known shape.
)

// AttendanceState is the remote service's answer to "claimed today?".
type AttendanceState string

const (
	AttendanceNotClaimed     AttendanceState = "not_claimed_today"
	AttendanceAlreadyClaimed AttendanceState = "already_claimed_today"
)

// ClaimState is the remote service's answer to a claim submission.
type ClaimState string

const (
	ClaimClaimed        ClaimState = "claimed"
	ClaimAlreadyClaimed ClaimState = "already_claimed" // Raced an earlier claim; success-equivalent.
)

// Outcome is the terminal result of one account's check-in state machine.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeAlreadyClaimed Outcome = "already_claimed"
	OutcomeTokenInvalid   Outcome = "token_invalid"
	OutcomeTransientError Outcome = "transient_error"
	OutcomeFatalError     Outcome = "fatal_error"
)

// Failed reports whether the outcome counts as a failure in run tallies
// and failure-streak tracking.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeTokenInvalid, OutcomeTransientError, OutcomeFatalError:
		return true
	default:
		return false
	}
}
