package model

// GameSession is the transient remote session state derived from a session
// token: the cred value, the request signing token, and the player role
// binding. It lives for the duration of one account's state machine and is
// never persisted.
type GameSession struct {
	Cred      string
	SignToken string
	GameRole  string // "{gameID}_{roleID}_{serverID}"; empty when no binding exists.
}

// AttendanceStatus is the remote attendance state for the current day.
type AttendanceStatus struct {
	State      AttendanceState
	SignedDays int // Days claimed in the current period, per the remote calendar.
}

// ClaimResult is the remote response to a claim submission.
type ClaimResult struct {
	State  ClaimState
	Reward string // Human-readable reward summary, e.g. "Orundum x100".
}
