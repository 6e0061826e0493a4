package model

import "time"

// CheckinResult is one immutable outcome for one account in one run.
type CheckinResult struct {
	ID         int64
	AccountID  int64
	GameName   string
	Label      string
	Outcome    Outcome
	Reward     string // Reward summary; set only on success.
	Detail     string // Short status or failure description.
	SignedDays int    // Days claimed this period after the run, when known.
	Attempts   int    // Tries consumed by the deciding remote operation.
	CreatedAt  time.Time
}

// RunReport is the ordered collection of per-account outcomes for one run.
// Results keep the account load order regardless of completion order.
type RunReport struct {
	GameName   string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []CheckinResult
}

// Succeeded returns the number of results that claimed today's attendance.
func (r RunReport) Succeeded() int {
	return r.countOutcome(OutcomeSuccess)
}

// AlreadyClaimed returns the number of results that found attendance
// already claimed.
func (r RunReport) AlreadyClaimed() int {
	return r.countOutcome(OutcomeAlreadyClaimed)
}

// Failed returns the number of results with a failure outcome.
func (r RunReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome.Failed() {
			n++
		}
	}
	return n
}

// Duration returns the wall-clock time the run took.
func (r RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r RunReport) countOutcome(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// CheckinStats aggregates the stored result history for one game.
type CheckinStats struct {
	GameName       string
	TotalResults   int
	Successes      int
	AlreadyClaimed int
	Failures       int
}

// SuccessRate returns the percentage of results that ended with attendance
// claimed, counting already-claimed outcomes as success.
func (s CheckinStats) SuccessRate() float64 {
	if s.TotalResults == 0 {
		return 0
	}
	return float64(s.Successes+s.AlreadyClaimed) / float64(s.TotalResults) * 100
}
