package model

import "time"

// Account is one registered credential under a game. The token itself is
// never carried here; it stays encrypted at rest and is decrypted lazily,
// one account at a time, during a run.
type Account struct {
	ID              int64
	GameName        string
	AccountID       string // External account identifier, unique within a game.
	Label           string // Display name used in reports and logs.
	TokenKind       TokenKind
	Enabled         bool
	LastCheckinDate string // "2006-01-02" UTC, empty until the first success. Informational only.
	FailureCount    int    // Consecutive failed runs; reset by any successful outcome.
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
