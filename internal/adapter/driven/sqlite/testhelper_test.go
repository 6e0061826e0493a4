package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"

	"github.com/ericfisherdev/rollcall/internal/domain/model"
)

// setupTestDB creates a named shared in-memory SQLite database for testing.
// Writer and reader connections share the same in-memory database via
// cache=shared. A unique name derived from t.Name() ensures isolation
// between parallel tests.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Percent-encode the test name so it's a safe SQLite URI filename component
	// and cannot be misinterpreted as query parameters in the "file:%s?..." DSN.
	safeName := url.PathEscape(t.Name())
	// WAL mode is not applicable to in-memory databases; omit journal_mode pragma.
	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=cache_size(-64000)",
		safeName,
	)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("create test db writer: %v", err)
	}
	writer.SetMaxOpenConns(1)
	if err := writer.PingContext(context.Background()); err != nil {
		_ = writer.Close()
		t.Fatalf("ping test db writer: %v", err)
	}

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = writer.Close()
		t.Fatalf("create test db reader: %v", err)
	}
	reader.SetMaxOpenConns(4)
	if err := reader.PingContext(context.Background()); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		t.Fatalf("ping test db reader: %v", err)
	}

	db := &DB{Writer: writer, Reader: reader, path: dsn}

	if err := runMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

// testKey is a fixed 32-byte AES-256 key for repo tests.
var testKey = []byte("0123456789abcdef0123456789abcdef")

// testGame is the game seeded by newTestRepo.
var testGame = model.Game{
	Name:          "endfield",
	DisplayName:   "Arknights: Endfield",
	BaseURL:       "https://zonai.example.com/web/v1",
	APIBaseURL:    "https://zonai.example.com/api/v1",
	OAuthURL:      "https://as.example.com",
	StatusPath:    "/game/endfield/attendance",
	ClaimPath:     "/game/endfield/attendance",
	RequiredToken: model.TokenSession,
	AppCode:       "6eb76d4e13aa36e6",
	GameID:        "3",
}

// newTestRepo builds an AccountRepo over a fresh in-memory database with
// the test game synced so account rows have their foreign key target.
func newTestRepo(t *testing.T, maxFailures int) *AccountRepo {
	t.Helper()

	db := setupTestDB(t)
	repo := NewAccountRepo(db, testKey, maxFailures)
	if err := repo.SyncGames(context.Background(), []model.Game{testGame}); err != nil {
		t.Fatalf("sync games: %v", err)
	}
	return repo
}
