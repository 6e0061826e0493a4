package application_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/rollcall/internal/application"
	"github.com/ericfisherdev/rollcall/internal/domain/model"
)

func TestClassify_SignedJWTIsSessionToken(t *testing.T) {
	v := application.NewSessionValidator()

	kind := v.Classify(sessionJWT(t, "player-1"))

	assert.Equal(t, model.TokenSession, kind)
}

func TestClassify_ShortOpaqueValueIsCredential(t *testing.T) {
	v := application.NewSessionValidator()

	tests := []struct {
		name string
		raw  string
	}{
		{"hex cred", "a1b2c3d4e5f6a7b8c9d0a1b2c3d4e5f6a7b8c9d0a1b2c3d4e5f6a7b8c9d0a1b2"},
		{"short alnum", "abc123def456"},
		{"base64ish", "dG9rZW4tdmFsdWU+PQ=="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, model.TokenCredential, v.Classify(tt.raw))
		})
	}
}

func TestClassify_Malformed(t *testing.T) {
	v := application.NewSessionValidator()

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace only", "   \t\n"},
		{"embedded space", "abc 123"},
		{"truncated jwt", "eyJhbGciOi"},
		{"too long for a credential", strings.Repeat("x", 150)},
		{"dotted but not a jwt", "a.b.c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, model.TokenMalformed, v.Classify(tt.raw))
		})
	}
}

func TestClassify_TrimsSurroundingWhitespace(t *testing.T) {
	v := application.NewSessionValidator()

	kind := v.Classify("  " + sessionJWT(t, "player-1") + "\n")

	assert.Equal(t, model.TokenSession, kind)
}
