package application

import (
	"strings"
	"unicode"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ericfisherdev/rollcall/internal/domain/model"
)

// credMaxLen is the upper length bound for short opaque cred values. Real
// session tokens are JWTs well past this length.
const credMaxLen = 100

// SessionValidator classifies stored credentials by structure alone, before
// any network call. Classification is deterministic and repeatable; it runs
// at registration for operator feedback and again on every run, so a rule
// change applies to already-stored tokens.
type SessionValidator struct {
	parser *jwt.Parser
}

// NewSessionValidator creates a SessionValidator.
func NewSessionValidator() *SessionValidator {
	return &SessionValidator{parser: jwt.NewParser()}
}

// Classify returns the structural kind of a raw credential string.
//
// A string that parses as a JWT (three dot-separated base64url segments
// with JSON header and claims; the signature is not verified) is a session
// token. A short cookie-safe opaque string is a cred value, which the
// check-in API rejects, so it is refused locally. Everything else is
// malformed, including strings that start with the JWT prefix "eyJ" but do
// not parse.
func (v *SessionValidator) Classify(raw string) model.TokenKind {
	token := strings.TrimSpace(raw)
	if token == "" {
		return model.TokenMalformed
	}
	if strings.ContainsFunc(token, unicode.IsSpace) {
		return model.TokenMalformed
	}

	if _, _, err := v.parser.ParseUnverified(token, jwt.MapClaims{}); err == nil {
		return model.TokenSession
	}
	if strings.HasPrefix(token, "eyJ") {
		return model.TokenMalformed
	}

	if len(token) < credMaxLen && isCookieSafe(token) {
		return model.TokenCredential
	}
	return model.TokenMalformed
}

// isCookieSafe reports whether s contains only characters seen in opaque
// cred cookie values. Dots are excluded so broken JWT-shaped strings don't
// pass as cred values.
func isCookieSafe(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '+' || r == '/' || r == '=':
		default:
			return false
		}
	}
	return true
}
