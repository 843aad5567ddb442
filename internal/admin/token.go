package admin

import (
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"festival-orders/internal/tokenstore"
)

// maxCredentialAge bounds a credential whose token cannot be parsed: beyond
// this age since login it is treated as expired.
const maxCredentialAge = 24 * time.Hour

var bearerPrefix = regexp.MustCompile(`(?i)^Bearer\s+`)

// rawToken strips an optional Bearer prefix from a stored token.
func rawToken(token string) string {
	return bearerPrefix.ReplaceAllString(token, "")
}

// credentialValid runs the client-side validity check. Preference order:
// the JWT exp claim when the token parses, else elapsed time since login.
// The signature is deliberately not verified; this gates UX only, the
// backend remains the authority on authorization.
func credentialValid(cred *tokenstore.AdminCredential, now time.Time) bool {
	if cred == nil || cred.Token == "" {
		return false
	}

	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(rawToken(cred.Token), jwt.MapClaims{})
	if err == nil {
		exp, expErr := token.Claims.GetExpirationTime()
		if expErr == nil && exp != nil {
			return now.Before(exp.Time)
		}
		// Parsed token without an exp claim: nothing to check client-side.
		return true
	}

	return !cred.LoginAt.IsZero() && now.Sub(cred.LoginAt) < maxCredentialAge
}
