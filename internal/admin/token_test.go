package admin

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"festival-orders/internal/tokenstore"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "admin",
		"exp":  exp.Unix(),
	}).SignedString([]byte("irrelevant-secret"))
	require.NoError(t, err)
	return token
}

func TestCredentialValidExpClaim(t *testing.T) {
	now := time.Now()

	expired := &tokenstore.AdminCredential{Token: signedToken(t, now.Add(-time.Second)), LoginAt: now}
	assert.False(t, credentialValid(expired, now), "exp one second in the past")

	live := &tokenstore.AdminCredential{Token: signedToken(t, now.Add(time.Hour)), LoginAt: now.Add(-48 * time.Hour)}
	assert.True(t, credentialValid(live, now), "exp an hour out wins over an old login timestamp")
}

func TestCredentialValidBearerPrefixTolerated(t *testing.T) {
	now := time.Now()
	cred := &tokenstore.AdminCredential{Token: "Bearer " + signedToken(t, now.Add(time.Hour))}
	assert.True(t, credentialValid(cred, now))
}

func TestCredentialValidLoginTimeFallback(t *testing.T) {
	now := time.Now()

	fresh := &tokenstore.AdminCredential{Token: "not-a-jwt", LoginAt: now.Add(-time.Hour)}
	assert.True(t, credentialValid(fresh, now), "unparsable token, one hour since login")

	aged := &tokenstore.AdminCredential{Token: "not-a-jwt", LoginAt: now.Add(-25 * time.Hour)}
	assert.False(t, credentialValid(aged, now), "unparsable token, 25 hours since login")
}

func TestCredentialValidNoExpClaim(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "admin"}).
		SignedString([]byte("irrelevant-secret"))
	require.NoError(t, err)

	cred := &tokenstore.AdminCredential{Token: token}
	assert.True(t, credentialValid(cred, time.Now()))
}

func TestCredentialValidEmpty(t *testing.T) {
	assert.False(t, credentialValid(nil, time.Now()))
	assert.False(t, credentialValid(&tokenstore.AdminCredential{}, time.Now()))
}

func TestRawToken(t *testing.T) {
	assert.Equal(t, "abc.def.ghi", rawToken("Bearer abc.def.ghi"))
	assert.Equal(t, "abc.def.ghi", rawToken("bearer abc.def.ghi"))
	assert.Equal(t, "abc.def.ghi", rawToken("abc.def.ghi"))
}
