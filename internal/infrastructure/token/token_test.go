package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{Secret: "s3cret", Issuer: "storefront", Audience: "miniapp", TTL: time.Hour})
	require.NoError(t, err)
	return m
}

func TestIssueVerify(t *testing.T) {
	m := newManager(t)
	raw, exp, err := m.Issue("sid-1", 42, true)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := m.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", claims.SessionID)
	assert.Equal(t, int64(42), claims.UserID)
	assert.True(t, claims.IsAdmin)
}

func TestVerify_Expired(t *testing.T) {
	m := newManager(t)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, _, err := m.Issue("sid-1", 1, false)
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerify_WrongAudienceOrSecret(t *testing.T) {
	m := newManager(t)
	raw, _, err := m.Issue("sid-1", 1, false)
	require.NoError(t, err)

	other, err := NewManager(Config{Secret: "s3cret", Issuer: "storefront", Audience: "admin"})
	require.NoError(t, err)
	_, err = other.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalid)

	other, err = NewManager(Config{Secret: "different", Issuer: "storefront", Audience: "miniapp"})
	require.NoError(t, err)
	_, err = other.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerify_RejectsNoneAlg(t *testing.T) {
	m := newManager(t)
	claims := Claims{
		SessionID: "sid-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "storefront",
			Audience:  jwt.ClaimStrings{"miniapp"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestNewManager_RequiresKeys(t *testing.T) {
	_, err := NewManager(Config{Secret: "x"})
	assert.ErrorIs(t, err, ErrMissingKeys)
}
