package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = strings.Repeat("k", 32)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	m := NewManager(secret, time.Hour).WithClock(fixedClock(now))

	raw, err := m.Issue("appt-1")
	require.NoError(t, err)

	id, err := m.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "appt-1", id)
}

func TestVerify_Expired(t *testing.T) {
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	m := NewManager(secret, time.Hour).WithClock(fixedClock(now))
	raw, err := m.Issue("appt-1")
	require.NoError(t, err)

	m.WithClock(fixedClock(now.Add(2 * time.Hour)))
	_, err = m.Verify(raw)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Rejects(t *testing.T) {
	now := time.Now()
	m := NewManager(secret, time.Hour)

	sign := func(method jwt.SigningMethod, key any, claims Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	base := func() Claims {
		return Claims{
			Scope: Scope,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    Issuer,
				Subject:   "appt-1",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
	}

	wrongScope := base()
	wrongScope.Scope = "admin"
	noSubject := base()
	noSubject.Subject = ""
	noExpiry := base()
	noExpiry.ExpiresAt = nil
	otherIssuer := base()
	otherIssuer.Issuer = "elsewhere"

	tests := map[string]string{
		"garbage":      "not-a-token",
		"empty":        "",
		"other secret": sign(jwt.SigningMethodHS256, []byte(strings.Repeat("x", 32)), base()),
		"HS512":        sign(jwt.SigningMethodHS512, []byte(secret), base()),
		"wrong scope":  sign(jwt.SigningMethodHS256, []byte(secret), wrongScope),
		"no subject":   sign(jwt.SigningMethodHS256, []byte(secret), noSubject),
		"no expiry":    sign(jwt.SigningMethodHS256, []byte(secret), noExpiry),
		"other issuer": sign(jwt.SigningMethodHS256, []byte(secret), otherIssuer),
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.Verify(raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
