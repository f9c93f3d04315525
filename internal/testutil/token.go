package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// SignToken issues a token for (email, role, company) signed with JWTSecret.
// typ is "access" or "refresh"; a negative dur yields an expired token.
func SignToken(t *testing.T, email, role, company, typ string, dur time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"email": email, "role": role, "company": company, "typ": typ,
		"exp": time.Now().Add(dur).Unix(), "iat": time.Now().Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(JWTSecret))
	require.NoError(t, err)
	return s
}
