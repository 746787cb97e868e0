package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestAuthenticator_RoundTrip(t *testing.T) {
	req := require.New(t)
	a := NewAuthenticator("test-secret")

	token, err := a.GenerateToken("acc-1", nil, time.Minute)
	req.NoError(err)

	accountID, err := a.ValidateToken(token)
	req.NoError(err)
	req.Equal(domain.AccountID("acc-1"), accountID)
}

func TestAuthenticator_Rejects(t *testing.T) {
	req := require.New(t)
	a := NewAuthenticator("test-secret")

	expired, err := a.GenerateToken("acc-1", nil, -time.Minute)
	req.NoError(err)
	foreign, err := NewAuthenticator("other-secret").GenerateToken("acc-1", nil, time.Minute)
	req.NoError(err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &CustomClaims{UserID: "acc-1"}).SignedString([]byte("test-secret"))
	req.NoError(err)
	noUser, err := a.GenerateToken("", nil, time.Minute)
	req.NoError(err)

	for name, token := range map[string]string{
		"expired":   expired,
		"signature": foreign,
		"no expiry": noExpiry,
		"no user":   noUser,
		"garbage":   "not-a-token",
	} {
		_, err := a.ValidateToken(token)
		req.ErrorIs(err, errors.ErrInvalidToken, name)
	}
}

func TestTokenFromRequest(t *testing.T) {
	req := require.New(t)

	r := httptest.NewRequest("GET", "/ws?token=abc", nil)
	token, ok := TokenFromRequest(r)
	req.True(ok)
	req.Equal("abc", token)

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer xyz")
	token, ok = TokenFromRequest(r)
	req.True(ok)
	req.Equal("xyz", token)

	_, ok = TokenFromRequest(httptest.NewRequest("GET", "/ws", nil))
	req.False(ok)
}
