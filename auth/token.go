// Package auth validates the bearer tokens presented by live sessions.
// Token issuance belongs to the account service, not here.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/errors"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "plural-chat"

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// GenerateToken signs a token for accountID. Used by tests and local tooling.
func (a *Authenticator) GenerateToken(accountID domain.AccountID, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID: string(accountID),
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ValidateToken checks signature, algorithm and expiration, and returns the
// account the token was issued to.
func (a *Authenticator) ValidateToken(tokenString string) (domain.AccountID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", errors.ErrInvalidToken
	}
	return domain.AccountID(claims.UserID), nil
}

// TokenFromRequest reads the token from the "token" query parameter, then
// from an "Authorization: Bearer" header.
func TokenFromRequest(r *http.Request) (string, bool) {
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		return strings.TrimSpace(token), true
	}
	return "", false
}
