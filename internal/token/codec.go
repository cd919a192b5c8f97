package token

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-auth-service/internal/model"
	"go-auth-service/pkg/apierror"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// AccessTokenClaims is the signed payload of an access token.
type AccessTokenClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Type     string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshTokenClaims is the signed payload of a refresh token. Version is
// the account's token version at issuance time; the token is only valid
// while it still matches the account's current value.
type RefreshTokenClaims struct {
	Version int    `json:"version"`
	Type    string `json:"typ"`
	jwt.RegisteredClaims
}

// UnverifiedClaims is the result of Peek. The signature has NOT been
// checked: nothing in here is authenticated, and the only legitimate use
// is extracting Subject to look up the per-account signing secret.
type UnverifiedClaims struct {
	Subject string
	Type    string
}

// Codec signs and verifies the compact token strings issued to accounts.
// Every token is signed with a per-account secret, never a process-wide one.
type Codec struct {
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewCodec(accessTTL time.Duration, refreshTTL time.Duration) *Codec {
	return &Codec{accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

func (c *Codec) SignAccess(account model.Account) (string, error) {
	now := time.Now().UTC()
	claims := AccessTokenClaims{
		Email:    account.Email,
		Username: account.Username,
		Type:     TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(account.TokenSecret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

func (c *Codec) SignRefresh(account model.Account, version int) (string, error) {
	now := time.Now().UTC()
	claims := RefreshTokenClaims{
		Version: version,
		Type:    TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(account.TokenSecret))
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

func (c *Codec) VerifyAccess(tokenString string, secret string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if err := c.verify(tokenString, secret, claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess {
		return nil, unauthorized("invalid token type")
	}
	if claims.Subject == "" {
		return nil, unauthorized("invalid token subject")
	}
	return claims, nil
}

func (c *Codec) VerifyRefresh(tokenString string, secret string) (*RefreshTokenClaims, error) {
	claims := &RefreshTokenClaims{}
	if err := c.verify(tokenString, secret, claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, unauthorized("invalid token type")
	}
	if claims.Subject == "" {
		return nil, unauthorized("invalid token subject")
	}
	return claims, nil
}

func (c *Codec) verify(tokenString string, secret string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return unauthorized("token expired")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return unauthorized("invalid token signature")
		default:
			return unauthorized("malformed token")
		}
	}
	if !parsed.Valid {
		return unauthorized("invalid token")
	}
	return nil
}

// Peek decodes the payload without checking the signature. Callers must
// treat the result as untrusted: no code path may act on it as
// authenticated, beyond using Subject to fetch the account whose secret is
// then handed to VerifyAccess/VerifyRefresh.
func (c *Codec) Peek(tokenString string) (UnverifiedClaims, error) {
	type peekClaims struct {
		Type string `json:"typ"`
		jwt.RegisteredClaims
	}

	claims := &peekClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return UnverifiedClaims{}, unauthorized("malformed token")
	}
	if claims.Subject == "" {
		return UnverifiedClaims{}, unauthorized("invalid token subject")
	}

	return UnverifiedClaims{Subject: claims.Subject, Type: claims.Type}, nil
}

func unauthorized(details string) error {
	return apierror.New("UNAUTHORIZED", "invalid or expired token", details, http.StatusUnauthorized)
}
