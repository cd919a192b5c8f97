package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-auth-service/internal/model"
	"go-auth-service/internal/password"
	"go-auth-service/internal/token"
	"go-auth-service/internal/util"
	"go-auth-service/pkg/apierror"
)

// tokenSecretBytes is the entropy of each per-account signing secret.
const tokenSecretBytes = 32

// AccountStore is the durable account collaborator consumed by the service.
// Create must be race-free for duplicate identifiers and
// IncrementTokenVersion must be linearizable per account id.
type AccountStore interface {
	FindByID(ctx context.Context, id string) (model.Account, error)
	FindByUsernameOrEmail(ctx context.Context, username string, email string) (model.Account, error)
	Create(ctx context.Context, account model.Account) error
	IncrementTokenVersion(ctx context.Context, id string, fromVersion int) (model.Account, error)
}

// SessionService orchestrates registration, login, refresh rotation and
// per-request token verification over the account store, the password
// hasher and the token codec.
type SessionService struct {
	store  AccountStore
	hasher *password.Hasher
	codec  *token.Codec
}

func NewSessionService(store AccountStore, hasher *password.Hasher, codec *token.Codec) *SessionService {
	return &SessionService{store: store, hasher: hasher, codec: codec}
}

// Register creates a new account with a fresh per-account signing secret
// and token version 0. The returned view never includes the password hash
// or the secret.
func (s *SessionService) Register(ctx context.Context, req model.RegisterRequest) (model.PublicAccount, error) {
	email := strings.TrimSpace(req.Email)
	username := strings.TrimSpace(req.Username)

	if err := util.ValidateEmail(email); err != nil {
		return model.PublicAccount{}, err
	}
	if err := util.ValidateUsername(username); err != nil {
		return model.PublicAccount{}, err
	}
	if err := util.ValidatePassword(req.Password); err != nil {
		return model.PublicAccount{}, err
	}

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return model.PublicAccount{}, err
	}

	secret, err := newTokenSecret()
	if err != nil {
		return model.PublicAccount{}, err
	}

	now := time.Now().UTC()
	account := model.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: hash,
		TokenSecret:  secret,
		TokenVersion: 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, account); err != nil {
		if errors.Is(err, model.ErrDuplicateAccount) {
			return model.PublicAccount{}, apierror.New("DUPLICATE_ACCOUNT", "email or username already exists", "", http.StatusBadRequest)
		}
		return model.PublicAccount{}, err
	}

	slog.Info("account registered", "account_id", account.ID, "username", account.Username)
	return account.Public(), nil
}

// Login authenticates by exactly one of username/email plus password and
// issues a token pair signed with the account's secret at its current
// token version.
func (s *SessionService) Login(ctx context.Context, req model.LoginRequest) (model.TokenPair, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	if (username == "") == (email == "") {
		return model.TokenPair{}, apierror.New("INVALID_REQUEST", "exactly one of username or email is required", "", http.StatusBadRequest)
	}
	if req.Password == "" {
		return model.TokenPair{}, apierror.New("INVALID_REQUEST", "password should not be empty", "", http.StatusBadRequest)
	}

	account, err := s.store.FindByUsernameOrEmail(ctx, username, email)
	if errors.Is(err, model.ErrAccountNotFound) {
		return model.TokenPair{}, apierror.New("ACCOUNT_NOT_FOUND", "email or username is not found", "", http.StatusBadRequest)
	}
	if err != nil {
		return model.TokenPair{}, err
	}

	if !s.hasher.Verify(req.Password, account.PasswordHash) {
		return model.TokenPair{}, apierror.New("INVALID_CREDENTIALS", "invalid credentials", "", http.StatusUnauthorized)
	}

	return s.issueTokenPair(account, account.TokenVersion)
}

// Refresh rotates a refresh token. The embedded version must equal the
// account's current version; a successful rotation advances the version,
// which is what revokes the token just used (and any sibling still
// carrying the old version). Access tokens are not revoked by the bump:
// they stay valid until their own expiry.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	peeked, err := s.codec.Peek(refreshToken)
	if err != nil {
		return model.TokenPair{}, s.unauthorized("refresh: malformed token", err)
	}

	account, err := s.store.FindByID(ctx, peeked.Subject)
	if errors.Is(err, model.ErrStoreUnavailable) {
		// A store outage is not a token failure; let the edge answer 503
		// instead of telling the client its token is bad.
		return model.TokenPair{}, err
	}
	if err != nil {
		return model.TokenPair{}, s.unauthorized("refresh: account lookup failed", err)
	}
	if account.TokenSecret == "" {
		return model.TokenPair{}, s.unauthorized("refresh: account has no token secret", nil)
	}

	claims, err := s.codec.VerifyRefresh(refreshToken, account.TokenSecret)
	if err != nil {
		return model.TokenPair{}, s.unauthorized("refresh: token verification failed", err)
	}

	if claims.Version != account.TokenVersion {
		return model.TokenPair{}, s.unauthorized("refresh: token version superseded", nil)
	}

	updated, err := s.store.IncrementTokenVersion(ctx, account.ID, account.TokenVersion)
	if errors.Is(err, model.ErrVersionConflict) {
		// A concurrent refresh won the race; this token is now superseded.
		return model.TokenPair{}, s.unauthorized("refresh: lost version race", err)
	}
	if err != nil {
		return model.TokenPair{}, err
	}

	return s.issueTokenPair(updated, updated.TokenVersion)
}

// Authenticate verifies a presented access token against the referenced
// account and returns its verified claims. The peeked subject is only used
// to fetch the account secret; nothing peeked is trusted until VerifyAccess
// has passed.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (*model.AccessClaims, error) {
	peeked, err := s.codec.Peek(accessToken)
	if err != nil {
		return nil, s.unauthorized("authenticate: malformed token", err)
	}

	account, err := s.store.FindByID(ctx, peeked.Subject)
	if errors.Is(err, model.ErrStoreUnavailable) {
		return nil, err
	}
	if err != nil {
		return nil, s.unauthorized("authenticate: account lookup failed", err)
	}
	if account.TokenSecret == "" {
		return nil, s.unauthorized("authenticate: account has no token secret", nil)
	}

	claims, err := s.codec.VerifyAccess(accessToken, account.TokenSecret)
	if err != nil {
		return nil, s.unauthorized("authenticate: token verification failed", err)
	}

	return &model.AccessClaims{
		Subject:  claims.Subject,
		Email:    claims.Email,
		Username: claims.Username,
	}, nil
}

func (s *SessionService) issueTokenPair(account model.Account, version int) (model.TokenPair, error) {
	accessToken, err := s.codec.SignAccess(account)
	if err != nil {
		return model.TokenPair{}, err
	}

	refreshToken, err := s.codec.SignRefresh(account, version)
	if err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.codec.AccessTTL().Seconds()),
	}, nil
}

// unauthorized logs the internal cause and returns the single opaque
// client-facing error shared by every token failure mode, so responses
// never distinguish bad signature from expired from superseded.
func (s *SessionService) unauthorized(cause string, err error) error {
	if err != nil {
		slog.Debug("token rejected", "cause", cause, "error", err)
	} else {
		slog.Debug("token rejected", "cause", cause)
	}
	return apierror.Unauthorized()
}

func newTokenSecret() (string, error) {
	buf := make([]byte, tokenSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
