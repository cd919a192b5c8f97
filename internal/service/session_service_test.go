package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-auth-service/internal/model"
	"go-auth-service/internal/password"
	"go-auth-service/internal/repository"
	"go-auth-service/internal/token"
)

func newTestService(t *testing.T) (*SessionService, *repository.MemoryAccountStore) {
	t.Helper()

	store := repository.NewMemoryAccountStore()
	hasher := password.NewHasher(bcrypt.MinCost, 2)
	codec := token.NewCodec(15*time.Minute, 168*time.Hour)

	return NewSessionService(store, hasher, codec), store
}

func registerAlice(t *testing.T, s *SessionService) model.PublicAccount {
	t.Helper()

	account, err := s.Register(context.Background(), model.RegisterRequest{
		Email:    "a@x.com",
		Username: "alice",
		Password: "pw123456",
	})
	require.NoError(t, err)
	return account
}

func TestRegisterReturnsPublicViewOnly(t *testing.T) {
	s, store := newTestService(t)

	account := registerAlice(t, s)
	require.NotEmpty(t, account.ID)
	require.Equal(t, "a@x.com", account.Email)
	require.Equal(t, "alice", account.Username)

	stored, err := store.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	require.NotEqual(t, "pw123456", stored.PasswordHash)
	require.NotEmpty(t, stored.TokenSecret)
	require.Equal(t, 0, stored.TokenVersion)
}

func TestRegisterValidatesInput(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  model.RegisterRequest
	}{
		{"missing email", model.RegisterRequest{Username: "alice", Password: "pw123456"}},
		{"invalid email", model.RegisterRequest{Email: "not-an-email", Username: "alice", Password: "pw123456"}},
		{"missing username", model.RegisterRequest{Email: "a@x.com", Password: "pw123456"}},
		{"short password", model.RegisterRequest{Email: "a@x.com", Username: "alice", Password: "pw"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Register(ctx, tc.req)
			require.Error(t, err)
		})
	}
}

func TestRegisterDuplicateEmailOrUsername(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	registerAlice(t, s)

	_, err := s.Register(ctx, model.RegisterRequest{Email: "a@x.com", Username: "other", Password: "pw123456"})
	require.Error(t, err)

	_, err = s.Register(ctx, model.RegisterRequest{Email: "other@x.com", Username: "alice", Password: "pw123456"})
	require.Error(t, err)

	// Case differences do not dodge the uniqueness check.
	_, err = s.Register(ctx, model.RegisterRequest{Email: "A@X.COM", Username: "ALICE", Password: "pw123456"})
	require.Error(t, err)
}

func TestRegisterConcurrentDuplicates(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	const racers = 2
	errs := make([]error, racers)

	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Register(ctx, model.RegisterRequest{
				Email:    "race@x.com",
				Username: "racer",
				Password: "pw123456",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	require.Equal(t, 1, succeeded, "exactly one of two racing duplicate registrations must win")
}

func TestRegisterGeneratesDistinctSecrets(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()

	first := registerAlice(t, s)
	second, err := s.Register(ctx, model.RegisterRequest{Email: "b@x.com", Username: "bob", Password: "pw123456"})
	require.NoError(t, err)

	a, err := store.FindByID(ctx, first.ID)
	require.NoError(t, err)
	b, err := store.FindByID(ctx, second.ID)
	require.NoError(t, err)
	require.NotEqual(t, a.TokenSecret, b.TokenSecret)
}

func TestLoginByUsernameAndByEmail(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	account := registerAlice(t, s)

	byUsername, err := s.Login(ctx, model.LoginRequest{Username: "alice", Password: "pw123456"})
	require.NoError(t, err)
	require.NotEmpty(t, byUsername.AccessToken)
	require.NotEmpty(t, byUsername.RefreshToken)
	require.Equal(t, "Bearer", byUsername.TokenType)

	byEmail, err := s.Login(ctx, model.LoginRequest{Email: "a@x.com", Password: "pw123456"})
	require.NoError(t, err)

	// Decoded subject matches the generated account id.
	claims, err := s.Authenticate(ctx, byEmail.AccessToken)
	require.NoError(t, err)
	require.Equal(t, account.ID, claims.Subject)
	require.Equal(t, "a@x.com", claims.Email)
	require.Equal(t, "alice", claims.Username)
}

func TestLoginRequiresExactlyOneIdentifier(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	registerAlice(t, s)

	_, err := s.Login(ctx, model.LoginRequest{Password: "pw123456"})
	require.Error(t, err)

	_, err = s.Login(ctx, model.LoginRequest{Username: "alice", Email: "a@x.com", Password: "pw123456"})
	require.Error(t, err)
}

func TestLoginFailures(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	registerAlice(t, s)

	_, err := s.Login(ctx, model.LoginRequest{Username: "nobody", Password: "pw123456"})
	require.Error(t, err)

	_, err = s.Login(ctx, model.LoginRequest{Username: "alice", Password: "wrong-password"})
	require.Error(t, err)
}

func TestRefreshRotatesAndRevokesUsedToken(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	registerAlice(t, s)
	pair, err := s.Login(ctx, model.LoginRequest{Username: "alice", Password: "pw123456"})
	require.NoError(t, err)

	rotated, err := s.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, rotated.AccessToken)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// Reusing the consumed refresh token must fail: its embedded version
	// was superseded by the rotation itself.
	_, err = s.Refresh(ctx, pair.RefreshToken)
	require.Error(t, err)

	// The new refresh token works.
	_, err = s.Refresh(ctx, rotated.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshVersionMismatchFailsDespiteValidSignature(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()

	account := registerAlice(t, s)
	pair, err := s.Login(ctx, model.LoginRequest{Username: "alice", Password: "pw123456"})
	require.NoError(t, err)

	// Advance the account's version behind the token's back. The token
	// signature is still structurally valid afterwards.
	_, err = store.IncrementTokenVersion(ctx, account.ID, 0)
	require.NoError(t, err)

	_, err = s.Refresh(ctx, pair.RefreshToken)
	require.Error(t, err)
}

func TestRefreshConcurrentStaleTokens(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	registerAlice(t, s)
	pair, err := s.Login(ctx, model.LoginRequest{Username: "alice", Password: "pw123456"})
	require.NoError(t, err)

	const racers = 2
	errs := make([]error, racers)

	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Refresh(ctx, pair.RefreshToken)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	require.LessOrEqual(t, succeeded, 1, "at most one concurrent refresh of the same token may win")
	require.Equal(t, 1, succeeded)
}

func TestRefreshRejectsGarbageAndForeignTokens(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	registerAlice(t, s)

	_, err := s.Refresh(ctx, "not-a-token")
	require.Error(t, err)

	// Access tokens are not accepted where a refresh token is required.
	pair, err := s.Login(ctx, model.LoginRequest{Username: "alice", Password: "pw123456"})
	require.NoError(t, err)
	_, err = s.Refresh(ctx, pair.AccessToken)
	require.Error(t, err)
}

// Access tokens deliberately survive a refresh: only the refresh token
// embeds and checks the version counter. A version bump revokes
// outstanding refresh tokens, not outstanding access tokens, which remain
// usable until their own expiry.
func TestAccessTokenSurvivesRefreshRotation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	registerAlice(t, s)
	pair, err := s.Login(ctx, model.LoginRequest{Username: "alice", Password: "pw123456"})
	require.NoError(t, err)

	rotated, err := s.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	// Old refresh token: dead.
	_, err = s.Refresh(ctx, pair.RefreshToken)
	require.Error(t, err)

	// Old access token: still authenticates.
	oldClaims, err := s.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "alice", oldClaims.Username)

	// So does the new one.
	_, err = s.Authenticate(ctx, rotated.AccessToken)
	require.NoError(t, err)
}

func TestAuthenticateRejectsTokenFromDeletedAccount(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	registerAlice(t, s)
	pair, err := s.Login(ctx, model.LoginRequest{Username: "alice", Password: "pw123456"})
	require.NoError(t, err)

	other, _ := newTestService(t)
	// Same token presented against a store that has no such account.
	_, err = other.Authenticate(ctx, pair.AccessToken)
	require.Error(t, err)
}

func TestAuthenticateRejectsExpiredAccessToken(t *testing.T) {
	store := repository.NewMemoryAccountStore()
	hasher := password.NewHasher(bcrypt.MinCost, 2)
	expiring := NewSessionService(store, hasher, token.NewCodec(-1*time.Minute, 168*time.Hour))

	registerAlice(t, expiring)
	pair, err := expiring.Login(context.Background(), model.LoginRequest{Username: "alice", Password: "pw123456"})
	require.NoError(t, err)

	_, err = expiring.Authenticate(context.Background(), pair.AccessToken)
	require.Error(t, err)
}

// failingStore delegates to an inner store but reports an outage on every
// account lookup.
type failingStore struct {
	inner AccountStore
}

func (f *failingStore) FindByID(_ context.Context, _ string) (model.Account, error) {
	return model.Account{}, errors.Join(model.ErrStoreUnavailable, errors.New("connection refused"))
}

func (f *failingStore) FindByUsernameOrEmail(ctx context.Context, username string, email string) (model.Account, error) {
	return f.inner.FindByUsernameOrEmail(ctx, username, email)
}

func (f *failingStore) Create(ctx context.Context, account model.Account) error {
	return f.inner.Create(ctx, account)
}

func (f *failingStore) IncrementTokenVersion(ctx context.Context, id string, fromVersion int) (model.Account, error) {
	return f.inner.IncrementTokenVersion(ctx, id, fromVersion)
}

// A store outage during token verification must surface as a store
// failure, not masquerade as an invalid token.
func TestStoreOutageIsNotReportedAsBadToken(t *testing.T) {
	store := repository.NewMemoryAccountStore()
	hasher := password.NewHasher(bcrypt.MinCost, 2)
	codec := token.NewCodec(15*time.Minute, 168*time.Hour)

	healthy := NewSessionService(store, hasher, codec)
	registerAlice(t, healthy)
	pair, err := healthy.Login(context.Background(), model.LoginRequest{Username: "alice", Password: "pw123456"})
	require.NoError(t, err)

	degraded := NewSessionService(&failingStore{inner: store}, hasher, codec)

	_, err = degraded.Authenticate(context.Background(), pair.AccessToken)
	require.ErrorIs(t, err, model.ErrStoreUnavailable)

	_, err = degraded.Refresh(context.Background(), pair.RefreshToken)
	require.ErrorIs(t, err, model.ErrStoreUnavailable)
}
