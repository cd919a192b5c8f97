package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-auth-service/internal/model"
)

const uniqueViolationCode = "23505"

const accountColumns = `id, email, username, display_name, password_hash, token_secret, token_version, created_at, updated_at`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (model.Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, model.ErrAccountNotFound
	}
	if err != nil {
		return model.Account{}, unavailable("find account by id", err)
	}
	return account, nil
}

// FindByUsernameOrEmail matches either identifier, case-insensitively.
// At least one of username/email must be non-empty.
func (r *AccountRepository) FindByUsernameOrEmail(ctx context.Context, username string, email string) (model.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" && email == "" {
		return model.Account{}, model.ErrInvalidRequest
	}

	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE ($1 <> '' AND lower(username) = lower($1))
		    OR ($2 <> '' AND lower(email) = lower($2))`, username, email)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, model.ErrAccountNotFound
	}
	if err != nil {
		return model.Account{}, unavailable("find account by username or email", err)
	}
	return account, nil
}

// Create inserts the account. Email/username uniqueness is enforced by the
// database constraint, so the check-and-insert is race-free: a duplicate
// submitted concurrently surfaces as a unique violation, never a second row.
func (r *AccountRepository) Create(ctx context.Context, account model.Account) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO accounts (id, email, username, display_name, password_hash, token_secret, token_version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		account.ID, account.Email, account.Username, nullable(account.DisplayName),
		account.PasswordHash, account.TokenSecret, account.TokenVersion,
		account.CreatedAt, account.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return model.ErrDuplicateAccount
	}
	if err != nil {
		return unavailable("create account", err)
	}
	return nil
}

// IncrementTokenVersion advances the counter by one, but only if it still
// equals fromVersion. Of two concurrent callers holding the same stale
// version, exactly one update matches; the loser gets ErrVersionConflict.
func (r *AccountRepository) IncrementTokenVersion(ctx context.Context, id string, fromVersion int) (model.Account, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE accounts
		 SET token_version = token_version + 1, updated_at = $3
		 WHERE id = $1 AND token_version = $2
		 RETURNING `+accountColumns, id, fromVersion, time.Now().UTC())

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, model.ErrVersionConflict
	}
	if err != nil {
		return model.Account{}, unavailable("increment token version", err)
	}
	return account, nil
}

func scanAccount(row pgx.Row) (model.Account, error) {
	var (
		a           model.Account
		displayName *string
		tokenSecret *string
	)

	err := row.Scan(&a.ID, &a.Email, &a.Username, &displayName, &a.PasswordHash,
		&tokenSecret, &a.TokenVersion, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Account{}, err
	}

	if displayName != nil {
		a.DisplayName = *displayName
	}
	if tokenSecret != nil {
		a.TokenSecret = *tokenSecret
	}
	return a, nil
}

func nullable(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(model.ErrStoreUnavailable, err))
}
