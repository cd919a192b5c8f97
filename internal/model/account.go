package model

import "time"

// Account is the persisted identity record. TokenSecret is the per-account
// signing key for every token issued to this account; TokenVersion is a
// monotonic counter advanced only by refresh-token rotation.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name,omitempty"`
	PasswordHash string    `json:"-"`
	TokenSecret  string    `json:"-"`
	TokenVersion int       `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicAccount is the view returned to clients. It never carries the
// password hash or the token secret.
type PublicAccount struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (a Account) Public() PublicAccount {
	return PublicAccount{ID: a.ID, Email: a.Email, Username: a.Username}
}

// AccessClaims are the verified claims of an access token.
type AccessClaims struct {
	Subject  string `json:"sub"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}
