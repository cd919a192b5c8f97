package util

import (
	"net/http"
	"regexp"
	"strings"

	"go-auth-service/pkg/apierror"
)

// Deliberately loose: full RFC 5322 validation rejects real addresses, and
// the mailbox is never dereferenced by this service anyway.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)

const MinPasswordLength = 8

// NormalizeIdentifier trims and lowercases a username or email for
// case-insensitive matching.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apierror.New("INVALID_REQUEST", "email should not be empty", "", http.StatusBadRequest)
	}
	if !emailPattern.MatchString(email) {
		return apierror.New("INVALID_REQUEST", "email is invalid", "", http.StatusBadRequest)
	}
	return nil
}

func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return apierror.New("INVALID_REQUEST", "username should not be empty", "", http.StatusBadRequest)
	}
	return nil
}

func ValidatePassword(password string) error {
	if password == "" {
		return apierror.New("INVALID_REQUEST", "password should not be empty", "", http.StatusBadRequest)
	}
	if len(password) < MinPasswordLength {
		return apierror.New("INVALID_REQUEST", "password must be at least 8 characters", "", http.StatusBadRequest)
	}
	return nil
}
