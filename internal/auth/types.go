package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotSignedIn means no stored credentials exist (or they were revoked).
var ErrNotSignedIn = errors.New("not signed in")

// User is the signed-in identity as shown to the user
type User struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

// Credentials is what the store persists between runs
type Credentials struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name,omitempty"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	Provider     string    `json:"provider,omitempty"`
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ProviderError is an error reported by the identity service, e.g. EMAIL_NOT_FOUND.
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
}

var providerMessages = map[string]string{
	"EMAIL_NOT_FOUND":             "no account exists for this email",
	"INVALID_PASSWORD":            "invalid email or password",
	"INVALID_LOGIN_CREDENTIALS":   "invalid email or password",
	"USER_DISABLED":               "this account has been disabled",
	"EMAIL_EXISTS":                "an account already exists for this email",
	"WEAK_PASSWORD":               "password should be at least 6 characters",
	"INVALID_EMAIL":               "invalid email address",
	"TOO_MANY_ATTEMPTS_TRY_LATER": "too many attempts, try again later",
	"TOKEN_EXPIRED":               "your session has expired, please sign in again",
	"INVALID_REFRESH_TOKEN":       "your session has expired, please sign in again",
	"INVALID_IDP_RESPONSE":        "the identity provider rejected the sign-in",
}

func (e *ProviderError) Error() string {
	if msg, ok := providerMessages[e.Code]; ok {
		return msg
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("identity service error %d", e.StatusCode)
}

// Codes the token endpoint uses when a refresh token can never work again
var revokedCodes = map[string]bool{
	"TOKEN_EXPIRED":         true,
	"INVALID_REFRESH_TOKEN": true,
	"USER_DISABLED":         true,
	"USER_NOT_FOUND":        true,
	"MISSING_REFRESH_TOKEN": true,
}

// Revoked reports whether the identity service rejected the credentials for
// good, as opposed to failing for a while (5xx, unreadable bodies).
func (e *ProviderError) Revoked() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && revokedCodes[e.Code]
}

// newProviderError splits messages like "WEAK_PASSWORD : Password should be at least 6 characters".
func newProviderError(status int, message string) *ProviderError {
	code, detail, found := strings.Cut(message, " : ")
	code = strings.TrimSpace(code)
	if !found {
		detail = code
	}
	return &ProviderError{
		StatusCode: status,
		Code:       code,
		Message:    strings.TrimSpace(detail),
	}
}
