package session

import "errors"

// Sentinel errors
var (
	// ErrInvalidCredentials is returned by Login when the backend rejects
	// the email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNoRefreshToken is returned by Refresh when no refresh token is
	// available to exchange.
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrRefreshExhausted is returned when the refresh call itself failed.
	// The access token is purged; the refresh token is kept.
	ErrRefreshExhausted = errors.New("token refresh failed")

	// ErrSessionExpired is returned by Require when a persisted session was
	// present but past its expiry and has been purged.
	ErrSessionExpired = errors.New("session expired")

	// ErrNotAuthenticated is returned by Require when there is no session
	// at all.
	ErrNotAuthenticated = errors.New("not authenticated")
)
