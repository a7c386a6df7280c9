package session

import (
	"time"

	"github.com/mrushidany/scoop-pos-admin-sub001/internal/api"
)

// Session is the in-memory authoritative record of the current
// authentication state. The zero value is an unauthenticated session.
type Session struct {
	AccessToken   string
	RefreshToken  string
	ExpiresAt     time.Time
	User          *api.User
	Authenticated bool
}
