package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/mrushidany/scoop-pos-admin-sub001/internal/api"
	"github.com/mrushidany/scoop-pos-admin-sub001/internal/secrets"
)

// defaultTokenTTL is assumed when neither the response nor the token itself
// carries an expiry.
const defaultTokenTTL = time.Hour

// Manager is the single source of truth for the current session. It owns
// every mutation of the in-memory Session and keeps it in sync with the
// persisted store. All methods are safe for concurrent use.
type Manager struct {
	baseURL    string
	store      *secrets.Store
	httpClient *http.Client

	mu      sync.RWMutex
	session Session

	// now is overridable in tests.
	now func() time.Time
}

// NewManager creates a session manager. The httpClient is used for the
// login and refresh calls only; it must NOT carry the refreshing transport,
// or a failing refresh would recurse into itself.
func NewManager(baseURL string, store *secrets.Store, httpClient *http.Client) *Manager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Manager{
		baseURL:    baseURL,
		store:      store,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Initialize rehydrates the in-memory session from the persisted store.
// A persisted access token without a valid, unexpired expiry entry is never
// trusted: all entries are purged and the session stays unauthenticated.
// Expiry is evaluated against the local wall clock, not a server round
// trip. Safe to call multiple times.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	accessToken, ok := m.store.Get(secrets.EntryAccessToken)
	if !ok {
		m.session = Session{}
		return nil
	}

	expiresAt, ok := m.persistedExpiry()
	if !ok || !m.now().Before(expiresAt) {
		log.Debug().Msg("persisted session expired or missing expiry, purging")
		if err := m.store.ClearAll(); err != nil {
			log.Warn().Err(err).Msg("failed to purge expired session")
		}
		m.session = Session{}
		return nil
	}

	refreshToken, _ := m.store.Get(secrets.EntryRefreshToken)

	var user *api.User
	if meta, ok := m.store.Get(secrets.EntryUserMeta); ok {
		var u api.User
		if err := json.Unmarshal([]byte(meta), &u); err == nil {
			user = &u
		}
	}

	m.session = Session{
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		ExpiresAt:     expiresAt,
		User:          user,
		Authenticated: true,
	}

	log.Debug().Time("expiresAt", expiresAt).Msg("session restored from store")

	return nil
}

// Login exchanges credentials for a session. On success the four persisted
// entries are written and the in-memory session flips to authenticated. A
// 401 from the backend yields ErrInvalidCredentials carrying the server's
// message; any other failure carries a best-effort extracted message. Both
// leave the session unauthenticated.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("failed to marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.clearInMemory()
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		m.clearInMemory()
		return fmt.Errorf("failed to read login response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		m.clearInMemory()
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, api.ErrorMessage(respBody))
	}

	if resp.StatusCode != http.StatusOK {
		m.clearInMemory()
		return fmt.Errorf("login failed: %s", api.ErrorMessage(respBody))
	}

	var loginResp api.LoginResponse
	if err := json.Unmarshal(respBody, &loginResp); err != nil {
		m.clearInMemory()
		return fmt.Errorf("failed to decode login response: %w", err)
	}

	expiresAt := m.expiryFor(loginResp.AccessToken, loginResp.ExpiresIn)

	if err := m.persist(loginResp.AccessToken, loginResp.RefreshToken, expiresAt, &loginResp.User); err != nil {
		m.clearInMemory()
		return err
	}

	m.mu.Lock()
	m.session = Session{
		AccessToken:   loginResp.AccessToken,
		RefreshToken:  loginResp.RefreshToken,
		ExpiresAt:     expiresAt,
		User:          &loginResp.User,
		Authenticated: true,
	}
	m.mu.Unlock()

	log.Info().Str("email", email).Time("expiresAt", expiresAt).Msg("logged in")

	return nil
}

// Logout clears the persisted entries and the in-memory session. It never
// fails to reach the unauthenticated state; a storage error only loses the
// cleanup of stale ciphertext, which a later Initialize will purge anyway.
func (m *Manager) Logout() {
	if err := m.store.ClearAll(); err != nil {
		log.Warn().Err(err).Msg("failed to clear persisted session")
	}
	m.clearInMemory()

	log.Info().Msg("logged out")
}

// CheckAuth recomputes the authenticated state from the persisted store
// using the same local expiry rule as Initialize. An expired session is
// purged as a side effect.
func (m *Manager) CheckAuth() bool {
	ok, _ := m.checkAuth()
	return ok
}

// Require returns nil when a valid session exists, ErrSessionExpired when a
// persisted session was present but stale, and ErrNotAuthenticated when
// there is none. Used by commands to guard authenticated operations.
func (m *Manager) Require() error {
	ok, expired := m.checkAuth()
	switch {
	case ok:
		return nil
	case expired:
		return ErrSessionExpired
	default:
		return ErrNotAuthenticated
	}
}

func (m *Manager) checkAuth() (authenticated, expired bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, hasToken := m.store.Get(secrets.EntryAccessToken)
	if !hasToken {
		m.session = Session{}
		return false, false
	}

	expiresAt, ok := m.persistedExpiry()
	if !ok || !m.now().Before(expiresAt) {
		if err := m.store.ClearAll(); err != nil {
			log.Warn().Err(err).Msg("failed to purge expired session")
		}
		m.session = Session{}
		return false, true
	}

	return true, false
}

// Refresh exchanges the refresh token for a new access token and persists
// it. On failure the access token and expiry entries are purged while the
// refresh token is deliberately kept, so a later login does not have to
// re-establish it. Returns the new access token.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	refreshToken := m.currentRefreshToken()
	if refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	body, err := json.Marshal(api.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", fmt.Errorf("failed to marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/refresh", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.purgeAccessToken()
		return "", fmt.Errorf("%w: %v", ErrRefreshExhausted, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		m.purgeAccessToken()
		return "", fmt.Errorf("%w: %v", ErrRefreshExhausted, err)
	}

	if resp.StatusCode != http.StatusOK {
		m.purgeAccessToken()
		return "", fmt.Errorf("%w: %s", ErrRefreshExhausted, api.ErrorMessage(respBody))
	}

	var refreshResp api.RefreshResponse
	if err := json.Unmarshal(respBody, &refreshResp); err != nil {
		m.purgeAccessToken()
		return "", fmt.Errorf("%w: %v", ErrRefreshExhausted, err)
	}

	expiresAt := m.expiryFor(refreshResp.AccessToken, refreshResp.ExpiresIn)

	if err := m.store.Set(secrets.EntryAccessToken, refreshResp.AccessToken, secrets.RetentionAccessToken); err != nil {
		return "", fmt.Errorf("failed to persist access token: %w", err)
	}
	if err := m.store.SetPlain(secrets.EntryExpiry, epochMillis(expiresAt), secrets.RetentionAccessToken); err != nil {
		return "", fmt.Errorf("failed to persist expiry: %w", err)
	}

	m.mu.Lock()
	m.session.AccessToken = refreshResp.AccessToken
	m.session.ExpiresAt = expiresAt
	m.session.Authenticated = true
	m.mu.Unlock()

	log.Debug().Time("expiresAt", expiresAt).Msg("access token refreshed")

	return refreshResp.AccessToken, nil
}

// Token returns the current access token, or "" when unauthenticated.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.AccessToken
}

// CanRefresh reports whether a refresh token is available.
func (m *Manager) CanRefresh() bool {
	return m.currentRefreshToken() != ""
}

// IsAuthenticated reports the in-memory authenticated state.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Authenticated
}

// User returns the current user snapshot, or nil when unauthenticated.
func (m *Manager) User() *api.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.User
}

// ExpiresAt returns the current access token expiry.
func (m *Manager) ExpiresAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.ExpiresAt
}

func (m *Manager) currentRefreshToken() string {
	m.mu.RLock()
	token := m.session.RefreshToken
	m.mu.RUnlock()
	if token != "" {
		return token
	}

	token, _ = m.store.Get(secrets.EntryRefreshToken)
	return token
}

// persist writes the four session entries. The refresh token gets the
// longer retention window.
func (m *Manager) persist(accessToken, refreshToken string, expiresAt time.Time, user *api.User) error {
	if err := m.store.Set(secrets.EntryAccessToken, accessToken, secrets.RetentionAccessToken); err != nil {
		return fmt.Errorf("failed to persist access token: %w", err)
	}
	if err := m.store.Set(secrets.EntryRefreshToken, refreshToken, secrets.RetentionRefreshToken); err != nil {
		return fmt.Errorf("failed to persist refresh token: %w", err)
	}
	if err := m.store.SetPlain(secrets.EntryExpiry, epochMillis(expiresAt), secrets.RetentionAccessToken); err != nil {
		return fmt.Errorf("failed to persist expiry: %w", err)
	}

	meta, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user metadata: %w", err)
	}
	if err := m.store.Set(secrets.EntryUserMeta, string(meta), secrets.RetentionUserMeta); err != nil {
		return fmt.Errorf("failed to persist user metadata: %w", err)
	}

	return nil
}

// purgeAccessToken drops the access token and expiry entries after a failed
// refresh. The refresh token stays so a subsequent login or manual refresh
// does not need to re-establish it.
func (m *Manager) purgeAccessToken() {
	if err := m.store.Clear(secrets.EntryAccessToken); err != nil {
		log.Warn().Err(err).Msg("failed to clear access token")
	}
	if err := m.store.Clear(secrets.EntryExpiry); err != nil {
		log.Warn().Err(err).Msg("failed to clear expiry")
	}

	m.mu.Lock()
	m.session.AccessToken = ""
	m.session.ExpiresAt = time.Time{}
	m.session.Authenticated = false
	m.mu.Unlock()
}

func (m *Manager) clearInMemory() {
	m.mu.Lock()
	m.session = Session{}
	m.mu.Unlock()
}

// persistedExpiry reads the plain epoch-millisecond expiry entry.
func (m *Manager) persistedExpiry() (time.Time, bool) {
	raw, ok := m.store.Get(secrets.EntryExpiry)
	if !ok {
		return time.Time{}, false
	}

	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}

	return time.UnixMilli(millis), true
}

// expiryFor derives the absolute expiry from the server-supplied duration,
// falling back to the token's own exp claim, then to a fixed default.
func (m *Manager) expiryFor(accessToken string, expiresIn int64) time.Time {
	if expiresIn > 0 {
		return m.now().Add(time.Duration(expiresIn) * time.Second)
	}

	if exp, ok := tokenExpiry(accessToken); ok {
		return exp
	}

	return m.now().Add(defaultTokenTTL)
}

// tokenExpiry extracts the exp claim without verifying the signature; the
// backend is the authority on validity, this is only a local expiry hint.
func tokenExpiry(accessToken string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func epochMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
