package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrushidany/scoop-pos-admin-sub001/internal/api"
	"github.com/mrushidany/scoop-pos-admin-sub001/internal/secrets"
)

func testSecretsStore(t *testing.T) *secrets.Store {
	t.Helper()
	codec, err := secrets.CodecFromPassphrase("test-passphrase")
	require.NoError(t, err)
	store, err := secrets.NewStore(t.TempDir(), codec)
	require.NoError(t, err)
	return store
}

func loginBackend(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			var req api.LoginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			if req.Email != "admin@example.com" || req.Password != "hunter2" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Invalid email or password"}`))
				return
			}

			_ = json.NewEncoder(w).Encode(api.LoginResponse{
				AccessToken:  "a1",
				RefreshToken: "r1",
				ExpiresIn:    3600,
				User:         api.User{ID: "u1", Name: "Admin", Email: req.Email, Admin: true, Active: true},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestManager_LoginSuccess(t *testing.T) {
	srv := loginBackend(t)
	defer srv.Close()

	store := testSecretsStore(t)
	mgr := NewManager(srv.URL, store, srv.Client())

	err := mgr.Login(context.Background(), "admin@example.com", "hunter2")
	require.NoError(t, err)

	assert.True(t, mgr.IsAuthenticated())
	assert.Equal(t, "a1", mgr.Token())
	require.NotNil(t, mgr.User())
	assert.True(t, mgr.User().Admin)

	// Persisted access token decrypts back to the issued value
	token, ok := store.Get(secrets.EntryAccessToken)
	require.True(t, ok)
	assert.Equal(t, "a1", token)

	refresh, ok := store.Get(secrets.EntryRefreshToken)
	require.True(t, ok)
	assert.Equal(t, "r1", refresh)

	// Expiry is a plain epoch-millisecond string about an hour out
	raw, ok := store.Get(secrets.EntryExpiry)
	require.True(t, ok)
	millis, err := strconv.ParseInt(raw, 10, 64)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), time.UnixMilli(millis), time.Minute)
}

func TestManager_LoginInvalidCredentials(t *testing.T) {
	srv := loginBackend(t)
	defer srv.Close()

	mgr := NewManager(srv.URL, testSecretsStore(t), srv.Client())

	err := mgr.Login(context.Background(), "admin@example.com", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "Invalid email or password")
	assert.False(t, mgr.IsAuthenticated())
	assert.Empty(t, mgr.Token())
}

func TestManager_LoginServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"upstream unavailable"}`))
	}))
	defer srv.Close()

	mgr := NewManager(srv.URL, testSecretsStore(t), srv.Client())

	err := mgr.Login(context.Background(), "admin@example.com", "hunter2")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "upstream unavailable")
	assert.False(t, mgr.IsAuthenticated())
}

func TestManager_InitializeRestoresSession(t *testing.T) {
	srv := loginBackend(t)
	defer srv.Close()

	store := testSecretsStore(t)

	mgr := NewManager(srv.URL, store, srv.Client())
	require.NoError(t, mgr.Login(context.Background(), "admin@example.com", "hunter2"))

	// A fresh manager over the same store picks the session up
	restored := NewManager(srv.URL, store, srv.Client())
	require.NoError(t, restored.Initialize())

	assert.True(t, restored.IsAuthenticated())
	assert.Equal(t, "a1", restored.Token())
	require.NotNil(t, restored.User())
	assert.Equal(t, "admin@example.com", restored.User().Email)

	// Idempotent
	require.NoError(t, restored.Initialize())
	assert.True(t, restored.IsAuthenticated())
}

func TestManager_InitializeEmptyStore(t *testing.T) {
	mgr := NewManager("http://unused", testSecretsStore(t), nil)

	require.NoError(t, mgr.Initialize())
	assert.False(t, mgr.IsAuthenticated())
}

func TestManager_InitializePurgesExpiredSession(t *testing.T) {
	store := testSecretsStore(t)

	require.NoError(t, store.Set(secrets.EntryAccessToken, "a1", secrets.RetentionAccessToken))
	require.NoError(t, store.Set(secrets.EntryRefreshToken, "r1", secrets.RetentionRefreshToken))
	require.NoError(t, store.Set(secrets.EntryUserMeta, `{"id":"u1"}`, secrets.RetentionUserMeta))
	past := time.Now().Add(-time.Minute).UnixMilli()
	require.NoError(t, store.SetPlain(secrets.EntryExpiry, strconv.FormatInt(past, 10), secrets.RetentionAccessToken))

	mgr := NewManager("http://unused", store, nil)
	require.NoError(t, mgr.Initialize())

	assert.False(t, mgr.IsAuthenticated())

	// All four entries are gone, refresh token included
	for _, name := range []string{
		secrets.EntryAccessToken,
		secrets.EntryRefreshToken,
		secrets.EntryExpiry,
		secrets.EntryUserMeta,
	} {
		_, ok := store.Get(name)
		assert.False(t, ok, name)
	}
}

func TestManager_InitializeRejectsTokenWithoutExpiry(t *testing.T) {
	store := testSecretsStore(t)

	// An access token with no expiry entry is never trusted
	require.NoError(t, store.Set(secrets.EntryAccessToken, "a1", secrets.RetentionAccessToken))

	mgr := NewManager("http://unused", store, nil)
	require.NoError(t, mgr.Initialize())

	assert.False(t, mgr.IsAuthenticated())
	_, ok := store.Get(secrets.EntryAccessToken)
	assert.False(t, ok)
}

func TestManager_CheckAuth(t *testing.T) {
	srv := loginBackend(t)
	defer srv.Close()

	store := testSecretsStore(t)
	mgr := NewManager(srv.URL, store, srv.Client())

	assert.False(t, mgr.CheckAuth())
	assert.ErrorIs(t, mgr.Require(), ErrNotAuthenticated)

	require.NoError(t, mgr.Login(context.Background(), "admin@example.com", "hunter2"))
	assert.True(t, mgr.CheckAuth())
	assert.NoError(t, mgr.Require())

	// Move the wall clock past the session expiry
	mgr.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.ErrorIs(t, mgr.Require(), ErrSessionExpired)
	assert.False(t, mgr.CheckAuth())

	_, ok := store.Get(secrets.EntryAccessToken)
	assert.False(t, ok)
}

func TestManager_Logout(t *testing.T) {
	srv := loginBackend(t)
	defer srv.Close()

	store := testSecretsStore(t)
	mgr := NewManager(srv.URL, store, srv.Client())
	require.NoError(t, mgr.Login(context.Background(), "admin@example.com", "hunter2"))

	mgr.Logout()

	assert.False(t, mgr.IsAuthenticated())
	assert.Empty(t, mgr.Token())
	_, ok := store.Get(secrets.EntryRefreshToken)
	assert.False(t, ok)
}

func TestManager_RefreshSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/refresh", r.URL.Path)

		var req api.RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "r1", req.RefreshToken)

		_ = json.NewEncoder(w).Encode(api.RefreshResponse{AccessToken: "a2", ExpiresIn: 3600})
	}))
	defer srv.Close()

	store := testSecretsStore(t)
	require.NoError(t, store.Set(secrets.EntryRefreshToken, "r1", secrets.RetentionRefreshToken))

	mgr := NewManager(srv.URL, store, srv.Client())

	token, err := mgr.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a2", token)
	assert.Equal(t, "a2", mgr.Token())

	persisted, ok := store.Get(secrets.EntryAccessToken)
	require.True(t, ok)
	assert.Equal(t, "a2", persisted)
}

func TestManager_RefreshFailureKeepsRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"refresh token revoked"}`))
	}))
	defer srv.Close()

	store := testSecretsStore(t)
	require.NoError(t, store.Set(secrets.EntryAccessToken, "a1", secrets.RetentionAccessToken))
	require.NoError(t, store.Set(secrets.EntryRefreshToken, "r1", secrets.RetentionRefreshToken))
	require.NoError(t, store.SetPlain(secrets.EntryExpiry,
		strconv.FormatInt(time.Now().Add(time.Hour).UnixMilli(), 10), secrets.RetentionAccessToken))

	mgr := NewManager(srv.URL, store, srv.Client())
	require.NoError(t, mgr.Initialize())

	_, err := mgr.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRefreshExhausted)
	assert.Contains(t, err.Error(), "refresh token revoked")

	// Access token and expiry purged, refresh token retained
	_, ok := store.Get(secrets.EntryAccessToken)
	assert.False(t, ok)
	_, ok = store.Get(secrets.EntryExpiry)
	assert.False(t, ok)

	refresh, ok := store.Get(secrets.EntryRefreshToken)
	require.True(t, ok)
	assert.Equal(t, "r1", refresh)
	assert.True(t, mgr.CanRefresh())
}

func TestManager_RefreshWithoutToken(t *testing.T) {
	mgr := NewManager("http://unused", testSecretsStore(t), nil)

	assert.False(t, mgr.CanRefresh())
	_, err := mgr.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoRefreshToken)
}

func TestManager_RefreshExpiryFallsBackToTokenClaim(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No expires_in in the response
		_ = json.NewEncoder(w).Encode(api.RefreshResponse{AccessToken: signed})
	}))
	defer srv.Close()

	store := testSecretsStore(t)
	require.NoError(t, store.Set(secrets.EntryRefreshToken, "r1", secrets.RetentionRefreshToken))

	mgr := NewManager(srv.URL, store, srv.Client())

	_, err = mgr.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, exp.UnixMilli(), mgr.ExpiresAt().UnixMilli())
}
