package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const requestIDHeader = "X-Request-Id"

// TokenSource supplies the bearer token for outgoing requests and knows how
// to refresh it. session.Manager is the production implementation.
type TokenSource interface {
	// Token returns the current access token, or "" when there is none.
	Token() string
	// CanRefresh reports whether a refresh token is available.
	CanRefresh() bool
	// Refresh exchanges the refresh token for a new access token.
	Refresh(ctx context.Context) (string, error)
}

type refreshResult struct {
	token string
	err   error
}

// Transport is an http.RoundTripper that authenticates every request and
// absorbs a single access-token expiry without surfacing it to the caller.
//
// On a 401 it runs the refresh protocol: at most one refresh call is in
// flight at any time, requests failing while one is outstanding join its
// result instead of starting a second, and every request is replayed at
// most once with the new token. Refresh state is per-Transport, not global,
// so independent clients never contaminate each other.
type Transport struct {
	base   http.RoundTripper
	tokens TokenSource

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult
}

// New creates a refreshing transport over base. A nil base means
// http.DefaultTransport.
func New(base http.RoundTripper, tokens TokenSource) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, tokens: tokens}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.send(req, t.tokens.Token(), nil)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// No refresh token: nothing to do, the 401 is the caller's to handle.
	if !t.tokens.CanRefresh() {
		return resp, nil
	}

	// A request whose body cannot be re-materialized cannot be replayed.
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		log.Debug().Str("url", req.URL.String()).Msg("401 on non-replayable request, not retrying")
		return resp, nil
	}

	drain(resp)

	token, err := t.refreshToken(req.Context())
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", req.Method, req.URL.Path, err)
	}

	// Single replay with the fresh token. A second 401 propagates as-is;
	// there is never a third attempt.
	body, err := replayBody(req)
	if err != nil {
		return nil, err
	}
	return t.send(req, token, body)
}

// send issues one attempt. The incoming request is never mutated, per the
// RoundTripper contract.
func (t *Transport) send(req *http.Request, token string, body io.ReadCloser) (*http.Response, error) {
	r := req.Clone(req.Context())
	if body != nil {
		r.Body = body
	}

	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	if r.Header.Get(requestIDHeader) == "" {
		r.Header.Set(requestIDHeader, uuid.New().String())
	}

	return t.base.RoundTrip(r)
}

// refreshToken runs or joins the single-flight refresh. The first caller
// after a 401 performs the network call; everyone else queues behind it and
// receives the same outcome, FIFO. On failure every queued waiter is
// rejected with the refresh error rather than being left pending.
func (t *Transport) refreshToken(ctx context.Context) (string, error) {
	t.mu.Lock()
	if t.refreshing {
		ch := make(chan refreshResult, 1)
		t.waiters = append(t.waiters, ch)
		t.mu.Unlock()

		log.Debug().Msg("refresh already in flight, joining queue")

		select {
		case res := <-ch:
			return res.token, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	t.refreshing = true
	t.mu.Unlock()

	log.Debug().Msg("access token rejected, refreshing")

	token, err := t.tokens.Refresh(ctx)

	t.mu.Lock()
	t.refreshing = false
	waiters := t.waiters
	t.waiters = nil
	t.mu.Unlock()

	res := refreshResult{token: token, err: err}
	for _, ch := range waiters {
		ch <- res
	}

	if err != nil {
		log.Debug().Err(err).Int("queued", len(waiters)).Msg("refresh failed")
		return "", err
	}

	log.Debug().Int("queued", len(waiters)).Msg("refresh succeeded, replaying requests")

	return token, nil
}

// replayBody re-materializes the request body for the retry attempt.
func replayBody(req *http.Request) (io.ReadCloser, error) {
	if req.GetBody == nil {
		return nil, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("failed to rewind request body: %w", err)
	}
	return body, nil
}

// drain discards the 401 response so the underlying connection can be
// reused for the replay.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
