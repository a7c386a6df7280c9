package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// Client is a thin typed wrapper over the back-office REST API. It expects
// an *http.Client whose transport already handles authentication; the
// methods here only deal with paths, queries, and payload shapes.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a resource client for the given base URL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// ListParams selects a page of a collection.
type ListParams struct {
	Page     int
	PageSize int
}

func (p ListParams) query() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(p.PageSize))
	}
	return q
}

// ListUsers returns a page of back-office users.
func (c *Client) ListUsers(ctx context.Context, params ListParams) (*Page[User], error) {
	return list[User](ctx, c, "/users", params)
}

// ListStores returns a page of stores.
func (c *Client) ListStores(ctx context.Context, params ListParams) (*Page[Store], error) {
	return list[Store](ctx, c, "/stores", params)
}

// ListDevices returns a page of registered terminals.
func (c *Client) ListDevices(ctx context.Context, params ListParams) (*Page[Device], error) {
	return list[Device](ctx, c, "/devices", params)
}

// ListOperators returns a page of telecom operators.
func (c *Client) ListOperators(ctx context.Context, params ListParams) (*Page[Operator], error) {
	return list[Operator](ctx, c, "/operators", params)
}

// ListLicensePrices returns a page of license pricing tiers.
func (c *Client) ListLicensePrices(ctx context.Context, params ListParams) (*Page[LicensePrice], error) {
	return list[LicensePrice](ctx, c, "/license-prices", params)
}

// Overview returns the dashboard counters.
func (c *Client) Overview(ctx context.Context) (*Overview, error) {
	var out Overview
	if err := c.getJSON(ctx, "/overview", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks API reachability. It requires no authentication.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}

	return nil
}

func list[T any](ctx context.Context, c *Client, path string, params ListParams) (*Page[T], error) {
	var out Page[T]
	if err := c.getJSON(ctx, path, params.query(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// The transport already spent its refresh-and-replay attempt.
		return fmt.Errorf("%w: %s", ErrUnauthorized, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return &StatusError{StatusCode: resp.StatusCode, Message: ErrorMessage(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
