package api

// LoginRequest is the credential exchange payload for POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the freshly minted session credentials.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         User   `json:"user"`
}

// RefreshRequest is the payload for POST /refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse carries a new access token. ExpiresIn may be zero when the
// backend omits it; callers fall back to the token's own expiry claim.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// User is the minimal identity snapshot attached to a session.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Admin  bool   `json:"is_admin"`
	Active bool   `json:"is_active"`
}

// Store is a point-of-sale store record.
type Store struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Active   bool   `json:"is_active"`
	DeviceID string `json:"device_id,omitempty"`
}

// Device is a registered point-of-sale terminal.
type Device struct {
	ID           string `json:"id"`
	SerialNumber string `json:"serial_number"`
	Model        string `json:"model"`
	StoreID      string `json:"store_id,omitempty"`
	Active       bool   `json:"is_active"`
}

// Operator is a telecom operator whose airtime the terminals sell.
type Operator struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Code   string `json:"code"`
	Active bool   `json:"is_active"`
}

// LicensePrice is a license pricing tier.
type LicensePrice struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Months   int     `json:"duration_months"`
}

// Overview holds the dashboard counters.
type Overview struct {
	Users     int `json:"users"`
	Stores    int `json:"stores"`
	Devices   int `json:"devices"`
	Operators int `json:"operators"`
}

// Page is the paginated list envelope the backend wraps collections in.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}
