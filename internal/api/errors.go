package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Sentinel errors
var (
	// ErrUnauthorized is returned when a request still gets a 401 after the
	// transport's refresh-and-replay has run its course.
	ErrUnauthorized = errors.New("unauthorized")
)

// FallbackMessage is used when an error payload yields nothing readable.
const FallbackMessage = "request failed"

// StatusError is a non-2xx API response with its extracted message.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// errorPayload matches the loosely structured error bodies the backend
// produces. Only one of the fields is usually populated.
type errorPayload struct {
	Message string                     `json:"message"`
	Err     string                     `json:"error"`
	Errors  map[string]json.RawMessage `json:"errors"`
}

// ErrorMessage extracts a human-readable message from an error response
// body. Priority order: "message" field, then "error" field, then the first
// string value in the "errors" map (by sorted key, so the result is stable),
// then a generic fallback.
func ErrorMessage(body []byte) string {
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return FallbackMessage
	}

	if payload.Message != "" {
		return payload.Message
	}

	if payload.Err != "" {
		return payload.Err
	}

	if len(payload.Errors) > 0 {
		keys := make([]string, 0, len(payload.Errors))
		for k := range payload.Errors {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			var s string
			if err := json.Unmarshal(payload.Errors[k], &s); err == nil && s != "" {
				return s
			}
		}
	}

	return FallbackMessage
}
