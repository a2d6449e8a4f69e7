package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Envelope is the wrapper shared by every REST response from the backend.
// Data is left raw so callers can decode it into an endpoint-specific type.
type Envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Error is a failed API call: a non-2xx status or an envelope with
// success=false. Code and Message come from the response envelope when
// one could be parsed.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (%d %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

// IsUnauthorized reports whether err (or any error in its chain) is an API
// error with status 401.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// decodeEnvelope parses a response body into its envelope and, on success,
// decodes the data payload into result (when non-nil).
func decodeEnvelope(status int, body []byte, result any) error {
	var env Envelope
	if len(body) > 0 {
		// A failed parse on an error status still yields a usable Error
		// below; on a success status it is a protocol violation.
		if err := json.Unmarshal(body, &env); err != nil && status >= 200 && status < 300 {
			return fmt.Errorf("decoding response envelope: %w", err)
		}
	}

	if status < 200 || status >= 300 || (len(body) > 0 && !env.Success) {
		return &Error{Status: status, Code: env.Code, Message: env.Message}
	}

	if result == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}
