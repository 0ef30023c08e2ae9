package provider

import (
	"errors"
	"fmt"
)

// ErrUnknownProvider is returned by the registry for an unrecognized
// provider id.
var ErrUnknownProvider = errors.New("unknown provider")

// AuthExchangeError reports a failed OAuth code or token exchange.
// Authorization codes are single-use, so these are never retried; the
// operator restarts the connect flow.
type AuthExchangeError struct {
	Provider   string
	StatusCode int
	Reason     string
}

func (e *AuthExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s auth exchange failed (status %d): %s", e.Provider, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("%s auth exchange failed: %s", e.Provider, e.Reason)
}

// APIError reports a failed provider listing or fetch call. These are
// isolated per channel and never fail a whole scan.
type APIError struct {
	Provider   string
	Op         string
	StatusCode int
	Reason     string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed (status %d): %s", e.Provider, e.Op, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Provider, e.Op, e.Reason)
}
