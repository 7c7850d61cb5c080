package launch

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork wraps connectivity, DNS and TLS failures.
	ErrNetwork = errors.New("network error")
	// ErrTooManyRedirects is returned when a configured redirect cap is exceeded.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrNoAssetFound is returned when the latest release has no jar asset.
	ErrNoAssetFound = errors.New("no jar asset found in latest release")
	// ErrInstall wraps runtime download and extraction failures.
	ErrInstall = errors.New("runtime installation failed")
	// ErrAlreadyRunning is returned when a launch is requested during an active session.
	ErrAlreadyRunning = errors.New("already running")
	// ErrSpawn wraps child process start failures.
	ErrSpawn = errors.New("spawn failed")
)

// HTTPStatusError is returned for non-200 responses that are not followed redirects.
type HTTPStatusError struct {
	// URL is the requested address.
	URL string
	// StatusCode is the HTTP status code received.
	StatusCode int
}

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}
