package rada

import (
	"errors"
	"fmt"
)

// ErrMissingRegisteredIP is returned when the registered-identity setting
// required by the token endpoint is not configured.
var ErrMissingRegisteredIP = errors.New("RADA_REGISTERED_IP is not set")

var errEmptyToken = errors.New("token endpoint returned an empty token")

// StatusError is a non-success HTTP response from the upstream portal.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.Code)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Code, e.Body)
}

// CredentialFetchError means no valid access token could be obtained.
type CredentialFetchError struct {
	Attempts int
	Status   int
	Err      error
}

func (e *CredentialFetchError) Error() string {
	return fmt.Sprintf("fetch rada token (attempts=%d, status=%d): %v", e.Attempts, e.Status, e.Err)
}

func (e *CredentialFetchError) Unwrap() error { return e.Err }

// DatasetFetchError means the bill dataset could not be downloaded or parsed.
type DatasetFetchError struct {
	Attempts int
	Status   int
	Err      error
}

func (e *DatasetFetchError) Error() string {
	return fmt.Sprintf("fetch rada dataset (attempts=%d, status=%d): %v", e.Attempts, e.Status, e.Err)
}

func (e *DatasetFetchError) Unwrap() error { return e.Err }

// statusOf extracts the upstream HTTP status carried by err, or 0.
func statusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
