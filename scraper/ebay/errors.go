package ebay

import (
	"errors"
	"fmt"
)

// ErrNoCredentials is returned when the client has no app id or cert id.
var ErrNoCredentials = errors.New("ebay: EBAY_APP_ID and EBAY_CERT_ID are required")

// TransportError is a failed marketplace call: a network error, a timeout or
// a non-success status. It is never retried by the client.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("ebay %s: status %d: %s", e.Op, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("ebay %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("ebay %s failed", e.Op)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }
