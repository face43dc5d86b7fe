package fullnode

import (
	"errors"
	"fmt"
	"net/http"
)

// TransientError is one failed attempt against one endpoint: a transport error, a
// timeout or a 5xx answer.
type TransientError struct {
	Endpoint   string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *TransientError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s: timed out: %v", e.Endpoint, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d: %v", e.Endpoint, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
	}
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// AllEndpointsFailedError is returned once every endpoint of a network produced a
// transient failure.
type AllEndpointsFailedError struct {
	Network  string
	Path     string
	Attempts int
	Last     *TransientError
}

func (e *AllEndpointsFailedError) Error() string {
	return "All RPC endpoints failed for " + e.Network
}

func (e *AllEndpointsFailedError) Unwrap() error {
	if e.Last == nil {
		return nil
	}
	return e.Last
}

// UpstreamClientError is a 4xx answer from the node. It is never retried on another
// endpoint.
type UpstreamClientError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error_code"`
	Message     string `json:"message"`
	VMErrorCode *int   `json:"vm_error_code,omitempty"`
}

func (e *UpstreamClientError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("upstream responded %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var clientErr *UpstreamClientError
	return errors.As(err, &clientErr) && clientErr.StatusCode == http.StatusNotFound
}
