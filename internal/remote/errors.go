package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// TransportError reports a request that never produced an HTTP response:
// DNS failure, refused connection, timeout or a broken stream.
type TransportError struct {
	Endpoint string
	URL      string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("connection error with endpoint %s (%s): %v", e.Endpoint, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the underlying failure was a timeout.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// ProtocolError reports a response whose body did not have the expected shape.
type ProtocolError struct {
	Endpoint string
	URL      string
	Reason   string
	Err      error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid response from %s (%s): %s: %v", e.Endpoint, e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid response from %s (%s): %s", e.Endpoint, e.URL, e.Reason)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// APIError reports a response with a status outside [200,300).
type APIError struct {
	Endpoint   string
	URL        string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api %s returned status %d", e.URL, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Kind classifies an APIError by status code.
type Kind int

const (
	KindOther Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindServer
)

// Kind returns the status class of the error.
func (e *APIError) Kind() Kind {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return KindUnauthorized
	case e.StatusCode == http.StatusForbidden:
		return KindForbidden
	case e.StatusCode == http.StatusNotFound:
		return KindNotFound
	case e.StatusCode >= 500:
		return KindServer
	default:
		return KindOther
	}
}

// StatusCode extracts the HTTP status from err, or 0 when err is not an APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Hint returns user-facing guidance for err. It only inspects error types and
// status codes.
func Hint(err error) string {
	if err == nil {
		return ""
	}
	var (
		transport *TransportError
		protocol  *ProtocolError
		apiErr    *APIError
	)
	switch {
	case errors.As(err, &apiErr):
		switch apiErr.Kind() {
		case KindUnauthorized:
			return "Authentication failed. Check the username and password for this endpoint."
		case KindForbidden:
			return "Access forbidden. You don't have permission to access this resource."
		case KindNotFound:
			return "Resource not found. The program or endpoint path does not exist."
		case KindServer:
			return "Server error. Try again later or contact the API administrator."
		default:
			return "The server rejected the request."
		}
	case errors.As(err, &transport):
		if errors.Is(err, context.Canceled) {
			return "The request was cancelled."
		}
		if transport.Timeout() {
			return "The connection timed out. The server might be slow or overloaded."
		}
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			return "The hostname could not be resolved. Check that the URL is correct."
		}
		return "The server appears to be offline or unreachable. Check your network connection."
	case errors.As(err, &protocol):
		return "The server response was not understood. The client and server versions may not match."
	default:
		return ""
	}
}
