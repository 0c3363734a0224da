package types

import (
	"fmt"
	"net/http"
)

// TransportError represents a failure in a transport adapter.
type TransportError struct {
	Kind    TransportErrorKind
	Status  int // HTTP status code, set for HTTPStatusError only
	Message string
}

// TransportErrorKind defines the specific type of transport error.
type TransportErrorKind int

const (
	NetworkTimeoutError TransportErrorKind = iota
	HTTPStatusError
	DecodeError
	ConnectionClosedError
	OtherTransportError
)

// Error implements the error interface for TransportError.
func (e *TransportError) Error() string {
	if e.Kind == HTTPStatusError {
		return fmt.Sprintf("%s: %d: %s", e.Kind.String(), e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind.String(), e.Message)
}

// RateLimited reports whether the error is an HTTP 429 from the exchange.
func (e *TransportError) RateLimited() bool {
	return e.Kind == HTTPStatusError && e.Status == http.StatusTooManyRequests
}

// String returns a string representation of the TransportErrorKind.
func (k TransportErrorKind) String() string {
	switch k {
	case NetworkTimeoutError:
		return "Network timeout"
	case HTTPStatusError:
		return "HTTP status"
	case DecodeError:
		return "Decode error"
	case ConnectionClosedError:
		return "Connection closed"
	case OtherTransportError:
		return "Transport error"
	default:
		return "Unknown transport error"
	}
}

// NewNetworkTimeoutError creates a new NetworkTimeoutError.
func NewNetworkTimeoutError(message string) *TransportError {
	return &TransportError{Kind: NetworkTimeoutError, Message: message}
}

// NewHTTPStatusError creates a new HTTPStatusError for the given code.
func NewHTTPStatusError(status int, message string) *TransportError {
	return &TransportError{Kind: HTTPStatusError, Status: status, Message: message}
}

// NewDecodeError creates a new DecodeError.
func NewDecodeError(message string) *TransportError {
	return &TransportError{Kind: DecodeError, Message: message}
}

// NewConnectionClosedError creates a new ConnectionClosedError.
func NewConnectionClosedError(message string) *TransportError {
	return &TransportError{Kind: ConnectionClosedError, Message: message}
}

// NewOtherTransportError creates a new OtherTransportError.
func NewOtherTransportError(message string) *TransportError {
	return &TransportError{Kind: OtherTransportError, Message: message}
}
