package common

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompleteFrame is returned by the frame decoder when more bytes are needed
	// to assemble a complete frame. It is never surfaced to callers of the public API.
	ErrIncompleteFrame = errors.New("incomplete frame")

	// ErrClientClosed is returned by every client call made after Close.
	ErrClientClosed = errors.New("client is closed")
)

// ProtocolError reports a malformed or oversized frame or payload.
// The connection that produced it is closed without a response.
type ProtocolError struct {
	Msg string
}

// NewProtocolError creates a new ProtocolError with a formatted message.
func NewProtocolError(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Msg
}

// ConnectionError reports that the peer went away or the transport failed.
type ConnectionError struct {
	Endpoint string
	Err      error
}

// NewConnectionError wraps a transport error.
func NewConnectionError(endpoint string, err error) *ConnectionError {
	return &ConnectionError{Endpoint: endpoint, Err: err}
}

func (e *ConnectionError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("connection error: %v", e.Err)
	}
	return fmt.Sprintf("connection error (%s): %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsProtocolError reports whether err is or wraps a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsConnectionError reports whether err is or wraps a ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}
