package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingQuery signals an absent or empty query.
	ErrMissingQuery = errors.New("Missing 'query' in request body") //nolint:staticcheck // client-facing message
	// ErrMissingCompany signals that no company name could be resolved from the payload.
	ErrMissingCompany = errors.New("Missing 'company' name in payload") //nolint:staticcheck // client-facing message
	// ErrInvalidMode signals an unknown query mode.
	ErrInvalidMode = errors.New("invalid query mode")

	// ErrRemoteProtocol signals a broken exchange with the retrieval service
	// (connection dropped mid-response, malformed response).
	ErrRemoteProtocol = errors.New("remote protocol error")
	// ErrReadTimeout signals that the retrieval service stopped sending data.
	ErrReadTimeout = errors.New("read timeout")
	// ErrPoolTimeout signals that no outbound connection slot became free in time.
	ErrPoolTimeout = errors.New("pool timeout")
	// ErrRetrievalProvider signals a non-transient retrieval service failure.
	ErrRetrievalProvider = errors.New("retrieval provider error")
	// ErrIndexNotFound signals that the configured index does not exist remotely.
	ErrIndexNotFound = errors.New("retrieval index not found")
	// ErrRetrievalExhausted signals that every retry attempt hit a transient fault.
	ErrRetrievalExhausted = errors.New("Llama Cloud connection failed") //nolint:staticcheck // client-facing message
)

// IsTransient reports whether err is a fault that is safe to retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRemoteProtocol) || errors.Is(err, ErrReadTimeout)
}

// TransientError carries the kind of transient fault together with the
// provider-facing cause. Its message is the cause's message.
type TransientError struct {
	Kind  error
	Cause error
}

func (e *TransientError) Error() string {
	if e.Cause == nil {
		return e.Kind.Error()
	}
	return e.Cause.Error()
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *TransientError) Unwrap() []error { return []error{e.Kind, e.Cause} }

// NewTransient wraps cause as a transient fault of the given kind.
func NewTransient(kind, cause error) error {
	return &TransientError{Kind: kind, Cause: cause}
}

// ExhaustedError is returned once all attempts failed with transient faults.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrRetrievalExhausted.Error(), e.Last.Error())
}

// Unwrap exposes ErrRetrievalExhausted and the last fault.
func (e *ExhaustedError) Unwrap() []error { return []error{ErrRetrievalExhausted, e.Last} }
