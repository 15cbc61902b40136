package llamacloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"

	"github.com/overlordausritter/thematicbeast/internal/domain"
)

// APIError is a non-2xx response from LlamaCloud. Never retried.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("llamacloud API error %d", e.StatusCode)
	}
	return fmt.Sprintf("llamacloud API error %d: %s", e.StatusCode, e.Detail)
}

// Unwrap maps every API error to domain.ErrRetrievalProvider.
func (e *APIError) Unwrap() error { return domain.ErrRetrievalProvider }

// newAPIError extracts the "detail" field of a FastAPI-style error body.
func newAPIError(status int, body []byte) *APIError {
	var parsed apiErrorBody
	detail := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != nil {
		switch d := parsed.Detail.(type) {
		case string:
			detail = d
		default:
			if b, err := json.Marshal(d); err == nil {
				detail = string(b)
			}
		}
	}
	if len(detail) > 512 {
		detail = detail[:512]
	}
	return &APIError{StatusCode: status, Detail: detail}
}

// classify maps a transport failure to the domain error taxonomy.
// Only read timeouts and broken responses become transient. Dial failures,
// TLS handshake timeouts, write timeouts and cancellations are not.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch opErr.Op {
		case "dial":
			return fmt.Errorf("llamacloud connect: %w", err)
		case "write":
			return fmt.Errorf("llamacloud write: %w", err)
		}
	}

	// The handshake is part of connecting; net/http reports its timeout as
	// an unexported net.Error.
	if isHandshakeTimeout(err.Error()) {
		return fmt.Errorf("llamacloud connect: %w", err)
	}

	if errors.Is(err, os.ErrDeadlineExceeded) || isTimeout(err) {
		return domain.NewTransient(domain.ErrReadTimeout, unwrapURL(err))
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || isBrokenExchange(err.Error()) {
		return domain.NewTransient(domain.ErrRemoteProtocol, unwrapURL(err))
	}

	return fmt.Errorf("llamacloud request: %w", err)
}

// isBrokenExchange matches net/http errors that are not exported as values.
func isBrokenExchange(msg string) bool {
	return strings.Contains(msg, "malformed HTTP") ||
		strings.Contains(msg, "server closed idle connection") ||
		strings.Contains(msg, "transport connection broken")
}

func isHandshakeTimeout(msg string) bool {
	return strings.Contains(msg, "TLS handshake timeout")
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// unwrapURL strips the *url.Error envelope so messages name the fault, not the URL.
func unwrapURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}
