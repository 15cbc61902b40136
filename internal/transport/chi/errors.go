package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/overlordausritter/thematicbeast/internal/domain"
)

// errorCode is the machine-readable code of an errorResponse.
type errorCode string

const (
	codeUnauthorized           errorCode = "unauthorized"
	codeIndexNotFound          errorCode = "index_not_found"
	codeRetrievalProviderError errorCode = "retrieval_provider_error"
	codeRetrievalUnavailable   errorCode = "retrieval_unavailable"
	codeInternalError          errorCode = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrIndexNotFound,
		domain.ErrRetrievalProvider,
		domain.ErrPoolTimeout,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// bodyErrorHandler renders the error text as {"error": ...}, the shape
// clients of /llamaquery read for validation and connection failures.
func bodyErrorHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error, _ string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeJSON(w, status, errorBody{Error: bodyMessage(err, sentinel)})
		return true
	}
}

// bodyMessage keeps the full text of an exhausted-retry error (it carries the
// last fault) and the bare sentinel text otherwise.
func bodyMessage(err, sentinel error) string {
	var ex *domain.ExhaustedError
	if errors.As(err, &ex) {
		return ex.Error()
	}
	if errors.Is(sentinel, domain.ErrInvalidMode) {
		return err.Error()
	}
	return sentinel.Error()
}
