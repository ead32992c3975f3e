package chi

import (
	"errors"
	"net/http"

	"github.com/kailas-cloud/archivist/internal/domain"
)

// ErrorCode is the machine-readable error kind in API responses.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeInvalidArgument        ErrorCode = "invalid_argument"
	ErrorCodeNotFound               ErrorCode = "not_found"
	ErrorCodeRateLimited            ErrorCode = "rate_limited"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeNotImplemented         ErrorCode = "not_implemented"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Namespace string    `json:"namespace,omitempty"`
	Type      string    `json:"type,omitempty"`
	Value     string    `json:"value,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrNotImplemented,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// invalidArgumentHandler reports the rejected filter with its namespace, type and value.
// The reason is client input, so it is returned verbatim.
func invalidArgumentHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrInvalidArgument) {
		return false
	}
	var iae *domain.InvalidArgumentError
	if errors.As(err, &iae) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:      ErrorCodeInvalidArgument,
			Message:   iae.Reason,
			Namespace: iae.Namespace,
			Type:      iae.Type,
			Value:     iae.Value,
		})
		return true
	}
	writeError(w, http.StatusBadRequest, ErrorCodeInvalidArgument, domain.ErrInvalidArgument.Error())
	return true
}
