// Package apierror defines the JSON error envelope every REST response uses.
package apierror

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hireloop/hireloop/pkg/gateway/store"
)

type Error struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Param     string `json:"param,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

type Envelope struct {
	Error *Error `json:"error"`
}

const (
	TypeInvalidRequest = "invalid_request_error"
	TypeAuthentication = "authentication_error"
	TypeNotFound       = "not_found_error"
	TypeUnavailable    = "unavailable_error"
	TypeAPI            = "api_error"
)

// FromError maps an error to the canonical envelope and HTTP status.
// Unknown errors do not leak details.
func FromError(err error, requestID string) (*Error, int) {
	if err == nil {
		return nil, http.StatusOK
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Type: TypeAPI, Message: "request timeout", RequestID: requestID}, http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Type: TypeAPI, Message: "request cancelled", RequestID: requestID}, http.StatusRequestTimeout
	}
	if errors.Is(err, store.ErrNotFound) {
		return &Error{Type: TypeNotFound, Message: "not found", RequestID: requestID}, http.StatusNotFound
	}

	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr != nil {
		out := *apiErr
		out.RequestID = requestID
		return &out, statusFromType(out.Type)
	}

	return &Error{Type: TypeAPI, Message: "internal error", RequestID: requestID}, http.StatusInternalServerError
}

func statusFromType(t string) int {
	switch t {
	case TypeInvalidRequest:
		return http.StatusBadRequest
	case TypeAuthentication:
		return http.StatusUnauthorized
	case TypeNotFound:
		return http.StatusNotFound
	case TypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Write renders err as the canonical envelope.
func Write(w http.ResponseWriter, err error, requestID string) {
	apiErr, status := FromError(err, requestID)
	WriteStatus(w, status, apiErr)
}

func WriteStatus(w http.ResponseWriter, status int, err *Error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Error: err})
}
