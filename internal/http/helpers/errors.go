// Package helpers holds the JSON response plumbing shared by controllers.
package helpers

import (
	"encoding/json"
	"net/http"
)

// Standard error responses. Controllers refine them with WithDetail.
var (
	ErrBadRequest          = &HTTPError{Code: "bad_request", Message: "Bad request", Status: http.StatusBadRequest}
	ErrUnauthorized        = &HTTPError{Code: "unauthorized", Message: "Unauthorized", Status: http.StatusUnauthorized}
	ErrForbidden           = &HTTPError{Code: "forbidden", Message: "Forbidden", Status: http.StatusForbidden}
	ErrNotFound            = &HTTPError{Code: "not_found", Message: "Not found", Status: http.StatusNotFound}
	ErrInternalServerError = &HTTPError{Code: "internal_error", Message: "Internal server error", Status: http.StatusInternalServerError}
	ErrServiceUnavailable  = &HTTPError{Code: "service_unavailable", Message: "Service unavailable", Status: http.StatusServiceUnavailable}
	ErrBadGateway          = &HTTPError{Code: "bad_gateway", Message: "Upstream provider error", Status: http.StatusBadGateway}
	ErrGatewayTimeout      = &HTTPError{Code: "gateway_timeout", Message: "Upstream provider timeout", Status: http.StatusGatewayTimeout}
)

// HTTPError is the standard API error envelope.
type HTTPError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Status  int    `json:"-"`
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

// WithDetail returns a copy of the error with specific details.
func (e *HTTPError) WithDetail(detail string) *HTTPError {
	return &HTTPError{Code: e.Code, Message: e.Message, Detail: detail, Status: e.Status}
}

// WithCode returns a copy with a more specific machine-readable code.
func (e *HTTPError) WithCode(code string) *HTTPError {
	return &HTTPError{Code: code, Message: e.Message, Detail: e.Detail, Status: e.Status}
}

// WriteError writes err as the standard envelope. Unknown error types
// collapse to internal_error so nothing sensitive leaks to clients.
func WriteError(w http.ResponseWriter, err error) {
	httpErr, ok := err.(*HTTPError)
	if !ok {
		httpErr = ErrInternalServerError
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(httpErr.Status)
	_ = json.NewEncoder(w).Encode(httpErr)
}

// WriteJSON writes a standard JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
