package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tendant/healthcard-slim/pkg/domain"
)

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Error writes {"error": message} with the given status.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// StatusOf maps an error code to its HTTP status.
func StatusOf(code domain.Code) int {
	switch code {
	case domain.CodeUnauthenticated:
		return http.StatusUnauthorized
	case domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeConflict:
		return http.StatusConflict
	case domain.CodeBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err using the status of its code. Internal errors are
// reported without detail.
func WriteError(w http.ResponseWriter, err error) {
	code := domain.CodeOf(err)
	if code == domain.CodeInternal {
		Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	message := err.Error()
	var e *domain.Error
	if errors.As(err, &e) && e.Message != "" {
		message = e.Message
	}
	Error(w, StatusOf(code), message)
}

// DecodeJSON decodes the request body into v. On failure it writes the error
// response and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	if err == nil {
		return true
	}

	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		Error(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, io.EOF):
		Error(w, http.StatusBadRequest, "request body is required")
	default:
		Error(w, http.StatusBadRequest, "invalid request body")
	}
	return false
}
