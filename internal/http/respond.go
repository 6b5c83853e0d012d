package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/matchledger/internal/apperr"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestError is a malformed request that never reached the domain.
type requestError struct {
	msg string
}

func (e *requestError) Error() string {
	return e.msg
}

func invalidRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

var errInternal = errors.New("internal server error")

var statusByKind = map[error]int{
	apperr.ErrInvalidState:     http.StatusConflict,
	apperr.ErrTerminalState:    http.StatusConflict,
	apperr.ErrNotRostered:      http.StatusConflict,
	apperr.ErrAlreadyRostered:  http.StatusConflict,
	apperr.ErrCapacityExceeded: http.StatusConflict,
	apperr.ErrUnauthorized:     http.StatusForbidden,
	apperr.ErrNotFound:         http.StatusNotFound,
	apperr.ErrValidation:       http.StatusUnprocessableEntity,
}

// statusFor maps an error to its HTTP status. Unexpected errors are 500.
func statusFor(err error) int {
	var re *requestError
	if errors.As(err, &re) {
		return http.StatusBadRequest
	}
	if status, ok := statusByKind[apperr.Kind(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}

// respondError writes err as a JSON error. status overrides the mapped
// status when non-zero.
func respondError(w http.ResponseWriter, err error, status ...int) {
	code := statusFor(err)
	if len(status) > 0 && status[0] != 0 {
		code = status[0]
	}

	detail := errorDetail{Code: apperr.Code(err), Message: apperr.Reason(err)}
	var re *requestError
	switch {
	case errors.As(err, &re):
		detail.Code = "INVALID_REQUEST"
	case apperr.Kind(err) == nil:
		log.Error("Request failed", "error", err)
		detail.Message = errInternal.Error()
	}
	respondJSON(w, code, errorBody{Error: detail})
}

// decodeBody reads a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return invalidRequest("invalid JSON body: %v", err)
	}
	return nil
}

// decodeOptionalBody is decodeBody for requests whose body may be empty.
func decodeOptionalBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return invalidRequest("invalid JSON body: %v", err)
	}
	return nil
}
