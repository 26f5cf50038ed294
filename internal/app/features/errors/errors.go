// Package errors renders API error responses and logs server-side
// failures. Handlers hand it a fault (or any error) and it picks the
// HTTP status and JSON body.
package errors

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/dalemusser/taskhub/internal/domain/faults"
)

// ErrorLogger writes server errors for handlers that don't have a
// logger of their own.
type ErrorLogger struct {
	log *zap.Logger
}

func NewErrorLogger(log *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: log}
}

// ServerError logs err with request context and writes a generic 500
// body. The underlying error never reaches the client.
func (e *ErrorLogger) ServerError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if e.log != nil {
		e.log.Error(msg,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, http.StatusInternalServerError, body{
		Code:    "internal_error",
		Message: "internal server error",
	})
}

type body struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteFault maps a domain fault to its HTTP status and writes the
// JSON error body. Fault messages are written as-is; foreign errors
// come out as a generic 500 — callers that want those logged should use
// ErrorLogger.ServerError instead.
func WriteFault(w http.ResponseWriter, err error) {
	code := faults.Code(err)
	if code == "" {
		writeJSON(w, http.StatusInternalServerError, body{
			Code:    "internal_error",
			Message: "internal server error",
		})
		return
	}
	writeJSON(w, statusFor(code), body{Code: code, Message: faults.Message(err)})
}

// BadRequest writes a 400 validation body for request-shape problems
// (malformed JSON, bad path params) that never reach the domain.
func BadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, body{Code: "validation_error", Message: msg})
}

func statusFor(code string) int {
	switch code {
	case "validation_error":
		return http.StatusBadRequest
	case "forbidden":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "conflict", "last_administrator":
		return http.StatusConflict
	default:
		// consistency_error, invalid_role, and anything unrecognized.
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
