// Package errors renders API error responses and centralizes server-error
// logging. Handlers convert every store failure into one generic JSON
// failure here, at the call site nearest the user action; detail goes to
// the log, never to the client.
package errors

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type errorBody struct {
	Error string `json:"error"`
}

// Render writes a JSON error body with the given status.
func Render(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}

// RenderUnauthorized writes a 401 "sign in required" response.
func RenderUnauthorized(w http.ResponseWriter) {
	Render(w, http.StatusUnauthorized, "unauthorized")
}

// RenderForbidden writes a 403 response with the given message.
func RenderForbidden(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "you don't have permission to do that"
	}
	Render(w, http.StatusForbidden, msg)
}

// RenderNotFound writes a 404 response.
func RenderNotFound(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "not found"
	}
	Render(w, http.StatusNotFound, msg)
}

// RenderBadRequest writes a 400 response for validation failures.
func RenderBadRequest(w http.ResponseWriter, msg string) {
	Render(w, http.StatusBadRequest, msg)
}

// ErrorLogger logs server-side failures and renders the generic response.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger wraps a zap logger for handler use.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger}
}

// LogServerError logs the real error with request context and sends the
// user-facing message as a 500. userMsg should be generic; the err detail
// stays in the log.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg string) {
	e.log.Error(logMsg,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path))
	if userMsg == "" {
		userMsg = "something went wrong"
	}
	Render(w, http.StatusInternalServerError, userMsg)
}
