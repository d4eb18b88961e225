// Package http carries the HTTP-boundary helpers shared by every handler:
// the JSON error envelope and trusted-proxy client IP extraction.
package http

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the error envelope every non-2xx response uses. Error is a
// stable machine-readable code; Message is what a UI may show the user.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// errorCodes maps status codes to their envelope code. Anything outside the
// table falls back to internal_error.
var errorCodes = map[int]string{
	http.StatusBadRequest:          "bad_request",
	http.StatusUnauthorized:        "unauthorized",
	http.StatusForbidden:           "forbidden",
	http.StatusNotFound:            "not_found",
	http.StatusConflict:            "conflict",
	http.StatusTooManyRequests:     "rate_limit_exceeded",
	http.StatusInternalServerError: "internal_error",
}

// WriteError writes the error envelope with an explicit code.
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteErrorWithDetails(w, statusCode, errorCode, message, "")
}

// WriteErrorWithDetails writes the error envelope with optional extra context
// in the details field. Encoding failures are swallowed; the status line is
// already on the wire by then.
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, errorCode, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorCode,
		Message: message,
		Details: details,
	})
}

// writeStatus writes the envelope with the table code for the status.
func writeStatus(w http.ResponseWriter, statusCode int, message string) {
	code, ok := errorCodes[statusCode]
	if !ok {
		code = "internal_error"
	}
	WriteError(w, statusCode, code, message)
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusBadRequest, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusUnauthorized, message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusForbidden, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusNotFound, message)
}

func WriteConflict(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusConflict, message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusTooManyRequests, message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusInternalServerError, message)
}
