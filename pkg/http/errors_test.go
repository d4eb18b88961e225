package http_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/code-sharad/inventory-management-sub000/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) pkghttp.ErrorResponse {
	t.Helper()
	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestErrorWriters_StatusAndCode(t *testing.T) {
	tests := []struct {
		name     string
		write    func(w *httptest.ResponseRecorder)
		status   int
		code     string
		message  string
	}{
		{"bad request", func(w *httptest.ResponseRecorder) { pkghttp.WriteBadRequest(w, "Invalid input") }, 400, "bad_request", "Invalid input"},
		{"unauthorized", func(w *httptest.ResponseRecorder) { pkghttp.WriteUnauthorized(w, "Invalid credentials") }, 401, "unauthorized", "Invalid credentials"},
		{"forbidden", func(w *httptest.ResponseRecorder) { pkghttp.WriteForbidden(w, "Access denied") }, 403, "forbidden", "Access denied"},
		{"not found", func(w *httptest.ResponseRecorder) { pkghttp.WriteNotFound(w, "No such account") }, 404, "not_found", "No such account"},
		{"conflict", func(w *httptest.ResponseRecorder) { pkghttp.WriteConflict(w, "Email already exists") }, 409, "conflict", "Email already exists"},
		{"rate limited", func(w *httptest.ResponseRecorder) { pkghttp.WriteTooManyRequests(w, "Too many requests") }, 429, "rate_limit_exceeded", "Too many requests"},
		{"internal", func(w *httptest.ResponseRecorder) { pkghttp.WriteInternalError(w, "Internal server error") }, 500, "internal_error", "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			resp := decodeEnvelope(t, w)
			assert.Equal(t, tt.code, resp.Error)
			assert.Equal(t, tt.message, resp.Message)
			assert.Empty(t, resp.Details)
		})
	}
}

func TestWriteError_ExplicitCode(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, 400, "invalid_token", "Token is invalid or has expired")

	assert.Equal(t, 400, w.Code)
	resp := decodeEnvelope(t, w)
	assert.Equal(t, "invalid_token", resp.Error)
	assert.Equal(t, "Token is invalid or has expired", resp.Message)
}

func TestWriteErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteErrorWithDetails(w, 400, "bad_request", "Validation failed", "email: must be a valid email address")

	resp := decodeEnvelope(t, w)
	assert.Equal(t, "email: must be a valid email address", resp.Details)
}

func TestErrorEnvelope_FieldNames(t *testing.T) {
	// The frontend matches on these exact JSON keys
	w := httptest.NewRecorder()
	pkghttp.WriteUnauthorized(w, "Invalid token")

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Contains(t, raw, "error")
	assert.Contains(t, raw, "message")
	assert.NotContains(t, raw, "details", "empty details must be omitted")
}
