// This file implements a builder for JSON responses and the mapping from
// domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"trackify/internal/core"
	applog "trackify/internal/log"
	"trackify/internal/middleware/auth"
	"trackify/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	data       interface{}
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body.
func (b *JSONResponseBuilder) Data(v interface{}) *JSONResponseBuilder {
	b.data = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.data == nil || b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}

	body, err := json.Marshal(b.data)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"internal","message":"internal error"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(body, '\n'))
}

// errorBody is the shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Data(errorBody{Error: errorDetail{Code: code, Message: message}})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

// UnauthorizedError creates a 401 response.
func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, "unauthorized", message).
		Header("WWW-Authenticate", `Bearer realm="trackify"`)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not_found", message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal", "internal error")
}

// errorMapping pairs a domain error with its response.
type errorMapping struct {
	target    error
	status    int
	code      string
	errorType string
	// message replaces err.Error() when set.
	message string
}

// Order matters: the first match wins, and a fault wrapped inside a
// validation error keeps the validation status.
var errorMappings = []errorMapping{
	{core.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", applog.ErrorTypeAuth, ""},
	{auth.ErrMissingToken, http.StatusUnauthorized, "unauthorized", applog.ErrorTypeAuth, ""},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "unauthorized", applog.ErrorTypeAuth, ""},
	{core.ErrDuplicateEmail, http.StatusConflict, "duplicate_email", applog.ErrorTypeConflict, ""},
	{core.ErrNotFound, http.StatusNotFound, "not_found", applog.ErrorTypeNotFound, ""},
	{core.ErrInvalidEmail, http.StatusUnprocessableEntity, "invalid_email", applog.ErrorTypeValidation, ""},
	{core.ErrEmptyEmail, http.StatusUnprocessableEntity, "invalid_email", applog.ErrorTypeValidation, ""},
	{core.ErrInvalidPassword, http.StatusUnprocessableEntity, "invalid_password", applog.ErrorTypeValidation, ""},
	{core.ErrInvalidAmount, http.StatusUnprocessableEntity, "invalid_amount", applog.ErrorTypeValidation, ""},
	{core.ErrInvalidDate, http.StatusUnprocessableEntity, "invalid_date", applog.ErrorTypeValidation, ""},
	{core.ErrInvalidYearMonth, http.StatusUnprocessableEntity, "invalid_month", applog.ErrorTypeValidation, ""},
	{core.ErrInvalidKind, http.StatusUnprocessableEntity, "invalid_type", applog.ErrorTypeValidation, ""},
	{core.ErrInvalidCategory, http.StatusUnprocessableEntity, "invalid_category", applog.ErrorTypeValidation, ""},
	{errBadRequest, http.StatusBadRequest, "bad_request", applog.ErrorTypeValidation, ""},
	{errBodyTooLarge, http.StatusRequestEntityTooLarge, "body_too_large", applog.ErrorTypeValidation, ""},
	{services.ErrExportDisabled, http.StatusNotImplemented, "export_disabled", applog.ErrorTypeConfiguration, ""},
	{core.ErrParseFault, http.StatusUnprocessableEntity, "parse_fault", applog.ErrorTypeDatabase, "a stored record is malformed and could not be read"},
	{core.ErrStorageFault, http.StatusInternalServerError, "internal", applog.ErrorTypeDatabase, ""},
}

// errorResponseFor maps err to a response. Server-side faults never leak
// their message.
func errorResponseFor(err error) (*JSONResponseBuilder, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.status >= 500 && m.status != http.StatusNotImplemented {
				return InternalServerError(), m.errorType
			}
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			resp := ErrorResponse(m.status, m.code, msg)
			if m.status == http.StatusUnauthorized {
				resp.Header("WWW-Authenticate", `Bearer realm="trackify"`)
			}
			return resp, m.errorType
		}
	}
	return InternalServerError(), applog.ErrorTypeInternal
}

// writeError logs err with the request logger and writes the mapped response.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp, errorType := errorResponseFor(err)
	logger := applog.FromContext(r.Context())
	if resp.statusCode >= 500 || errors.Is(err, core.ErrParseFault) {
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, errorType, op, nil)
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			applog.FieldOperation, op,
			applog.FieldErrorType, errorType,
			applog.FieldError, err.Error())
	}
	resp.Write(w)
}
