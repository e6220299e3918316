package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// JSONResponse is a small builder for API responses.
type JSONResponse struct {
	status  int
	headers map[string]string
	body    any
}

func NewJSONResponse(body any) *JSONResponse {
	return &JSONResponse{status: http.StatusOK, body: body, headers: map[string]string{}}
}

func (b *JSONResponse) Status(code int) *JSONResponse {
	b.status = code
	return b
}

func (b *JSONResponse) Header(key, value string) *JSONResponse {
	b.headers[key] = value
	return b
}

// Write sends the response. A nil body writes only the status line.
func (b *JSONResponse) Write(w http.ResponseWriter) {
	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
	if b.body == nil {
		w.WriteHeader(b.status)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.status)
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Line  int    `json:"line,omitempty"`
}

// badRequestError marks a body or query that could not be decoded at all.
type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

// statusFor maps an error to its HTTP status and error kind. Validation
// failures are checked first so a decode error that wraps a core sentinel
// still reads as validation.
func statusFor(err error) (int, string) {
	var parseErr *core.ParseError
	var badReq badRequestError
	switch {
	case core.IsValidation(err), errors.As(err, &parseErr):
		return http.StatusUnprocessableEntity, applog.ErrorTypeValidation
	case core.IsConflict(err):
		return http.StatusConflict, applog.ErrorTypeConflict
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, applog.ErrorTypeNotFound
	case errors.As(err, &badReq):
		return http.StatusBadRequest, applog.ErrorTypeValidation
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, applog.ErrorTypeTimeout
	}
	return http.StatusBadGateway, applog.ErrorTypeDatabase
}

// writeError logs err with op and renders it. Persistence failures are
// logged at error level; rejected input only at warn.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, kind := statusFor(err)
	logger := applog.FromContext(r.Context())
	fields := applog.NewFields().WithOperation(op).WithError(err)
	fields["error_type"] = kind
	fields[applog.FieldStatusCode] = status
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
	} else {
		logger.WarnContext(r.Context(), "Request rejected", fields.ToSlice()...)
	}

	body := errorBody{Error: err.Error(), Kind: kind}
	var parseErr *core.ParseError
	if errors.As(err, &parseErr) {
		body.Line = parseErr.Line
	}
	if status >= http.StatusInternalServerError {
		body.Error = "storage unavailable, please retry"
	}
	NewJSONResponse(body).Status(status).Write(w)
}

func writeRateLimited(w http.ResponseWriter, r *http.Request, retryAfter int) {
	if retryAfter < 1 {
		retryAfter = 60
	}
	NewJSONResponse(errorBody{Error: "rate limit exceeded, please try again later", Kind: "rate_limited"}).
		Status(http.StatusTooManyRequests).
		Header("Retry-After", strconv.Itoa(retryAfter)).
		Write(w)
}
