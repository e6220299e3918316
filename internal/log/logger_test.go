package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Component: component,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf, ComponentLedger)

	l.InfoContext(context.Background(), "Transaction saved", "tx_id", "abc")
	out := buf.String()
	assert.Contains(t, out, "component=ledger")
	assert.Contains(t, out, "tx_id=abc")

	buf.Reset()
	l.WithComponent("worker").Warn("lagging")
	assert.Contains(t, buf.String(), "component=worker")
}

func TestMiddlewareCarriesRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := bufferLogger(&buf, ComponentHTTP)

	var seen *Logger
	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = FromContext(r.Context())
			seen.Info("inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	require.NotNil(t, seen)
	assert.Contains(t, buf.String(), "request_id=req-1")
	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}

func TestFieldsBuilder(t *testing.T) {
	fields := NewFields().
		WithComponent(ComponentHTTP).
		WithOperation(OpCreate).
		WithError(errors.New("boom")).
		WithError(nil).
		WithHTTPResponse(422, 3, false)

	assert.Equal(t, "http", fields[FieldComponent])
	assert.Equal(t, "create", fields[FieldOperation])
	assert.Equal(t, "boom", fields[FieldError])
	assert.Equal(t, 422, fields[FieldStatusCode])
	assert.Len(t, fields.ToSlice(), 2*len(fields))
}
