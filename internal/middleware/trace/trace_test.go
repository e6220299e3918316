package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	m := NewMiddleware(nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusBadGateway)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/trends", nil))
	assert.True(t, strings.HasPrefix(seen, "req_"))
	assert.Equal(t, seen, rr.Header().Get(HeaderRequestID))

	rr = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/trends", nil)
	r.Header.Set(HeaderRequestID, "client-abc.1")
	h.ServeHTTP(rr, r)
	assert.Equal(t, "client-abc.1", seen)

	rr = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/api/trends", nil)
	r.Header.Set(HeaderRequestID, "bad id\n")
	h.ServeHTTP(rr, r)
	assert.NotEqual(t, "bad id\n", seen)

	metrics := m.GetMetrics()
	assert.Equal(t, int64(3), metrics.TotalRequests)
	assert.Equal(t, int64(3), metrics.ServerErrors)
}

func TestRequestIDMissing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, RequestID(r.Context()))
}
