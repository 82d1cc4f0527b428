package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/eshop/internal/httpapi/middlewares"
)

type observation struct {
	route, method string
	status        int
}

type recorder struct{ seen []observation }

func (r *recorder) ObserveRequest(route, method string, status int, _ time.Duration) {
	r.seen = append(r.seen, observation{route, method, status})
}

func TestAttachRequestMetadata(t *testing.T) {
	var gotID, gotKey string
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachRequestMetadata)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		gotID = middlewares.RequestID(r.Context())
		gotKey = middlewares.IdempotencyKey(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middlewares.HeaderIdempotencyKey, "key-1")
	req.Header.Set(middleware.RequestIDHeader, "req-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "req-1", gotID)
	assert.Equal(t, "key-1", gotKey)
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	rec := &recorder{}
	r := chi.NewRouter()
	r.Use(middlewares.Metrics(rec))
	r.Use(middlewares.Trace)
	r.Get("/shipments/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/shipments/abc", nil))

	require.Len(t, rec.seen, 1)
	assert.Equal(t, observation{"/shipments/{id}", http.MethodGet, http.StatusTeapot}, rec.seen[0])
}
