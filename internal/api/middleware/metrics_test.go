package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observed struct {
	method string
	status int
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []observed
}

func (o *recordingObserver) ObserveRequest(method string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, observed{method: method, status: status})
}

func TestMetrics(t *testing.T) {
	obs := &recordingObserver{}
	mw := Metrics(obs)

	created := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	implicit := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	created.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/tasks", nil))
	implicit.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Len(t, obs.calls, 2)
	assert.Equal(t, observed{method: http.MethodPost, status: http.StatusCreated}, obs.calls[0])
	assert.Equal(t, observed{method: http.MethodGet, status: http.StatusOK}, obs.calls[1])
}

func TestMetrics_NilObserver(t *testing.T) {
	rec := httptest.NewRecorder()
	Metrics(nil)(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
