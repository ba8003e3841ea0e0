package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector_ObserveQuery(t *testing.T) {
	c := NewPrometheusCollector()
	c.ObserveQuery("tests.Product", "json", 3, 10*time.Millisecond)
	c.ObserveQuery("tests.Product", "json", 1, 10*time.Millisecond)
	c.ObserveQuery("tests.Product", "csv", 1, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.queryTotal.WithLabelValues("tests.Product", "json")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.queryTotal.WithLabelValues("tests.Product", "csv")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.queryDuration))
}

func TestMiddleware(t *testing.T) {
	c := NewPrometheusCollector()

	router := mux.NewRouter()
	router.Use(Middleware(c))
	router.HandleFunc("/query/{model}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	router.Handle("/metrics", c.Handler())

	for _, model := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/query/"+model, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requestTotal.WithLabelValues("GET", "/query/{model}", "404")))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `databrowser_http_requests_total{method="GET",route="/query/{model}",status="404"} 2`))
}

func TestNoOpCollector(t *testing.T) {
	var c Collector = NoOpCollector{}
	c.ObserveRequest("GET", "/", 200, time.Second)
	c.ObserveQuery("m", "json", 1, time.Second)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
