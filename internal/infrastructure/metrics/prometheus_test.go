package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsShareRegistry(t *testing.T) {
	reg := NewRegistry()
	hm := NewHandlerMetrics(reg)
	sm := NewServiceMetrics(reg)
	rm := NewRepositoryMetrics(reg)

	hm.RequestCount.WithLabelValues("GET", "/advertisement/", "success").Inc()
	sm.MethodCount.WithLabelValues("List", "success").Inc()
	rm.CacheResults.WithLabelValues("GetByID", "hit").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(hm.RequestCount.WithLabelValues("GET", "/advertisement/", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rm.CacheResults.WithLabelValues("GetByID", "hit")))

	srv := httptest.NewServer(hm.HTTPHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "handler_requests_total")
	assert.Contains(t, string(body), "service_methods_total")
}
