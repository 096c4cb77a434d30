package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Handler(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordReceived("demo.input", 1)

	srv := httptest.NewServer(NewServer(0, "", registry, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "loquat_pool_packages_received_total")

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_HealthUnhealthy(t *testing.T) {
	health := func() (bool, string) { return false, "degraded: dead loop drops" }
	srv := httptest.NewServer(NewServer(0, "/m", NewMetricsRegistry(), health).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "dead loop")
}

func TestServer_Defaults(t *testing.T) {
	s := NewServer(0, "", NewMetricsRegistry(), nil)
	assert.Equal(t, "http://localhost:9090/metrics", s.Address())
}

func TestServer_StartWithoutRegistry(t *testing.T) {
	s := NewServer(0, "", nil, nil)
	assert.Error(t, s.Start())
}

func TestServer_HandleMountsExtraRoutes(t *testing.T) {
	s := NewServer(0, "", NewMetricsRegistry(), nil)
	s.Handle("/api/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	}))

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/ping")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))
}
