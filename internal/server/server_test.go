package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/leslieo2/dota-analytics/internal/config"
)

// startTestServer binds an ephemeral port and serves until the test ends
func startTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	listener, err := Listen("127.0.0.1", 0)
	require.NoError(t, err)

	opts = append([]Option{WithLogger(zap.NewNop())}, opts...)
	srv, err := New(listener, nil, config.DefaultApplicationSettings(), opts...)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		assert.NoError(t, srv.Shutdown(ctx))
		assert.NoError(t, <-errCh)
	})
	return srv
}

func TestListen_ResolvesEphemeralPort(t *testing.T) {
	listener, err := Listen("127.0.0.1", 0)
	require.NoError(t, err)
	defer listener.Close()

	srv, err := New(listener, nil, config.DefaultApplicationSettings(), WithLogger(zap.NewNop()))
	require.NoError(t, err)

	assert.NotZero(t, srv.Port())
	assert.Equal(t, listener.Addr().(*net.TCPAddr).Port, srv.Port())
	assert.Equal(t, "127.0.0.1", srv.Addr().IP.String())
	assert.True(t, strings.HasPrefix(srv.URL(), "http://127.0.0.1:"))
}

func TestListen_PortInUse(t *testing.T) {
	first, err := Listen("127.0.0.1", 0)
	require.NoError(t, err)
	defer first.Close()

	_, err = Listen("127.0.0.1", first.Addr().(*net.TCPAddr).Port)
	assert.Error(t, err)
}

func TestNew_RequiresListener(t *testing.T) {
	_, err := New(nil, nil, config.DefaultApplicationSettings())
	assert.Error(t, err)
}

func TestNew_KeepsPool(t *testing.T) {
	// sqlx.Open does not dial
	pool, err := sqlx.Open("postgres", "postgres://app@127.0.0.1:1/x?sslmode=disable")
	require.NoError(t, err)
	defer pool.Close()

	listener, err := Listen("127.0.0.1", 0)
	require.NoError(t, err)
	defer listener.Close()

	srv, err := New(listener, pool, config.DefaultApplicationSettings(), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	assert.Same(t, pool, srv.Pool())
}

func TestRequestSpansUseServerLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	srv := startTestServer(t, WithLogger(zap.New(core)))

	resp, err := http.Get(srv.URL() + "/health_check")
	require.NoError(t, err)
	_ = resp.Body.Close()

	// the records are written after the response is flushed
	requestRecords := func() []string {
		var msgs []string
		for _, entry := range logs.All() {
			if strings.Contains(strings.ToUpper(entry.Message), "HTTP REQUEST") {
				msgs = append(msgs, entry.Message)
			}
		}
		return msgs
	}
	require.Eventually(t, func() bool { return len(requestRecords()) == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"[HTTP REQUEST - START]", "HTTP request", "[HTTP REQUEST - END]"}, requestRecords())
}

func TestHealthCheck(t *testing.T) {
	srv := startTestServer(t)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(srv.URL() + "/health_check")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body)
	assert.Equal(t, int64(0), resp.ContentLength)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestHealthCheck_OtherMethods(t *testing.T) {
	srv := startTestServer(t)
	client := &http.Client{Timeout: 5 * time.Second}

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			req, err := http.NewRequest(method, srv.URL()+"/health_check", nil)
			require.NoError(t, err)

			resp, err := client.Do(req)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Allow"), http.MethodGet)
		})
	}
}

func TestUnknownPath(t *testing.T) {
	srv := startTestServer(t)

	resp, err := http.Get(srv.URL() + "/subscriptions")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := startTestServer(t, WithMetrics("/metrics"))

	resp, err := http.Get(srv.URL() + "/health_check")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(srv.URL() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `http_requests_total{endpoint="GET /health_check",method="GET",status_code="200"} 1`)
}

func TestMetricsDisabled(t *testing.T) {
	srv := startTestServer(t)

	resp, err := http.Get(srv.URL() + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServe_ConcurrentInstances(t *testing.T) {
	a := startTestServer(t, WithMetrics("/metrics"))
	b := startTestServer(t, WithMetrics("/metrics"))

	assert.NotEqual(t, a.Port(), b.Port())
	for _, srv := range []*Server{a, b} {
		resp, err := http.Get(srv.URL() + "/health_check")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}
