package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bnema/stayctl/internal/domain"
	"github.com/bnema/stayctl/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCountsRefreshesByTriggerAndOutcome(t *testing.T) {
	t.Parallel()

	c := NewCollector(prometheus.NewRegistry())

	c.RecordRefresh(ports.RefreshTriggerTimer, true)
	c.RecordRefresh(ports.RefreshTriggerTimer, true)
	c.RecordRefresh(ports.RefreshTriggerInterceptor, false)
	c.RecordRefreshJoined()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.refreshes.WithLabelValues("timer", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.refreshes.WithLabelValues("interceptor", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.refreshJoined))
}

func TestCollectorCountsLoginsLogoutsRetriesAndStorage(t *testing.T) {
	t.Parallel()

	c := NewCollector(prometheus.NewRegistry())

	c.RecordLogin(false)
	c.RecordLogout(false)
	c.RecordRetry(http.StatusForbidden)
	c.RecordStorageFailure(domain.AreaDurable, "put")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.logins.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.logouts.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.retries.WithLabelValues("403")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.storageFailures.WithLabelValues("durable", "put")))
}

func TestNewCollectorPanicsOnDoubleRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	NewCollector(reg)
	assert.Panics(t, func() { NewCollector(reg) })
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordLogin(true)

	server := httptest.NewServer(Handler(reg))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `stayctl_logins_total{outcome="success"} 1`)
}
