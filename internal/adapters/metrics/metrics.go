// Package metrics records session lifecycle events as Prometheus counters.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/bnema/stayctl/internal/domain"
	"github.com/bnema/stayctl/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stayctl"

type Collector struct {
	logins          *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	refreshJoined   prometheus.Counter
	logouts         *prometheus.CounterVec
	retries         *prometheus.CounterVec
	storageFailures *prometheus.CounterVec
}

var _ ports.AuthMetrics = (*Collector)(nil)

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Refresh calls sent to the authority, by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		refreshJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_joined_total",
			Help:      "Callers that waited on a refresh already in flight.",
		}),
		logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logouts_total",
			Help:      "Logouts by remote call outcome.",
		}, []string{"remote"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_retries_total",
			Help:      "Protected requests retried after an authorization failure.",
		}, []string{"status_code"}),
		storageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_failures_total",
			Help:      "Session storage operations that failed.",
		}, []string{"area", "op"}),
	}

	reg.MustRegister(
		c.logins,
		c.refreshes,
		c.refreshJoined,
		c.logouts,
		c.retries,
		c.storageFailures,
	)

	return c
}

func (c *Collector) RecordLogin(success bool) {
	c.logins.WithLabelValues(outcome(success)).Inc()
}

func (c *Collector) RecordRefresh(trigger ports.RefreshTrigger, success bool) {
	c.refreshes.WithLabelValues(string(trigger), outcome(success)).Inc()
}

func (c *Collector) RecordRefreshJoined() {
	c.refreshJoined.Inc()
}

func (c *Collector) RecordLogout(remoteOK bool) {
	c.logouts.WithLabelValues(outcome(remoteOK)).Inc()
}

func (c *Collector) RecordRetry(status int) {
	c.retries.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (c *Collector) RecordStorageFailure(area domain.Area, op string) {
	c.storageFailures.WithLabelValues(string(area), op).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// Handler serves the registry for scraping on /metrics.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}
