package httpclient

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Refresh outcomes recorded by Metrics.
const (
	RefreshSuccess  = "success"
	RefreshFailure  = "failure"
	RefreshJoined   = "joined"   // shared an in-flight refresh
	RefreshSkipped  = "skipped"  // token already replaced by another caller
	RefreshRejected = "rejected" // fail-fast policy, refresh already running
)

// Metrics provides observability for the HTTP client.
type Metrics struct {
	Requests        *prometheus.CounterVec
	Refreshes       *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
}

// NewMetrics creates and registers the client metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authclient_requests_total",
			Help: "Requests sent through the auth client, by final status code",
		}, []string{"status"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authclient_refresh_total",
			Help: "401 recoveries, by outcome",
		}, []string{"outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "authclient_refresh_duration_seconds",
			Help:    "Duration of refresh token exchanges",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.Refreshes, m.RefreshDuration)
	}
	return m
}

// observeResult counts the final outcome of a logical request. The refresh
// exchange is not counted here.
func (m *Metrics) observeResult(resp *http.Response, err error) {
	if m == nil {
		return
	}
	label := "error"
	var httpErr *HTTPError
	switch {
	case err == nil:
		label = strconv.Itoa(resp.StatusCode)
	case errors.As(err, &httpErr):
		label = strconv.Itoa(httpErr.StatusCode)
	}
	m.Requests.WithLabelValues(label).Inc()
}

func (m *Metrics) observeRefresh(outcome string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(outcome).Inc()
}

// observeRefreshDuration should be called with time.Now() taken before the exchange.
func (m *Metrics) observeRefreshDuration(start time.Time) {
	if m == nil {
		return
	}
	m.RefreshDuration.Observe(time.Since(start).Seconds())
}
