// Package metrics holds the Prometheus instruments for the ticker feed,
// the portfolio store and the push channel.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	FetchesTotal   *prometheus.CounterVec // labels: result=ok|error
	FetchDur       prometheus.Histogram
	SnapshotSize   prometheus.Gauge
	Holdings       prometheus.Gauge
	SavesTotal     *prometheus.CounterVec // labels: result=ok|error|skipped
	WSClients      prometheus.Gauge
	RefreshesTotal *prometheus.CounterVec // labels: outcome=scheduled|in_flight

	gatherer prometheus.Gatherer
}

// NewMetrics registers all instruments on reg. Pass prometheus.NewRegistry()
// in tests so registrations do not collide.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coinfolio_ticker_fetches_total",
			Help: "Ticker feed fetches by result",
		}, []string{"result"}),
		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "coinfolio_ticker_fetch_duration_seconds",
			Help:    "Ticker feed request latency",
			Buckets: prometheus.DefBuckets,
		}),
		SnapshotSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coinfolio_ticker_snapshot_size",
			Help: "Entries in the current ticker snapshot",
		}),
		Holdings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coinfolio_portfolio_holdings",
			Help: "Holdings in the portfolio",
		}),
		SavesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coinfolio_portfolio_saves_total",
			Help: "Portfolio persistence attempts by result",
		}, []string{"result"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coinfolio_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		RefreshesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coinfolio_manual_refreshes_total",
			Help: "Manual refresh requests by outcome",
		}, []string{"outcome"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.FetchesTotal,
		m.FetchDur,
		m.SnapshotSize,
		m.Holdings,
		m.SavesTotal,
		m.WSClients,
		m.RefreshesTotal,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
