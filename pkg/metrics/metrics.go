package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crawler_fetch_attempts_total",
		Help: "Total HTTP fetch attempts, including retries",
	})
	FetchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crawler_fetch_failures_total",
		Help: "Failed fetch attempts by failure kind",
	}, []string{"kind"})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "crawler_fetches_in_flight",
		Help: "Fetches currently holding a concurrency permit",
	})
	UnitsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crawler_units_completed_total",
		Help: "Crawl units that reached success",
	})
	UnitsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crawler_units_failed_total",
		Help: "Crawl units that reached terminal failure",
	})
)

func init() {
	prometheus.MustRegister(FetchAttempts, FetchFailures, InFlight, UnitsCompleted, UnitsFailed)
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
