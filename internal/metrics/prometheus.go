package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cobrazap_messages_sent_total",
			Help: "Total number of notification messages delivered",
		},
		[]string{"tenant", "kind"},
	)

	MessagesFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cobrazap_messages_failed_total",
			Help: "Total number of notification messages that failed to deliver",
		},
		[]string{"tenant", "kind"},
	)

	SessionsReady = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cobrazap_sessions_ready",
			Help: "Number of tenant sessions currently in the ready state",
		},
	)

	SchedulerRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cobrazap_scheduler_runs_total",
			Help: "Total number of completed notification scheduler passes",
		},
	)
)

// Init registers metrics with Prometheus
func Init() {
	prometheus.MustRegister(MessagesSent)
	prometheus.MustRegister(MessagesFailed)
	prometheus.MustRegister(SessionsReady)
	prometheus.MustRegister(SchedulerRuns)
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
