package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WebhookRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updatectl_webhook_requests_total",
			Help: "Total webhook requests by route and outcome",
		},
		[]string{"route", "outcome"},
	)

	WebhookRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "updatectl_webhook_request_duration_seconds",
			Help:    "Webhook handler duration of accepted requests, from request to 202 response",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	CleanupBytesReclaimed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updatectl_cleanup_bytes_reclaimed_total",
			Help: "Total bytes reclaimed by cleanup executors",
		},
		[]string{"server", "category"},
	)

	HealthProblematicContainers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "updatectl_health_problematic_containers",
			Help: "Number of containers currently flagged problematic by the health sampler",
		},
		[]string{"server"},
	)

	OSUpdatesApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updatectl_os_updates_applied_total",
			Help: "Total OS package updates applied",
		},
		[]string{"server", "package_manager"},
	)

	DockerImagesPulled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updatectl_docker_images_pulled_total",
			Help: "Total Docker image pulls attempted, by outcome",
		},
		[]string{"server", "outcome"},
	)

	NotifySendFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updatectl_notify_send_failures_total",
			Help: "Total notification send failures by backend",
		},
		[]string{"backend"},
	)
)

func init() {
	prometheus.MustRegister(WebhookRequestsTotal)
	prometheus.MustRegister(WebhookRequestDuration)
	prometheus.MustRegister(CleanupBytesReclaimed)
	prometheus.MustRegister(HealthProblematicContainers)
	prometheus.MustRegister(OSUpdatesApplied)
	prometheus.MustRegister(DockerImagesPulled)
	prometheus.MustRegister(NotifySendFailures)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
