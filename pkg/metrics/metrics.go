package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the poller, the sender and the
// backend scrape tasks.
type Metrics struct {
	Registry            *prometheus.Registry
	PollsTotal          *prometheus.CounterVec
	ScrapeTasksTotal    *prometheus.CounterVec
	ScrapeTaskDuration  prometheus.Histogram
	SendsTotal          *prometheus.CounterVec
	EntityResolutions   *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration prometheus.Histogram
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	polls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_tracker_scrape_polls_total",
			Help: "Scrape status polls issued by the client, by outcome.",
		},
		[]string{"outcome"},
	)
	tasks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_tracker_scrape_tasks_total",
			Help: "Scrape tasks that reached a final state, by result.",
		},
		[]string{"result"},
	)
	taskDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "price_tracker_scrape_task_duration_seconds",
			Help:    "Wall time of backend scrape tasks.",
			Buckets: prometheus.DefBuckets,
		},
	)
	sends := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_tracker_sends_total",
			Help: "Observation sends, by result.",
		},
		[]string{"result"},
	)
	resolutions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_tracker_entity_resolutions_total",
			Help: "Store/category/brand resolutions, by entity and action.",
		},
		[]string{"entity", "action"},
	)
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_tracker_http_requests_total",
			Help: "HTTP requests served by the catalog API.",
		},
		[]string{"method", "status"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "price_tracker_http_request_duration_seconds",
			Help:    "Catalog API request latency.",
			Buckets: prometheus.DefBuckets,
		},
	)

	registry.MustRegister(polls, tasks, taskDuration, sends, resolutions, requests, requestDuration)

	return &Metrics{
		Registry:            registry,
		PollsTotal:          polls,
		ScrapeTasksTotal:    tasks,
		ScrapeTaskDuration:  taskDuration,
		SendsTotal:          sends,
		EntityResolutions:   resolutions,
		HTTPRequestsTotal:   requests,
		HTTPRequestDuration: requestDuration,
	}
}

// IncPoll records one status poll outcome (ok, failed, stale).
func (m *Metrics) IncPoll(outcome string) {
	if m == nil {
		return
	}
	m.PollsTotal.WithLabelValues(outcome).Inc()
}

// IncTask records a scrape task ending (completed, error, exhausted).
func (m *Metrics) IncTask(result string) {
	if m == nil {
		return
	}
	m.ScrapeTasksTotal.WithLabelValues(result).Inc()
}

// ObserveTask records how long a backend scrape task ran.
func (m *Metrics) ObserveTask(d time.Duration) {
	if m == nil {
		return
	}
	m.ScrapeTaskDuration.Observe(d.Seconds())
}

// IncSend records a finished send (ok, err).
func (m *Metrics) IncSend(result string) {
	if m == nil {
		return
	}
	m.SendsTotal.WithLabelValues(result).Inc()
}

// IncResolution records whether an entity was found or created.
func (m *Metrics) IncResolution(entity, action string) {
	if m == nil {
		return
	}
	m.EntityResolutions.WithLabelValues(entity, action).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, status).Inc()
	m.HTTPRequestDuration.Observe(d.Seconds())
}
