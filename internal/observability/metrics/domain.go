package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// domain holds the business-level series; it is embedded so every recorder shares one registry.
type domain struct {
	service string

	searchTotal      *prometheus.CounterVec
	searchHits       *prometheus.HistogramVec
	searchDuration   *prometheus.HistogramVec
	answerTotal      *prometheus.CounterVec
	answerDocuments  *prometheus.HistogramVec
	ingestTotal      *prometheus.CounterVec
	ingestDuration   *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	cacheInvalidated *prometheus.CounterVec
	alertsCurrent    *prometheus.GaugeVec
	breakerState     *prometheus.GaugeVec
	eventsReceived   prometheus.Counter
}

func newDomain(registry *prometheus.Registry, service string) domain {
	d := domain{
		service: service,
		searchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "search", Name: "requests_total",
			Help: "Completed searches by search type.",
		}, []string{"service", "search_type"}),
		searchHits: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "search", Name: "results",
			Help:    "Distribution of merged results per search.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}, []string{"service"}),
		searchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "search", Name: "duration_seconds",
			Help:    "Search duration including planning and embedding.",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
		answerTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "answer", Name: "documents_total",
			Help: "Per-document answers by outcome.",
		}, []string{"service", "endpoint", "status"}),
		answerDocuments: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "answer", Name: "documents",
			Help:    "Documents answered per request.",
			Buckets: []float64{0, 1, 2, 3, 4, 6, 8, 12},
		}, []string{"service", "endpoint"}),
		ingestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingest", Name: "documents_total",
			Help: "Uploaded documents by category and status.",
		}, []string{"service", "category", "status"}),
		ingestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "ingest", Name: "duration_seconds",
			Help:    "Upload pipeline duration in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"service", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "lookups_total",
			Help: "Cache lookups by key kind and result.",
		}, []string{"service", "kind", "result"}),
		cacheInvalidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "invalidations_total",
			Help: "Cache invalidations by key kind.",
		}, []string{"service", "kind"}),
		alertsCurrent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "alerts", Name: "entries",
			Help: "Entries in the last computed alert report by bucket.",
		}, []string{"service", "bucket"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "resilience", Name: "breaker_open",
			Help: "1 when the circuit breaker of an operation is open or half-open.",
		}, []string{"service", "operation"}),
		eventsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "events", Name: "received_total",
			Help:        "Ingestion events received from other replicas.",
			ConstLabels: prometheus.Labels{"service": service},
		}),
	}
	registry.MustRegister(
		d.searchTotal, d.searchHits, d.searchDuration,
		d.answerTotal, d.answerDocuments,
		d.ingestTotal, d.ingestDuration,
		d.cacheLookups, d.cacheInvalidated,
		d.alertsCurrent, d.breakerState, d.eventsReceived,
	)
	return d
}

func (d *domain) RecordSearch(searchType string, results int, duration time.Duration) {
	if searchType == "" {
		searchType = "unknown"
	}
	d.searchTotal.WithLabelValues(d.service, searchType).Inc()
	d.searchHits.WithLabelValues(d.service).Observe(float64(results))
	d.searchDuration.WithLabelValues(d.service).Observe(duration.Seconds())
}

func (d *domain) RecordAnswers(endpoint string, answered, failed int) {
	if answered > 0 {
		d.answerTotal.WithLabelValues(d.service, endpoint, "success").Add(float64(answered))
	}
	if failed > 0 {
		d.answerTotal.WithLabelValues(d.service, endpoint, "error").Add(float64(failed))
	}
	d.answerDocuments.WithLabelValues(d.service, endpoint).Observe(float64(answered + failed))
}

func (d *domain) RecordIngest(category string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	if category == "" {
		category = "unknown"
	}
	d.ingestTotal.WithLabelValues(d.service, category, status).Inc()
	d.ingestDuration.WithLabelValues(d.service, status).Observe(duration.Seconds())
}

func (d *domain) RecordAlerts(alerts, reminders int) {
	d.alertsCurrent.WithLabelValues(d.service, "alert").Set(float64(alerts))
	d.alertsCurrent.WithLabelValues(d.service, "reminder").Set(float64(reminders))
}

func (d *domain) RecordEventReceived() {
	d.eventsReceived.Inc()
}

func (d *domain) ObserveCacheLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	d.cacheLookups.WithLabelValues(d.service, kind, result).Inc()
}

func (d *domain) ObserveCacheInvalidation(kind string) {
	d.cacheInvalidated.WithLabelValues(d.service, kind).Inc()
}

func (d *domain) ObserveBreakerState(operation, state string) {
	open := 0.0
	if state != "closed" {
		open = 1
	}
	d.breakerState.WithLabelValues(d.service, operation).Set(open)
}
