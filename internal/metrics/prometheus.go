package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeProcessed = "processed"
	OutcomeFailed    = "failed"

	SinkCache = "cache"
	SinkStore = "store"
)

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_jobs_total",
			Help: "Jobs taken from the queue, by outcome.",
		},
		[]string{"outcome"},
	)
	scrapesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_scrapes_total",
			Help: "Scrape attempts, by status.",
		},
		[]string{"status"},
	)
	scrapeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crawler_scrape_duration_seconds",
			Help:    "Histogram of scrape durations, browser launch to extraction.",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60},
		},
	)
	persistFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_persist_failures_total",
			Help: "Failed writes of scrape results, by sink.",
		},
		[]string{"sink"},
	)
	fieldMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_field_misses_total",
			Help: "Fields left empty after all selector strategies.",
		},
		[]string{"field"},
	)
)

func init() {
	prometheus.MustRegister(jobsTotal)
	prometheus.MustRegister(scrapesTotal)
	prometheus.MustRegister(scrapeDuration)
	prometheus.MustRegister(persistFailuresTotal)
	prometheus.MustRegister(fieldMissesTotal)
}

// RecordJob counts one job that left the consumer loop
func RecordJob(outcome string) {
	jobsTotal.WithLabelValues(outcome).Inc()
}

// RecordScrape records the status and duration of one scrape attempt
func RecordScrape(success bool, duration time.Duration) {
	scrapesTotal.WithLabelValues(classifyScrape(success)).Inc()
	scrapeDuration.Observe(duration.Seconds())
}

func RecordPersistFailure(sink string) {
	persistFailuresTotal.WithLabelValues(sink).Inc()
}

func RecordFieldMiss(field string) {
	fieldMissesTotal.WithLabelValues(field).Inc()
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

func classifyScrape(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
