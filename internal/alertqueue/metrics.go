package alertqueue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "alertflow"

var (
	queueSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "size",
			Help:      "Number of alerts in the live queue by status",
		},
		[]string{"status"},
	)

	admissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "admissions_total",
			Help:      "Enqueue calls by outcome",
		},
		[]string{"outcome"},
	)

	sendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "sends_total",
			Help:      "Delivery attempts by result",
		},
		[]string{"result"},
	)

	sendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "send_duration_seconds",
			Help:      "Time spent on a single delivery attempt",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"result"},
	)

	deadLettersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "dead_letters_total",
			Help:      "Alerts routed to the dead letter reporter",
		},
		[]string{"service"},
	)

	dedupEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "dedup_entries",
			Help:      "Entries currently held by the dedup index",
		},
	)
)

// recordAdmission records an enqueue outcome: "queued" or a rejection reason.
func recordAdmission(outcome string) {
	admissionsTotal.WithLabelValues(outcome).Inc()
}

// recordSend records one delivery attempt result and its duration.
func recordSend(result string, duration time.Duration) {
	sendsTotal.WithLabelValues(result).Inc()
	sendDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func recordDeadLetter(service string) {
	deadLettersTotal.WithLabelValues(service).Inc()
}

// RecordStats updates queue size gauges from a stats snapshot.
func RecordStats(stats Stats) {
	queueSize.WithLabelValues("pending").Set(float64(stats.Pending))
	queueSize.WithLabelValues("sent").Set(float64(stats.Sent))
	queueSize.WithLabelValues("failed").Set(float64(stats.Failed))
	dedupEntries.Set(float64(stats.DedupEntries))
}
