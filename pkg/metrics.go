package stats

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	prometheusGaugeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ion_stats_sessions",
			Help: "Number of currently active session feeds on this node",
		},
	)

	prometheusCounterFeedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ion_stats_feed_events_total",
			Help: "Feed notifications received, by method",
		},
		[]string{"method"},
	)

	prometheusCounterEmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ion_stats_analytics_events_total",
			Help: "Analytics events handed to the sink",
		},
	)

	prometheusCounterWindows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ion_stats_windows_reported_total",
			Help: "Completed averaging windows reported to the sink",
		},
	)

	prometheusCounterDroppedSamples = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ion_stats_dropped_samples_total",
			Help: "Samples dropped for missing required fields",
		},
	)

	activeFeeds int64
)

func init() {
	prometheus.MustRegister(prometheusGaugeSessions)
	prometheus.MustRegister(prometheusCounterFeedEvents)
	prometheus.MustRegister(prometheusCounterEmitted)
	prometheus.MustRegister(prometheusCounterWindows)
	prometheus.MustRegister(prometheusCounterDroppedSamples)
	prometheus.MustRegister(prometheus.NewBuildInfoCollector())
}

func metricsFeedOpened() {
	atomic.AddInt64(&activeFeeds, 1)
	prometheusGaugeSessions.Inc()
}

func metricsFeedClosed() {
	atomic.AddInt64(&activeFeeds, -1)
	prometheusGaugeSessions.Dec()
}

func metricsFeedEvent(method string) {
	prometheusCounterFeedEvents.WithLabelValues(method).Inc()
}

func metricsEventEmitted() {
	prometheusCounterEmitted.Inc()
}

func metricsWindowReported() {
	prometheusCounterWindows.Inc()
}

func metricsSampleDropped() {
	prometheusCounterDroppedSamples.Inc()
}

// MetricsGetActiveFeedsCount reports how many session feeds are connected,
// used to drain before shutdown.
func MetricsGetActiveFeedsCount() int64 {
	return atomic.LoadInt64(&activeFeeds)
}

func metricsHandler() http.Handler {
	return promhttp.HandlerFor(
		prometheus.DefaultGatherer,
		promhttp.HandlerOpts{
			// Opt into OpenMetrics to support exemplars.
			EnableOpenMetrics: true,
		},
	)
}
