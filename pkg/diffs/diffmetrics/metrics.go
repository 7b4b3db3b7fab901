// Package diffmetrics exposes the engine's Prometheus collectors, in
// the same package-level-registry shape as shoal/internal/provisioner/
// metrics: a private *prometheus.Registry rebuilt by Reset (for tests),
// and small Observe/Inc helper functions rather than exporting the
// collectors directly.
package diffmetrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu  sync.RWMutex
	reg *prometheus.Registry

	itemsRequested     *prometheus.CounterVec
	resolutionPasses   prometheus.Counter
	prepareDuration    *prometheus.HistogramVec
	channelBlockedTime *prometheus.HistogramVec
)

func init() {
	resetLocked()
}

// Reset clears and reinitializes all collectors. Used by tests to
// ensure clean state between kitchen runs.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	resetLocked()
}

// Handler exposes the collectors in Prometheus text format.
func Handler() http.Handler {
	mu.RLock()
	registry := reg
	mu.RUnlock()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// IncItemsRequested records a RequestItem call, labeled by whether the
// item was already satisfiable from the pantry.
func IncItemsRequested(alreadyInPantry bool) {
	label := "new"
	if alreadyInPantry {
		label = "cached"
	}
	mu.RLock()
	defer mu.RUnlock()
	if itemsRequested != nil {
		itemsRequested.WithLabelValues(label).Inc()
	}
}

// IncResolutionPass records one pass of ProcessRequestedItems's
// fixed-point loop, whether or not it made progress.
func IncResolutionPass() {
	mu.RLock()
	defer mu.RUnlock()
	if resolutionPasses != nil {
		resolutionPasses.Inc()
	}
}

// ObservePrepare records how long a single recipe's Prepare call took.
func ObservePrepare(recipeName string, d time.Duration) {
	mu.RLock()
	defer mu.RUnlock()
	if prepareDuration != nil {
		prepareDuration.WithLabelValues(recipeName).Observe(d.Seconds())
	}
}

// ObserveChannelBlocked records how long a streamchan.Channel call
// spent blocked, labeled by which side blocked.
func ObserveChannelBlocked(side string, d time.Duration) {
	mu.RLock()
	defer mu.RUnlock()
	if channelBlockedTime != nil {
		channelBlockedTime.WithLabelValues(side).Observe(d.Seconds())
	}
}

func resetLocked() {
	registry := prometheus.NewRegistry()

	requested := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "diffengine",
		Subsystem: "kitchen",
		Name:      "items_requested_total",
		Help:      "Total RequestItem calls, labeled by pantry hit or miss.",
	}, []string{"pantry"})

	passes := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "diffengine",
		Subsystem: "kitchen",
		Name:      "resolution_passes_total",
		Help:      "Total fixed-point resolution passes run by ProcessRequestedItems.",
	})

	prepare := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "diffengine",
		Subsystem: "kitchen",
		Name:      "prepare_duration_seconds",
		Help:      "Duration of a single recipe Prepare call, by recipe name.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"recipe"})

	channelBlocked := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "diffengine",
		Subsystem: "channel",
		Name:      "blocked_seconds",
		Help:      "Time a streamchan.Channel call spent blocked, by side.",
		Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 1, 5},
	}, []string{"side"})

	registry.MustRegister(requested, passes, prepare, channelBlocked)

	reg = registry
	itemsRequested = requested
	resolutionPasses = passes
	prepareDuration = prepare
	channelBlockedTime = channelBlocked
}
