package watch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pollwatch",
		Subsystem: "watch",
		Name:      "polls_total",
		Help:      "Total number of poll cycles, per watcher",
	}, []string{"watcher"})
	metricPollFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pollwatch",
		Subsystem: "watch",
		Name:      "poll_failures_total",
		Help:      "Total number of failed poll cycles, per watcher",
	}, []string{"watcher"})
	metricPollSeconds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pollwatch",
		Subsystem: "watch",
		Name:      "poll_seconds_total",
		Help:      "Total time spent in poll cycles, per watcher",
	}, []string{"watcher"})
	metricSuppressedCycles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pollwatch",
		Subsystem: "watch",
		Name:      "suppressed_cycles_total",
		Help:      "Total number of directory poll cycles skipped after a directory switch",
	})

	metricNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pollwatch",
		Subsystem: "watch",
		Name:      "notifications_total",
		Help:      "Total number of notifications emitted, per kind",
	}, []string{"kind"})
	metricDeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pollwatch",
		Subsystem: "watch",
		Name:      "delivery_failures_total",
		Help:      "Total number of notifications the sink failed to accept",
	})
	metricDroppedNotifications = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pollwatch",
		Subsystem: "watch",
		Name:      "dropped_notifications_total",
		Help:      "Total number of notifications dropped for slow hub subscribers",
	})
)
