package dispatcher

import "github.com/prometheus/client_golang/prometheus"

var (
	commandsEnqueued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_commands_enqueued_total",
			Help: "Total number of commands accepted by Enqueue.",
		},
	)

	commandsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_commands_finished_total",
			Help: "Total number of commands that reached a terminal status.",
		},
		[]string{"status"},
	)

	commandAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_command_attempts_total",
			Help: "Total number of work attempts started, retries included.",
		},
	)

	commandRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_command_retries_total",
			Help: "Total number of retries scheduled after failed attempts.",
		},
	)

	activeCommands = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_active_commands",
			Help: "Number of commands currently executing on workers.",
		},
	)

	commandDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_command_duration_seconds",
			Help:    "Wall-clock run duration from first attempt to terminal status, in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
)

func init() {
	prometheus.MustRegister(commandsEnqueued)
	prometheus.MustRegister(commandsFinished)
	prometheus.MustRegister(commandAttempts)
	prometheus.MustRegister(commandRetries)
	prometheus.MustRegister(activeCommands)
	prometheus.MustRegister(commandDuration)

	// Pre-initialize label combinations so they appear in /metrics with
	// value 0 from startup, rather than only after first observation.
	for _, status := range []string{"completed", "failed", "cancelled"} {
		commandsFinished.WithLabelValues(status)
	}
}
