package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracilink",
			Subsystem: "protocol",
			Name:      "commands_total",
			Help:      "Protocol commands sent, by command and response status.",
		},
		[]string{"command", "status"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tracilink",
			Subsystem: "protocol",
			Name:      "command_duration_seconds",
			Help:      "Round trip time of one protocol command.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"command"},
	)
	failuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracilink",
			Subsystem: "protocol",
			Name:      "failures_total",
			Help:      "Session failures by class (transport, protocol, desync, config).",
		},
		[]string{"class"},
	)
	stepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tracilink",
			Subsystem: "stepper",
			Name:      "steps_total",
			Help:      "Completed simulation steps.",
		},
	)
	stepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tracilink",
			Subsystem: "stepper",
			Name:      "step_duration_seconds",
			Help:      "Wall time of one step including subscription processing.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	subscriptionResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracilink",
			Subsystem: "stepper",
			Name:      "subscription_results_total",
			Help:      "Subscription results processed, by object kind.",
		},
		[]string{"kind"},
	)
	rosterSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tracilink",
			Subsystem: "roster",
			Name:      "actors",
			Help:      "Roster set sizes (subscribed, managed, unequipped).",
		},
		[]string{"set"},
	)
	actorCounts = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tracilink",
			Subsystem: "roster",
			Name:      "vehicles",
			Help:      "Incremental vehicle counters (active, driving, parking).",
		},
		[]string{"phase"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracilink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests to the status endpoint.",
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			commandsTotal,
			commandDuration,
			failuresTotal,
			stepsTotal,
			stepDuration,
			subscriptionResults,
			rosterSize,
			actorCounts,
			httpRequests,
		)
	})
}

func RecordCommand(command, status string, duration time.Duration) {
	RegisterMetrics()
	commandsTotal.WithLabelValues(command, status).Inc()
	commandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

func RecordFailure(class string) {
	RegisterMetrics()
	failuresTotal.WithLabelValues(class).Inc()
}

func RecordStep(duration time.Duration) {
	RegisterMetrics()
	stepsTotal.Inc()
	stepDuration.Observe(duration.Seconds())
}

func RecordSubscriptionResult(kind string) {
	RegisterMetrics()
	subscriptionResults.WithLabelValues(kind).Inc()
}

func SetRosterSizes(subscribed, managed, unequipped int) {
	RegisterMetrics()
	rosterSize.WithLabelValues("subscribed").Set(float64(subscribed))
	rosterSize.WithLabelValues("managed").Set(float64(managed))
	rosterSize.WithLabelValues("unequipped").Set(float64(unequipped))
}

func SetVehicleCounts(active, driving, parking int) {
	RegisterMetrics()
	actorCounts.WithLabelValues("active").Set(float64(active))
	actorCounts.WithLabelValues("driving").Set(float64(driving))
	actorCounts.WithLabelValues("parking").Set(float64(parking))
}

func RecordHTTPRequest(method, path string, status int) {
	RegisterMetrics()
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}
