// Package metrics exposes Prometheus instruments for the bot and the ops HTTP
// server that serves them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/keshon/warden/internal/convo"
	"github.com/keshon/warden/internal/dispatch"
)

const namespace = "warden"

type Metrics struct {
	Registry *prometheus.Registry

	dispatched  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	contexts    *prometheus.CounterVec
	timerSkips  prometheus.Counter
	storeWrites *prometheus.CounterVec
}

// New registers every instrument on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound events by dispatch outcome.",
		}, []string{"command", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time spent handling resolved commands.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		contexts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_routes_total",
			Help:      "Context routing attempts by outcome.",
		}, []string{"outcome"}),
		timerSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timer_skipped_ticks_total",
			Help:      "Timer ticks skipped while the connection was down.",
		}),
		storeWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_writes_total",
			Help:      "Document writes by result.",
		}, []string{"document", "result"}),
	}
	m.Registry.MustRegister(
		m.dispatched, m.duration, m.contexts, m.timerSkips, m.storeWrites,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveDispatch matches dispatch.Config.Observe.
func (m *Metrics) ObserveDispatch(command string, outcome dispatch.Outcome, elapsed time.Duration) {
	if command == "" {
		command = "none"
	}
	m.dispatched.WithLabelValues(command, string(outcome)).Inc()
	if command != "none" {
		m.duration.WithLabelValues(command).Observe(elapsed.Seconds())
	}
}

// ObserveContext matches convo.Config.Observe.
func (m *Metrics) ObserveContext(o convo.Outcome) {
	m.contexts.WithLabelValues(o.String()).Inc()
}

// TimerSkipped matches scheduler.Config.OnSkip.
func (m *Metrics) TimerSkipped() {
	m.timerSkips.Inc()
}

// StoreWrite matches store.Config.OnWrite.
func (m *Metrics) StoreWrite(document string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeWrites.WithLabelValues(document, result).Inc()
}
