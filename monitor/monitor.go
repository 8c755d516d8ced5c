// monitor/monitor.go
package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlinePlayers    prometheus.Gauge
	MessagesReceived prometheus.Counter
	MessagesIgnored  prometheus.Counter
	Broadcasts       prometheus.Counter
	FramesDropped    prometheus.Counter
	MoveLatency      prometheus.Histogram
	FleetErrors      *prometheus.CounterVec
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of connected players",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of client messages received",
		}),
		MessagesIgnored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_ignored_total",
			Help:      "Client messages dropped as malformed or unknown",
		}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Total number of game state broadcasts",
		}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Broadcast frames skipped for closed or backpressured connections",
		}),
		MoveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "move_latency_seconds",
			Help:      "Time from move receipt to broadcast enqueue",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
		}),
		FleetErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fleet_errors_total",
			Help:      "Failed fleet sidecar calls by call name",
		}, []string{"call"}),
	}

	reg.MustRegister(
		m.OnlinePlayers,
		m.MessagesReceived,
		m.MessagesIgnored,
		m.Broadcasts,
		m.FramesDropped,
		m.MoveLatency,
		m.FleetErrors,
	)

	return m
}

// Monitor 持有独立的 registry，便于多实例（测试）共存
type Monitor struct {
	metrics   *Metrics
	registry  *prometheus.Registry
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := &Monitor{
		metrics:   NewMetrics(namespace, reg),
		registry:  reg,
		startTime: time.Now(),
	}
	uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Seconds since the server started",
	}, func() float64 { return time.Since(m.startTime).Seconds() })
	reg.MustRegister(uptime)
	return m
}

// Handler 暴露 /metrics
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Monitor) IncOnlinePlayers() {
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) IncMessagesReceived() {
	m.metrics.MessagesReceived.Inc()
}

func (m *Monitor) IncMessagesIgnored() {
	m.metrics.MessagesIgnored.Inc()
}

func (m *Monitor) IncBroadcasts() {
	m.metrics.Broadcasts.Inc()
}

func (m *Monitor) AddFramesDropped(n int) {
	m.metrics.FramesDropped.Add(float64(n))
}

func (m *Monitor) ObserveMoveLatency(duration time.Duration) {
	m.metrics.MoveLatency.Observe(duration.Seconds())
}

func (m *Monitor) IncFleetError(call string) {
	m.metrics.FleetErrors.WithLabelValues(call).Inc()
}
