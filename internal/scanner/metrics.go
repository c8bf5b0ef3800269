package scanner

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"missioncontrol/internal/extract"
	"missioncontrol/internal/publish"
)

// Metrics exposes Prometheus collectors for scan activity. A nil *Metrics is
// a valid no-op.
type Metrics struct {
	cycles      prometheus.Counter
	duration    prometheus.Histogram
	changes     *prometheus.CounterVec
	readErrors  *prometheus.CounterVec
	publishes   *prometheus.CounterVec
	agentStatus *prometheus.GaugeVec
}

// MustNewMetrics registers the scanner collectors with reg and panics on a
// registration conflict.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "missioncontrol",
			Subsystem: "scanner",
			Name:      "cycles_total",
			Help:      "Number of completed scan cycles.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "missioncontrol",
			Subsystem: "scanner",
			Name:      "cycle_duration_seconds",
			Help:      "Time spent per scan cycle, including publishing.",
			Buckets:   prometheus.DefBuckets,
		}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "missioncontrol",
			Subsystem: "scanner",
			Name:      "changes_total",
			Help:      "Number of WORKING.md changes detected per agent.",
		}, []string{"agent"}),
		readErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "missioncontrol",
			Subsystem: "scanner",
			Name:      "read_errors_total",
			Help:      "Number of failed WORKING.md reads per agent.",
		}, []string{"agent"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "missioncontrol",
			Subsystem: "scanner",
			Name:      "publishes_total",
			Help:      "Publish attempts by result.",
		}, []string{"result"}),
		agentStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "missioncontrol",
			Name:      "agent_status",
			Help:      "1 for the status each agent was last seen in, 0 otherwise.",
		}, []string{"agent", "status"}),
	}

	reg.MustRegister(m.cycles, m.duration, m.changes, m.readErrors, m.publishes, m.agentStatus)
	return m
}

func (m *Metrics) observeCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.cycles.Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) observeChange(agentID string, status extract.Status) {
	if m == nil {
		return
	}
	m.changes.WithLabelValues(agentID).Inc()
	for _, s := range []extract.Status{extract.StatusActive, extract.StatusIdle, extract.StatusBlocked} {
		v := 0.0
		if s == status {
			v = 1
		}
		m.agentStatus.WithLabelValues(agentID, string(s)).Set(v)
	}
}

func (m *Metrics) observeReadError(agentID string) {
	if m == nil {
		return
	}
	m.readErrors.WithLabelValues(agentID).Inc()
}

func (m *Metrics) observePublish(out publish.Outcome) {
	if m == nil {
		return
	}
	result := "ok"
	switch {
	case !out.OK():
		result = "failed"
	case out.Skipped:
		result = "skipped"
	}
	m.publishes.WithLabelValues(result).Inc()
}
