package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

var HistogramBuckets = []float64{
	// fast (0 - 500ms)
	5, 10, 25, 50, 75, 100, 150, 200, 300, 400, 500,
	// medium (500ms - 2s)
	750, 1000, 1500, 2000,
	// slow; the return-flow reconciler can wait tens of seconds
	3000, 5000, 10000, 15000, 30000, 45000, 60000,
}

// Metric describes one collector: its name, help text, type and label names.
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	Type            string
	Args            []string
}

// NewMetric associates a prometheus.Collector based on Metric.Type.
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	switch m.Type {
	case "counter_vec":
		return prometheus.NewCounterVec(prometheus.CounterOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description}, m.Args)
	case "counter":
		return prometheus.NewCounter(prometheus.CounterOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description})
	case "gauge_vec":
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description}, m.Args)
	case "histogram_vec":
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description, Buckets: HistogramBuckets}, m.Args)
	case "summary_vec":
		return prometheus.NewSummaryVec(prometheus.SummaryOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description}, m.Args)
	}
	return nil
}

var MetricsBusinessProcess = &Metric{
	ID:          "bpDur",
	Name:        "bp_dur",
	Description: "business process latency in milliseconds",
	Type:        "histogram_vec",
	Args:        []string{"type", "subtype"},
}

var MetricsBusinessOutcome = &Metric{
	ID:          "bpOutcome",
	Name:        "bp_outcome_total",
	Description: "business process outcomes, partitioned by type and outcome",
	Type:        "counter_vec",
	Args:        []string{"type", "outcome"},
}

const (
	RefererKey = "X-Referer"
)

// Business records latency and outcome of domain operations. A nil *Business
// is valid and records nothing.
type Business struct {
	dur     *prometheus.HistogramVec
	outcome *prometheus.CounterVec
}

func NewBusiness(reg prometheus.Registerer) (*Business, error) {
	dur := NewMetric(MetricsBusinessProcess, "").(*prometheus.HistogramVec)
	outcome := NewMetric(MetricsBusinessOutcome, "").(*prometheus.CounterVec)
	if reg != nil {
		for _, c := range []prometheus.Collector{dur, outcome} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return &Business{dur: dur, outcome: outcome}, nil
}

// Observe records the elapsed milliseconds since start.
func (b *Business) Observe(typ, subtype string, start time.Time) {
	if b == nil {
		return
	}
	b.dur.WithLabelValues(typ, subtype).Observe(MillisecondsSince(start))
}

func (b *Business) Count(typ, outcome string) {
	if b == nil {
		return
	}
	b.outcome.WithLabelValues(typ, outcome).Inc()
}

func MillisecondsSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

func newDefaultBusiness() (*Business, error) {
	return NewBusiness(prometheus.DefaultRegisterer)
}

var Module = fx.Options(
	fx.Provide(newDefaultBusiness),
)
