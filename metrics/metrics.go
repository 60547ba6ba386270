package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/sector/runtime/processor"
)

// Collector records processor exits of a supervision tree
type Collector struct {
	exits     *prometheus.CounterVec   // by kind, state and cause
	duration  *prometheus.HistogramVec // by kind
	abandoned prometheus.Counter
	notes     prometheus.Counter
	dropped   prometheus.Counter
	live      prometheus.GaugeFunc
}

// Observe records an exit report
func (c *Collector) Observe(report *processor.Report) {
	if c == nil || report == nil {
		return
	}
	c.exits.WithLabelValues(report.Kind, string(report.State), string(report.Cause)).Inc()
	c.duration.WithLabelValues(report.Kind).Observe(report.Elapsed().Seconds())
	if report.Abandoned {
		c.abandoned.Inc()
	}
}

// Noted records interruptions absorbed by a sector
func (c *Collector) Noted(count int) {
	if c == nil || count == 0 {
		return
	}
	c.notes.Add(float64(count))
}

// Dropped records an exit notice that could not be queued
func (c *Collector) Dropped() {
	if c == nil {
		return
	}
	c.dropped.Inc()
}

// New creates and registers collectors; live reports the number of running
// processors and may be nil.
func New(registerer prometheus.Registerer, namespace string, live func() float64) (*Collector, error) {
	if registerer == nil {
		return nil, nil // metrics disabled
	}
	if namespace == "" {
		namespace = "sector"
	}
	if live == nil {
		live = func() float64 { return 0 }
	}
	c := &Collector{
		exits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "exits_total",
			Help:      "Total number of processor exits",
		}, []string{"kind", "state", "cause"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "run_duration_seconds",
			Help:      "Processor run duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 1, 10, 60, 600},
		}, []string{"kind"}),

		abandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "abandoned_total",
			Help:      "Total number of tasks abandoned after the interrupt grace period",
		}),

		notes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sector",
			Name:      "absorbed_interruptions_total",
			Help:      "Total number of subresource interruptions absorbed by sectors",
		}),

		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notice",
			Name:      "dropped_total",
			Help:      "Total number of exit notices dropped on a full buffer",
		}),

		live: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "live",
			Help:      "Current number of live processors",
		}, live),
	}
	for _, collector := range []prometheus.Collector{c.exits, c.duration, c.abandoned, c.notes, c.dropped, c.live} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}
