// Package metrics counts dissection outcomes in a Prometheus registry that
// can be written out in the node exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lcdissect"

// Frame outcomes.
const (
	OutcomePrinted  = "printed"
	OutcomeFiltered = "filtered"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// Collector holds the counters of one run. It is safe for concurrent use.
type Collector struct {
	registry  *prometheus.Registry
	frames    *prometheus.CounterVec
	protocols *prometheus.CounterVec
	bytes     prometheus.Counter
	duration  prometheus.Histogram
}

// New returns a collector with its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_total",
				Help:      "Frames read, by outcome",
			},
			[]string{"outcome"},
		),
		protocols: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "protocol_frames_total",
				Help:      "Dissected frames containing each protocol",
			},
			[]string{"protocol"},
		),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captured_bytes_total",
			Help:      "Captured bytes of dissected frames",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dissect_duration_seconds",
			Help:      "Time spent building one frame's tree",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
	c.registry.MustRegister(c.frames, c.protocols, c.bytes, c.duration)
	return c
}

// Frame records the outcome of one frame.
func (c *Collector) Frame(outcome string) {
	c.frames.WithLabelValues(outcome).Inc()
}

// Dissected records a built tree: its protocol abbreviations, captured
// size and build time.
func (c *Collector) Dissected(protocols []string, captured int, took time.Duration) {
	for _, p := range protocols {
		c.protocols.WithLabelValues(p).Inc()
	}
	c.bytes.Add(float64(captured))
	c.duration.Observe(took.Seconds())
}

// Registry exposes the underlying registry, e.g. for testutil.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteFile writes every metric to path atomically.
func (c *Collector) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
