// Package telemetry exports propagation outcomes as Prometheus metrics
// through propagator hooks.
package telemetry

import (
	"context"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/san-kum/trackprop/internal/propagator"
)

type Collector struct {
	outcomes   *prometheus.CounterVec
	steps      prometheus.Counter
	stepCounts prometheus.Histogram
	pathLength prometheus.Histogram
	started    prometheus.Counter
}

// NewCollector registers the propagation metrics on reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackprop_propagations_total",
				Help: "Finished propagations by status and trigger",
			},
			[]string{"status", "trigger"},
		),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackprop_steps_total",
			Help: "Completed propagation steps",
		}),
		stepCounts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trackprop_propagation_steps",
			Help:    "Steps per propagation",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		pathLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trackprop_path_length_mm",
			Help:    "Path length per propagation",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackprop_propagations_started_total",
			Help: "Propagations that passed initialization",
		}),
	}

	for _, m := range []prometheus.Collector{c.outcomes, c.steps, c.stepCounts, c.pathLength, c.started} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Hooks returns propagator hooks feeding the collector.
func (c *Collector) Hooks() propagator.Hooks {
	return propagator.Hooks{
		OnStart: func(ctx context.Context, s *propagator.State) {
			c.started.Inc()
		},
		OnStep: func(ctx context.Context, s *propagator.State) {
			c.steps.Inc()
		},
		OnFinish: func(ctx context.Context, out *propagator.Outcome) {
			c.outcomes.WithLabelValues(out.Status.String(), triggerLabel(out.Trigger)).Inc()
			c.stepCounts.Observe(float64(out.Steps))
			c.pathLength.Observe(out.State.PathLength)
		},
	}
}

// triggerLabel drops the per-instance part of a member name, so
// "expr(x > 5)" and "surface_reached:12" count as "expr" and
// "surface_reached".
func triggerLabel(name string) string {
	if i := strings.IndexAny(name, "(:"); i > 0 {
		return name[:i]
	}
	return name
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
