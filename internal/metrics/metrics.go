// Package metrics exports tree tick statistics to Prometheus.
package metrics

import (
	"time"

	"github.com/joeycumines/arbor/internal/bt"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "arbor"

// Collector observes trees and exposes their tick statistics. Register it
// with a prometheus.Registerer, then attach it to trees with
// bt.WithObserver.
type Collector struct {
	ticks    *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	resets   *prometheus.CounterVec
}

// NewCollector creates an unregistered Collector.
func NewCollector() *Collector {
	return &Collector{
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tree_ticks_total",
			Help:      "Tree ticks by resulting root status.",
		}, []string{"tree", "status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tree_tick_errors_total",
			Help:      "Tree ticks that returned an error.",
		}, []string{"tree"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "tree_tick_duration_seconds",
			Help:      "Wall time spent in a single tree tick.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
		}, []string{"tree"}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tree_resets_total",
			Help:      "Tree resets.",
		}, []string{"tree"}),
	}
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{c.ticks, c.errors, c.duration, c.resets}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.collectors() {
		m.Describe(ch)
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range c.collectors() {
		m.Collect(ch)
	}
}

func (c *Collector) ObserveTick(t *bt.Tree, s bt.Status, elapsed time.Duration, err error) {
	name := t.Name()
	c.duration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		c.errors.WithLabelValues(name).Inc()
		return
	}
	c.ticks.WithLabelValues(name, s.String()).Inc()
}

func (c *Collector) ObserveReset(t *bt.Tree) {
	c.resets.WithLabelValues(t.Name()).Inc()
}

var (
	_ prometheus.Collector = (*Collector)(nil)
	_ bt.TickObserver      = (*Collector)(nil)
)
