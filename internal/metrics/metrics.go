// Package metrics holds the prometheus collectors of representation runs.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const namespace = "icerep"

// Run outcomes used as status label.
const (
	StatusOK     = "ok"
	StatusError  = "error"
	StatusCached = "cached"
)

// Collector owns a registry so several runs in one process (and tests) do
// not share global state.
type Collector struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	runs          *prometheus.CounterVec
	genes         *prometheus.GaugeVec
	searchSpace   prometheus.Gauge
	decodes       prometheus.Counter
	violations    *prometheus.GaugeVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		// Labels: stage (load, build, rules, genes, constraints, derived)
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generate",
			Name:      "stage_duration_seconds",
			Help:      "Duration of the representation generation stages",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"stage"}),
		// Labels: status (ok, error, cached)
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generate",
			Name:      "runs_total",
			Help:      "Representation requests processed",
		}, []string{"status"}),
		// Labels: kind (variable, constant)
		genes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "representation",
			Name:      "genes",
			Help:      "Genes of the last generated representation",
		}, []string{"kind"}),
		searchSpace: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "representation",
			Name:      "search_space_bits",
			Help:      "log2 of the number of distinct chromosomes of the last representation",
		}),
		decodes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "chromosomes_total",
			Help:      "Chromosomes decoded into configurations",
		}),
		// Labels: severity (error, warning, info)
		violations: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lint",
			Name:      "violations",
			Help:      "Lint violations of the last representation",
		}, []string{"severity"}),
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) ObserveStage(stage string, elapsed time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (c *Collector) RecordRun(status string) {
	c.runs.WithLabelValues(status).Inc()
}

func (c *Collector) SetRepresentation(variable, constant int, searchSpaceBits float64) {
	c.genes.WithLabelValues("variable").Set(float64(variable))
	c.genes.WithLabelValues("constant").Set(float64(constant))
	c.searchSpace.Set(searchSpaceBits)
}

func (c *Collector) AddDecodes(n int) {
	c.decodes.Add(float64(n))
}

func (c *Collector) SetViolations(errors, warnings, info int) {
	c.violations.WithLabelValues("error").Set(float64(errors))
	c.violations.WithLabelValues("warning").Set(float64(warnings))
	c.violations.WithLabelValues("info").Set(float64(info))
}

// WriteText dumps all metrics in the prometheus text exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
