// Package metrics collects per-run loader metrics and optionally pushes them
// to a Prometheus Pushgateway once the run ends.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const jobName = "apt_trades_ingest"

// Recorder receives run events from the orchestrator.
type Recorder interface {
	UnitFinished(mode, outcome string)
	RowsLoaded(mode string, n int)
	FetchObserved(mode string, d time.Duration)
	RunHalted(mode string)
}

// Nop discards every event.
type Nop struct{}

func (Nop) UnitFinished(string, string)         {}
func (Nop) RowsLoaded(string, int)              {}
func (Nop) FetchObserved(string, time.Duration) {}
func (Nop) RunHalted(string)                    {}

// RunMetrics holds the collectors of a single CLI invocation.
type RunMetrics struct {
	Registry *prometheus.Registry

	units         *prometheus.CounterVec
	rows          *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	halted        *prometheus.GaugeVec
}

func NewRunMetrics() *RunMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &RunMetrics{
		Registry: reg,
		units: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apt_units_total",
				Help: "Units processed, by run mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		rows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apt_rows_loaded_total",
				Help: "Rows committed to the store",
			},
			[]string{"mode"},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apt_fetch_duration_seconds",
				Help:    "Upstream request latency",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
			[]string{"mode"},
		),
		halted: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "apt_run_halted",
				Help: "1 when the run stopped on an upstream quota signal",
			},
			[]string{"mode"},
		),
	}
}

func (m *RunMetrics) UnitFinished(mode, outcome string) {
	m.units.WithLabelValues(mode, outcome).Inc()
}

func (m *RunMetrics) RowsLoaded(mode string, n int) {
	m.rows.WithLabelValues(mode).Add(float64(n))
}

func (m *RunMetrics) FetchObserved(mode string, d time.Duration) {
	m.fetchDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (m *RunMetrics) RunHalted(mode string) {
	m.halted.WithLabelValues(mode).Set(1)
}

// Push sends the registry to a Pushgateway under the loader job.
func (m *RunMetrics) Push(ctx context.Context, gatewayURL, mode string) error {
	err := push.New(gatewayURL, jobName).
		Gatherer(m.Registry).
		Grouping("mode", mode).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
