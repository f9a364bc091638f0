package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prepaid-reconcile/internal/reconcile"
)

// Metrics bundles reconciliation metrics.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	RowsTotal        *prometheus.CounterVec
	ColumnMismatches *prometheus.CounterVec
	LastSuccessRate  *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New constructs metrics and registers them on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prepaid_reconcile_runs_total",
				Help: "Total reconciliation runs by result",
			},
			[]string{"result"},
		),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "prepaid_reconcile_run_duration_seconds",
			Help:    "Reconciliation run duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		RowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prepaid_reconcile_rows_total",
				Help: "Compared ledger rows by status",
			},
			[]string{"status"},
		),
		ColumnMismatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prepaid_reconcile_column_mismatches_total",
				Help: "Mismatched rows per ledger column",
			},
			[]string{"column"},
		),
		LastSuccessRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "prepaid_reconcile_last_success_rate",
				Help: "Success rate (percent) of the latest run per tariff",
			},
			[]string{"tariff"},
		),
		gatherer: reg,
	}
	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.RowsTotal,
		m.ColumnMismatches,
		m.LastSuccessRate,
	)
	return m
}

// ObserveRun records one reconciliation. err is the run error, if any.
func (m *Metrics) ObserveRun(o *reconcile.Outcome, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(elapsed.Seconds())
	if err != nil || o == nil {
		m.RunsTotal.WithLabelValues("error").Inc()
		return
	}
	rep := o.Report
	if rep.Pass() {
		m.RunsTotal.WithLabelValues("pass").Inc()
	} else {
		m.RunsTotal.WithLabelValues("fail").Inc()
	}
	m.RowsTotal.WithLabelValues("match").Add(float64(rep.Passed))
	m.RowsTotal.WithLabelValues("mismatch").Add(float64(rep.Failed))
	for _, c := range rep.MismatchedColumns {
		m.ColumnMismatches.WithLabelValues(c.Column).Add(float64(c.Rows))
	}
	m.LastSuccessRate.WithLabelValues(o.Tariff).Set(rep.SuccessRate)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
