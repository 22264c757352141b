package metrics

// textfile.go: node_exporter textfile collector output.

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry builds a fresh registry holding the run gauges, labelled by run.
func Registry(run string, m RunMetrics) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	counts := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inhabit_run_packages",
			Help: "Packages in the run by category (scored, dry_run_ok, any_hit).",
		},
		[]string{"run", "category"},
	)
	totals := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inhabit_run_types",
			Help: "Summed type counts across packages (hits, targets, created_distinct).",
		},
		[]string{"run", "kind"},
	)
	rates := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inhabit_run_hit_rate",
			Help: "Hit rate of the run (macro, micro).",
		},
		[]string{"run", "average"},
	)
	reg.MustRegister(counts, totals, rates)

	counts.WithLabelValues(run, "scored").Set(float64(m.Packages))
	counts.WithLabelValues(run, "dry_run_ok").Set(float64(m.DryRunOK))
	counts.WithLabelValues(run, "any_hit").Set(float64(m.AnyHit))
	totals.WithLabelValues(run, "hits").Set(float64(m.Hits))
	totals.WithLabelValues(run, "targets").Set(float64(m.Targets))
	totals.WithLabelValues(run, "created_distinct").Set(float64(m.CreatedDistinctSum))
	rates.WithLabelValues(run, "macro").Set(m.MacroAvgHitRate)
	rates.WithLabelValues(run, "micro").Set(m.MicroHitRate())
	return reg
}

// WriteTextfile writes the run gauges to path in the Prometheus text format.
func WriteTextfile(path, run string, m RunMetrics) error {
	if err := prometheus.WriteToTextfile(path, Registry(run, m)); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
