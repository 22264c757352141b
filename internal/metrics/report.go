package metrics

// report.go: plain text run report.

import (
	"fmt"
	"io"
)

// Report is RunMetrics plus the optional agent-side rates a run may record
// in its aggregate object.
type Report struct {
	Name    string
	Metrics RunMetrics

	SchemaViolationRate     *float64
	SchemaViolationAttempts *int
	SchemaViolationCount    *int
	SchemaFirstValidAvg     *float64

	SemanticFailureRate     *float64
	SemanticFailureAttempts *int
	SemanticFailureCount    *int
	SemanticFirstSuccessAvg *float64
}

// NewReport aggregates rows and picks the optional fields out of aggregate.
func NewReport(name string, rows []any, aggregate map[string]any) Report {
	r := Report{Name: name, Metrics: Aggregate(rows, aggregate)}
	r.SchemaViolationRate = optFloat(aggregate, "schema_violation_rate")
	r.SchemaViolationAttempts = optInt(aggregate, "schema_violation_attempts")
	r.SchemaViolationCount = optInt(aggregate, "schema_violation_count")
	r.SchemaFirstValidAvg = intListAvg(aggregate, "schema_violation_attempts_until_first_valid")
	r.SemanticFailureRate = optFloat(aggregate, "semantic_failure_rate")
	r.SemanticFailureAttempts = optInt(aggregate, "semantic_failure_attempts")
	r.SemanticFailureCount = optInt(aggregate, "semantic_failure_count")
	r.SemanticFirstSuccessAvg = intListAvg(aggregate, "semantic_failure_attempts_until_first_success")
	return r
}

func optFloat(agg map[string]any, key string) *float64 {
	f, ok := toFloat(agg[key])
	if !ok {
		return nil
	}
	return &f
}

func optInt(agg map[string]any, key string) *int {
	if _, ok := toFloat(agg[key]); !ok {
		return nil
	}
	n := toInt(agg[key])
	return &n
}

// intListAvg averages the integral entries of a list; nil when there are
// none.
func intListAvg(agg map[string]any, key string) *float64 {
	list, ok := agg[key].([]any)
	if !ok {
		return nil
	}
	sum, n := 0, 0
	for _, v := range list {
		f, ok := toFloat(v)
		if !ok || f != float64(int(f)) {
			continue
		}
		sum += int(f)
		n++
	}
	if n == 0 {
		return nil
	}
	avg := float64(sum) / float64(n)
	return &avg
}

// Write prints the report as key=value lines.
func (r Report) Write(w io.Writer) error {
	m := r.Metrics
	lines := []string{
		fmt.Sprintf("run=%s", r.Name),
		fmt.Sprintf("packages=%d", m.Packages),
		fmt.Sprintf("dry_run_ok_rate=%.3f (%d/%d)", m.DryRunOKRate(), m.DryRunOK, m.Packages),
		fmt.Sprintf("any_hit_rate=%.3f (%d/%d)", m.AnyHitRate(), m.AnyHit, m.Packages),
		fmt.Sprintf("macro_avg_hit_rate=%.6f", m.MacroAvgHitRate),
		fmt.Sprintf("micro_hit_rate=%.6f (hits=%d targets=%d)", m.MicroHitRate(), m.Hits, m.Targets),
		fmt.Sprintf("avg_created_distinct=%.3f", m.AvgCreatedDistinct()),
	}
	if r.SchemaViolationRate != nil {
		lines = append(lines, fmt.Sprintf("schema_violation_rate=%.3f", *r.SchemaViolationRate))
	}
	if r.SchemaViolationAttempts != nil && r.SchemaViolationCount != nil {
		lines = append(lines, fmt.Sprintf("schema_violations=%d pkgs, %d total", *r.SchemaViolationAttempts, *r.SchemaViolationCount))
	}
	if r.SchemaFirstValidAvg != nil {
		lines = append(lines, fmt.Sprintf("schema_violation_first_valid_attempt_avg=%.2f", *r.SchemaFirstValidAvg))
	}
	if r.SemanticFailureRate != nil {
		lines = append(lines, fmt.Sprintf("semantic_failure_rate=%.3f", *r.SemanticFailureRate))
	}
	if r.SemanticFailureAttempts != nil && r.SemanticFailureCount != nil {
		lines = append(lines, fmt.Sprintf("semantic_failures=%d pkgs, %d total", *r.SemanticFailureAttempts, *r.SemanticFailureCount))
	}
	if r.SemanticFirstSuccessAvg != nil {
		lines = append(lines, fmt.Sprintf("semantic_failure_first_success_attempt_avg=%.2f", *r.SemanticFirstSuccessAvg))
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
