// Package metrics folds per-package run rows into run-level statistics and
// renders them as a text report or a Prometheus textfile.
package metrics

import (
	"encoding/json"
	"strconv"
)

// RunMetrics are the run-level statistics over the rows that carry a score.
type RunMetrics struct {
	Packages           int     `json:"packages"`
	DryRunOK           int     `json:"dry_run_ok"`
	AnyHit             int     `json:"any_hit"`
	Hits               int     `json:"hits"`
	Targets            int     `json:"targets"`
	CreatedDistinctSum int     `json:"created_distinct_sum"`
	MacroAvgHitRate    float64 `json:"macro_avg_hit_rate"`
}

// Aggregate computes RunMetrics from decoded package rows. Rows that are not
// objects, or whose score is not an object, are skipped entirely. Missing or
// non-numeric score fields count as zero. When aggregate carries a numeric
// avg_hit_rate it replaces the recomputed macro average.
func Aggregate(rows []any, aggregate map[string]any) RunMetrics {
	var m RunMetrics
	macroSum := 0.0
	for _, raw := range rows {
		row, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		score, ok := row["score"].(map[string]any)
		if !ok {
			continue
		}
		m.Packages++
		if b, ok := row["dry_run_ok"].(bool); ok && b {
			m.DryRunOK++
		}
		h := toInt(score["created_hits"])
		t := toInt(score["targets"])
		m.Hits += h
		m.Targets += t
		m.CreatedDistinctSum += toInt(score["created_distinct"])
		if h > 0 {
			m.AnyHit++
		}
		if t != 0 {
			macroSum += float64(h) / float64(t)
		}
	}
	if m.Packages > 0 {
		m.MacroAvgHitRate = macroSum / float64(m.Packages)
	}
	if v, ok := toFloat(aggregate["avg_hit_rate"]); ok {
		m.MacroAvgHitRate = v
	}
	return m
}

// DryRunOKRate is DryRunOK over Packages.
func (m RunMetrics) DryRunOKRate() float64 { return ratio(m.DryRunOK, m.Packages) }

// AnyHitRate is AnyHit over Packages.
func (m RunMetrics) AnyHitRate() float64 { return ratio(m.AnyHit, m.Packages) }

// MicroHitRate is total hits over total targets.
func (m RunMetrics) MicroHitRate() float64 { return ratio(m.Hits, m.Targets) }

// AvgCreatedDistinct is CreatedDistinctSum over Packages.
func (m RunMetrics) AvgCreatedDistinct() float64 { return ratio(m.CreatedDistinctSum, m.Packages) }

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// toInt truncates numeric values toward zero; anything else is 0.
func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil {
			return int(f)
		}
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return 0
}

// toFloat accepts numbers only; bools and strings are rejected.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
