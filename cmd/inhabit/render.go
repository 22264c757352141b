package main

// render.go: styled terminal rendering of run metrics.

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"inhabit/internal/metrics"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(22)
	valueStyle = lipgloss.NewStyle().Bold(true)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

// renderReport draws the headline metrics of r in a bordered box.
func renderReport(r metrics.Report, runID string) string {
	m := r.Metrics
	rows := [][2]string{
		{"packages", fmt.Sprint(m.Packages)},
		{"dry_run_ok_rate", fmt.Sprintf("%.3f (%d/%d)", m.DryRunOKRate(), m.DryRunOK, m.Packages)},
		{"any_hit_rate", fmt.Sprintf("%.3f (%d/%d)", m.AnyHitRate(), m.AnyHit, m.Packages)},
		{"macro_avg_hit_rate", fmt.Sprintf("%.6f", m.MacroAvgHitRate)},
		{"micro_hit_rate", fmt.Sprintf("%.6f (%d/%d)", m.MicroHitRate(), m.Hits, m.Targets)},
		{"avg_created_distinct", fmt.Sprintf("%.3f", m.AvgCreatedDistinct())},
	}
	if r.SchemaViolationRate != nil {
		rows = append(rows, [2]string{"schema_violation_rate", fmt.Sprintf("%.3f", *r.SchemaViolationRate)})
	}
	if r.SemanticFailureRate != nil {
		rows = append(rows, [2]string{"semantic_failure_rate", fmt.Sprintf("%.3f", *r.SemanticFailureRate)})
	}

	lines := []string{titleStyle.Render(r.Name)}
	if runID != "" {
		lines = append(lines, keyStyle.Render("run_id")+runID)
	}
	for _, kv := range rows {
		lines = append(lines, keyStyle.Render(kv[0])+valueStyle.Render(kv[1]))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}
