package export

// export.go: converts a scored run into a markdown vault.
//
// Vault layout:
//   index.md                 run metrics and the package list
//   packages/<id>.md         one per package: score, outcome, candidates
//   reasons.md               exclusion reasons summed over all packages
//   aborts.md                abort locations and codes across failures

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"inhabit/internal/frontmatter"
	"inhabit/internal/metrics"
	"inhabit/internal/runfile"
	"inhabit/internal/score"
	"inhabit/internal/selector"
)

// Package is one package's material for the report. Name is the workspace
// package name; Name, Analysis and Viability are optional.
type Package struct {
	Name      string
	Row       runfile.Row
	Analysis  *selector.PackageAnalysis
	Viability *selector.Viability
}

// Run is everything the report is built from.
type Run struct {
	RunID    string
	Report   metrics.Report
	Packages []Package
}

// ReportBundle holds pre-generated page content (path → markdown).
// Paths are relative to the output directory, using forward slashes.
type ReportBundle struct {
	pages map[string]string
}

// Paths returns the page paths in sorted order.
func (b *ReportBundle) Paths() []string {
	paths := make([]string, 0, len(b.pages))
	for p := range b.pages {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Page returns the content of one page.
func (b *ReportBundle) Page(path string) (string, bool) {
	s, ok := b.pages[path]
	return s, ok
}

// GenerateReportBundle builds all report pages from run. No files are
// written.
func GenerateReportBundle(run *Run) (*ReportBundle, error) {
	pkgs := make([]Package, len(run.Packages))
	copy(pkgs, run.Packages)
	sort.SliceStable(pkgs, func(i, j int) bool {
		if pkgs[i].Row.PackageID != pkgs[j].Row.PackageID {
			return pkgs[i].Row.PackageID < pkgs[j].Row.PackageID
		}
		return pkgs[i].Name < pkgs[j].Name
	})
	slugs := pageSlugs(pkgs)

	pages := make(map[string]string)
	pages["index.md"] = buildIndexPage(run, pkgs, slugs)
	for i, p := range pkgs {
		page, err := buildPackagePage(p)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", p.Row.PackageID, err)
		}
		pages["packages/"+slugs[i]+".md"] = page
	}
	pages["reasons.md"] = buildReasonsPage(pkgs)
	pages["aborts.md"] = buildAbortsPage(pkgs, slugs)
	return &ReportBundle{pages: pages}, nil
}

// WriteReportBundle writes all pages in bundle to outputDir in sorted path
// order. The packages/ subdirectory is always created.
func WriteReportBundle(bundle *ReportBundle, outputDir string) error {
	if err := os.MkdirAll(filepath.Join(outputDir, "packages"), 0o755); err != nil {
		return fmt.Errorf("mkdir packages: %w", err)
	}
	for _, p := range bundle.Paths() {
		abs := filepath.Join(outputDir, filepath.FromSlash(p))
		if err := writeNote(abs, bundle.pages[p]); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Page builders
// ---------------------------------------------------------------------------

// buildIndexPage builds index.md: run metrics and links to every package.
func buildIndexPage(run *Run, pkgs []Package, slugs []string) string {
	var b strings.Builder
	b.WriteString(tagBlock([]string{"inhabit/index"}))
	fmt.Fprintf(&b, "# Run %s\n\n", run.Report.Name)
	if run.RunID != "" {
		fmt.Fprintf(&b, "- **Run id**: `%s`\n\n", run.RunID)
	}

	m := run.Report.Metrics
	b.WriteString("## Metrics\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(&b, "| packages | %d |\n", m.Packages)
	fmt.Fprintf(&b, "| dry_run_ok_rate | %.3f (%d/%d) |\n", m.DryRunOKRate(), m.DryRunOK, m.Packages)
	fmt.Fprintf(&b, "| any_hit_rate | %.3f (%d/%d) |\n", m.AnyHitRate(), m.AnyHit, m.Packages)
	fmt.Fprintf(&b, "| macro_avg_hit_rate | %.6f |\n", m.MacroAvgHitRate)
	fmt.Fprintf(&b, "| micro_hit_rate | %.6f (hits=%d targets=%d) |\n", m.MicroHitRate(), m.Hits, m.Targets)
	fmt.Fprintf(&b, "| avg_created_distinct | %.3f |\n", m.AvgCreatedDistinct())
	if r := run.Report.SchemaViolationRate; r != nil {
		fmt.Fprintf(&b, "| schema_violation_rate | %.3f |\n", *r)
	}
	if r := run.Report.SemanticFailureRate; r != nil {
		fmt.Fprintf(&b, "| semantic_failure_rate | %.3f |\n", *r)
	}

	b.WriteString("\n## Packages\n\n")
	if len(pkgs) == 0 {
		b.WriteString("_No packages._\n")
	}
	for i, p := range pkgs {
		fmt.Fprintf(&b, "- [[packages/%s|%s]] — %d/%d hits\n",
			slugs[i], displayName(p), p.Row.Score.CreatedHits, p.Row.Score.Targets)
	}
	b.WriteString("\nSee also [[reasons]] and [[aborts]].\n")
	return b.String()
}

type packageMeta struct {
	Tags      []string `yaml:"tags"`
	PackageID string   `yaml:"package_id"`
	Package   string   `yaml:"package,omitempty"`
	Targets   int      `yaml:"targets"`
	Hits      int      `yaml:"created_hits"`
	HitRate   float64  `yaml:"hit_rate"`
}

// buildPackagePage builds packages/<id>.md for one package.
func buildPackagePage(p Package) (string, error) {
	row := p.Row
	var b strings.Builder
	fmt.Fprintf(&b, "\n# %s\n\n", displayName(p))

	s := row.Score
	b.WriteString("## Score\n\n")
	b.WriteString("| targets | created_distinct | created_hits | missing |\n")
	b.WriteString("|---------|------------------|--------------|---------|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d |\n", s.Targets, s.CreatedDistinct, s.CreatedHits, s.Missing)

	if missing := score.MissingTypes(row.TargetTypesList, row.CreatedObjectTypesList); len(missing) > 0 {
		b.WriteString("\n## Missing Types\n\n")
		for _, t := range missing {
			b.WriteString("- `" + t + "`\n")
		}
	}

	b.WriteString("\n## Outcome\n\n")
	fmt.Fprintf(&b, "- **Plan calls**: %d\n", row.PlanCalls)
	fmt.Fprintf(&b, "- **Plan ok**: %s\n", optBool(row.PTBParseOK))
	fmt.Fprintf(&b, "- **Dry run ok**: %s\n", optBool(row.DryRunOK))
	fmt.Fprintf(&b, "- **Status**: %s\n", optString(row.DryRunStatus))
	if row.DryRunEffectsError != nil {
		fmt.Fprintf(&b, "- **Error**: `%s`\n", *row.DryRunEffectsError)
	}
	if row.DryRunAbortCode != nil {
		fmt.Fprintf(&b, "- **Abort code**: %d\n", *row.DryRunAbortCode)
	}
	if row.DryRunAbortLocation != nil {
		fmt.Fprintf(&b, "- **Abort location**: `%s`\n", *row.DryRunAbortLocation)
	}
	if row.Error != nil {
		fmt.Fprintf(&b, "- **Run error**: %s\n", *row.Error)
	}

	if len(row.CreatedObjectTypesList) > 0 {
		b.WriteString("\n## Created Types\n\n")
		for _, t := range row.CreatedObjectTypesList {
			b.WriteString("- `" + t + "`\n")
		}
	}

	if v := p.Viability; v != nil {
		b.WriteString("\n## Viability\n\n")
		fmt.Fprintf(&b, "%d public entry, %d without type params, %d with supported args\n",
			v.PublicEntry, v.NoTypeParams, v.SupportedArgs)
	}

	if a := p.Analysis; a != nil {
		if len(a.Accepted) > 0 {
			b.WriteString("\n## Candidates\n\n")
			for _, c := range a.Accepted {
				b.WriteString("- `" + c.Target + "`\n")
			}
		}
		if len(a.Rejected) > 0 {
			b.WriteString("\n## Rejected\n\n")
			b.WriteString("| Function | Reasons |\n")
			b.WriteString("|----------|---------|\n")
			for _, r := range a.Rejected {
				names := make([]string, len(r.Reasons))
				for i, reason := range r.Reasons {
					names[i] = reason.String()
				}
				fmt.Fprintf(&b, "| `%s` | %s |\n", r.Target, strings.Join(names, ", "))
			}
		}
	}

	meta := packageMeta{
		Tags:      sortedTags([]string{"package", hitTag(s), execTag(row.DryRunExecOK)}),
		PackageID: row.PackageID,
		Package:   p.Name,
		Targets:   s.Targets,
		Hits:      s.CreatedHits,
		HitRate:   s.HitRate(),
	}
	data, err := frontmatter.Encode(meta, b.String())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// buildReasonsPage builds reasons.md: the merged exclusion histogram.
func buildReasonsPage(pkgs []Package) string {
	total := selector.Histogram{}
	for _, p := range pkgs {
		if p.Analysis != nil {
			total.Merge(p.Analysis.Histogram)
		}
	}

	var b strings.Builder
	b.WriteString(tagBlock([]string{"inhabit/reasons"}))
	b.WriteString("# Exclusion Reasons\n\n")
	if len(total) == 0 {
		b.WriteString("_None recorded._\n")
		return b.String()
	}
	b.WriteString("| Reason | Count |\n")
	b.WriteString("|--------|-------|\n")
	for _, r := range selector.Reasons() {
		if n := total[r]; n > 0 {
			fmt.Fprintf(&b, "| %s | %d |\n", r, n)
		}
	}
	return b.String()
}

// buildAbortsPage builds aborts.md: (location, code) pairs by frequency.
func buildAbortsPage(pkgs []Package, slugs []string) string {
	type abort struct {
		loc  string
		code string
	}
	counts := make(map[abort][]int)
	for i, p := range pkgs {
		row := p.Row
		if row.DryRunAbortCode == nil && row.DryRunAbortLocation == nil {
			continue
		}
		k := abort{loc: optString(row.DryRunAbortLocation), code: "?"}
		if row.DryRunAbortCode != nil {
			k.code = fmt.Sprint(*row.DryRunAbortCode)
		}
		counts[k] = append(counts[k], i)
	}

	var b strings.Builder
	b.WriteString(tagBlock([]string{"inhabit/aborts"}))
	b.WriteString("# Aborts\n\n")
	if len(counts) == 0 {
		b.WriteString("_None found._\n")
		return b.String()
	}

	keys := make([]abort, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	// Most frequent first, then location and code for determinism.
	sort.Slice(keys, func(i, j int) bool {
		ni, nj := len(counts[keys[i]]), len(counts[keys[j]])
		if ni != nj {
			return ni > nj
		}
		if keys[i].loc != keys[j].loc {
			return keys[i].loc < keys[j].loc
		}
		return keys[i].code < keys[j].code
	})

	b.WriteString("| Location | Code | Packages |\n")
	b.WriteString("|----------|------|----------|\n")
	for _, k := range keys {
		idx := counts[k]
		links := make([]string, len(idx))
		for i, n := range idx {
			links[i] = fmt.Sprintf("[[packages/%s|%s]]", slugs[n], displayName(pkgs[n]))
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s |\n", k.loc, k.code, strings.Join(links, ", "))
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// pageSlugs assigns each package a distinct page name: the sanitized package
// id, then the id plus the workspace name, then a numeric suffix.
func pageSlugs(pkgs []Package) []string {
	used := make(map[string]bool, len(pkgs))
	slugs := make([]string, len(pkgs))
	for i, p := range pkgs {
		base := sanitizeFilename(p.Row.PackageID)
		slug := base
		if used[slug] && p.Name != "" {
			slug = base + "-" + sanitizeFilename(p.Name)
		}
		for n := 2; used[slug]; n++ {
			slug = fmt.Sprintf("%s-%d", base, n)
		}
		used[slug] = true
		slugs[i] = slug
	}
	return slugs
}

// displayName is the link text for a package.
func displayName(p Package) string {
	if p.Name == "" {
		return p.Row.PackageID
	}
	return p.Row.PackageID + " (" + p.Name + ")"
}

// hitTag maps a score to "hit-full", "hit-partial" or "hit-none".
func hitTag(s score.Score) string {
	switch {
	case s.Targets > 0 && s.CreatedHits == s.Targets:
		return "hit-full"
	case s.CreatedHits > 0:
		return "hit-partial"
	default:
		return "hit-none"
	}
}

func execTag(ok *bool) string {
	switch {
	case ok == nil:
		return "exec-unknown"
	case *ok:
		return "exec-ok"
	default:
		return "exec-failed"
	}
}

func optBool(b *bool) string {
	if b == nil {
		return "unknown"
	}
	return fmt.Sprint(*b)
}

func optString(s *string) string {
	if s == nil {
		return "unknown"
	}
	return *s
}

func sortedTags(tags []string) []string {
	sorted := make([]string, len(tags))
	copy(sorted, tags)
	sort.Strings(sorted)
	return sorted
}

// tagBlock returns a YAML frontmatter block holding only tags, sorted.
func tagBlock(tags []string) string {
	var b strings.Builder
	b.WriteString("---\ntags:\n")
	for _, t := range sortedTags(tags) {
		b.WriteString("  - " + t + "\n")
	}
	b.WriteString("---\n\n")
	return b.String()
}

// sanitizeFilename replaces / . and : with -, collapses consecutive - to one,
// and trims leading/trailing -.
func sanitizeFilename(s string) string {
	s = strings.NewReplacer("/", "-", ".", "-", ":", "-").Replace(s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}

// writeNote writes content to path, creating parent directories as needed.
func writeNote(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
