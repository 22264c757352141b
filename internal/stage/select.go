package stage

// select.go: the "select" stage: interface JSON in, analysis + plan out.

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"inhabit/internal/frontmatter"
	"inhabit/internal/iface"
	"inhabit/internal/ptb"
	"inhabit/internal/selector"
)

// Output file names written by the select stage.
const (
	AnalysisFile = "analysis.json"
	PlanFile     = "plan.json"
	SummaryFile  = "select.md"
)

// Summary is the frontmatter of SummaryFile.
type Summary struct {
	PackageID   string             `yaml:"package_id"`
	Network     string             `yaml:"network"`
	MaxCalls    int                `yaml:"max_calls"`
	Fingerprint string             `yaml:"fingerprint"`
	Valid       bool               `yaml:"interface_valid"`
	Viability   selector.Viability `yaml:"viability"`
	Accepted    int                `yaml:"candidates_ok"`
	Rejected    int                `yaml:"candidates_rejected"`
	Reasons     map[string]int     `yaml:"reasons_summary"`
	ReasonsVer  int                `yaml:"reasons_version"`
	PlanCalls   int                `yaml:"plan_calls"`
	KeyTypes    []string           `yaml:"key_types"`
}

// Select runs candidate selection over a package interface.
type Select struct {
	sel      *selector.Selector
	maxCalls int
	log      *zap.Logger
}

// NewSelect returns the select stage. maxCalls < 1 is treated as 1.
func NewSelect(sel *selector.Selector, maxCalls int, log *zap.Logger) *Select {
	if log == nil {
		log = zap.NewNop()
	}
	if maxCalls < 1 {
		maxCalls = 1
	}
	return &Select{sel: sel, maxCalls: maxCalls, log: log}
}

func (s *Select) Name() string { return "select" }

func (s *Select) Configure() ([]Question, error) {
	return []Question{
		{Key: "interface", Prompt: "Path to the package interface JSON", Type: "path"},
	}, nil
}

// Run analyzes the interface and writes AnalysisFile, PlanFile (only when a
// plan exists) and SummaryFile. When the existing summary has the same
// fingerprint the stage is a no-op.
func (s *Select) Run(ctx context.Context, config map[string]string, outputDir string) error {
	if err := missing(s, config); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path := config["interface"]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("select: read %s: %w", path, err)
	}
	fp := s.fingerprint(data)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("select: create output dir: %w", err)
	}
	summaryPath := filepath.Join(outputDir, SummaryFile)
	if prev, err := ReadSummary(summaryPath); err == nil && prev.Fingerprint == fp {
		s.log.Debug("select up to date", zap.String("package", prev.PackageID))
		return nil
	}

	pkg, err := iface.Parse(data)
	if err != nil {
		return fmt.Errorf("select: %s: %w", path, err)
	}
	analysis := s.sel.AnalyzePackage(pkg)
	plan := s.sel.SelectPlan(pkg, s.maxCalls)

	if err := writeJSON(filepath.Join(outputDir, AnalysisFile), analysis); err != nil {
		return fmt.Errorf("select: %w", err)
	}
	planPath := filepath.Join(outputDir, PlanFile)
	planCalls := 0
	if plan != nil {
		if err := ptb.Write(planPath, plan); err != nil {
			return fmt.Errorf("select: %w", err)
		}
		planCalls = len(plan.Calls)
	} else if err := os.Remove(planPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("select: remove stale plan: %w", err)
	}

	sum := Summary{
		PackageID:   pkg.ID,
		Network:     s.sel.Profile().Name,
		MaxCalls:    s.maxCalls,
		Fingerprint: fp,
		Valid:       pkg.Valid,
		Viability:   s.sel.Viability(pkg),
		Accepted:    len(analysis.Accepted),
		Rejected:    len(analysis.Rejected),
		Reasons:     analysis.Histogram.Strings(),
		ReasonsVer:  analysis.ReasonsVersion,
		PlanCalls:   planCalls,
		KeyTypes:    pkg.KeyTypes(),
	}
	if err := frontmatter.WriteFile(summaryPath, sum, summaryBody(analysis)); err != nil {
		return fmt.Errorf("select: %w", err)
	}
	s.log.Info("selected",
		zap.String("package", pkg.ID),
		zap.Int("candidates_ok", sum.Accepted),
		zap.Int("candidates_rejected", sum.Rejected),
		zap.Int("plan_calls", planCalls))
	return nil
}

// fingerprint identifies one (interface, profile, cap) combination.
func (s *Select) fingerprint(data []byte) string {
	h := sha256.New()
	h.Write(data)
	h.Write([]byte{0})
	h.Write([]byte(s.sel.Profile().Name))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(s.maxCalls)))
	return hex.EncodeToString(h.Sum(nil))
}

func summaryBody(a selector.PackageAnalysis) string {
	var b strings.Builder
	b.WriteString("## Candidates\n\n")
	if len(a.Accepted) == 0 {
		b.WriteString("_none_\n")
	}
	for _, c := range a.Accepted {
		fmt.Fprintf(&b, "- `%s`", c.Target)
		if len(c.TypeArgs) > 0 {
			fmt.Fprintf(&b, " <%s>", strings.Join(c.TypeArgs, ", "))
		}
		b.WriteString("\n")
	}
	if len(a.Rejected) > 0 {
		b.WriteString("\n## Rejected\n\n")
		for _, r := range a.Rejected {
			names := make([]string, len(r.Reasons))
			for i, reason := range r.Reasons {
				names[i] = reason.String()
			}
			fmt.Fprintf(&b, "- `%s`: %s\n", r.Target, strings.Join(names, ", "))
		}
	}
	return b.String()
}

// ReadSummary parses the frontmatter of a select summary file.
func ReadSummary(path string) (*Summary, error) {
	var sum Summary
	if _, err := frontmatter.ReadFile(path, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// ReadAnalysis decodes an AnalysisFile.
func ReadAnalysis(path string) (*selector.PackageAnalysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var a selector.PackageAnalysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return &a, nil
}

func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
