package stage

// score.go: the "score" stage: dry-run result in, package row out.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"inhabit/internal/jsonextract"
	"inhabit/internal/outcome"
	"inhabit/internal/ptb"
	"inhabit/internal/runfile"
	"inhabit/internal/score"
)

// Score classifies a dry-run result and scores the types it created against
// the package's target key types.
type Score struct {
	classifier *outcome.Classifier
	canon      *score.Canonicalizer
	log        *zap.Logger
	now        func() time.Time
}

// NewScore returns the score stage. canon is shared across packages.
func NewScore(classifier *outcome.Classifier, canon *score.Canonicalizer, log *zap.Logger) *Score {
	if log == nil {
		log = zap.NewNop()
	}
	return &Score{classifier: classifier, canon: canon, log: log, now: time.Now}
}

func (s *Score) Name() string { return "score" }

func (s *Score) Configure() ([]Question, error) {
	return []Question{
		{Key: "result", Prompt: "Path to the dry-run result JSON", Type: "path"},
		{Key: "targets", Prompt: "Path to a target type list (blank: the interface's key types)", Type: "path", Optional: true},
	}, nil
}

// Run writes runfile.RowFile into outputDir. The select stage's outputs are
// read from the sibling "select" directory. A malformed plan or result is
// recorded in the row, not returned.
func (s *Score) Run(ctx context.Context, config map[string]string, outputDir string) error {
	if err := missing(s, config); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := s.now()
	selectDir := filepath.Join(filepath.Dir(outputDir), "select")

	sum, err := ReadSummary(filepath.Join(selectDir, SummaryFile))
	if err != nil {
		return fmt.Errorf("score: run the select stage first: %w", err)
	}
	row := runfile.Row{PackageID: sum.PackageID, PlanCalls: sum.PlanCalls}

	targets := sum.KeyTypes
	if path := config["targets"]; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("score: read %s: %w", path, err)
		}
		if targets, err = jsonextract.TypeList(string(data)); err != nil {
			return fmt.Errorf("score: %s: %w", path, err)
		}
	}
	row.TargetTypesList = targets

	s.checkPlan(&row, filepath.Join(selectDir, PlanFile))

	created := []string{}
	data, err := os.ReadFile(config["result"])
	if err != nil {
		return fmt.Errorf("score: read %s: %w", config["result"], err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		row.DryRunOK = boolPtr(false)
		setError(&row, fmt.Sprintf("decode result: %v", err))
	} else {
		doc, isObj := v.(map[string]any)
		ok, f := s.classifier.Classify(doc)
		_, hasEffects := doc["effects"].(map[string]any)
		row.DryRunOK = boolPtr(isObj && hasEffects)
		row.DryRunExecOK = boolPtr(ok)
		if ok {
			row.DryRunStatus = strPtr(outcome.StatusSuccess)
		} else {
			row.DryRunStatus = f.Status
			row.DryRunEffectsError = f.Error
			row.DryRunAbortCode = f.AbortCode
			row.DryRunAbortLocation = f.AbortLocation
		}
		created = score.CreatedTypes(doc)
	}
	row.CreatedObjectTypesList = created
	row.Score = s.canon.Score(targets, created)

	elapsed := s.now().Sub(start).Seconds()
	row.ElapsedSeconds = &elapsed

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("score: create output dir: %w", err)
	}
	if err := runfile.WriteRow(outputDir, row); err != nil {
		return fmt.Errorf("score: %w", err)
	}
	s.log.Info("scored",
		zap.String("package", row.PackageID),
		zap.Int("targets", row.Score.Targets),
		zap.Int("hits", row.Score.CreatedHits),
		zap.Boolp("exec_ok", row.DryRunExecOK))
	return nil
}

// checkPlan records whether the selected plan decodes and is causally
// ordered. A package without a plan leaves PTBParseOK unset.
func (s *Score) checkPlan(row *runfile.Row, path string) {
	p, err := ptb.Load(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return
	case err != nil:
		row.PTBParseOK = boolPtr(false)
		setError(row, err.Error())
		s.log.Warn("plan rejected", zap.String("package", row.PackageID), zap.Error(err))
		return
	}
	row.PTBParseOK = boolPtr(true)
	row.PlanCalls = len(p.Calls)
}

func setError(row *runfile.Row, msg string) {
	if row.Error == nil {
		row.Error = &msg
	}
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }
