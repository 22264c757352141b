package main

// commands.go: subcommand implementations.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"inhabit/internal/config"
	"inhabit/internal/container"
	"inhabit/internal/export"
	"inhabit/internal/logging"
	"inhabit/internal/metrics"
	"inhabit/internal/outcome"
	"inhabit/internal/ptb"
	"inhabit/internal/runfile"
	"inhabit/internal/score"
	"inhabit/internal/selector"
	"inhabit/internal/stage"
)

// ---------------------------------------------------------------------------
// workspace helpers
// ---------------------------------------------------------------------------

// env is an opened workspace with its settings, logger and stages.
type env struct {
	ws       *container.Workspace
	settings *config.Settings
	log      *zap.Logger
	stages   *stage.Set
}

func openEnv(name string) (*env, error) {
	ws, err := container.Open(name)
	if err != nil {
		return nil, err
	}
	settings, err := ws.Settings()
	if err != nil {
		return nil, err
	}
	log, err := logging.FromSettings(settings)
	if err != nil {
		return nil, err
	}
	profile, err := settings.Profile()
	if err != nil {
		return nil, err
	}
	canon, err := score.NewCanonicalizer(score.DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	sel := selector.New(selector.WithProfile(profile), selector.WithLogger(log.Named("selector")))
	cls := outcome.New(outcome.WithLogger(log.Named("outcome")))
	return &env{
		ws:       ws,
		settings: settings,
		log:      log,
		stages: stage.NewSet(
			stage.NewSelect(sel, settings.MaxCallsPerPackage, log.Named("select")),
			stage.NewScore(cls, canon, log.Named("score")),
		),
	}, nil
}

func (e *env) runner() *stage.Runner {
	return stage.NewRunner(e.ws, e.stages, e.settings.Workers, e.settings.IsSkipped, e.log)
}

// buildRun gathers the score rows of the workspace into a finished run.
func (e *env) buildRun(name string) (*runfile.Run, error) {
	rows, err := e.runner().Rows()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	run := runfile.New(name, "baseline", now)
	run.Packages = append(run.Packages, rows...)
	if p, err := e.settings.Profile(); err == nil {
		run.Sender = p.DefaultAddress
	}
	run.Finish(now)
	return run, nil
}

// ---------------------------------------------------------------------------
// init
// ---------------------------------------------------------------------------

func runInit(_ context.Context, o *options, args []string) error {
	name := args[0]
	if err := container.Init(name); err != nil {
		return err
	}
	ws, err := container.Open(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(o.out, "created workspace %q at %s\n", name, ws.Dir)
	return nil
}

// ---------------------------------------------------------------------------
// add
// ---------------------------------------------------------------------------

func runAdd(_ context.Context, o *options, args []string) error {
	wsName, pkgName := args[0], args[1]
	e, err := openEnv(wsName)
	if err != nil {
		return err
	}

	cfg := container.PackageConfig{Stages: map[string]map[string]string{}}
	if o.iface != "" {
		cfg.Stages["select"] = map[string]string{"interface": o.iface}
		cfg.Stages["score"] = map[string]string{"result": o.result, "targets": o.targets}
	} else {
		for _, st := range e.stages.All() {
			questions, err := st.Configure()
			if err != nil {
				return fmt.Errorf("configure stage %s: %w", st.Name(), err)
			}
			answers, err := promptQuestions(questions)
			if err != nil {
				return fmt.Errorf("prompt: %w", err)
			}
			cfg.Stages[st.Name()] = answers
		}
	}
	if err := e.ws.AddPackage(pkgName, cfg); err != nil {
		return err
	}
	fmt.Fprintf(o.out, "added package %q to workspace %q\n", pkgName, wsName)
	return nil
}

// ---------------------------------------------------------------------------
// analyze
// ---------------------------------------------------------------------------

func runAnalyze(ctx context.Context, o *options, args []string) error {
	e, err := openEnv(args[0])
	if err != nil {
		return err
	}
	defer e.log.Sync() //nolint:errcheck

	pkgs := o.packages
	if len(pkgs) == 0 {
		if pkgs, err = e.ws.ListPackages(); err != nil {
			return err
		}
	}
	if len(pkgs) == 0 {
		fmt.Fprintf(o.out, "no packages in workspace %q\n", args[0])
		return nil
	}

	e.log.Info("analyzing", zap.String("workspace", args[0]), zap.Int("packages", len(pkgs)), zap.Strings("stages", o.stages))
	if err := e.runner().Run(ctx, o.stages, pkgs); err != nil {
		return fmt.Errorf("one or more errors during analysis:\n%w", err)
	}
	fmt.Fprintf(o.out, "analyzed %d package(s) → %s\n", len(pkgs), e.ws.Dir)
	return nil
}

// ---------------------------------------------------------------------------
// validate
// ---------------------------------------------------------------------------

func runValidate(_ context.Context, o *options, args []string) error {
	for _, path := range args {
		kind, err := validateFile(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(o.out, "%s: ok (%s)\n", path, kind)
	}
	return nil
}

// validateFile checks a plan (top-level "calls") or a run document.
func validateFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err == nil {
		if _, isPlan := probe["calls"]; !isPlan {
			doc, err := runfile.Parse(data)
			if err != nil {
				return "", fmt.Errorf("%s: %w", path, err)
			}
			if err := runfile.Validate(doc); err != nil {
				return "", fmt.Errorf("%s: %w", path, err)
			}
			if err := runfile.Verify(doc); err != nil {
				return "", fmt.Errorf("%s: %w", path, err)
			}
			return "run", nil
		}
	}
	if _, err := ptb.Decode(data); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return "plan", nil
}

// ---------------------------------------------------------------------------
// metrics
// ---------------------------------------------------------------------------

func runMetrics(_ context.Context, o *options, args []string) error {
	target := args[0]
	var (
		doc  runfile.Document
		name string
		id   string
	)
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		if doc, err = runfile.Load(target); err != nil {
			return err
		}
		if err := runfile.Verify(doc); err != nil {
			return fmt.Errorf("%s: %w", target, err)
		}
		name = filepath.Base(target)
		id, _ = doc["run_id"].(string)
	} else {
		e, err := openEnv(target)
		if err != nil {
			return err
		}
		run, err := e.buildRun(target)
		if err != nil {
			return err
		}
		if o.runOut != "" {
			if err := runfile.WriteRun(o.runOut, run); err != nil {
				return err
			}
		}
		if doc, err = runfile.ToDocument(run); err != nil {
			return err
		}
		name, id = target, run.RunID
	}

	report := metrics.NewReport(name, doc.Rows(), doc.AggregateObject())
	if o.textfile != "" {
		if err := metrics.WriteTextfile(o.textfile, name, report.Metrics); err != nil {
			return err
		}
	}
	if o.plain {
		return report.Write(o.out)
	}
	_, err := fmt.Fprintln(o.out, renderReport(report, id))
	return err
}

// ---------------------------------------------------------------------------
// report
// ---------------------------------------------------------------------------

func runReport(_ context.Context, o *options, args []string) error {
	wsName, outDir := args[0], args[1]
	e, err := openEnv(wsName)
	if err != nil {
		return err
	}
	run, err := e.buildRun(wsName)
	if err != nil {
		return err
	}
	pkgs, err := e.reportPackages()
	if err != nil {
		return err
	}
	doc, err := runfile.ToDocument(run)
	if err != nil {
		return err
	}
	bundle, err := export.GenerateReportBundle(&export.Run{
		RunID:    run.RunID,
		Report:   metrics.NewReport(wsName, doc.Rows(), doc.AggregateObject()),
		Packages: pkgs,
	})
	if err != nil {
		return err
	}
	if err := export.WriteReportBundle(bundle, outDir); err != nil {
		return err
	}
	if o.archive {
		if err := e.ws.Archive(filepath.Join(outDir, "artifacts")); err != nil {
			return err
		}
	}
	fmt.Fprintf(o.out, "wrote %d page(s) → %s\n", len(bundle.Paths()), outDir)
	return nil
}

// reportPackages pairs each scored package with its select outputs.
func (e *env) reportPackages() ([]export.Package, error) {
	names, err := e.ws.ListPackages()
	if err != nil {
		return nil, err
	}
	var out []export.Package
	for _, name := range names {
		if e.settings.IsSkipped(name) {
			continue
		}
		rowPath := filepath.Join(e.ws.Dir, name, "score", runfile.RowFile)
		data, err := os.ReadFile(rowPath)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", rowPath, err)
		}
		p := export.Package{Name: name}
		if err := json.Unmarshal(data, &p.Row); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", rowPath, err)
		}
		selectDir := filepath.Join(e.ws.Dir, name, "select")
		if a, err := stage.ReadAnalysis(filepath.Join(selectDir, stage.AnalysisFile)); err == nil {
			p.Analysis = a
		}
		if s, err := stage.ReadSummary(filepath.Join(selectDir, stage.SummaryFile)); err == nil {
			v := s.Viability
			p.Viability = &v
		}
		out = append(out, p)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// list / remove
// ---------------------------------------------------------------------------

func runList(_ context.Context, o *options, args []string) error {
	var (
		names []string
		err   error
	)
	if len(args) == 0 {
		names, err = container.List()
	} else {
		var ws *container.Workspace
		if ws, err = container.Open(args[0]); err == nil {
			names, err = ws.ListPackages()
		}
	}
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(o.out, n)
	}
	return nil
}

func runRemove(_ context.Context, o *options, args []string) error {
	if len(args) == 1 {
		if err := container.Remove(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(o.out, "removed workspace %q\n", args[0])
		return nil
	}
	ws, err := container.Open(args[0])
	if err != nil {
		return err
	}
	if err := ws.RemovePackage(args[1]); err != nil {
		return err
	}
	fmt.Fprintf(o.out, "removed package %q from workspace %q\n", args[1], args[0])
	return nil
}
