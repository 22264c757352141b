package stage

// runner.go: run stages over the packages of a workspace in parallel.

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"inhabit/internal/container"
	"inhabit/internal/runfile"
)

// Runner executes a Set over the packages of a workspace. Packages are
// independent; each package runs its stages in Set order.
type Runner struct {
	ws      *container.Workspace
	set     *Set
	workers int
	skip    func(pkg string) bool
	log     *zap.Logger
}

// NewRunner returns a Runner with at most workers packages in flight.
// skip may be nil.
func NewRunner(ws *container.Workspace, set *Set, workers int, skip func(string) bool, log *zap.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{ws: ws, set: set, workers: workers, skip: skip, log: log}
}

// Run executes the named stages (all stages when names is empty) for pkgs
// (every package in the workspace when pkgs is empty). A failing package
// does not stop the others; all failures are returned joined, sorted by
// package name.
func (r *Runner) Run(ctx context.Context, names, pkgs []string) error {
	stages, err := r.pick(names)
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		if pkgs, err = r.ws.ListPackages(); err != nil {
			return err
		}
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	addError := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.workers)
	for _, pkg := range pkgs {
		if r.skip != nil && r.skip(pkg) {
			r.log.Debug("skipped", zap.String("package", pkg))
			continue
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			if err := r.runPackage(egCtx, pkg, stages); err != nil {
				r.log.Error("package failed", zap.String("package", pkg), zap.Error(err))
				addError(fmt.Errorf("%s: %w", pkg, err))
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
	return errors.Join(errs...)
}

func (r *Runner) runPackage(ctx context.Context, pkg string, stages []Stage) error {
	cfg, err := r.ws.LoadPackage(pkg)
	if err != nil {
		return err
	}
	for _, st := range stages {
		out, err := r.ws.OutputDir(pkg, st.Name())
		if err != nil {
			return err
		}
		if err := st.Run(ctx, cfg.Stages[st.Name()], out); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) pick(names []string) ([]Stage, error) {
	if len(names) == 0 {
		return r.set.All(), nil
	}
	out := make([]Stage, 0, len(names))
	for _, n := range names {
		st, err := r.set.Get(n)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// Rows collects the score rows of every package not skipped.
func (r *Runner) Rows() ([]runfile.Row, error) {
	return runfile.Collect(r.ws.Dir, func(rel string) bool {
		return r.skip != nil && r.skip(rel)
	})
}
