// Package stage defines the per-package pipeline steps run inside a
// workspace. Each stage reads its inputs from the package config and writes
// its outputs into <workspace>/<package>/<stage>/.
package stage

import (
	"context"
	"fmt"
	"sort"
)

// Question describes a single configuration prompt for a stage.
type Question struct {
	Key      string
	Prompt   string
	Type     string // "path" or "text"
	Optional bool
}

// Stage is the interface every pipeline step implements.
type Stage interface {
	// Name returns the stage's canonical short identifier (e.g. "select").
	Name() string

	// Configure returns the questions the stage needs answered before it can run.
	Configure() ([]Question, error)

	// Run executes the stage with the provided config key/value pairs,
	// writing its outputs into outputDir.
	Run(ctx context.Context, config map[string]string, outputDir string) error
}

// Set is an ordered collection of stages. Run order is insertion order.
type Set struct {
	stages []Stage
	byName map[string]Stage
}

// NewSet returns a Set holding stages in the given order.
func NewSet(stages ...Stage) *Set {
	s := &Set{byName: make(map[string]Stage, len(stages))}
	for _, st := range stages {
		s.stages = append(s.stages, st)
		s.byName[st.Name()] = st
	}
	return s
}

// All returns the stages in run order.
func (s *Set) All() []Stage { return s.stages }

// Get looks a stage up by name.
func (s *Set) Get(name string) (Stage, error) {
	st, ok := s.byName[name]
	if !ok {
		names := make([]string, 0, len(s.byName))
		for n := range s.byName {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown stage %q (known: %v)", name, names)
	}
	return st, nil
}

// missing reports the first required question without an answer in config.
func missing(st Stage, config map[string]string) error {
	qs, err := st.Configure()
	if err != nil {
		return err
	}
	for _, q := range qs {
		if !q.Optional && config[q.Key] == "" {
			return fmt.Errorf("%s: missing required config key '%s'", st.Name(), q.Key)
		}
	}
	return nil
}
