package selector

// analyze.go: function and package classification, bounded plan
// selection, viability counts.

import (
	"go.uber.org/zap"

	"inhabit/internal/iface"
	"inhabit/internal/ptb"
)

// FunctionAnalysis is the verdict for one function. Args and TypeArgs are
// only set when Runnable.
type FunctionAnalysis struct {
	Runnable bool
	Reasons  []Reason
	Args     []ptb.Arg
	TypeArgs []string
}

// AnalyzeFunction classifies f. Type parameters are filled with the native
// coin type rather than rejected. Parameter mapping stops at the first
// parameter with no default, so at most one unsupported_param_type is
// recorded.
func (s *Selector) AnalyzeFunction(f iface.Function) FunctionAnalysis {
	var reasons []Reason
	if !f.PublicEntry() {
		reasons = append(reasons, ReasonNotPublicEntry)
	}

	typeArgs := make([]string, 0, len(f.TypeParams))
	for range f.TypeParams {
		typeArgs = append(typeArgs, s.profile.NativeCoinType())
	}

	args, ok := s.defaultArgs(f.Params)
	if !ok {
		reasons = append(reasons, ReasonUnsupportedParamType)
	}

	if len(reasons) > 0 {
		return FunctionAnalysis{Reasons: reasons}
	}
	return FunctionAnalysis{Runnable: true, Args: args, TypeArgs: typeArgs}
}

// Rejection is a function that produced no candidate.
type Rejection struct {
	Target  string   `json:"target"`
	Reasons []Reason `json:"reasons"`
}

// PackageAnalysis is the classification of every function of a package.
type PackageAnalysis struct {
	PackageID string      `json:"package_id"`
	Accepted  []ptb.Call  `json:"candidates_ok"`
	Rejected  []Rejection `json:"candidates_rejected"`
	Histogram Histogram   `json:"reasons_summary"`

	// ReasonsVersion is the vocabulary version the histogram keys belong to.
	ReasonsVersion int `json:"reasons_version"`
}

// AnalyzePackage classifies every function of pkg in (module, function)
// order. An invalid interface yields only interface_missing_or_invalid; a
// valid one with no accepted candidate also records no_candidates.
func (s *Selector) AnalyzePackage(pkg *iface.Package) PackageAnalysis {
	out := PackageAnalysis{
		PackageID: pkg.ID,
		Accepted:  []ptb.Call{},
		Rejected:  []Rejection{},
		Histogram: Histogram{},

		ReasonsVersion: ReasonVocabularyVersion,
	}
	if !pkg.Valid {
		out.Histogram.Add(ReasonInterfaceInvalid)
		s.log.Debug("interface missing or invalid", zap.String("package", pkg.ID))
		return out
	}

	pkg.Walk(func(module, function string, f iface.Function) bool {
		target := pkg.Target(module, function)
		a := s.AnalyzeFunction(f)
		if a.Runnable {
			out.Accepted = append(out.Accepted, ptb.Call{Target: target, TypeArgs: a.TypeArgs, Args: a.Args})
			return true
		}
		out.Rejected = append(out.Rejected, Rejection{Target: target, Reasons: a.Reasons})
		for _, r := range a.Reasons {
			out.Histogram.Add(r)
		}
		s.log.Debug("function rejected",
			zap.String("target", target),
			zap.Stringers("reasons", a.Reasons))
		return true
	})

	if len(out.Accepted) == 0 {
		out.Histogram.Add(ReasonNoCandidates)
	}
	return out
}

// SelectPlan builds a plan from the first maxCalls directly callable
// functions in (module, function) order. Unlike AnalyzePackage it skips
// functions that declare type parameters. It returns nil when nothing is
// callable. maxCalls below 1 is treated as 1.
func (s *Selector) SelectPlan(pkg *iface.Package, maxCalls int) *ptb.Plan {
	if maxCalls < 1 {
		maxCalls = 1
	}
	if !pkg.Valid {
		return nil
	}
	var calls []ptb.Call
	pkg.Walk(func(module, function string, f iface.Function) bool {
		if !f.PublicEntry() || len(f.TypeParams) > 0 {
			return true
		}
		args, ok := s.defaultArgs(f.Params)
		if !ok {
			return true
		}
		calls = append(calls, ptb.Call{Target: pkg.Target(module, function), TypeArgs: []string{}, Args: args})
		return len(calls) < maxCalls
	})
	if len(calls) == 0 {
		return nil
	}
	return &ptb.Plan{Calls: calls}
}

// Viability holds three nested counts: public entry functions, those without
// type parameters, and those whose parameters all have defaults.
type Viability struct {
	PublicEntry   int `json:"public_entry_total" yaml:"public_entry_total"`
	NoTypeParams  int `json:"public_entry_no_type_params_total" yaml:"public_entry_no_type_params_total"`
	SupportedArgs int `json:"public_entry_no_type_params_supported_args_total" yaml:"public_entry_no_type_params_supported_args_total"`
}

// Viability counts without building candidate lists.
func (s *Selector) Viability(pkg *iface.Package) Viability {
	var v Viability
	if !pkg.Valid {
		return v
	}
	pkg.Walk(func(_, _ string, f iface.Function) bool {
		if !f.PublicEntry() {
			return true
		}
		v.PublicEntry++
		if len(f.TypeParams) > 0 {
			return true
		}
		v.NoTypeParams++
		if _, ok := s.defaultArgs(f.Params); ok {
			v.SupportedArgs++
		}
		return true
	})
	return v
}
