package selector

// reason.go: exclusion reasons and their external names.

import (
	"fmt"
	"sort"
)

// Reason is why a function or package produced no runnable candidate.
type Reason int

const (
	ReasonNotPublicEntry Reason = iota + 1
	// ReasonHasTypeParams is part of the reported vocabulary but the current
	// policy fills type parameters instead of rejecting them.
	ReasonHasTypeParams
	ReasonUnsupportedParamType
	ReasonNoCandidates
	ReasonInterfaceInvalid
)

// ReasonVocabularyVersion is bumped whenever an external name changes or a
// reason is added.
const ReasonVocabularyVersion = 1

var reasonNames = map[Reason]string{
	ReasonNotPublicEntry:       "not_public_entry",
	ReasonHasTypeParams:        "has_type_params",
	ReasonUnsupportedParamType: "unsupported_param_type",
	ReasonNoCandidates:         "no_candidates",
	ReasonInterfaceInvalid:     "interface_missing_or_invalid",
}

var reasonsByName = func() map[string]Reason {
	m := make(map[string]Reason, len(reasonNames))
	for r, n := range reasonNames {
		m[n] = r
	}
	return m
}()

// Reasons lists the whole vocabulary in declaration order.
func Reasons() []Reason {
	return []Reason{
		ReasonNotPublicEntry,
		ReasonHasTypeParams,
		ReasonUnsupportedParamType,
		ReasonNoCandidates,
		ReasonInterfaceInvalid,
	}
}

func (r Reason) String() string {
	if n, ok := reasonNames[r]; ok {
		return n
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// ParseReason maps an external name back to a Reason.
func ParseReason(s string) (Reason, error) {
	r, ok := reasonsByName[s]
	if !ok {
		return 0, fmt.Errorf("unknown exclusion reason %q", s)
	}
	return r, nil
}

func (r Reason) MarshalText() ([]byte, error) {
	n, ok := reasonNames[r]
	if !ok {
		return nil, fmt.Errorf("unknown exclusion reason %d", int(r))
	}
	return []byte(n), nil
}

func (r *Reason) UnmarshalText(b []byte) error {
	v, err := ParseReason(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Histogram counts reasons.
type Histogram map[Reason]int

// Add increments r.
func (h Histogram) Add(r Reason) { h[r]++ }

// Merge adds every count of o into h.
func (h Histogram) Merge(o Histogram) {
	for r, n := range o {
		h[r] += n
	}
}

// Strings returns the histogram keyed by external names.
func (h Histogram) Strings() map[string]int {
	out := make(map[string]int, len(h))
	for r, n := range h {
		out[r.String()] = n
	}
	return out
}

// Keys returns the reasons present in h in declaration order.
func (h Histogram) Keys() []Reason {
	keys := make([]Reason, 0, len(h))
	for r := range h {
		keys = append(keys, r)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
