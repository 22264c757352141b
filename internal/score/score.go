// Package score compares the types a plan created against the target types
// of a package.
//
// Types are compared on their canonical base form: generic arguments are
// dropped and the address is widened to 64 lowercase hex digits, so
// 0x2::coin::Coin<0x2::sui::SUI> and 0x0...02::coin::Coin<T> are the same
// type for scoring.
package score

import (
	"sort"
	"strings"
)

const addrHexLen = 64

// NormalizeAddress lowercases a 0x-prefixed hex address and left-pads it to
// 64 digits. Input without a 0x prefix, or with non-hex digits, is returned
// unchanged; an address longer than 64 digits is returned trimmed and
// lowercased but not padded.
func NormalizeAddress(addr string) string {
	s := strings.ToLower(strings.TrimSpace(addr))
	if !strings.HasPrefix(s, "0x") {
		return addr
	}
	h := s[2:]
	if !isHex(h) {
		return addr
	}
	if len(h) > addrHexLen {
		return s
	}
	return "0x" + strings.Repeat("0", addrHexLen-len(h)) + h
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// CanonicalBaseType strips generic arguments and normalizes the address of
// address::module::name. Strings with fewer than three :: segments are
// returned without their generic suffix but otherwise untouched.
func CanonicalBaseType(typ string) string {
	s := strings.TrimSpace(typ)
	if i := strings.IndexByte(s, '<'); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, "::")
	if len(parts) < 3 {
		return s
	}
	return NormalizeAddress(parts[0]) + "::" + parts[1] + "::" + parts[2]
}

// Score is the inhabitation result for one package.
type Score struct {
	Targets         int `json:"targets" yaml:"targets"`
	CreatedDistinct int `json:"created_distinct" yaml:"created_distinct"`
	CreatedHits     int `json:"created_hits" yaml:"created_hits"`
	Missing         int `json:"missing" yaml:"missing"`
}

// HitRate is hits over targets, 0 when there are no targets.
func (s Score) HitRate() float64 {
	if s.Targets == 0 {
		return 0
	}
	return float64(s.CreatedHits) / float64(s.Targets)
}

// Canon maps a type string to its canonical base form.
type Canon func(string) string

// Inhabitation scores created against targets using CanonicalBaseType.
func Inhabitation(targets, created []string) Score {
	return InhabitationWith(CanonicalBaseType, targets, created)
}

// InhabitationWith scores with a caller-supplied canonicalizer.
func InhabitationWith(canon Canon, targets, created []string) Score {
	targetSet := canonSet(canon, targets)
	createdSet := canonSet(canon, created)

	hits := 0
	for t := range targetSet {
		if _, ok := createdSet[t]; ok {
			hits++
		}
	}
	return Score{
		Targets:         len(targetSet),
		CreatedDistinct: len(createdSet),
		CreatedHits:     hits,
		Missing:         len(targetSet) - hits,
	}
}

func canonSet(canon Canon, types []string) map[string]struct{} {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[canon(t)] = struct{}{}
	}
	return set
}

// MissingTypes returns the canonical targets not present in created, sorted.
func MissingTypes(targets, created []string) []string {
	createdSet := canonSet(CanonicalBaseType, created)
	var out []string
	for t := range canonSet(CanonicalBaseType, targets) {
		if _, ok := createdSet[t]; !ok {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
