package outcome

// abort.go: abort code and location scraping from error prose.

import (
	"regexp"
	"strconv"
)

// AbortParser extracts structured abort detail from execution error text.
// Implementations report ok=false when nothing usable is found.
type AbortParser interface {
	AbortCode(text string) (code uint64, ok bool)
	AbortLocation(text string) (loc string, ok bool)
}

var (
	// "abort ... code 5", "MoveAbort ... code: 5"
	abortCodeRe = regexp.MustCompile(`\b([Aa]bort|MoveAbort)\b.*?\bcode\b[^0-9]*([0-9]+)`)
	// "MoveAbort(MoveLocation { ... }, 5)"
	moveAbortRe = regexp.MustCompile(`\bMoveAbort\b.*?[, ]\s*([0-9]+)\b`)
	// 0x2::coin::zero
	abortLocRe = regexp.MustCompile(`\b0x[0-9a-fA-F]{1,64}::[A-Za-z_][A-Za-z0-9_]*::[A-Za-z_][A-Za-z0-9_]*\b`)
)

// RegexpParser is the default AbortParser. It tries the "abort ... code N"
// shape first and falls back to the "MoveAbort ..., N" shape.
type RegexpParser struct{}

var _ AbortParser = RegexpParser{}

func (RegexpParser) AbortCode(text string) (uint64, bool) {
	if m := abortCodeRe.FindStringSubmatch(text); m != nil {
		return parseCode(m[2])
	}
	if m := moveAbortRe.FindStringSubmatch(text); m != nil {
		return parseCode(m[1])
	}
	return 0, false
}

func (RegexpParser) AbortLocation(text string) (string, bool) {
	loc := abortLocRe.FindString(text)
	return loc, loc != ""
}

// parseCode rejects values that do not fit in a u64.
func parseCode(s string) (uint64, bool) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
