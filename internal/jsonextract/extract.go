// Package jsonextract pulls JSON values out of free-form text such as agent
// responses, where the JSON may be wrapped in a Markdown code fence.
package jsonextract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrNoJSON is wrapped by every extraction failure.
var ErrNoJSON = errors.New("no usable JSON found")

var fenceRe = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```")

// StripFence returns the body of the first ``` fence in text, or the trimmed
// text when there is none.
func StripFence(text string) string {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// Value decodes the JSON value in text.
func Value(text string) (any, error) {
	s := StripFence(text)
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("%w: %s (input %s)", ErrNoJSON, err, snippet(s, 60))
	}
	return v, nil
}

// TypeList extracts a set of type strings from either a JSON array of
// strings or an object with a key_types array. Non-string entries are
// ignored. The result is deduplicated and sorted.
func TypeList(text string) ([]string, error) {
	v, err := Value(text)
	if err != nil {
		return nil, err
	}
	var list []any
	switch t := v.(type) {
	case []any:
		list = t
	case map[string]any:
		kt, ok := t["key_types"].([]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected array or {key_types:[...]}", ErrNoJSON)
		}
		list = kt
	default:
		return nil, fmt.Errorf("%w: expected array or {key_types:[...]}", ErrNoJSON)
	}

	seen := make(map[string]struct{}, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			seen[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%q...", s[:n])
}
