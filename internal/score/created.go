package score

// created.go: created object types from a result document.

import (
	"encoding/json"
	"fmt"
	"sort"
)

// CreatedTypes returns the distinct objectType strings of "created" entries
// in doc's objectChanges, sorted. A list nested under effects takes
// precedence over one at the top level. Malformed entries are skipped.
func CreatedTypes(doc map[string]any) []string {
	changes, ok := objectChanges(doc)
	if !ok {
		return []string{}
	}
	seen := make(map[string]struct{})
	for _, raw := range changes {
		ch, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if typ, _ := ch["type"].(string); typ != "created" {
			continue
		}
		ot, ok := ch["objectType"].(string)
		if !ok || ot == "" {
			continue
		}
		seen[ot] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// CreatedTypesJSON decodes data and extracts its created types.
func CreatedTypesJSON(data []byte) ([]string, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("score: decode result: %w", err)
	}
	doc, _ := v.(map[string]any)
	return CreatedTypes(doc), nil
}

func objectChanges(doc map[string]any) ([]any, bool) {
	if effects, ok := doc["effects"].(map[string]any); ok {
		if changes, ok := effects["objectChanges"].([]any); ok {
			return changes, true
		}
	}
	changes, ok := doc["objectChanges"].([]any)
	return changes, ok
}
