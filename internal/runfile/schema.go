package runfile

// schema.go: run document validation and checksum.

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ChecksumKey holds the document checksum. It is excluded from validation
// and from the checksum itself.
const ChecksumKey = "_checksum"

// ErrChecksumMismatch is returned by Verify.
var ErrChecksumMismatch = errors.New("run checksum mismatch")

// SchemaError locates the first schema problem in a run document.
type SchemaError struct {
	Path string
	Msg  string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "run schema: " + e.Msg
	}
	return "run schema: " + e.Path + ": " + e.Msg
}

type fieldKind int

const (
	kindInt fieldKind = iota
	kindString
	kindObject
	kindList
)

func (k fieldKind) String() string {
	switch k {
	case kindInt:
		return "int"
	case kindString:
		return "str"
	case kindObject:
		return "dict"
	case kindList:
		return "list"
	}
	return "?"
}

var requiredFields = []struct {
	name string
	kind fieldKind
}{
	{"schema_version", kindInt},
	{"started_at_unix_seconds", kindInt},
	{"finished_at_unix_seconds", kindInt},
	{"corpus_root_name", kindString},
	{"samples", kindInt},
	{"seed", kindInt},
	{"agent", kindString},
	{"rpc_url", kindString},
	{"sender", kindString},
	{"gas_budget", kindInt},
	{"aggregate", kindObject},
	{"packages", kindList},
}

var requiredScoreKeys = []string{"targets", "created_distinct", "created_hits", "missing"}

// Validate checks the required fields of a run document and of each of its
// package rows. Unknown fields are allowed.
func Validate(doc Document) error {
	for _, f := range requiredFields {
		v, ok := doc[f.name]
		if !ok {
			return &SchemaError{Msg: "missing required field: " + f.name}
		}
		if !hasKind(v, f.kind) {
			return &SchemaError{Path: f.name, Msg: fmt.Sprintf("expected %s, got %s", f.kind, describe(v))}
		}
	}

	version, _ := doc["schema_version"].(json.Number).Int64()
	if version != 1 && version != 2 {
		return &SchemaError{Path: "schema_version", Msg: fmt.Sprintf("unsupported schema_version: %d (expected 1 or 2)", version)}
	}

	for i, raw := range doc["packages"].([]any) {
		path := fmt.Sprintf("packages[%d]", i)
		row, ok := raw.(map[string]any)
		if !ok {
			return &SchemaError{Path: path, Msg: "must be an object"}
		}
		id, ok := row["package_id"]
		if !ok {
			return &SchemaError{Path: path, Msg: "missing required field 'package_id'"}
		}
		if _, ok := id.(string); !ok {
			return &SchemaError{Path: path + ".package_id", Msg: "must be a string"}
		}
		sc, ok := row["score"]
		if !ok {
			return &SchemaError{Path: path, Msg: "missing required field 'score'"}
		}
		scObj, ok := sc.(map[string]any)
		if !ok {
			return &SchemaError{Path: path + ".score", Msg: "must be an object"}
		}
		var missing []string
		for _, k := range requiredScoreKeys {
			if _, ok := scObj[k]; !ok {
				missing = append(missing, k)
			}
		}
		if len(missing) > 0 {
			return &SchemaError{Path: path + ".score", Msg: "missing required keys: " + strings.Join(missing, ", ")}
		}
		for _, k := range requiredScoreKeys {
			if !hasKind(scObj[k], kindInt) {
				return &SchemaError{Path: path + ".score." + k, Msg: "must be an int"}
			}
		}
	}
	return nil
}

func hasKind(v any, k fieldKind) bool {
	switch k {
	case kindInt:
		n, ok := v.(json.Number)
		if !ok {
			return false
		}
		_, err := n.Int64()
		return err == nil
	case kindString:
		_, ok := v.(string)
		return ok
	case kindObject:
		_, ok := v.(map[string]any)
		return ok
	case kindList:
		_, ok := v.([]any)
		return ok
	}
	return false
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case json.Number:
		return "number"
	case string:
		return "str"
	case map[string]any:
		return "dict"
	case []any:
		return "list"
	}
	return fmt.Sprintf("%T", v)
}

// Checksum returns the first 8 hex digits of the sha256 of the document's
// canonical JSON, excluding ChecksumKey.
func Checksum(doc Document) (string, error) {
	body := make(map[string]any, len(doc))
	for k, v := range doc {
		if k != ChecksumKey {
			body[k] = v
		}
	}
	data, err := canonicalJSON(body)
	if err != nil {
		return "", fmt.Errorf("checksum: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:8], nil
}

// Verify recomputes the checksum of a document that carries one. Documents
// without a checksum verify trivially.
func Verify(doc Document) error {
	want, ok := doc[ChecksumKey].(string)
	if !ok {
		return nil
	}
	got, err := Checksum(doc)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: recorded %s, computed %s", ErrChecksumMismatch, want, got)
	}
	return nil
}

// Keys returns the top-level keys of doc in sorted order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
