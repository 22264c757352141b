package runfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inhabit/internal/metrics"
	"inhabit/internal/score"
)

const validDoc = `{
  "schema_version": 2,
  "started_at_unix_seconds": 100,
  "finished_at_unix_seconds": 200,
  "corpus_root_name": "corpus",
  "samples": 2,
  "seed": 0,
  "agent": "baseline",
  "rpc_url": "",
  "sender": "0x1",
  "gas_budget": 10000000,
  "aggregate": {"avg_hit_rate": 0.5},
  "packages": [
    {"package_id": "0x1", "dry_run_ok": true, "score": {"targets": 2, "created_distinct": 1, "created_hits": 1, "missing": 1}, "extra": [1, 2]},
    {"package_id": "0x2", "score": {"targets": 0, "created_distinct": 0, "created_hits": 0, "missing": 0}}
  ],
  "notes": "additive fields are fine"
}`

func mustParse(t *testing.T, s string) Document {
	t.Helper()
	doc, err := Parse([]byte(s))
	require.NoError(t, err)
	return doc
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, Validate(mustParse(t, validDoc)))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d Document)
		want   string
	}{
		{"missing field", func(d Document) { delete(d, "sender") }, "missing required field: sender"},
		{"wrong type", func(d Document) { d["samples"] = "2" }, "samples: expected int, got str"},
		{"float int", func(d Document) { d["seed"] = mustNumber("1.5") }, "seed: expected int"},
		{"bad version", func(d Document) { d["schema_version"] = mustNumber("3") }, "unsupported schema_version: 3"},
		{"aggregate list", func(d Document) { d["aggregate"] = []any{} }, "aggregate: expected dict, got list"},
		{"row not object", func(d Document) { d["packages"] = []any{"x"} }, "packages[0]: must be an object"},
		{"row without id", func(d Document) {
			d["packages"] = []any{map[string]any{"score": map[string]any{}}}
		}, "packages[0]: missing required field 'package_id'"},
		{"row id not string", func(d Document) {
			d["packages"] = []any{map[string]any{"package_id": mustNumber("1")}}
		}, "packages[0].package_id: must be a string"},
		{"row without score", func(d Document) {
			d["packages"] = []any{map[string]any{"package_id": "0x1"}}
		}, "packages[0]: missing required field 'score'"},
		{"score missing keys", func(d Document) {
			d["packages"] = []any{map[string]any{"package_id": "0x1", "score": map[string]any{"targets": mustNumber("1")}}}
		}, "missing required keys: created_distinct, created_hits, missing"},
		{"score key not int", func(d Document) {
			d["packages"] = []any{map[string]any{"package_id": "0x1", "score": map[string]any{
				"targets": mustNumber("1"), "created_distinct": mustNumber("1"), "created_hits": true, "missing": mustNumber("0"),
			}}}
		}, "packages[0].score.created_hits: must be an int"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, validDoc)
			tt.mutate(doc)
			err := Validate(doc)
			require.Error(t, err)
			var se *SchemaError
			require.True(t, errors.As(err, &se))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_NotObject(t *testing.T) {
	_, err := Parse([]byte(`[]`))
	var se *SchemaError
	assert.ErrorAs(t, err, &se)

	_, err = Parse([]byte(`{`))
	assert.Error(t, err)
}

func TestChecksum(t *testing.T) {
	a := mustParse(t, validDoc)
	b := mustParse(t, validDoc)

	sa, err := Checksum(a)
	require.NoError(t, err)
	assert.Len(t, sa, 8)

	b[ChecksumKey] = "ignored!"
	sb, err := Checksum(b)
	require.NoError(t, err)
	assert.Equal(t, sa, sb, "checksum excludes itself")

	b["seed"] = mustNumber("7")
	sc, err := Checksum(b)
	require.NoError(t, err)
	assert.NotEqual(t, sa, sc)
}

func TestChecksum_Golden(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"ascii", `{"a":1,"b":"x"}`, "ecf9e98e"},
		{"non-ascii", `{"b":"café","a":1}`, "76c89848"},
		{"numbers", `{"n":1e2,"m":-0,"f":0.5,"s":1e-7,"big":1e16,"k":1e15,"t":12345678901234567890}`, "f9afc6d4"},
		{"escapes", `{"e":"MoveAbort in 0x2::coin — \ud83d\ude00 \u007f \u0001 \n \"q\" / <&>","z":[true,false,null,{"y":2.50}]}`, "aafc9739"},
		{"key order", `{"_x":1,"Z":2,"a":{"é":1,"e":2}}`, "530ea436"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum, err := Checksum(mustParse(t, tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, sum)
		})
	}
}

func TestCanonicalJSON(t *testing.T) {
	data, err := canonicalJSON(mustParse(t, `{"b":"café \ud83d\ude00","a":[1e2,-0.0,0.0001,1e-5]}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":[100.0,-0.0,0.0001,1e-05],"b":"caf\u00e9 \ud83d\ude00"}`, string(data))
}

func TestVerify_NonASCII(t *testing.T) {
	doc := mustParse(t, validDoc)
	doc["notes"] = "abort in café — retry"
	sum, err := Checksum(doc)
	require.NoError(t, err)
	doc[ChecksumKey] = sum
	assert.NoError(t, Verify(doc))
}

func TestWriteLoadVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	doc := mustParse(t, validDoc)
	require.NoError(t, Write(path, doc))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(loaded))
	require.NoError(t, Verify(loaded))
	assert.Equal(t, "additive fields are fine", loaded["notes"])

	loaded["agent"] = "tampered"
	assert.ErrorIs(t, Verify(loaded), ErrChecksumMismatch)

	delete(loaded, ChecksumKey)
	assert.NoError(t, Verify(loaded))
}

func TestWrite_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	doc := mustParse(t, validDoc)
	delete(doc, "packages")
	assert.Error(t, Write(path, doc))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRunRoundTrip(t *testing.T) {
	started := time.Unix(1000, 0)
	r := New("corpus", "baseline", started)
	_, err := uuid.Parse(r.RunID)
	require.NoError(t, err)

	ok := true
	r.Packages = append(r.Packages,
		Row{PackageID: "0xb", Score: score.Score{Targets: 2, CreatedHits: 2, CreatedDistinct: 2}, DryRunOK: &ok},
		Row{PackageID: "0xa", Score: score.Score{Targets: 4, CreatedHits: 1, CreatedDistinct: 1, Missing: 3}},
	)
	r.Aggregate["avg_hit_rate"] = 0.9
	r.Finish(time.Unix(1010, 0))

	assert.Equal(t, "0xa", r.Packages[0].PackageID)
	assert.Equal(t, 2, r.Samples)
	assert.Equal(t, 0.9, r.Aggregate["avg_hit_rate"], "recorded aggregate keys are kept")
	assert.Equal(t, 3, r.Aggregate["hits"])

	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, WriteRun(path, r))

	doc, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Verify(doc))

	m := metrics.Aggregate(doc.Rows(), doc.AggregateObject())
	assert.Equal(t, 2, m.Packages)
	assert.Equal(t, 1, m.DryRunOK)
	assert.Equal(t, 0.9, m.MacroAvgHitRate)
	assert.Equal(t, 6, m.Targets)
}

func TestDocumentAccessors(t *testing.T) {
	doc := mustParse(t, `{"packages": "nope", "aggregate": []}`)
	assert.Nil(t, doc.Rows())
	assert.Empty(t, doc.AggregateObject())
	assert.Equal(t, []string{"aggregate", "packages"}, doc.Keys())
}

func TestCollect(t *testing.T) {
	root := t.TempDir()
	for _, id := range []string{"0x3", "0x1", "0x2"} {
		dir := filepath.Join(root, strings.TrimPrefix(id, "0x"), "score")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, WriteRow(dir, Row{PackageID: id, Score: score.Score{Targets: 1}}))
	}
	hidden := filepath.Join(root, ".cache")
	require.NoError(t, os.MkdirAll(hidden, 0o755))
	require.NoError(t, WriteRow(hidden, Row{PackageID: "0xhidden"}))

	rows, err := Collect(root, func(rel string) bool { return rel == "2" })
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "0x1", rows[0].PackageID)
	assert.Equal(t, "0x3", rows[1].PackageID)

	bad := filepath.Join(root, "bad")
	require.NoError(t, os.MkdirAll(bad, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bad, RowFile), []byte("{"), 0o644))
	_, err = Collect(root, nil)
	assert.Error(t, err)
}
