// Package runfile reads and writes run documents: one JSON file per run
// holding the per-package rows, the run aggregate and a checksum.
package runfile

// runfile.go: run document types, load and write.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"inhabit/internal/metrics"
	"inhabit/internal/score"
)

// SchemaVersion is the version written by this package.
const SchemaVersion = 2

// Row is one package's result.
type Row struct {
	PackageID              string      `json:"package_id"`
	Score                  score.Score `json:"score"`
	Error                  *string     `json:"error"`
	ElapsedSeconds         *float64    `json:"elapsed_seconds"`
	TargetTypesList        []string    `json:"target_key_types_list,omitempty"`
	CreatedObjectTypesList []string    `json:"created_object_types_list"`
	PlanCalls              int         `json:"plan_calls"`
	PTBParseOK             *bool       `json:"ptb_parse_ok"`
	DryRunOK               *bool       `json:"dry_run_ok"`
	DryRunExecOK           *bool       `json:"dry_run_exec_ok"`
	DryRunStatus           *string     `json:"dry_run_status"`
	DryRunEffectsError     *string     `json:"dry_run_effects_error"`
	DryRunAbortCode        *uint64     `json:"dry_run_abort_code"`
	DryRunAbortLocation    *string     `json:"dry_run_abort_location"`
}

// Run is a complete run document.
type Run struct {
	SchemaVersion  int            `json:"schema_version"`
	RunID          string         `json:"run_id"`
	StartedAt      int64          `json:"started_at_unix_seconds"`
	FinishedAt     int64          `json:"finished_at_unix_seconds"`
	CorpusRootName string         `json:"corpus_root_name"`
	Samples        int            `json:"samples"`
	Seed           int64          `json:"seed"`
	Agent          string         `json:"agent"`
	RPCURL         string         `json:"rpc_url"`
	Sender         string         `json:"sender"`
	GasBudget      int64          `json:"gas_budget"`
	GasCoin        *string        `json:"gas_coin"`
	Aggregate      map[string]any `json:"aggregate"`
	Packages       []Row          `json:"packages"`
}

// New starts a run with a fresh id.
func New(corpus, agent string, started time.Time) *Run {
	return &Run{
		SchemaVersion:  SchemaVersion,
		RunID:          uuid.NewString(),
		StartedAt:      started.Unix(),
		CorpusRootName: corpus,
		Agent:          agent,
		Aggregate:      map[string]any{},
		Packages:       []Row{},
	}
}

// Finish sorts rows by package id, records the finish time and fills the
// aggregate from the rows. Keys already present in the aggregate are kept.
func (r *Run) Finish(finished time.Time) {
	sort.SliceStable(r.Packages, func(i, j int) bool {
		return r.Packages[i].PackageID < r.Packages[j].PackageID
	})
	r.FinishedAt = finished.Unix()
	r.Samples = len(r.Packages)
	if r.Aggregate == nil {
		r.Aggregate = map[string]any{}
	}

	m := metrics.Aggregate(r.rowsAny(), nil)
	set := func(k string, v any) {
		if _, ok := r.Aggregate[k]; !ok {
			r.Aggregate[k] = v
		}
	}
	set("avg_hit_rate", m.MacroAvgHitRate)
	set("packages", m.Packages)
	set("dry_run_ok", m.DryRunOK)
	set("any_hit", m.AnyHit)
	set("hits", m.Hits)
	set("targets", m.Targets)
}

func (r *Run) rowsAny() []any {
	out := make([]any, 0, len(r.Packages))
	for _, row := range r.Packages {
		out = append(out, map[string]any{
			"score": map[string]any{
				"targets":          row.Score.Targets,
				"created_distinct": row.Score.CreatedDistinct,
				"created_hits":     row.Score.CreatedHits,
				"missing":          row.Score.Missing,
			},
			"dry_run_ok": row.DryRunOK != nil && *row.DryRunOK,
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Documents
// ---------------------------------------------------------------------------

// Document is a decoded run document kept in its generic form, so fields
// written by other tools survive a load/validate/write cycle. Numbers are
// json.Number.
type Document map[string]any

// Parse decodes a run document. The top level must be an object.
func Parse(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &SchemaError{Msg: "run document must be an object"}
	}
	return Document(obj), nil
}

// Load reads and parses the run document at path. It does not validate.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Rows returns the packages list, or nil when it is missing.
func (d Document) Rows() []any {
	rows, _ := d["packages"].([]any)
	return rows
}

// AggregateObject returns the aggregate object, or an empty map.
func (d Document) AggregateObject() map[string]any {
	if agg, ok := d["aggregate"].(map[string]any); ok {
		return agg
	}
	return map[string]any{}
}

// ToDocument converts a typed run to its generic form.
func ToDocument(r *Run) (Document, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal run: %w", err)
	}
	return Parse(data)
}

// Write validates doc, stamps its checksum and writes it as indented JSON.
func Write(path string, doc Document) error {
	if err := Validate(doc); err != nil {
		return err
	}
	sum, err := Checksum(doc)
	if err != nil {
		return err
	}
	doc[ChecksumKey] = sum

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteRun converts r and writes it.
func WriteRun(path string, r *Run) error {
	doc, err := ToDocument(r)
	if err != nil {
		return err
	}
	return Write(path, doc)
}
