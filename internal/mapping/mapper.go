package mapping

import (
	"context"
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned by a source store when no record exists
// for the requested identifier. It aborts the mapping call; there is
// nothing to map.
var ErrRecordNotFound = errors.New("source record not found")

// RepositoryError wraps a transport or storage failure from the source
// store. It is fatal to a single mapping call and safe to retry.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository: %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// SourceFetcher is the read API the mapper needs from the source
// repository collaborator.
type SourceFetcher interface {
	FetchRecord(ctx context.Context, recordID string) (SourceRecord, error)
}

// TargetField is one mapped output value plus the provenance it was
// derived from.
type TargetField struct {
	Value         string         `json:"value"`
	Failed        bool           `json:"failed,omitempty"`
	FailureReason string         `json:"failure_reason,omitempty"`
	Sources       []string       `json:"sources"`
	RawInputs     map[string]any `json:"raw_inputs,omitempty"`
}

// TargetRecord is the narrow, schema-constrained output destined for a
// document. FieldOrder preserves configuration declaration order. Owned
// exclusively by the caller once returned.
type TargetRecord struct {
	RecordID   string                 `json:"record_id"`
	FieldOrder []string               `json:"field_order"`
	Fields     map[string]TargetField `json:"fields"`
}

// Value returns the formatted value of a target field, or the empty string
// when the field is absent or its transformation failed.
func (t *TargetRecord) Value(name string) string {
	f, ok := t.Fields[name]
	if !ok || f.Failed {
		return ""
	}
	return f.Value
}

// RecordMapper orchestrates fetch, transform and assemble for one record.
// A shared mapper is safe for concurrent use; each call is independent,
// side-effect-free beyond the repository read, and safe to retry.
type RecordMapper struct {
	store  SourceFetcher
	engine *Engine
}

// NewRecordMapper creates a mapper over a source store.
func NewRecordMapper(store SourceFetcher) *RecordMapper {
	return &RecordMapper{
		store:  store,
		engine: NewEngine(),
	}
}

// Map resolves the source record and applies every field mapping in
// declaration order. Repository failures abort the call; per-field
// transformation problems never do — they are carried in the TargetRecord
// for the Validator to report, so one call always yields one complete,
// inspectable result. The store handle is only held for the fetch; the
// transformation loop is pure.
func (m *RecordMapper) Map(ctx context.Context, recordID string, cfg *Configuration) (*TargetRecord, error) {
	rec, err := m.store.FetchRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("map record %s: %w", recordID, err)
	}

	target := &TargetRecord{
		RecordID:   recordID,
		FieldOrder: make([]string, 0, len(cfg.Fields)),
		Fields:     make(map[string]TargetField, len(cfg.Fields)),
	}

	for i := range cfg.Fields {
		fm := &cfg.Fields[i]
		res := m.engine.Apply(fm, rec)

		tf := TargetField{
			Value:         res.Value,
			Failed:        res.Failed,
			FailureReason: res.Reason,
			Sources:       contributingSources(fm),
		}
		for _, src := range tf.Sources {
			if raw, present := rec[src]; present {
				if tf.RawInputs == nil {
					tf.RawInputs = make(map[string]any)
				}
				tf.RawInputs[src] = raw
			}
		}

		target.FieldOrder = append(target.FieldOrder, fm.Name)
		target.Fields[fm.Name] = tf
	}

	return target, nil
}

// contributingSources lists every source field a mapping can draw from,
// including conditional sub-rules and the condition field itself.
func contributingSources(fm *FieldMapping) []string {
	if fm.Transform != TransformConditional {
		return append([]string(nil), fm.Sources...)
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(names ...string) {
		for _, n := range names {
			if _, dup := seen[n]; !dup && n != "" {
				seen[n] = struct{}{}
				out = append(out, n)
			}
		}
	}

	add(fm.Params.When)
	if fm.Params.Then != nil {
		add(fm.Params.Then.Sources...)
	}
	if fm.Params.Else != nil {
		add(fm.Params.Else.Sources...)
	}
	return out
}
