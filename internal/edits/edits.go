// Package edits loads analyst-submitted field edits and applies them to a
// golden snapshot, approving or rejecting each one.
package edits

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nyc-orr/governance-orgs/internal/dataset"
	"github.com/nyc-orr/governance-orgs/internal/model"
)

// Edits file columns.
const (
	ColRecordID    = "record_id"
	ColField       = "field"
	ColNewValue    = "new_value"
	ColReason      = "reason"
	ColEvidenceURL = "evidence_url"
	ColSourceRef   = "source_ref"
	ColOperator    = "operator"
	ColNotes       = "notes"
)

// Columns is the full edits file header.
var Columns = []string{
	ColRecordID, ColField, ColNewValue, ColReason,
	ColEvidenceURL, ColSourceRef, ColOperator, ColNotes,
}

var requiredColumns = []string{ColRecordID, ColField, ColNewValue}

// Rejection causes.
const (
	CauseUnknownRecord = "unknown record_id"
	CauseBlankField    = "blank field"
	CauseImmutable     = "immutable field"
	CauseDerived       = "derived field, use a manual override instead"
	CauseUnknownColumn = "unknown column"
)

// Edit is one proposed field change. Row is the 1-based data row in the
// edits file.
type Edit struct {
	Row         int
	RecordID    string
	Field       string
	NewValue    string
	Reason      string
	EvidenceURL string
	SourceRef   string
	Operator    string
	Notes       string
}

// Rejection is an edit that was not applied.
type Rejection struct {
	Edit
	Cause string
}

// Load reads edits from a CSV or XLSX file. The file must carry record_id,
// field and new_value columns; the rest are optional.
func Load(ctx context.Context, path string) ([]Edit, error) {
	snap, err := dataset.ReadTable(ctx, path)
	if err != nil {
		return nil, eris.Wrapf(err, "edits: load %s", path)
	}
	for _, col := range requiredColumns {
		if !snap.HasColumn(col) {
			return nil, eris.Errorf("edits: %s is missing required column %q", path, col)
		}
	}
	for _, col := range snap.Header {
		if !slices.Contains(Columns, col) {
			zap.L().Warn("edits: ignoring unrecognised column", zap.String("path", path), zap.String("column", col))
		}
	}

	out := make([]Edit, 0, len(snap.Records))
	for i, rec := range snap.Records {
		out = append(out, Edit{
			Row:         i + 1,
			RecordID:    rec.Get(ColRecordID),
			Field:       rec.Get(ColField),
			NewValue:    strings.TrimSpace(rec[ColNewValue]),
			Reason:      rec.Get(ColReason),
			EvidenceURL: rec.Get(ColEvidenceURL),
			SourceRef:   rec.Get(ColSourceRef),
			Operator:    rec.Get(ColOperator),
			Notes:       rec.Get(ColNotes),
		})
	}
	return out, nil
}

// Result is the outcome of applying a batch of edits.
type Result struct {
	Snapshot *model.Snapshot
	Approved []Edit
	Rejected []Rejection

	latest map[string]Edit
}

// Lookup returns the last approved edit for recordID and field.
func (r *Result) Lookup(recordID, field string) (Edit, bool) {
	e, ok := r.latest[key(recordID, field)]
	return e, ok
}

func key(recordID, field string) string {
	return recordID + "\x00" + field
}

// Applier validates and applies edits.
type Applier struct {
	derived map[string]bool
}

// NewApplier returns an Applier that refuses edits to the given derived
// fields. record_id is always immutable.
func NewApplier(derivedFields ...string) *Applier {
	d := make(map[string]bool, len(derivedFields))
	for _, f := range derivedFields {
		if f = strings.TrimSpace(f); f != "" {
			d[f] = true
		}
	}
	return &Applier{derived: d}
}

// Apply applies edits in order to a copy of golden. Later edits to the same
// record and field win. golden is not modified.
func (a *Applier) Apply(golden *model.Snapshot, batch []Edit) *Result {
	res := &Result{
		Snapshot: golden.Clone(),
		latest:   make(map[string]Edit),
	}
	idx := res.Snapshot.Index()
	log := zap.L().With(zap.String("component", "edits"))

	for _, e := range batch {
		cause := a.check(res.Snapshot, idx, e)
		if cause != "" {
			log.Warn("edits: rejected",
				zap.Int("row", e.Row),
				zap.String("record_id", e.RecordID),
				zap.String("field", e.Field),
				zap.String("cause", cause),
			)
			res.Rejected = append(res.Rejected, Rejection{Edit: e, Cause: cause})
			continue
		}
		res.Snapshot.Records[idx[e.RecordID]][e.Field] = e.NewValue
		res.Approved = append(res.Approved, e)
		res.latest[key(e.RecordID, e.Field)] = e
	}

	log.Info("edits: applied",
		zap.Int("proposed", len(batch)),
		zap.Int("approved", len(res.Approved)),
		zap.Int("rejected", len(res.Rejected)),
	)
	return res
}

func (a *Applier) check(snap *model.Snapshot, idx map[string]int, e Edit) string {
	switch {
	case e.Field == "":
		return CauseBlankField
	case e.Field == model.FieldRecordID:
		return CauseImmutable
	case a.derived[e.Field]:
		return CauseDerived
	case !snap.HasColumn(e.Field):
		return CauseUnknownColumn
	}
	if _, ok := idx[e.RecordID]; !ok || e.RecordID == "" {
		return CauseUnknownRecord
	}
	return ""
}

// RejectedHeader is the header of the rejected edits review file.
var RejectedHeader = []string{"row", ColRecordID, ColField, ColNewValue, "cause", ColOperator, ColNotes}

// WriteRejected writes rejections to path as CSV.
func WriteRejected(path string, rejected []Rejection) error {
	rows := make([][]string, 0, len(rejected))
	for _, r := range rejected {
		rows = append(rows, []string{
			strconv.Itoa(r.Row), r.RecordID, r.Field, r.NewValue, r.Cause, r.Operator, r.Notes,
		})
	}
	if err := dataset.WriteTable(path, RejectedHeader, rows); err != nil {
		return eris.Wrap(err, "edits: write rejected edits")
	}
	return nil
}
