package changes

import (
	"slices"
	"sort"

	"github.com/nyc-orr/governance-orgs/internal/model"
)

// Annotator fills the provenance fields (reason, evidence, operator, notes)
// of a detected change.
type Annotator func(c *model.ChangeRecord)

// Option configures a Detector.
type Option func(*Detector)

// WithAnnotator sets the function used to describe where a change came from.
func WithAnnotator(fn Annotator) Option {
	return func(d *Detector) { d.annotate = fn }
}

// WithBooleanFields overrides DefaultBooleanFields.
func WithBooleanFields(fields []string) Option {
	return func(d *Detector) { d.norm = NewNormalizer(fields) }
}

// Detector compares before/after snapshots.
type Detector struct {
	norm     *Normalizer
	annotate Annotator
}

// NewDetector returns a Detector with DefaultBooleanFields unless overridden.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{norm: NewNormalizer(DefaultBooleanFields)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Normalizer returns the value normalizer in use.
func (d *Detector) Normalizer() *Normalizer {
	return d.norm
}

// Detect returns one change per (record, tracked field) whose normalized
// value differs between before and after. Records are matched by record_id;
// a record missing from before is compared against empty values. Output is
// ordered by record_id, then by the order of tracked, so identical inputs
// always produce identical output.
func (d *Detector) Detect(before, after *model.Snapshot, tracked []string) []model.ChangeRecord {
	if after == nil || len(tracked) == 0 {
		return nil
	}

	var prev map[string]int
	if before != nil {
		prev = before.Index()
	}
	cur := after.Index()

	ids := make([]string, 0, len(cur))
	for id := range cur {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fields := uniqueFields(tracked)

	var out []model.ChangeRecord
	for _, id := range ids {
		newRec := after.Records[cur[id]]
		var oldRec model.Record
		if i, ok := prev[id]; ok {
			oldRec = before.Records[i]
		}

		for _, f := range fields {
			oldVal := d.norm.Display(f, oldRec[f])
			newVal := d.norm.Display(f, newRec[f])
			if oldVal == newVal {
				continue
			}
			c := model.ChangeRecord{
				RecordID: id,
				Field:    f,
				OldValue: oldVal,
				NewValue: newVal,
			}
			if d.annotate != nil {
				d.annotate(&c)
			}
			out = append(out, c)
		}
	}
	return out
}

// Detect compares snapshots with the default detector settings.
func Detect(before, after *model.Snapshot, tracked []string) []model.ChangeRecord {
	return NewDetector().Detect(before, after, tracked)
}

func uniqueFields(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" && f != model.FieldRecordID && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}
