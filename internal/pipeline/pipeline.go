// Package pipeline runs one curation pass over the golden dataset: apply
// analyst edits, evaluate directory eligibility, diff against the input,
// and bundle the pre-release outputs with their changelog and review aids.
package pipeline

import (
	"context"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nyc-orr/governance-orgs/internal/bundle"
	"github.com/nyc-orr/governance-orgs/internal/changes"
	"github.com/nyc-orr/governance-orgs/internal/dataset"
	"github.com/nyc-orr/governance-orgs/internal/edits"
	"github.com/nyc-orr/governance-orgs/internal/eligibility"
	"github.com/nyc-orr/governance-orgs/internal/ledger"
	"github.com/nyc-orr/governance-orgs/internal/model"
	"github.com/nyc-orr/governance-orgs/internal/store"
)

// Options configures a run.
type Options struct {
	GoldenPath     string
	EditsPath      string
	RunsDir        string
	Descriptor     string
	DirectoryField string
	TrackedFields  []string
	BooleanFields  []string
	Operator       string

	Now      func() time.Time
	Revision func(ctx context.Context) string
}

// Pipeline orchestrates a run. The store is optional.
type Pipeline struct {
	opts   Options
	engine *eligibility.Engine
	store  store.Store
}

// Result is what a completed run produced.
type Result struct {
	RunID    string
	Version  string
	Dir      string
	Summary  *model.RunSummary
	Changes  []model.ChangeRecord
	Rejected []edits.Rejection
}

// New creates a Pipeline. st may be nil.
func New(engine *eligibility.Engine, st store.Store, opts Options) (*Pipeline, error) {
	if engine == nil {
		return nil, eris.New("pipeline: nil eligibility engine")
	}
	if opts.GoldenPath == "" {
		return nil, eris.New("pipeline: golden dataset path is required")
	}
	if opts.RunsDir == "" {
		return nil, eris.New("pipeline: runs directory is required")
	}
	if opts.DirectoryField == "" {
		opts.DirectoryField = model.FieldDirectoryListed
	}
	if opts.Operator == "" {
		opts.Operator = "pipeline"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Revision == nil {
		opts.Revision = bundle.Revision
	}
	return &Pipeline{opts: opts, engine: engine, store: st}, nil
}

// Run executes one pass and returns its result. A failed run is recorded
// in the store, when there is one, and no published artifact is touched.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := p.opts.Now().UTC()
	runID := uuid.New().String()
	version := bundle.Version(started, p.opts.Descriptor)
	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.String("run_id", runID),
		zap.String("version", version),
	)
	log.Info("pipeline: starting run", zap.String("golden", p.opts.GoldenPath), zap.String("edits", p.opts.EditsPath))

	if p.store != nil {
		if _, err := p.store.CreateRun(ctx, model.Run{
			ID:         runID,
			Version:    version,
			Descriptor: bundle.CleanDescriptor(p.opts.Descriptor),
			Dir:        filepath.Join(p.opts.RunsDir, version),
		}); err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
	}

	res, err := p.run(ctx, log, runID, started)
	if err != nil {
		log.Error("pipeline: run failed", zap.Error(err))
		if p.store != nil {
			if sErr := p.store.FailRun(ctx, runID, err); sErr != nil {
				log.Warn("pipeline: failed to record run failure", zap.Error(sErr))
			}
		}
		return nil, err
	}

	if p.store != nil {
		if err := p.store.UpdateRunResult(ctx, runID, model.RunStatusComplete, res.Summary); err != nil {
			log.Warn("pipeline: failed to record run result", zap.Error(err))
		}
	}
	log.Info("pipeline: run complete",
		zap.String("dir", res.Dir),
		zap.Int("records", res.Summary.Counts.Records),
		zap.Int("eligible", res.Summary.Counts.Eligible),
		zap.Int("changes", res.Summary.Counts.Changes),
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, log *zap.Logger, runID string, started time.Time) (*Result, error) {
	phase := func(name string, fn func() error) error {
		start := time.Now()
		if err := fn(); err != nil {
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Error(err),
			)
			return err
		}
		log.Info("pipeline: phase complete",
			zap.String("phase", name),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	var (
		golden  *model.Snapshot
		applied *edits.Result
		batch   []edits.Edit
		evals   map[string]*eligibility.Result
		ordered []*eligibility.Result
		found   []model.ChangeRecord
		entries []model.ChangelogEntry
		counts  model.RunCounts
	)

	err := phase("load", func() error {
		var err error
		golden, err = dataset.ReadCSV(ctx, p.opts.GoldenPath)
		if err != nil {
			return eris.Wrap(err, "pipeline: read golden dataset")
		}
		if !golden.HasColumn(model.FieldRecordID) {
			return eris.Errorf("pipeline: golden dataset has no %s column", model.FieldRecordID)
		}
		checkIDs(log, golden)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = phase("edits", func() error {
		if p.opts.EditsPath != "" {
			var err error
			batch, err = edits.Load(ctx, p.opts.EditsPath)
			if err != nil {
				return eris.Wrap(err, "pipeline: load edits")
			}
		}
		applied = edits.NewApplier(p.opts.DirectoryField).Apply(golden, batch)
		return nil
	})
	if err != nil {
		return nil, err
	}

	working := applied.Snapshot
	if err := phase("eligibility", func() error {
		working.EnsureColumn(p.opts.DirectoryField)
		evals = make(map[string]*eligibility.Result, len(working.Records))
		for _, rec := range working.Records {
			r := p.engine.Evaluate(rec)
			rec[p.opts.DirectoryField] = model.FormatBool(r.Eligible)
			ordered = append(ordered, r)
			if r.RecordID != "" {
				evals[r.RecordID] = r
			}
			if r.Eligible {
				counts.Eligible++
			}
			if len(r.Warnings) > 0 {
				counts.Warnings++
				log.Warn("pipeline: data quality warning",
					zap.String("record_id", r.RecordID),
					zap.Strings("warnings", r.Warnings),
				)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := phase("diff", func() error {
		for _, f := range p.opts.TrackedFields {
			if !working.HasColumn(f) {
				return eris.Errorf("pipeline: tracked field %q is not a golden dataset column", f)
			}
		}
		opts := []changes.Option{changes.WithAnnotator(p.annotator(applied, evals))}
		if len(p.opts.BooleanFields) > 0 {
			opts = append(opts, changes.WithBooleanFields(p.opts.BooleanFields))
		}
		detector := changes.NewDetector(opts...)
		found = detector.Detect(golden, working, p.trackedFields(applied))
		entries = changes.BuildEntries(runID, started, found)
		return nil
	}); err != nil {
		return nil, err
	}

	counts.Records = len(working.Records)
	counts.Proposed = len(batch)
	counts.Approved = len(applied.Approved)
	counts.Rejected = len(applied.Rejected)
	counts.Changes = len(entries)

	var b *bundle.Bundle
	err = phase("bundle", func() error {
		var err error
		b, err = bundle.BundleRunArtifacts(ctx, p.opts.RunsDir, p.opts.Descriptor, started, bundle.Contents{
			Inputs: []string{p.opts.GoldenPath, p.opts.EditsPath},
			Outputs: []bundle.Artifact{
				{Name: bundle.PreReleaseName(bundle.GoldenBase), Write: func(path string) error {
					return dataset.WriteCSV(path, working)
				}},
				{Name: bundle.PreReleaseName(bundle.PublishedBase), Write: func(path string) error {
					return dataset.WriteCSV(path, dataset.ExportPublic(working))
				}},
				{Name: bundle.ChangelogFile, Write: func(path string) error {
					return ledger.WriteFile(path, entries)
				}},
			},
			Review: []bundle.Artifact{
				{Name: bundle.EligibilityReportFile, Write: func(path string) error {
					return writeEligibilityReport(path, working, ordered)
				}},
				{Name: bundle.DirectoryChangesFile, Write: func(path string) error {
					return writeDirectoryChanges(path, p.opts.DirectoryField, working, entries)
				}},
				{Name: bundle.RejectedEditsFile, Write: func(path string) error {
					return edits.WriteRejected(path, applied.Rejected)
				}},
			},
		})
		if err != nil {
			return eris.Wrap(err, "pipeline: bundle run artifacts")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary := &model.RunSummary{
		RunID:      runID,
		Version:    b.Version,
		Descriptor: bundle.CleanDescriptor(p.opts.Descriptor),
		StartedAt:  started,
		FinishedAt: p.opts.Now().UTC(),
		Revision:   p.opts.Revision(ctx),
		Counts:     counts,
		Outputs: map[string]string{
			"golden":    bundle.PreReleaseName(bundle.GoldenBase),
			"published": bundle.PreReleaseName(bundle.PublishedBase),
			"changelog": bundle.ChangelogFile,
		},
	}
	if err := b.WriteSummary(summary); err != nil {
		return nil, eris.Wrap(err, "pipeline: write run summary")
	}

	return &Result{
		RunID:    runID,
		Version:  b.Version,
		Dir:      b.Dir,
		Summary:  summary,
		Changes:  found,
		Rejected: applied.Rejected,
	}, nil
}

// trackedFields is the directory flag, every field an approved edit
// touched, and any configured extras.
func (p *Pipeline) trackedFields(applied *edits.Result) []string {
	fields := []string{p.opts.DirectoryField}
	for _, e := range applied.Approved {
		if !slices.Contains(fields, e.Field) {
			fields = append(fields, e.Field)
		}
	}
	for _, f := range p.opts.TrackedFields {
		if !slices.Contains(fields, f) {
			fields = append(fields, f)
		}
	}
	return fields
}

// annotator fills in why each detected change happened.
func (p *Pipeline) annotator(applied *edits.Result, evals map[string]*eligibility.Result) changes.Annotator {
	return func(c *model.ChangeRecord) {
		c.Operator = p.opts.Operator
		if c.Field == p.opts.DirectoryField {
			c.Reason = model.ReasonRuleApplication
			if r, ok := evals[c.RecordID]; ok {
				if overridden(r) {
					c.Reason = model.ReasonManualOverride
				}
				c.Notes = r.Reasoning
			}
			return
		}
		e, ok := applied.Lookup(c.RecordID, c.Field)
		if !ok {
			return
		}
		c.Reason = e.Reason
		if c.Reason == "" {
			c.Reason = model.ReasonAnalystEdit
		}
		c.EvidenceURL = e.EvidenceURL
		c.SourceRef = e.SourceRef
		c.Notes = e.Notes
		if e.Operator != "" {
			c.Operator = e.Operator
		}
	}
}

func overridden(r *eligibility.Result) bool {
	for _, rr := range r.RuleResults {
		if rr.Category == eligibility.CategoryOverride && rr.Passed {
			return true
		}
	}
	return false
}

func checkIDs(log *zap.Logger, snap *model.Snapshot) {
	seen := make(map[string]bool, len(snap.Records))
	for i, rec := range snap.Records {
		id := rec.ID()
		if id == "" {
			log.Warn("pipeline: row has no record_id and cannot be tracked", zap.Int("row", i+1))
			continue
		}
		if seen[id] {
			log.Warn("pipeline: duplicate record_id, later row ignored for change tracking", zap.String("record_id", id))
		}
		seen[id] = true
	}
}
