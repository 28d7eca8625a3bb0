// Package bundle lays out the per-run artifact directory: inputs, outputs
// and review aids under a timestamped, descriptor-tagged name.
package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nyc-orr/governance-orgs/internal/model"
)

// Group directories inside a run directory.
const (
	InputsDir  = "inputs"
	OutputsDir = "outputs"
	ReviewDir  = "review"
)

// Artifact base names and fixed file names.
const (
	GoldenBase    = "golden_dataset"
	PublishedBase = "published_dataset"
	ChangelogFile = "run_changelog.csv"
	SummaryFile   = "run_summary.json"

	EligibilityReportFile = "directory_eligibility_report.csv"
	DirectoryChangesFile  = "directory_field_changes.csv"
	RejectedEditsFile     = "rejected_edits.csv"

	PreReleaseSuffix = "_pre-release"
	FinalSuffix      = "_final"

	timestampLayout = "20060102-150405"
)

var descriptorCleaner = regexp.MustCompile(`[^a-z0-9-]+`)

// PreReleaseName returns the unpublished file name for base, e.g.
// golden_dataset_pre-release.csv.
func PreReleaseName(base string) string {
	return base + PreReleaseSuffix + ".csv"
}

// FinalName returns the published file name for base.
func FinalName(base string) string {
	return base + FinalSuffix + ".csv"
}

// Version returns the run directory name for a run started at at.
func Version(at time.Time, descriptor string) string {
	return at.UTC().Format(timestampLayout) + "_" + CleanDescriptor(descriptor)
}

// CleanDescriptor lowercases descriptor and reduces it to [a-z0-9-].
func CleanDescriptor(descriptor string) string {
	d := descriptorCleaner.ReplaceAllString(strings.ToLower(strings.TrimSpace(descriptor)), "-")
	d = strings.Trim(d, "-")
	if d == "" {
		return "run"
	}
	return d
}

// Bundle is one run's artifact directory.
type Bundle struct {
	Dir     string
	Version string
}

// Create makes a new, empty run directory under runsDir. It fails if the
// directory already exists.
func Create(runsDir, descriptor string, at time.Time) (*Bundle, error) {
	version := Version(at, descriptor)
	dir := filepath.Join(runsDir, version)

	if err := os.MkdirAll(runsDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "bundle: create runs dir %s", runsDir)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, eris.Errorf("bundle: run directory %s already exists", dir)
		}
		return nil, eris.Wrapf(err, "bundle: create run dir %s", dir)
	}
	for _, g := range []string{InputsDir, OutputsDir, ReviewDir} {
		if err := os.Mkdir(filepath.Join(dir, g), 0o755); err != nil {
			return nil, eris.Wrapf(err, "bundle: create %s dir", g)
		}
	}
	return &Bundle{Dir: dir, Version: version}, nil
}

// Open returns the bundle at dir, which must contain an outputs group.
func Open(dir string) (*Bundle, error) {
	info, err := os.Stat(filepath.Join(dir, OutputsDir))
	if err != nil {
		return nil, eris.Wrapf(err, "bundle: open %s", dir)
	}
	if !info.IsDir() {
		return nil, eris.Errorf("bundle: %s/%s is not a directory", dir, OutputsDir)
	}
	return &Bundle{Dir: dir, Version: filepath.Base(dir)}, nil
}

// Input returns the path of name in the inputs group.
func (b *Bundle) Input(name string) string { return filepath.Join(b.Dir, InputsDir, name) }

// Output returns the path of name in the outputs group.
func (b *Bundle) Output(name string) string { return filepath.Join(b.Dir, OutputsDir, name) }

// Review returns the path of name in the review group.
func (b *Bundle) Review(name string) string { return filepath.Join(b.Dir, ReviewDir, name) }

// SnapshotInputs copies each source file into the inputs group, keeping its
// base name. Copies run concurrently.
func (b *Bundle) SnapshotInputs(ctx context.Context, sources ...string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, src := range sources {
		if src == "" {
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return copyFile(src, b.Input(filepath.Base(src)))
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "bundle: snapshot inputs")
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return eris.Wrapf(err, "bundle: open %s", src)
	}
	defer in.Close() //nolint:errcheck

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		return eris.Wrapf(err, "bundle: create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck
		return eris.Wrapf(err, "bundle: copy %s", src)
	}
	if err := out.Close(); err != nil {
		return eris.Wrapf(err, "bundle: close %s", dst)
	}
	return nil
}

// WriteSummary writes the run summary JSON into the outputs group.
func (b *Bundle) WriteSummary(s *model.RunSummary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return eris.Wrap(err, "bundle: marshal summary")
	}
	data = append(data, '\n')

	path := b.Output(SummaryFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrap(err, "bundle: write summary")
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrap(err, "bundle: replace summary")
	}
	return nil
}

// ReadSummary loads the run summary JSON.
func (b *Bundle) ReadSummary() (*model.RunSummary, error) {
	data, err := os.ReadFile(b.Output(SummaryFile))
	if err != nil {
		return nil, eris.Wrap(err, "bundle: read summary")
	}
	var s model.RunSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrap(err, "bundle: parse summary")
	}
	return &s, nil
}

// Artifact is a file produced by the run. Write receives the destination
// path.
type Artifact struct {
	Name  string
	Write func(path string) error
}

// Contents lists everything a run puts into its bundle.
type Contents struct {
	Inputs  []string
	Outputs []Artifact
	Review  []Artifact
}

// BundleRunArtifacts creates the run directory and materializes contents
// into it, returning the bundle. On failure the partial directory is left
// in place for inspection.
func BundleRunArtifacts(ctx context.Context, runsDir, descriptor string, at time.Time, c Contents) (*Bundle, error) {
	b, err := Create(runsDir, descriptor, at)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("component", "bundle"), zap.String("version", b.Version))

	if err := b.SnapshotInputs(ctx, c.Inputs...); err != nil {
		return b, err
	}
	for _, a := range c.Outputs {
		if err := a.Write(b.Output(a.Name)); err != nil {
			return b, eris.Wrapf(err, "bundle: write output %s", a.Name)
		}
	}
	for _, a := range c.Review {
		if err := a.Write(b.Review(a.Name)); err != nil {
			return b, eris.Wrapf(err, "bundle: write review aid %s", a.Name)
		}
	}

	log.Info("bundle: run artifacts written",
		zap.String("dir", b.Dir),
		zap.Int("inputs", len(c.Inputs)),
		zap.Int("outputs", len(c.Outputs)),
		zap.Int("review", len(c.Review)),
	)
	return b, nil
}
