// Package publish promotes a run's pre-release outputs to the stable
// "latest" location, archives the version it replaces, and appends the
// run's changelog to the master ledger.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nyc-orr/governance-orgs/internal/bundle"
	"github.com/nyc-orr/governance-orgs/internal/dataset"
	"github.com/nyc-orr/governance-orgs/internal/ledger"
	"github.com/nyc-orr/governance-orgs/internal/model"
)

// Layout of the published directory.
const (
	LatestDir   = "latest"
	ArchiveDir  = "archive"
	VersionFile = "VERSION"

	stagingPrefix = ".staging-"
)

// Options configures one promotion.
type Options struct {
	RunDir       string
	PublishedDir string
	LedgerPath   string
	Now          func() time.Time
}

// Result describes what a promotion did.
type Result struct {
	Version         string            `json:"version"`
	ArchivedVersion string            `json:"archived_version,omitempty"`
	AlreadyLatest   bool              `json:"already_latest"`
	Appended        int               `json:"appended"`
	Summary         *model.RunSummary `json:"summary"`
}

// Publish promotes the run at opts.RunDir. Re-running it for the same run
// is safe: the latest snapshot is left alone and only changelog rows not yet
// in the ledger are appended.
func Publish(ctx context.Context, opts Options) (*Result, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	b, err := bundle.Open(opts.RunDir)
	if err != nil {
		return nil, eris.Wrap(err, "publish: open run")
	}
	log := zap.L().With(zap.String("component", "publish"), zap.String("version", b.Version))

	summary, err := b.ReadSummary()
	if err != nil {
		return nil, eris.Wrap(err, "publish: run has no summary")
	}

	goldenPath, err := artifactPath(b, bundle.GoldenBase)
	if err != nil {
		return nil, err
	}
	publishedPath, err := artifactPath(b, bundle.PublishedBase)
	if err != nil {
		return nil, err
	}
	if err := validate(ctx, goldenPath, publishedPath); err != nil {
		return nil, err
	}
	entries, err := ledger.ReadFile(b.Output(bundle.ChangelogFile))
	if err != nil {
		return nil, eris.Wrap(err, "publish: read run changelog")
	}

	res := &Result{Version: b.Version, Summary: summary}

	current, err := LatestVersion(opts.PublishedDir)
	if err != nil {
		return nil, err
	}
	if current == b.Version {
		res.AlreadyLatest = true
		log.Info("publish: run is already latest, skipping promotion")
	} else {
		archived, err := promote(opts.PublishedDir, b.Version, goldenPath, publishedPath, opts.Now())
		if err != nil {
			return nil, err
		}
		res.ArchivedVersion = archived
		log.Info("publish: promoted to latest", zap.String("archived", archived))
	}

	if err := finalize(b); err != nil {
		return nil, err
	}

	appended, err := ledger.AppendToLedger(ctx, opts.LedgerPath, entries, nil)
	res.Appended = appended
	if err != nil {
		return res, eris.Wrapf(err, "publish: append to ledger after %d rows", appended)
	}
	log.Info("publish: ledger updated",
		zap.String("ledger", opts.LedgerPath),
		zap.Int("offered", len(entries)),
		zap.Int("appended", appended),
	)

	now := opts.Now().UTC()
	summary.PublishedAt = &now
	summary.Counts.Appended += appended
	summary.Outputs = finalOutputs(summary.Outputs)
	if err := b.WriteSummary(summary); err != nil {
		return res, eris.Wrap(err, "publish: update summary")
	}
	return res, nil
}

// LatestVersion returns the version currently published, or "" when
// nothing has been published yet.
func LatestVersion(publishedDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(publishedDir, LatestDir, VersionFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "publish: read latest version")
	}
	return strings.TrimSpace(string(data)), nil
}

// artifactPath finds base in the outputs group under its pre-release or,
// after an earlier publish, its final name.
func artifactPath(b *bundle.Bundle, base string) (string, error) {
	for _, name := range []string{bundle.PreReleaseName(base), bundle.FinalName(base)} {
		p := b.Output(name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", eris.Errorf("publish: run %s has no %s output", b.Version, base)
}

func validate(ctx context.Context, goldenPath, publishedPath string) error {
	golden, err := dataset.ReadCSV(ctx, goldenPath)
	if err != nil {
		return eris.Wrap(err, "publish: validate golden output")
	}
	if !golden.HasColumn(model.FieldRecordID) {
		return eris.Errorf("publish: %s has no %s column", filepath.Base(goldenPath), model.FieldRecordID)
	}
	public, err := dataset.ReadCSV(ctx, publishedPath)
	if err != nil {
		return eris.Wrap(err, "publish: validate published output")
	}
	if len(golden.Records) != len(public.Records) {
		return eris.Errorf("publish: golden has %d rows but published has %d", len(golden.Records), len(public.Records))
	}
	return nil
}

// promote stages the new snapshot beside latest, moves the old latest into
// the archive and swaps the staged copy in. The old latest is restored if
// the swap fails.
func promote(publishedDir, version, goldenPath, publishedPath string, now time.Time) (string, error) {
	if err := os.MkdirAll(filepath.Join(publishedDir, ArchiveDir), 0o755); err != nil {
		return "", eris.Wrap(err, "publish: create archive dir")
	}

	staging := filepath.Join(publishedDir, stagingPrefix+version)
	if err := os.RemoveAll(staging); err != nil {
		return "", eris.Wrap(err, "publish: clear stale staging dir")
	}
	if err := os.Mkdir(staging, 0o755); err != nil {
		return "", eris.Wrap(err, "publish: create staging dir")
	}
	staged := false
	defer func() {
		if !staged {
			os.RemoveAll(staging) //nolint:errcheck
		}
	}()

	if err := copyFile(goldenPath, filepath.Join(staging, bundle.GoldenBase+".csv")); err != nil {
		return "", err
	}
	if err := copyFile(publishedPath, filepath.Join(staging, bundle.PublishedBase+".csv")); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(staging, VersionFile), []byte(version+"\n"), 0o644); err != nil {
		return "", eris.Wrap(err, "publish: write version file")
	}

	latest := filepath.Join(publishedDir, LatestDir)
	archived := ""
	if _, err := os.Stat(latest); err == nil {
		old, err := LatestVersion(publishedDir)
		if err != nil {
			return "", err
		}
		if old == "" {
			old = "unversioned-" + now.UTC().Format("20060102-150405")
		}
		dest := uniquePath(filepath.Join(publishedDir, ArchiveDir, old))
		if err := os.Rename(latest, dest); err != nil {
			return "", eris.Wrapf(err, "publish: archive %s", old)
		}
		archived = filepath.Base(dest)

		if err := os.Rename(staging, latest); err != nil {
			if rbErr := os.Rename(dest, latest); rbErr != nil {
				zap.L().Error("publish: failed to restore previous latest",
					zap.String("archived", dest), zap.Error(rbErr))
			}
			return "", eris.Wrap(err, "publish: swap in new latest")
		}
	} else if errors.Is(err, fs.ErrNotExist) {
		if err := os.Rename(staging, latest); err != nil {
			return "", eris.Wrap(err, "publish: move staging to latest")
		}
	} else {
		return "", eris.Wrap(err, "publish: stat latest")
	}
	staged = true
	return archived, nil
}

// finalize renames the run's pre-release outputs to their final names.
func finalize(b *bundle.Bundle) error {
	for _, base := range []string{bundle.GoldenBase, bundle.PublishedBase} {
		pre := b.Output(bundle.PreReleaseName(base))
		if _, err := os.Stat(pre); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.Rename(pre, b.Output(bundle.FinalName(base))); err != nil {
			return eris.Wrapf(err, "publish: finalize %s", base)
		}
	}
	return nil
}

func finalOutputs(outputs map[string]string) map[string]string {
	if outputs == nil {
		return nil
	}
	out := make(map[string]string, len(outputs))
	for k, v := range outputs {
		out[k] = strings.Replace(v, bundle.PreReleaseSuffix+".csv", bundle.FinalSuffix+".csv", 1)
	}
	return out
}

func uniquePath(p string) string {
	if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		return p
	}
	for i := 2; ; i++ {
		c := fmt.Sprintf("%s-%d", p, i)
		if _, err := os.Stat(c); errors.Is(err, fs.ErrNotExist) {
			return c
		}
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return eris.Wrapf(err, "publish: read %s", src)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return eris.Wrapf(err, "publish: write %s", dst)
	}
	return nil
}
