package bundle

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nyc-orr/governance-orgs/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var runAt = time.Date(2026, 3, 1, 14, 5, 9, 0, time.UTC)

func TestNames(t *testing.T) {
	assert.Equal(t, "golden_dataset_pre-release.csv", PreReleaseName(GoldenBase))
	assert.Equal(t, "published_dataset_final.csv", FinalName(PublishedBase))
	assert.Equal(t, "20260301-140509_weekly-refresh", Version(runAt, "Weekly Refresh"))
}

func TestCleanDescriptor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"run", "run"},
		{"  Sprint 3 / edits ", "sprint-3-edits"},
		{"---", "run"},
		{"", "run"},
		{"a_b", "a-b"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanDescriptor(tt.in))
		})
	}
}

func TestCreate(t *testing.T) {
	runs := filepath.Join(t.TempDir(), "runs")

	b, err := Create(runs, "test", runAt)
	require.NoError(t, err)
	assert.Equal(t, "20260301-140509_test", b.Version)
	for _, g := range []string{InputsDir, OutputsDir, ReviewDir} {
		assert.DirExists(t, filepath.Join(b.Dir, g))
	}
	assert.Equal(t, filepath.Join(b.Dir, "outputs", SummaryFile), b.Output(SummaryFile))

	_, err = Create(runs, "test", runAt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestOpen(t *testing.T) {
	runs := t.TempDir()
	created, err := Create(runs, "test", runAt)
	require.NoError(t, err)

	b, err := Open(created.Dir)
	require.NoError(t, err)
	assert.Equal(t, created.Version, b.Version)

	_, err = Open(filepath.Join(runs, "missing"))
	require.Error(t, err)
}

func TestSnapshotInputs(t *testing.T) {
	src := t.TempDir()
	golden := filepath.Join(src, "golden.csv")
	edits := filepath.Join(src, "edits.csv")
	require.NoError(t, os.WriteFile(golden, []byte("record_id\nA\n"), 0o644))
	require.NoError(t, os.WriteFile(edits, []byte("record_id,field,new_value\n"), 0o644))

	b, err := Create(t.TempDir(), "test", runAt)
	require.NoError(t, err)

	require.NoError(t, b.SnapshotInputs(context.Background(), golden, "", edits))

	data, err := os.ReadFile(b.Input("golden.csv"))
	require.NoError(t, err)
	assert.Equal(t, "record_id\nA\n", string(data))
	assert.FileExists(t, b.Input("edits.csv"))
}

func TestSnapshotInputs_MissingSource(t *testing.T) {
	b, err := Create(t.TempDir(), "test", runAt)
	require.NoError(t, err)

	err = b.SnapshotInputs(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestSummaryRoundTrip(t *testing.T) {
	b, err := Create(t.TempDir(), "test", runAt)
	require.NoError(t, err)

	in := &model.RunSummary{
		RunID:      "run-1",
		Version:    b.Version,
		Descriptor: "test",
		StartedAt:  runAt,
		FinishedAt: runAt.Add(time.Second),
		Revision:   UnknownRevision,
		Counts:     model.RunCounts{Records: 3, Proposed: 2, Approved: 1, Rejected: 1},
		Outputs:    map[string]string{"golden": PreReleaseName(GoldenBase)},
	}
	require.NoError(t, b.WriteSummary(in))

	out, err := b.ReadSummary()
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.NoFileExists(t, b.Output(SummaryFile+".tmp"))
}

func TestBundleRunArtifacts(t *testing.T) {
	src := filepath.Join(t.TempDir(), "golden.csv")
	require.NoError(t, os.WriteFile(src, []byte("record_id\n"), 0o644))

	write := func(content string) func(string) error {
		return func(path string) error {
			return os.WriteFile(path, []byte(content), 0o644)
		}
	}

	b, err := BundleRunArtifacts(context.Background(), t.TempDir(), "nightly", runAt, Contents{
		Inputs:  []string{src},
		Outputs: []Artifact{{Name: PreReleaseName(GoldenBase), Write: write("g")}},
		Review:  []Artifact{{Name: EligibilityReportFile, Write: write("r")}},
	})
	require.NoError(t, err)

	assert.FileExists(t, b.Input("golden.csv"))
	assert.FileExists(t, b.Output("golden_dataset_pre-release.csv"))
	assert.FileExists(t, b.Review(EligibilityReportFile))
}

func TestBundleRunArtifacts_WriteFailure(t *testing.T) {
	b, err := BundleRunArtifacts(context.Background(), t.TempDir(), "nightly", runAt, Contents{
		Outputs: []Artifact{{Name: "x.csv", Write: func(string) error { return eris.New("disk full") }}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "x.csv")
	require.NotNil(t, b)
	assert.DirExists(t, b.Dir)
}

func TestRevision_NotARepo(t *testing.T) {
	t.Chdir(t.TempDir())
	rev := Revision(context.Background())
	assert.NotEmpty(t, rev)
}
