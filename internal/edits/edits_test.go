package edits

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/nyc-orr/governance-orgs/internal/dataset"
	"github.com/nyc-orr/governance-orgs/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func golden() *model.Snapshot {
	return &model.Snapshot{
		Header: []string{"record_id", "name", "url", "listed_in_nyc_gov_agency_directory"},
		Records: []model.Record{
			{"record_id": "A", "name": "Alpha", "url": "", "listed_in_nyc_gov_agency_directory": "False"},
			{"record_id": "B", "name": "Beta", "url": "https://b.nyc.gov", "listed_in_nyc_gov_agency_directory": "True"},
		},
	}
}

func TestApply(t *testing.T) {
	g := golden()
	a := NewApplier(model.FieldDirectoryListed)

	res := a.Apply(g, []Edit{
		{Row: 1, RecordID: "A", Field: "name", NewValue: "Alpha Prime", Operator: "jdoe"},
		{Row: 2, RecordID: "Z", Field: "name", NewValue: "Ghost"},
		{Row: 3, RecordID: "A", Field: "", NewValue: "x"},
		{Row: 4, RecordID: "A", Field: "record_id", NewValue: "C"},
		{Row: 5, RecordID: "A", Field: "listed_in_nyc_gov_agency_directory", NewValue: "True"},
		{Row: 6, RecordID: "A", Field: "favorite_color", NewValue: "blue"},
		{Row: 7, RecordID: "B", Field: "url", NewValue: "https://beta.nyc.gov"},
		{Row: 8, RecordID: "A", Field: "name", NewValue: "Alpha Final", Operator: "asmith"},
	})

	require.Len(t, res.Approved, 3)
	require.Len(t, res.Rejected, 5)

	causes := map[int]string{}
	for _, r := range res.Rejected {
		causes[r.Row] = r.Cause
	}
	assert.Equal(t, map[int]string{
		2: CauseUnknownRecord,
		3: CauseBlankField,
		4: CauseImmutable,
		5: CauseDerived,
		6: CauseUnknownColumn,
	}, causes)

	assert.Equal(t, "Alpha Final", res.Snapshot.Records[0]["name"])
	assert.Equal(t, "https://beta.nyc.gov", res.Snapshot.Records[1]["url"])
	assert.Equal(t, "Alpha", g.Records[0]["name"], "input snapshot must not change")

	e, ok := res.Lookup("A", "name")
	require.True(t, ok)
	assert.Equal(t, "asmith", e.Operator)

	_, ok = res.Lookup("A", "url")
	assert.False(t, ok)
}

func TestApply_NoEdits(t *testing.T) {
	res := NewApplier().Apply(golden(), nil)
	assert.Empty(t, res.Approved)
	assert.Empty(t, res.Rejected)
	assert.Equal(t, golden(), res.Snapshot)
}

func TestLoad_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edits.csv")
	content := "record_id,field,new_value,reason,evidence_url,operator,extra\n" +
		" A ,name, Alpha Prime ,rename,https://example.nyc.gov,jdoe,x\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Edit{
		Row:         1,
		RecordID:    "A",
		Field:       "name",
		NewValue:    "Alpha Prime",
		Reason:      "rename",
		EvidenceURL: "https://example.nyc.gov",
		Operator:    "jdoe",
	}, got[0])
}

func TestLoad_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Edits")
	require.NoError(t, err)
	for _, cells := range [][]string{
		{"record_id", "field", "new_value"},
		{"B", "url", "https://beta.nyc.gov"},
	} {
		row := sheet.AddRow()
		for _, c := range cells {
			row.AddCell().SetString(c)
		}
	}
	path := filepath.Join(t.TempDir(), "edits.xlsx")
	require.NoError(t, f.Save(path))

	got, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].RecordID)
	assert.Equal(t, "https://beta.nyc.gov", got[0].NewValue)
}

func TestLoad_MissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edits.csv")
	require.NoError(t, os.WriteFile(path, []byte("record_id,field\nA,name\n"), 0o644))

	_, err := Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "new_value")
}

func TestWriteRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "review", "rejected_edits.csv")
	err := WriteRejected(path, []Rejection{
		{Edit: Edit{Row: 2, RecordID: "Z", Field: "name", NewValue: "Ghost"}, Cause: CauseUnknownRecord},
	})
	require.NoError(t, err)

	snap, err := dataset.ReadCSV(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, RejectedHeader, snap.Header)
	require.Len(t, snap.Records, 1)
	assert.Equal(t, "2", snap.Records[0]["row"])
	assert.Equal(t, CauseUnknownRecord, snap.Records[0]["cause"])
}
