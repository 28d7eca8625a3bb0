package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyc-orr/governance-orgs/internal/model"
)

func TestExport(t *testing.T) {
	golden := &model.Snapshot{
		Header: []string{"record_id", "name", "internal_notes", "principal_officer_full_name"},
		Records: []model.Record{
			{"record_id": "A", "name": "Alpha", "internal_notes": "secret", "principal_officer_full_name": "Jane Doe"},
		},
	}
	mapping := []ColumnMapping{
		{Source: "record_id", Public: "record_id"},
		{Source: "principal_officer_full_name", Public: "principal_officer_name"},
		{Source: "missing", Public: "blank_col"},
	}

	pub := Export(golden, mapping)

	assert.Equal(t, []string{"record_id", "principal_officer_name", "blank_col"}, pub.Header)
	require.Len(t, pub.Records, 1)
	assert.Equal(t, model.Record{"record_id": "A", "principal_officer_name": "Jane Doe", "blank_col": ""}, pub.Records[0])
	assert.Equal(t, "secret", golden.Records[0]["internal_notes"])
}

func TestExportPublic_DropsInternalColumns(t *testing.T) {
	golden := &model.Snapshot{
		Header:  []string{"record_id", "internal_notes"},
		Records: []model.Record{{"record_id": "A", "internal_notes": "x"}},
	}

	pub := ExportPublic(golden)

	assert.Len(t, pub.Header, len(PublicColumns))
	assert.NotContains(t, pub.Header, "internal_notes")
	assert.Equal(t, "A", pub.Records[0].ID())
}

func TestPublicColumns_Unique(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range PublicColumns {
		assert.False(t, seen[m.Public], "duplicate public column %s", m.Public)
		seen[m.Public] = true
	}
	assert.True(t, seen[model.FieldDirectoryListed])
}
