package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyc-orr/governance-orgs/internal/eligibility"
)

func TestParseFields(t *testing.T) {
	rec, err := parseFields([]string{"record_id=X1", "name=Board of Elections", "url=https://x.nyc.gov/a=b"})
	require.NoError(t, err)
	assert.Equal(t, "X1", rec["record_id"])
	assert.Equal(t, "Board of Elections", rec["name"])
	assert.Equal(t, "https://x.nyc.gov/a=b", rec["url"])

	_, err = parseFields(nil)
	require.Error(t, err)

	_, err = parseFields([]string{"no-equals"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key=value")

	_, err = parseFields([]string{"=value"})
	require.Error(t, err)
}

func TestWriteEvaluation(t *testing.T) {
	eng, err := eligibility.NewEngine(eligibility.DefaultConfig())
	require.NoError(t, err)
	rec, err := parseFields([]string{
		"record_id=X1",
		"operational_status=Inactive",
		"organization_type=Mayoral Agency",
		"url=https://x.nyc.gov",
	})
	require.NoError(t, err)
	res := eng.Evaluate(rec)

	var buf bytes.Buffer
	require.NoError(t, writeEvaluation(&buf, res, false))
	assert.Contains(t, buf.String(), `"record_id": "X1"`)
	assert.Contains(t, buf.String(), `"eligible": false`)

	buf.Reset()
	require.NoError(t, writeEvaluation(&buf, res, true))
	assert.Contains(t, buf.String(), "record_id: X1")
	assert.Contains(t, buf.String(), "eligible: False")
	assert.Contains(t, buf.String(), res.Reasoning)
}
