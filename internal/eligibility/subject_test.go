package eligibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyc-orr/governance-orgs/internal/model"
)

func TestHostOf(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "https://WWW.NYC.gov/site/dsny/index.page", want: "www.nyc.gov"},
		{raw: "x.nyc.gov/path", want: "x.nyc.gov"},
		{raw: "http://vote.nyc:8080", want: "vote.nyc"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := hostOf(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := hostOf("https://")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no host in "https://"`)
}

func TestNewSubject_UnparseableURLWarns(t *testing.T) {
	s := NewSubject(model.Record{"record_id": "X", "url": "https://"})

	assert.Empty(t, s.Host)
	assert.Contains(t, s.Warnings, `unparseable url "https://"`)
}
