package changes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeEventID_Stable(t *testing.T) {
	a := ComputeEventID("NYC_GOID_000001", "in_org_chart", "True", "true")
	b := ComputeEventID("NYC_GOID_000001", "in_org_chart", "true", "TRUE")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestComputeEventID_Normalization(t *testing.T) {
	base := ComputeEventID("X", "name", "Café", "Cafe")

	// Trim and case folding.
	assert.Equal(t, base, ComputeEventID(" x ", "NAME", "CAFÉ ", "cafe"))
	// Decomposed e + combining acute composes to the same NFC form.
	assert.Equal(t, base, ComputeEventID("X", "name", "Cafe\u0301", "Cafe"))
}

func TestComputeEventID_Distinguishes(t *testing.T) {
	id := ComputeEventID("X", "f", "a", "b")
	assert.NotEqual(t, id, ComputeEventID("X", "f", "b", "a"), "direction matters")
	assert.NotEqual(t, id, ComputeEventID("Y", "f", "a", "b"))
	assert.NotEqual(t, id, ComputeEventID("X", "g", "a", "b"))
	// The separator keeps field boundaries distinct.
	assert.NotEqual(t, ComputeEventID("a|b", "c", "", ""), ComputeEventID("a", "b|c", "", ""))
}
