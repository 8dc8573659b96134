package testrun

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_EmptySetsPass(t *testing.T) {
	diags, pass := Reconcile(nil, nil, nil)
	assert.True(t, pass)
	assert.Empty(t, diags)
}

func TestReconcile_ExactMatchPasses(t *testing.T) {
	diags, pass := Reconcile(
		[]string{"var.name", "check.count"},
		[]string{"check.count", "var.name"},
		nil,
	)
	require.True(t, pass)
	require.Len(t, diags, 2)

	// Expected identifiers come first, in declared order.
	assert.Equal(t, "var.name", diags[0].Identifier)
	assert.Equal(t, "check.count", diags[1].Identifier)
	for _, d := range diags {
		assert.True(t, d.Expected)
		assert.True(t, d.Failed)
		assert.False(t, d.Mismatched())
	}
}

func TestReconcile_ExpectedDidNotFail(t *testing.T) {
	diags, pass := Reconcile([]string{"var.name"}, nil, nil)
	require.False(t, pass)
	require.Len(t, diags, 1)
	assert.True(t, diags[0].Expected)
	assert.False(t, diags[0].Failed)
	assert.True(t, diags[0].Mismatched())
	assert.Equal(t, "expected failure did not occur", diags[0].Detail)
}

func TestReconcile_UnexpectedFailure(t *testing.T) {
	diags, pass := Reconcile(nil, []string{"resource.vpc.main"}, nil)
	require.False(t, pass)
	require.Len(t, diags, 1)
	assert.False(t, diags[0].Expected)
	assert.True(t, diags[0].Failed)
	assert.Equal(t, "unexpected failure", diags[0].Detail)
}

func TestReconcile_SymmetricMismatch(t *testing.T) {
	// One expectation unmet and one failure unexpected: both directions
	// flip the run to fail.
	diags, pass := Reconcile([]string{"check.a"}, []string{"check.b"}, nil)
	require.False(t, pass)
	require.Len(t, diags, 2)
	assert.Equal(t, "check.a", diags[0].Identifier)
	assert.Equal(t, "check.b", diags[1].Identifier)
	assert.True(t, diags[0].Mismatched())
	assert.True(t, diags[1].Mismatched())
}

func TestReconcile_ToleratedSatisfiesExpectation(t *testing.T) {
	diags, pass := Reconcile([]string{"check.liveness"}, nil, []string{"check.liveness"})
	require.True(t, pass)
	require.Len(t, diags, 1)
	assert.True(t, diags[0].Failed)
	assert.Equal(t, "could not be resolved this run", diags[0].Detail)
}

func TestReconcile_ToleratedAloneIsNotAFailure(t *testing.T) {
	diags, pass := Reconcile(nil, nil, []string{"check.liveness"})
	assert.True(t, pass)
	assert.Empty(t, diags)
}

func TestReconcile_UnexpectedSortedAfterExpected(t *testing.T) {
	diags, pass := Reconcile(
		[]string{"var.z"},
		[]string{"var.z", "check.b", "check.a"},
		nil,
	)
	require.False(t, pass)
	require.Len(t, diags, 3)
	assert.Equal(t, "var.z", diags[0].Identifier)
	assert.Equal(t, "check.a", diags[1].Identifier)
	assert.Equal(t, "check.b", diags[2].Identifier)
}

func TestReconcile_DuplicatesCollapse(t *testing.T) {
	diags, pass := Reconcile(
		[]string{"var.name", "var.name"},
		[]string{"var.name", "var.name"},
		nil,
	)
	assert.True(t, pass)
	assert.Len(t, diags, 1)
}
