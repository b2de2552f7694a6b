package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatusTerminal(t *testing.T) {
	terminal := []JobStatus{JobSucceeded, JobPartial, JobFailed, JobCancelled}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "status %s should be terminal", s)
	}
	assert.False(t, JobQueued.Terminal())
	assert.False(t, JobRunning.Terminal())
}

func TestPipelineKindsOrder(t *testing.T) {
	kinds := PipelineKinds()
	require.Len(t, kinds, 6)
	assert.Equal(t, KindProfile, kinds[0], "profiling must run first")
	assert.NotContains(t, kinds, KindQuery, "query agent is never a pipeline stage")
}

func TestPayloadRoundTrip(t *testing.T) {
	in := AnomalyPayload{
		Threshold: 0.8,
		RowCount:  100,
		Flagged:   []FlaggedRow{{Index: 42, Score: 0.97, Column: "amount", Value: 9001}},
	}

	m := ToPayload(in)
	require.NotContains(t, m, "marshal_error")

	var out AnomalyPayload
	require.NoError(t, DecodePayload(m, &out))
	assert.Equal(t, in, out)
}

func TestDatasetColumnLookup(t *testing.T) {
	ds := Dataset{Columns: []Column{{Name: "amount", Type: ColumnNumber}, {Name: "region", Type: ColumnString}}}

	col, ok := ds.Column("region")
	require.True(t, ok)
	assert.Equal(t, ColumnString, col.Type)

	_, ok = ds.Column("missing")
	assert.False(t, ok)
}
