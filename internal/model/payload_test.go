package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload_DecodeEnvelope(t *testing.T) {
	line := `{"kind":"run_result","cwd":"/proj","status":"success","result":{"t1":{"test":"t1","outcome":"passed"}}}`

	var payload Payload
	require.NoError(t, json.Unmarshal([]byte(line), &payload))

	assert.Equal(t, KindRunResult, payload.Kind)
	assert.Equal(t, "/proj", payload.Cwd)
	assert.Equal(t, StatusSuccess, payload.Status)

	outcomes, err := payload.RunResult()
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "passed", outcomes["t1"].Outcome)
}

func TestPayload_ErrorStatusMayOmitResult(t *testing.T) {
	line := `{"kind":"coverage","cwd":"/proj","status":"error","error":"failed to import project"}`

	var payload Payload
	require.NoError(t, json.Unmarshal([]byte(line), &payload))

	assert.Equal(t, StatusError, payload.Status)
	assert.Equal(t, "failed to import project", payload.Error)

	// An absent result decodes to an empty mapping, not an error.
	summaries, err := payload.CoverageResult()
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestPayload_AccessorRejectsWrongKind(t *testing.T) {
	payload := Payload{Kind: KindDiscovery}

	_, err := payload.CoverageResult()
	assert.Error(t, err)

	_, err = payload.RunResult()
	assert.Error(t, err)
}

func TestPayload_CoverageSerializationRoundTrip(t *testing.T) {
	summaries := map[string]CoverageSummary{
		"/proj/reverse.py": {
			LinesCovered:     NewLineSet(4, 5, 7),
			LinesMissed:      NewLineSet(6),
			ExecutedBranches: 6,
			TotalBranches:    8,
		},
	}

	encoded, err := json.Marshal(summaries)
	require.NoError(t, err)

	payload := Payload{Kind: KindCoverage, Status: StatusSuccess, Result: encoded}

	decoded, err := payload.CoverageResult()
	require.NoError(t, err)

	summary := decoded["/proj/reverse.py"]
	assert.Equal(t, []int{4, 5, 7}, summary.LinesCovered.Sorted())
	assert.Equal(t, []int{6}, summary.LinesMissed.Sorted())
	assert.Equal(t, 6, summary.ExecutedBranches)
	assert.Equal(t, 8, summary.TotalBranches)
}
