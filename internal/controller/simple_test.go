package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soda92/pytestbridge/internal/adapter"
	m "github.com/soda92/pytestbridge/internal/model"
)

func newBufferedUI() (*SimpleUI, *bytes.Buffer) {
	var buf bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)

	return NewSimpleUI(cmd, false), &buf
}

func mustResult(t *testing.T, v any) json.RawMessage {
	t.Helper()

	encoded, err := json.Marshal(v)
	require.NoError(t, err)

	return encoded
}

func TestSimpleUI_DisplayOutcomeRendersRunResults(t *testing.T) {
	ui, buf := newBufferedUI()

	payloads := []m.Payload{
		{
			Kind:   m.KindRunResult,
			Status: m.StatusSuccess,
			Result: mustResult(t, map[string]m.TestOutcome{
				"test_reverse.py::test_reverse_string": {Test: "t", Outcome: "passed"},
				"test_reverse.py::test_broken":         {Test: "t", Outcome: "failed", Message: "assert failed"},
			}),
		},
	}

	require.NoError(t, ui.DisplayOutcome(context.Background(), payloads, nil))

	out := buf.String()
	assert.Contains(t, out, "test_reverse.py::test_reverse_string")
	assert.Contains(t, out, "passed")
	assert.Contains(t, out, "assert failed")
	assert.Contains(t, out, "1 passed")
}

func TestSimpleUI_DisplayOutcomeRendersCoverageAndErrors(t *testing.T) {
	ui, buf := newBufferedUI()

	payloads := []m.Payload{
		{
			Kind:   m.KindCoverage,
			Status: m.StatusSuccess,
			Result: mustResult(t, map[string]m.CoverageSummary{
				"/p/reverse.py": {
					LinesCovered:     m.NewLineSet(4, 5),
					LinesMissed:      m.NewLineSet(6),
					ExecutedBranches: 6,
					TotalBranches:    8,
				},
			}),
		},
		{Kind: m.KindRunResult, Status: m.StatusError, Error: "import failed"},
	}

	decodeErrs := []*m.ProtocolDecodeError{
		{Line: "garbage", Position: 3, Err: assert.AnError},
	}

	require.NoError(t, ui.DisplayOutcome(context.Background(), payloads, decodeErrs))

	out := buf.String()
	assert.Contains(t, out, "coverage: 1 files, 2/3 lines, 6/8 branch arcs")
	assert.Contains(t, out, "run_result failed: import failed")
	assert.Contains(t, out, "undecodable payload at line 3")
}

func TestSimpleUI_DisplayRunList(t *testing.T) {
	ui, buf := newBufferedUI()

	runs := []adapter.RunInfo{
		{RunID: "abc", SavedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), Payloads: 3},
	}

	require.NoError(t, ui.DisplayRunList(context.Background(), runs))
	assert.Contains(t, buf.String(), "abc")
	assert.Contains(t, buf.String(), "3")

	buf.Reset()
	require.NoError(t, ui.DisplayRunList(context.Background(), nil))
	assert.Contains(t, buf.String(), "no stored runs")
}

func TestSimpleUI_DisplayPayloadsJSONKeepsResultStructured(t *testing.T) {
	ui, buf := newBufferedUI()

	payloads := []m.Payload{
		{Kind: m.KindDiscovery, Status: m.StatusSuccess, Result: mustResult(t, []m.DiscoveredTest{{ID: "t1", Name: "t1", Path: "/p/test_a.py", Line: 7}})},
	}

	require.NoError(t, ui.DisplayPayloadsJSON(context.Background(), payloads))

	var decoded []m.Payload
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)

	tests, err := decoded[0].DiscoveredTests()
	require.NoError(t, err)
	assert.Equal(t, "t1", tests[0].ID)
}

func TestSimpleUI_DisplayPayloadsYAMLDecodesResults(t *testing.T) {
	ui, buf := newBufferedUI()

	payloads := []m.Payload{
		{
			Kind:   m.KindCoverage,
			Cwd:    "/p",
			Status: m.StatusSuccess,
			Result: mustResult(t, map[string]m.CoverageSummary{
				"/p/reverse.py": {LinesCovered: m.NewLineSet(4), LinesMissed: m.NewLineSet(6)},
			}),
		},
	}

	require.NoError(t, ui.DisplayPayloadsYAML(context.Background(), payloads))

	out := buf.String()
	assert.Contains(t, out, "kind: coverage")
	assert.Contains(t, out, "lines_covered")
	// Raw JSON bytes must not leak into the YAML as base64.
	assert.NotContains(t, out, "!!binary")
}
