package domain

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soda92/pytestbridge/internal/adapter"
	"github.com/soda92/pytestbridge/internal/controller"
	m "github.com/soda92/pytestbridge/internal/model"
)

type fakeStore struct {
	mu    sync.Mutex
	saved map[string][]m.Payload
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(map[string][]m.Payload)}
}

func (f *fakeStore) SaveRun(_ context.Context, _ m.Path, runID string, payloads []m.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.saved[runID] = payloads

	return nil
}

func (f *fakeStore) LoadRun(_ context.Context, _ m.Path, runID string) ([]m.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.saved[runID], nil
}

func (f *fakeStore) ListRuns(_ context.Context, _ m.Path) ([]adapter.RunInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var runs []adapter.RunInfo
	for runID, payloads := range f.saved {
		runs = append(runs, adapter.RunInfo{RunID: runID, Payloads: len(payloads)})
	}

	return runs, nil
}

func (f *fakeStore) LatestRunID(_ context.Context, _ m.Path) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for runID := range f.saved {
		return runID, nil
	}

	return "", assert.AnError
}

type recordingUI struct {
	mu        sync.Mutex
	warnings  []string
	outcomes  int
	runStarts int
}

func (r *recordingUI) DisplayRunStart(_ context.Context, _ m.Path, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runStarts++
}

func (r *recordingUI) DisplayWarning(_ context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.warnings = append(r.warnings, message)
}

func (r *recordingUI) DisplayOutcome(_ context.Context, _ []m.Payload, _ []*m.ProtocolDecodeError) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.outcomes++

	return nil
}

func (r *recordingUI) DisplayRunList(_ context.Context, _ []adapter.RunInfo) error { return nil }

func (r *recordingUI) DisplayPayloadsJSON(_ context.Context, _ []m.Payload) error { return nil }

func (r *recordingUI) DisplayPayloadsYAML(_ context.Context, _ []m.Payload) error { return nil }

type scriptedOrchestrator struct {
	mu    sync.Mutex
	specs []RunSpec
	next  func(spec RunSpec) (RunOutcome, error)
}

func (s *scriptedOrchestrator) Execute(_ context.Context, spec RunSpec) (RunOutcome, error) {
	s.mu.Lock()
	s.specs = append(s.specs, spec)
	s.mu.Unlock()

	return s.next(spec)
}

func TestWorkflow_RunSavesAndDisplaysEachDirectory(t *testing.T) {
	store := newFakeStore()
	ui := &recordingUI{}

	orch := &scriptedOrchestrator{next: func(spec RunSpec) (RunOutcome, error) {
		return RunOutcome{
			RunID:    spec.Cwd,
			Payloads: []m.Payload{{Kind: m.KindRunResult, Status: m.StatusSuccess}},
		}, nil
	}}

	w := NewWorkflow(store, adapter.NewLocalWorkdirFSAdapter(), ui, orch)

	dirA := t.TempDir()
	dirB := t.TempDir()

	err := w.Run(context.Background(), RunArgs{
		Cwds:    []m.Path{m.Path(dirA), m.Path(dirB)},
		Command: []string{"sh", "bridge.sh"},
		Reports: "unused",
	})
	require.NoError(t, err)

	assert.Len(t, store.saved, 2)
	assert.Equal(t, 2, ui.runStarts)
	assert.Equal(t, 2, ui.outcomes)
	assert.Empty(t, ui.warnings)
}

func TestWorkflow_RunWarnsWhenCoverageNeverArrives(t *testing.T) {
	store := newFakeStore()
	ui := &recordingUI{}

	orch := &scriptedOrchestrator{next: func(spec RunSpec) (RunOutcome, error) {
		// Coverage was requested via the overlay, but the child only
		// produced run results.
		assert.Equal(t, "True", spec.Env[CoverageEnvVar])

		return RunOutcome{
			RunID:    "r1",
			Payloads: []m.Payload{{Kind: m.KindRunResult, Status: m.StatusSuccess}},
		}, nil
	}}

	w := NewWorkflow(store, adapter.NewLocalWorkdirFSAdapter(), ui, orch)

	err := w.Run(context.Background(), RunArgs{
		Cwds:     []m.Path{m.Path(t.TempDir())},
		Command:  []string{"sh"},
		Coverage: true,
	})
	require.NoError(t, err)

	require.Len(t, ui.warnings, 1)
	assert.Contains(t, ui.warnings[0], "no coverage payload")
}

func TestWorkflow_RunOneFailureDoesNotAbortOthers(t *testing.T) {
	store := newFakeStore()
	ui := &recordingUI{}

	orch := &scriptedOrchestrator{next: func(spec RunSpec) (RunOutcome, error) {
		if spec.Cwd == "" {
			return RunOutcome{}, assert.AnError
		}

		return RunOutcome{RunID: "ok", Payloads: []m.Payload{{Kind: m.KindRunResult}}}, nil
	}}

	w := NewWorkflow(store, adapter.NewLocalWorkdirFSAdapter(), ui, orch)

	err := w.Run(context.Background(), RunArgs{
		Cwds:    []m.Path{m.Path(t.TempDir()), "/does/not/exist"},
		Command: []string{"sh"},
	})
	require.Error(t, err)

	// The good directory still ran, got displayed, and was stored.
	assert.Contains(t, store.saved, "ok")
	assert.Equal(t, 1, ui.outcomes)
}

func TestWorkflow_RunRequiresAtLeastOneDirectory(t *testing.T) {
	w := NewWorkflow(newFakeStore(), adapter.NewLocalWorkdirFSAdapter(), &recordingUI{}, &scriptedOrchestrator{})

	err := w.Run(context.Background(), RunArgs{})
	assert.Error(t, err)
}

func TestWorkflow_ViewDefaultsToLatestRun(t *testing.T) {
	store := newFakeStore()
	store.saved["r9"] = []m.Payload{{Kind: m.KindRunResult}}

	ui := &recordingUI{}
	w := NewWorkflow(store, adapter.NewLocalWorkdirFSAdapter(), ui, &scriptedOrchestrator{})

	err := w.View(context.Background(), ViewArgs{Format: controller.FormatTable})
	require.NoError(t, err)
	assert.Equal(t, 1, ui.outcomes)
}

func TestWorkflow_DiscoverAppendsCollectOnly(t *testing.T) {
	ui := &recordingUI{}

	orch := &scriptedOrchestrator{next: func(_ RunSpec) (RunOutcome, error) {
		return RunOutcome{Payloads: []m.Payload{{Kind: m.KindDiscovery}}}, nil
	}}

	w := NewWorkflow(newFakeStore(), adapter.NewLocalWorkdirFSAdapter(), ui, orch)

	err := w.Discover(context.Background(), DiscoverArgs{
		Cwd:     m.Path(t.TempDir()),
		Command: []string{"python3", "-m", "pytest"},
		Args:    []string{"-q"},
	})
	require.NoError(t, err)

	require.Len(t, orch.specs, 1)
	assert.Equal(t, []string{"python3", "-m", "pytest", "--collect-only", "-q"}, orch.specs[0].Argv)
	assert.Equal(t, 1, ui.outcomes)
}
