package domain

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/google/uuid"

	"github.com/soda92/pytestbridge/internal/adapter"
	m "github.com/soda92/pytestbridge/internal/model"
)

// maxPayloadLineBytes bounds a single protocol line. Coverage payloads for
// large projects are the biggest messages on the wire.
const maxPayloadLineBytes = 8 * 1024 * 1024

// RunSpec describes one orchestrated test-process invocation.
type RunSpec struct {
	Argv    []string
	Cwd     string
	Env     map[string]string
	Timeout time.Duration
}

// RunOutcome is the accumulated output of one invocation. Payloads are in
// child emission order. DecodeErrors and CoverageErrors record the per-line
// and per-file failures that were isolated instead of aborting the run.
type RunOutcome struct {
	RunID          string
	Payloads       []m.Payload
	DecodeErrors   []*m.ProtocolDecodeError
	CoverageErrors []error
}

// Orchestrator owns one child-process lifecycle from launch to exit and
// accumulates the envelope messages it emits.
type Orchestrator interface {
	Execute(ctx context.Context, spec RunSpec) (RunOutcome, error)
}

type orchestrator struct {
	process    adapter.ProcessAdapter
	normalizer Normalizer
}

// NewOrchestrator constructs an Orchestrator backed by the provided process
// adapter and coverage normalizer.
func NewOrchestrator(process adapter.ProcessAdapter, normalizer Normalizer) Orchestrator {
	return &orchestrator{
		process:    process,
		normalizer: normalizer,
	}
}

// Execute spawns the process, decodes one payload per complete stdout line
// in arrival order, and returns once the child has exited and the stream is
// drained. A timeout kills the child and returns a TimeoutError alongside
// the payloads decoded so far; a payload the child never emitted is simply
// absent from the list, never synthesized.
func (o *orchestrator) Execute(ctx context.Context, spec RunSpec) (RunOutcome, error) {
	outcome := RunOutcome{RunID: uuid.NewString()}

	runCtx := ctx

	if spec.Timeout > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	slog.Debug("Launching test process", "runID", outcome.RunID, "argv", spec.Argv, "cwd", spec.Cwd)

	handle, err := o.process.Start(runCtx, adapter.ProcessSpec{
		Argv: spec.Argv,
		Dir:  spec.Cwd,
		Env:  spec.Env,
	})
	if err != nil {
		return outcome, &m.LaunchError{Command: strings.Join(spec.Argv, " "), Err: err}
	}

	o.consume(runCtx, handle, &outcome)

	waitErr := handle.Wait()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		slog.Error("Test process killed after timeout",
			"runID", outcome.RunID, "timeout", spec.Timeout, "payloads", len(outcome.Payloads))

		return outcome, &m.TimeoutError{Timeout: spec.Timeout}
	}

	if err := ctx.Err(); err != nil {
		return outcome, err
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return outcome, fmt.Errorf("wait for test process: %w", waitErr)
	}

	if exitErr != nil {
		// A failing test suite exits non-zero; that is still a completed
		// orchestration, visible to the caller through the payloads.
		slog.Debug("Test process exited non-zero",
			"runID", outcome.RunID, "exitCode", exitErr.ExitCode(), "stderr", handle.Stderr())
	}

	slog.Debug("Test process completed",
		"runID", outcome.RunID, "payloads", len(outcome.Payloads), "decodeErrors", len(outcome.DecodeErrors))

	return outcome, nil
}

// consume reads the stdout stream to end-of-data, decoding one payload per
// line. Malformed lines are recorded and skipped without discarding prior
// payloads; a partial line buffered at cancellation is discarded.
func (o *orchestrator) consume(ctx context.Context, handle adapter.ProcessHandle, outcome *RunOutcome) {
	scanner := bufio.NewScanner(handle.Stdout())
	scanner.Buffer(make([]byte, 0, 64*1024), maxPayloadLineBytes)

	position := 0

	for scanner.Scan() {
		position++

		line := strings.TrimSpace(stripansi.Strip(scanner.Text()))
		if line == "" {
			continue
		}

		var payload m.Payload
		if err := json.Unmarshal([]byte(line), &payload); err != nil {
			o.recordDecodeError(outcome, line, position, err)
			continue
		}

		if payload.Kind == m.KindCoverage && payload.Status == m.StatusSuccess {
			if !o.normalizeCoveragePayload(&payload, outcome, line, position) {
				continue
			}
		}

		outcome.Payloads = append(outcome.Payloads, payload)
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		o.recordDecodeError(outcome, "", position+1, err)
	}
}

// normalizeCoveragePayload swaps the payload's raw per-file records for the
// normalized summary mapping. Returns false if the coverage section itself
// is undecodable and the payload must be dropped.
func (o *orchestrator) normalizeCoveragePayload(payload *m.Payload, outcome *RunOutcome, line string, position int) bool {
	records, err := payload.RawCoverage()
	if err != nil {
		o.recordDecodeError(outcome, line, position, err)
		return false
	}

	summaries, covErrs := o.normalizer.NormalizeAll(records)
	outcome.CoverageErrors = append(outcome.CoverageErrors, covErrs...)

	encoded, err := json.Marshal(summaries)
	if err != nil {
		o.recordDecodeError(outcome, line, position, err)
		return false
	}

	payload.Result = encoded

	return true
}

func (o *orchestrator) recordDecodeError(outcome *RunOutcome, line string, position int, err error) {
	decodeErr := &m.ProtocolDecodeError{Line: line, Position: position, Err: err}
	slog.Error("Skipping undecodable payload line", "position", position, "error", err)
	outcome.DecodeErrors = append(outcome.DecodeErrors, decodeErr)
}
