package domain

import (
	"context"
	"strings"
	"time"

	"github.com/soda92/pytestbridge/internal/adapter"
	m "github.com/soda92/pytestbridge/internal/model"
)

// CoverageEnvVar is the environment variable the test process recognizes as
// the coverage-instrumentation toggle. When unset or falsy the child emits
// no coverage payload.
const CoverageEnvVar = "COVERAGE_ENABLED"

// CoverageRequested reports whether the overlay enables instrumentation.
func CoverageRequested(env map[string]string) bool {
	switch strings.ToLower(env[CoverageEnvVar]) {
	case "", "0", "false", "no":
		return false
	default:
		return true
	}
}

// Runner is the caller-facing entry point: CLI-style arguments, a working
// directory, and an environment overlay in; the full ordered payload list
// out. It holds no state and is safe to invoke concurrently for independent
// working directories.
type Runner interface {
	RunWithCwdEnv(ctx context.Context, args []string, cwd m.Path, env map[string]string) ([]m.Payload, error)
}

type runner struct {
	fsAdapter    adapter.WorkdirFSAdapter
	orchestrator Orchestrator
	command      []string
	timeout      time.Duration
}

// NewRunner constructs a Runner. command is the base argv of the test
// process (e.g. the python interpreter plus the bridge plugin flags); args
// passed to RunWithCwdEnv are appended to it.
func NewRunner(fsAdapter adapter.WorkdirFSAdapter, orchestrator Orchestrator, command []string, timeout time.Duration) Runner {
	return &runner{
		fsAdapter:    fsAdapter,
		orchestrator: orchestrator,
		command:      command,
		timeout:      timeout,
	}
}

// RunWithCwdEnv validates the working directory, delegates to the
// orchestrator, and returns its payload list unchanged.
func (r *runner) RunWithCwdEnv(ctx context.Context, args []string, cwd m.Path, env map[string]string) ([]m.Payload, error) {
	normalized, err := r.fsAdapter.NormalizeDir(ctx, cwd)
	if err != nil {
		return nil, err
	}

	argv := make([]string, 0, len(r.command)+len(args))
	argv = append(argv, r.command...)
	argv = append(argv, args...)

	outcome, err := r.orchestrator.Execute(ctx, RunSpec{
		Argv:    argv,
		Cwd:     string(normalized),
		Env:     env,
		Timeout: r.timeout,
	})

	return outcome.Payloads, err
}
