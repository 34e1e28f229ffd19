package adapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// ProcessSpec describes one child test process invocation.
type ProcessSpec struct {
	Argv []string
	Dir  string
	// Env is overlaid on the parent environment; on key collision the
	// overlay wins.
	Env map[string]string
}

// ProcessHandle is one running child process. Stdout must be drained before
// Wait returns; Stderr is only meaningful after Wait.
type ProcessHandle interface {
	Stdout() io.Reader
	Stderr() string
	Wait() error
}

// ProcessAdapter abstracts spawning the test process so the orchestrator can
// be exercised against scripted children in tests.
type ProcessAdapter interface {
	Start(ctx context.Context, spec ProcessSpec) (ProcessHandle, error)
}

// LocalProcessAdapter provides a concrete implementation using os/exec.
type LocalProcessAdapter struct {
	waitDelay time.Duration
}

// NewLocalProcessAdapter constructs a LocalProcessAdapter. Pipe teardown
// after context cancellation is bounded by a short grace period so a killed
// child cannot wedge the read loop.
func NewLocalProcessAdapter() *LocalProcessAdapter {
	return &LocalProcessAdapter{
		waitDelay: 5 * time.Second,
	}
}

// Start launches the described process with the given working directory and
// merged environment. The child is killed when ctx is cancelled.
func (a *LocalProcessAdapter) Start(ctx context.Context, spec ProcessSpec) (ProcessHandle, error) {
	if len(spec.Argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = MergeEnv(os.Environ(), spec.Env)
	cmd.WaitDelay = a.waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &localProcessHandle{
		cmd:    cmd,
		stdout: stdout,
		stderr: &stderr,
	}, nil
}

type localProcessHandle struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr *bytes.Buffer
}

func (h *localProcessHandle) Stdout() io.Reader {
	return h.stdout
}

func (h *localProcessHandle) Stderr() string {
	return h.stderr.String()
}

func (h *localProcessHandle) Wait() error {
	return h.cmd.Wait()
}

// MergeEnv merges an overlay into a base "KEY=VALUE" environment. Overlay
// entries win on key collision. The result is sorted by key so repeated
// invocations build identical child environments.
func MergeEnv(base []string, overlay map[string]string) []string {
	merged := make(map[string]string, len(base)+len(overlay))

	for _, entry := range base {
		key, value, found := strings.Cut(entry, "=")
		if !found {
			continue
		}

		merged[key] = value
	}

	for key, value := range overlay {
		merged[key] = value
	}

	out := make([]string, 0, len(merged))
	for key, value := range merged {
		out = append(out, key+"="+value)
	}

	sort.Strings(out)

	return out
}
