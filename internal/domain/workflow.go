package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soda92/pytestbridge/internal/adapter"
	"github.com/soda92/pytestbridge/internal/controller"
	m "github.com/soda92/pytestbridge/internal/model"
)

// RunArgs describes the run command: one invocation per working directory,
// all sharing the same extra arguments and environment overlay.
type RunArgs struct {
	Args     []string
	Cwds     []m.Path
	Env      map[string]string
	Command  []string
	Coverage bool
	Timeout  time.Duration
	Reports  m.Path
}

// DiscoverArgs describes the discover command.
type DiscoverArgs struct {
	Args    []string
	Cwd     m.Path
	Env     map[string]string
	Command []string
	Timeout time.Duration
}

// ViewArgs describes the view command.
type ViewArgs struct {
	Reports m.Path
	RunID   string // empty selects the most recent run
	Format  controller.Format
}

// ListArgs describes the list command.
type ListArgs struct {
	Reports m.Path
}

// Workflow ties the orchestration core to persistence and display for the
// CLI commands.
type Workflow interface {
	Run(ctx context.Context, args RunArgs) error
	Discover(ctx context.Context, args DiscoverArgs) error
	View(ctx context.Context, args ViewArgs) error
	List(ctx context.Context, args ListArgs) error
}

type workflow struct {
	adapter.PayloadStore
	adapter.WorkdirFSAdapter
	controller.UI
	Orchestrator
}

// NewWorkflow creates a Workflow with the provided dependencies.
func NewWorkflow(
	store adapter.PayloadStore,
	fsAdapter adapter.WorkdirFSAdapter,
	ui controller.UI,
	orchestrator Orchestrator,
) Workflow {
	return &workflow{
		PayloadStore:     store,
		WorkdirFSAdapter: fsAdapter,
		UI:               ui,
		Orchestrator:     orchestrator,
	}
}

type dirResult struct {
	cwd     m.Path
	outcome RunOutcome
	err     error
}

// Run executes the test process in every requested working directory. The
// directories are independent, so they run fully in parallel, each with its
// own child process and accumulator; a failure in one does not abort the
// others.
func (w *workflow) Run(ctx context.Context, args RunArgs) error {
	if len(args.Cwds) == 0 {
		return fmt.Errorf("no working directory given")
	}

	env := make(map[string]string, len(args.Env)+1)
	for key, value := range args.Env {
		env[key] = value
	}

	if args.Coverage {
		env[CoverageEnvVar] = "True"
	}

	results := make([]dirResult, len(args.Cwds))

	var group errgroup.Group

	for i, cwd := range args.Cwds {
		i, cwd := i, cwd
		group.Go(func() error {
			results[i] = w.runOne(ctx, args, cwd, env)
			return nil
		})
	}

	// Goroutines record failures in their slot instead of returning them,
	// so one directory cannot cancel the rest.
	_ = group.Wait()

	var errs []error

	for _, result := range results {
		if result.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", result.cwd, result.err))
		}

		if result.err != nil && len(result.outcome.Payloads) == 0 {
			continue
		}

		if err := w.reportOutcome(ctx, args, result); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (w *workflow) runOne(ctx context.Context, args RunArgs, cwd m.Path, env map[string]string) dirResult {
	normalized, err := w.NormalizeDir(ctx, cwd)
	if err != nil {
		return dirResult{cwd: cwd, err: err}
	}

	argv := make([]string, 0, len(args.Command)+len(args.Args))
	argv = append(argv, args.Command...)
	argv = append(argv, args.Args...)

	outcome, err := w.Execute(ctx, RunSpec{
		Argv:    argv,
		Cwd:     string(normalized),
		Env:     env,
		Timeout: args.Timeout,
	})

	return dirResult{cwd: normalized, outcome: outcome, err: err}
}

func (w *workflow) reportOutcome(ctx context.Context, args RunArgs, result dirResult) error {
	w.DisplayRunStart(ctx, result.cwd, result.outcome.RunID)

	if args.Coverage && !hasCoveragePayload(result.outcome.Payloads) {
		// Instrumentation was requested but the child never reported it;
		// surface the absence instead of synthesizing an empty mapping.
		w.DisplayWarning(ctx, fmt.Sprintf("coverage was enabled but no coverage payload arrived from %s", result.cwd))
	}

	for _, covErr := range result.outcome.CoverageErrors {
		w.DisplayWarning(ctx, covErr.Error())
	}

	if err := w.DisplayOutcome(ctx, result.outcome.Payloads, result.outcome.DecodeErrors); err != nil {
		return err
	}

	if err := w.SaveRun(ctx, args.Reports, result.outcome.RunID, result.outcome.Payloads); err != nil {
		slog.Error("Failed to save run", "runID", result.outcome.RunID, "error", err)
		return err
	}

	return nil
}

func hasCoveragePayload(payloads []m.Payload) bool {
	for _, payload := range payloads {
		if payload.Kind == m.KindCoverage {
			return true
		}
	}

	return false
}

// Discover runs the discovery path of the adapter: same envelope stream,
// discovery payloads instead of run results. Nothing is persisted.
func (w *workflow) Discover(ctx context.Context, args DiscoverArgs) error {
	normalized, err := w.NormalizeDir(ctx, args.Cwd)
	if err != nil {
		return err
	}

	argv := make([]string, 0, len(args.Command)+len(args.Args)+1)
	argv = append(argv, args.Command...)
	argv = append(argv, "--collect-only")
	argv = append(argv, args.Args...)

	outcome, err := w.Execute(ctx, RunSpec{
		Argv:    argv,
		Cwd:     string(normalized),
		Env:     args.Env,
		Timeout: args.Timeout,
	})
	if err != nil {
		return err
	}

	return w.DisplayOutcome(ctx, outcome.Payloads, outcome.DecodeErrors)
}

// View loads a stored run and renders it in the requested format.
func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	runID := args.RunID

	if runID == "" {
		latest, err := w.LatestRunID(ctx, args.Reports)
		if err != nil {
			return err
		}

		runID = latest
	}

	payloads, err := w.LoadRun(ctx, args.Reports, runID)
	if err != nil {
		return err
	}

	switch args.Format {
	case controller.FormatJSON:
		return w.DisplayPayloadsJSON(ctx, payloads)
	case controller.FormatYAML:
		return w.DisplayPayloadsYAML(ctx, payloads)
	default:
		return w.DisplayOutcome(ctx, payloads, nil)
	}
}

// List shows the stored runs, most recent first.
func (w *workflow) List(ctx context.Context, args ListArgs) error {
	runs, err := w.ListRuns(ctx, args.Reports)
	if err != nil {
		return err
	}

	return w.DisplayRunList(ctx, runs)
}
