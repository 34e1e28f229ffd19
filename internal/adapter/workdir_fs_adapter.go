package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	m "github.com/soda92/pytestbridge/internal/model"
)

// WorkdirFSAdapter abstracts the filesystem checks the runner performs on a
// target working directory. The orchestrator itself treats the directory as
// read/execute-only.
type WorkdirFSAdapter interface {
	// NormalizeDir resolves path to an absolute directory, failing if it
	// does not exist or is not a directory.
	NormalizeDir(ctx context.Context, path m.Path) (m.Path, error)
}

// LocalWorkdirFSAdapter provides a concrete implementation using os and
// path/filepath.
type LocalWorkdirFSAdapter struct{}

// NewLocalWorkdirFSAdapter constructs a LocalWorkdirFSAdapter.
func NewLocalWorkdirFSAdapter() *LocalWorkdirFSAdapter {
	return &LocalWorkdirFSAdapter{}
}

// NormalizeDir implements WorkdirFSAdapter.
func (a *LocalWorkdirFSAdapter) NormalizeDir(ctx context.Context, path m.Path) (m.Path, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	abs, err := filepath.Abs(string(path))
	if err != nil {
		slog.Error("Failed to resolve working directory", "path", path, "error", err)
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("working directory %s: %w", abs, err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("working directory %s is not a directory", abs)
	}

	return m.Path(abs), nil
}
