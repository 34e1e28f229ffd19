package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	m "github.com/soda92/pytestbridge/internal/model"
	"github.com/soda92/pytestbridge/pkg"
)

const spoolExtension = ".spool"

// RunInfo summarizes one stored run for listings.
type RunInfo struct {
	RunID    string
	SavedAt  time.Time
	Payloads int
}

// PayloadStore persists the ordered payload list of a run so it can be
// inspected later without re-running the tests.
type PayloadStore interface {
	SaveRun(ctx context.Context, dir m.Path, runID string, payloads []m.Payload) error
	LoadRun(ctx context.Context, dir m.Path, runID string) ([]m.Payload, error)
	ListRuns(ctx context.Context, dir m.Path) ([]RunInfo, error)
	LatestRunID(ctx context.Context, dir m.Path) (string, error)
}

type payloadStore struct{}

// NewPayloadStore constructs a PayloadStore backed by gob spools, one file
// per run ID under the reports directory.
func NewPayloadStore() PayloadStore {
	return &payloadStore{}
}

// SaveRun writes the payload list to <dir>/<runID>.spool, creating dir if
// needed. Payload order is preserved.
func (s *payloadStore) SaveRun(ctx context.Context, dir m.Path, runID string, payloads []m.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(string(dir), 0o750); err != nil {
		slog.Error("Failed to create reports dir", "dir", dir, "error", err)
		return fmt.Errorf("failed to create reports dir: %w", err)
	}

	spool, err := pkg.NewSpool[m.Payload](s.runPath(dir, runID))
	if err != nil {
		return err
	}
	defer spool.Close()

	if err := spool.AppendBatch(payloads); err != nil {
		return fmt.Errorf("failed to save run %s: %w", runID, err)
	}

	slog.Debug("Saved run payloads", "runID", runID, "count", len(payloads), "dir", dir)

	return spool.Close()
}

// LoadRun reads the payload list stored for runID, in stored order.
func (s *payloadStore) LoadRun(ctx context.Context, dir m.Path, runID string) ([]m.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	spool, err := pkg.OpenSpool[m.Payload](s.runPath(dir, runID))
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	var payloads []m.Payload

	err = spool.Range(func(_ uint64, payload m.Payload) error {
		payloads = append(payloads, payload)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	return payloads, nil
}

// ListRuns returns stored runs sorted most recent first.
func (s *payloadStore) ListRuns(ctx context.Context, dir m.Path) ([]RunInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(string(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read reports dir: %w", err)
	}

	var runs []RunInfo

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), spoolExtension) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		runID := strings.TrimSuffix(entry.Name(), spoolExtension)

		payloads, err := s.LoadRun(ctx, dir, runID)
		if err != nil {
			slog.Error("Skipping unreadable run", "runID", runID, "error", err)
			continue
		}

		runs = append(runs, RunInfo{
			RunID:    runID,
			SavedAt:  info.ModTime(),
			Payloads: len(payloads),
		})
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].SavedAt.After(runs[j].SavedAt)
	})

	return runs, nil
}

// LatestRunID returns the most recently saved run ID.
func (s *payloadStore) LatestRunID(ctx context.Context, dir m.Path) (string, error) {
	runs, err := s.ListRuns(ctx, dir)
	if err != nil {
		return "", err
	}

	if len(runs) == 0 {
		return "", fmt.Errorf("no stored runs in %s", dir)
	}

	return runs[0].RunID, nil
}

func (s *payloadStore) runPath(dir m.Path, runID string) string {
	return filepath.Join(string(dir), runID+spoolExtension)
}
