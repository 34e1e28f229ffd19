package domain

import (
	"fmt"
	"log/slog"

	m "github.com/soda92/pytestbridge/internal/model"
)

// Normalizer converts the instrumentation engine's raw per-file coverage
// records into the stable summary shape delivered to callers. It carries no
// knowledge of the engine's internal numbering beyond line numbers and
// branch arc counts.
type Normalizer interface {
	Normalize(path string, record m.CoverageRecord) (m.CoverageSummary, error)
	NormalizeAll(records map[string]m.CoverageRecord) (map[string]m.CoverageSummary, []error)
}

type normalizer struct{}

// NewNormalizer constructs a Normalizer.
func NewNormalizer() Normalizer {
	return &normalizer{}
}

// Normalize produces the summary for one file. Missed lines are the set
// difference of executable and executed lines; branch counts pass through
// unchanged. An executed line outside the executable set, or more arcs taken
// than possible, is an upstream invariant violation and is surfaced as a
// MalformedCoverageRecordError instead of being coerced.
func (n *normalizer) Normalize(path string, record m.CoverageRecord) (m.CoverageSummary, error) {
	if !record.ExecutedLines.SubsetOf(record.ExecutableLines) {
		return m.CoverageSummary{}, &m.MalformedCoverageRecordError{
			Path:   path,
			Reason: "executed lines are not a subset of executable lines",
		}
	}

	if record.BranchArcsPossible < 0 || record.BranchArcsTaken < 0 {
		return m.CoverageSummary{}, &m.MalformedCoverageRecordError{
			Path:   path,
			Reason: "negative branch arc count",
		}
	}

	if record.BranchArcsTaken > record.BranchArcsPossible {
		return m.CoverageSummary{}, &m.MalformedCoverageRecordError{
			Path: path,
			Reason: fmt.Sprintf("%d branch arcs taken but only %d possible",
				record.BranchArcsTaken, record.BranchArcsPossible),
		}
	}

	return m.CoverageSummary{
		LinesCovered:     record.ExecutedLines,
		LinesMissed:      record.ExecutableLines.Subtract(record.ExecutedLines),
		ExecutedBranches: record.BranchArcsTaken,
		TotalBranches:    record.BranchArcsPossible,
	}, nil
}

// NormalizeAll converts a whole run's records. Files with no executable
// statements carry no coverage signal and are omitted from the mapping. A
// malformed record drops only that file's summary; the error is collected
// and the remaining files are still returned.
func (n *normalizer) NormalizeAll(records map[string]m.CoverageRecord) (map[string]m.CoverageSummary, []error) {
	summaries := make(map[string]m.CoverageSummary, len(records))

	var errs []error

	for path, record := range records {
		if len(record.ExecutableLines) == 0 {
			slog.Debug("Skipping file with no executable statements", "path", path)
			continue
		}

		summary, err := n.Normalize(path, record)
		if err != nil {
			slog.Error("Dropping malformed coverage record", "path", path, "error", err)
			errs = append(errs, err)

			continue
		}

		summaries[path] = summary
	}

	return summaries, errs
}
