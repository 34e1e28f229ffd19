package model

import (
	"encoding/json"
	"sort"
)

// LineSet is a set of source line numbers. Membership is the only meaning; a
// deterministic order exists solely on the wire, where the set is encoded as
// a numerically sorted JSON array.
type LineSet map[int]struct{}

// NewLineSet builds a LineSet from the given line numbers.
func NewLineSet(lines ...int) LineSet {
	set := make(LineSet, len(lines))
	for _, line := range lines {
		set[line] = struct{}{}
	}

	return set
}

// Contains reports whether line is a member of the set.
func (s LineSet) Contains(line int) bool {
	_, ok := s[line]
	return ok
}

// Subtract returns the members of s that are not members of other.
func (s LineSet) Subtract(other LineSet) LineSet {
	out := make(LineSet)

	for line := range s {
		if !other.Contains(line) {
			out[line] = struct{}{}
		}
	}

	return out
}

// SubsetOf reports whether every member of s is a member of other.
func (s LineSet) SubsetOf(other LineSet) bool {
	for line := range s {
		if !other.Contains(line) {
			return false
		}
	}

	return true
}

// Sorted returns the members as a numerically sorted slice.
func (s LineSet) Sorted() []int {
	lines := make([]int, 0, len(s))
	for line := range s {
		lines = append(lines, line)
	}

	sort.Ints(lines)

	return lines
}

// MarshalJSON encodes the set as a sorted array of line numbers.
func (s LineSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of line numbers into a set.
func (s *LineSet) UnmarshalJSON(data []byte) error {
	var lines []int
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}

	*s = NewLineSet(lines...)

	return nil
}

// CoverageRecord is the raw per-file measurement the instrumentation engine
// reports for one test-run process invocation. It is consumed once by the
// normalizer and discarded.
type CoverageRecord struct {
	ExecutableLines    LineSet `json:"executable_lines"`
	ExecutedLines      LineSet `json:"executed_lines"`
	BranchArcsPossible int     `json:"branch_arcs_possible"`
	BranchArcsTaken    int     `json:"branch_arcs_taken"`
}

// CoverageSummary is the normalized per-file shape delivered to callers.
// LinesCovered and LinesMissed partition the file's executable lines.
type CoverageSummary struct {
	LinesCovered     LineSet `json:"lines_covered"`
	LinesMissed      LineSet `json:"lines_missed"`
	ExecutedBranches int     `json:"executed_branches"`
	TotalBranches    int     `json:"total_branches"`
}
