// Package model defines the data structures exchanged with the test process.
package model

import (
	"encoding/json"
	"fmt"
)

// Path represents a file system path.
type Path string

// PayloadKind discriminates how a payload's Result field is interpreted.
type PayloadKind string

const (
	// KindDiscovery marks a test-discovery payload.
	KindDiscovery PayloadKind = "discovery"
	// KindRunResult marks a per-run test outcome payload.
	KindRunResult PayloadKind = "run_result"
	// KindCoverage marks the coverage payload emitted after all test events.
	KindCoverage PayloadKind = "coverage"
)

// PayloadStatus is the application-level status carried by the envelope.
type PayloadStatus string

const (
	// StatusSuccess indicates the payload carries a usable result.
	StatusSuccess PayloadStatus = "success"
	// StatusError indicates an application-level failure; Error carries the
	// cause and Result may be absent.
	StatusError PayloadStatus = "error"
)

// Payload is the envelope shared by every message the test process writes to
// its standard output, one JSON object per line.
//
// Result is kept raw: its shape depends on Kind, and decoding it eagerly
// would force every consumer to care about every kind. Typed accessors below
// decode on demand.
type Payload struct {
	Kind   PayloadKind     `json:"kind"`
	Cwd    string          `json:"cwd"`
	Status PayloadStatus   `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// TestOutcome is one entry of a run_result payload, keyed by test ID.
type TestOutcome struct {
	Test    string `json:"test"`
	Outcome string `json:"outcome"`
	Message string `json:"message,omitempty"`
}

// RunResult decodes the payload's result as a run_result mapping.
func (p Payload) RunResult() (map[string]TestOutcome, error) {
	if p.Kind != KindRunResult {
		return nil, fmt.Errorf("payload kind is %q, not %q", p.Kind, KindRunResult)
	}

	return decodeResult[map[string]TestOutcome](p)
}

// DiscoveredTests decodes the payload's result as a discovery listing.
func (p Payload) DiscoveredTests() ([]DiscoveredTest, error) {
	if p.Kind != KindDiscovery {
		return nil, fmt.Errorf("payload kind is %q, not %q", p.Kind, KindDiscovery)
	}

	return decodeResult[[]DiscoveredTest](p)
}

// CoverageResult decodes the payload's result as a normalized coverage
// mapping, absolute file path to summary.
func (p Payload) CoverageResult() (map[string]CoverageSummary, error) {
	if p.Kind != KindCoverage {
		return nil, fmt.Errorf("payload kind is %q, not %q", p.Kind, KindCoverage)
	}

	return decodeResult[map[string]CoverageSummary](p)
}

// RawCoverage decodes the payload's result as the instrumentation engine's
// raw per-file records, before normalization.
func (p Payload) RawCoverage() (map[string]CoverageRecord, error) {
	if p.Kind != KindCoverage {
		return nil, fmt.Errorf("payload kind is %q, not %q", p.Kind, KindCoverage)
	}

	return decodeResult[map[string]CoverageRecord](p)
}

// DiscoveredTest is one entry of a discovery payload.
type DiscoveredTest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
	Line int    `json:"line,omitempty"`
}

func decodeResult[T any](p Payload) (T, error) {
	var out T
	if len(p.Result) == 0 {
		return out, nil
	}

	if err := json.Unmarshal(p.Result, &out); err != nil {
		return out, fmt.Errorf("decode %s result: %w", p.Kind, err)
	}

	return out, nil
}
