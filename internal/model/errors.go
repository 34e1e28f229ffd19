package model

import (
	"fmt"
	"time"
)

// LaunchError reports that the test process could not be started at all.
// It is fatal: no partial results accompany it.
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %q: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that the test process exceeded the caller-supplied
// timeout and was forcibly terminated. Payloads decoded before the kill are
// still returned alongside it.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("test process exceeded timeout of %s and was killed", e.Timeout)
}

// ProtocolDecodeError reports one undecodable line in the process output
// stream. It is recovered locally: the line is excluded from results and the
// run continues.
type ProtocolDecodeError struct {
	Line     string
	Position int // 1-based line number within the stream
	Err      error
}

func (e *ProtocolDecodeError) Error() string {
	return fmt.Sprintf("undecodable payload at line %d: %v", e.Position, e.Err)
}

func (e *ProtocolDecodeError) Unwrap() error {
	return e.Err
}

// MalformedCoverageRecordError reports an instrumentation invariant violation
// in one file's raw coverage record. Only that file's summary is dropped.
type MalformedCoverageRecordError struct {
	Path   string
	Reason string
}

func (e *MalformedCoverageRecordError) Error() string {
	return fmt.Sprintf("malformed coverage record for %s: %s", e.Path, e.Reason)
}
