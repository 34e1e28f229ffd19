// Package controller provides output adapters for displaying run payloads.
package controller

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/soda92/pytestbridge/internal/adapter"
	m "github.com/soda92/pytestbridge/internal/model"
)

// Format selects how stored payloads are rendered by the view command.
type Format string

// Available Format values.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// UI defines the interface for displaying run results.
// Implementations can use different output methods.
type UI interface {
	DisplayRunStart(ctx context.Context, cwd m.Path, runID string)
	DisplayWarning(ctx context.Context, message string)
	DisplayOutcome(ctx context.Context, payloads []m.Payload, decodeErrors []*m.ProtocolDecodeError) error
	DisplayRunList(ctx context.Context, runs []adapter.RunInfo) error
	DisplayPayloadsJSON(ctx context.Context, payloads []m.Payload) error
	DisplayPayloadsYAML(ctx context.Context, payloads []m.Payload) error
}

// NewUI selects a UI implementation. Non-TTY output drops table borders so
// the result stays grep-friendly in CI logs.
func NewUI(cmd *cobra.Command, isTTY bool) UI {
	return NewSimpleUI(cmd, isTTY)
}

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeCharDevice != 0
}
