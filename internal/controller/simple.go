package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/soda92/pytestbridge/internal/adapter"
	m "github.com/soda92/pytestbridge/internal/model"
)

// SimpleUI implements UI using cobra Command's Println.
type SimpleUI struct {
	cmd   *cobra.Command
	isTTY bool
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command, isTTY bool) *SimpleUI {
	return &SimpleUI{cmd: cmd, isTTY: isTTY}
}

// DisplayRunStart prints the run header.
func (s *SimpleUI) DisplayRunStart(ctx context.Context, cwd m.Path, runID string) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("run %s (%s)\n", runID, cwd)
}

// DisplayWarning prints a warning line.
func (s *SimpleUI) DisplayWarning(ctx context.Context, message string) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("warning: %s\n", message)
}

// DisplayOutcome prints payloads in arrival order, one block per payload,
// followed by any decode errors.
func (s *SimpleUI) DisplayOutcome(ctx context.Context, payloads []m.Payload, decodeErrors []*m.ProtocolDecodeError) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, payload := range payloads {
		if payload.Status == m.StatusError {
			s.printf("%s failed: %s\n", payload.Kind, payload.Error)
			continue
		}

		switch payload.Kind {
		case m.KindRunResult:
			if err := s.displayRunResult(payload); err != nil {
				return err
			}
		case m.KindDiscovery:
			if err := s.displayDiscovery(payload); err != nil {
				return err
			}
		case m.KindCoverage:
			if err := s.displayCoverage(payload); err != nil {
				return err
			}
		}
	}

	for _, decodeErr := range decodeErrors {
		s.printf("warning: %v\n", decodeErr)
	}

	return nil
}

func (s *SimpleUI) displayRunResult(payload m.Payload) error {
	outcomes, err := payload.RunResult()
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(outcomes))
	for id := range outcomes {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Test", "Outcome", "Message"})
	table.SetBorder(s.isTTY)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_LEFT})

	passed := 0

	for _, id := range ids {
		outcome := outcomes[id]
		table.Append([]string{id, outcome.Outcome, outcome.Message})

		if outcome.Outcome == "passed" {
			passed++
		}
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total %d", len(ids)),
		fmt.Sprintf("%d passed", passed),
		"",
	})

	table.Render()
	s.printf("\n%s", tableBuffer.String())

	return nil
}

func (s *SimpleUI) displayDiscovery(payload m.Payload) error {
	tests, err := payload.DiscoveredTests()
	if err != nil {
		return err
	}

	s.printf("discovered %d tests\n", len(tests))

	for _, test := range tests {
		s.printf("  %s (%s:%d)\n", test.ID, test.Path, test.Line)
	}

	return nil
}

func (s *SimpleUI) displayCoverage(payload m.Payload) error {
	summaries, err := payload.CoverageResult()
	if err != nil {
		return err
	}

	covered, missed, executedBranches, totalBranches := 0, 0, 0, 0

	for _, summary := range summaries {
		covered += len(summary.LinesCovered)
		missed += len(summary.LinesMissed)
		executedBranches += summary.ExecutedBranches
		totalBranches += summary.TotalBranches
	}

	s.printf("coverage: %d files, %d/%d lines, %d/%d branch arcs\n",
		len(summaries), covered, covered+missed, executedBranches, totalBranches)

	return nil
}

// DisplayRunList renders the stored runs as a table, most recent first.
func (s *SimpleUI) DisplayRunList(ctx context.Context, runs []adapter.RunInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(runs) == 0 {
		s.printf("no stored runs\n")
		return nil
	}

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Run", "Saved", "Payloads"})
	table.SetBorder(s.isTTY)
	table.SetCenterSeparator("")

	for _, run := range runs {
		table.Append([]string{
			run.RunID,
			run.SavedAt.Format(time.RFC3339),
			fmt.Sprintf("%d", run.Payloads),
		})
	}

	table.Render()
	s.printf("\n%s", tableBuffer.String())

	return nil
}

// DisplayPayloadsJSON prints the payload list as indented JSON.
func (s *SimpleUI) DisplayPayloadsJSON(ctx context.Context, payloads []m.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(payloads, "", "  ")
	if err != nil {
		return fmt.Errorf("encode payloads: %w", err)
	}

	s.printf("%s\n", encoded)

	return nil
}

// DisplayPayloadsYAML prints the payload list as YAML. Raw result sections
// are decoded first so they render as structured YAML rather than bytes.
func (s *SimpleUI) DisplayPayloadsYAML(ctx context.Context, payloads []m.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	exportable := make([]map[string]any, 0, len(payloads))

	for _, payload := range payloads {
		entry := map[string]any{
			"kind":   string(payload.Kind),
			"cwd":    payload.Cwd,
			"status": string(payload.Status),
		}

		if payload.Error != "" {
			entry["error"] = payload.Error
		}

		if len(payload.Result) > 0 {
			var result any
			if err := json.Unmarshal(payload.Result, &result); err != nil {
				return fmt.Errorf("decode %s result: %w", payload.Kind, err)
			}

			entry["result"] = result
		}

		exportable = append(exportable, entry)
	}

	encoded, err := yaml.Marshal(exportable)
	if err != nil {
		return fmt.Errorf("encode payloads: %w", err)
	}

	s.printf("%s", encoded)

	return nil
}

func (s *SimpleUI) printf(format string, args ...any) {
	s.cmd.Printf(format, args...)
}
