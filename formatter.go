package nbtest

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/nbtest-labs/nbtest/client"
	"github.com/nbtest-labs/nbtest/types"
)

// formatDuration rounds durations for table display.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}

func outcomeString(o types.Outcome) string {
	switch o {
	case types.OutcomePassed:
		return "pass"
	case types.OutcomeFailed:
		return "fail"
	case types.OutcomeTimedOut:
		return "timeout"
	default:
		return "error"
	}
}

// printResultsTable prints the consolidated run results to the console.
func printResultsTable(out io.Writer, runID string, batch types.ResultBatch, summary types.ValidationSummary, duration time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(fmt.Sprintf("Notebook Test Results (%s)", formatDuration(duration)))

	t.AppendHeader(table.Row{
		"Test", "Duration", "Status", "Error",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, result := range batch {
		t.AppendRow(table.Row{
			result.TestID,
			formatDuration(result.Duration),
			outcomeString(result.Outcome),
			result.ErrorDetail(),
		})

		// Nest the notebook's own test cases under it when the exit
		// output is parsable.
		output, err := types.ParseTestOutput(result.ExitOutput)
		if err != nil {
			continue
		}
		for i, tc := range output.TestCases {
			prefix := "├──"
			if i == len(output.TestCases)-1 {
				prefix = "└──"
			}
			status := "pass"
			if !tc.Passed {
				status = "fail"
			}
			t.AppendRow(table.Row{
				fmt.Sprintf("%s %s", prefix, tc.Name),
				formatDuration(time.Duration(tc.DurationSeconds * float64(time.Second))),
				status,
				tc.Error,
			})
		}
	}

	switch {
	case summary.Success():
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	case summary.Errored > 0 || summary.TimedOut > 0:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	}

	t.AppendFooter(table.Row{
		fmt.Sprintf("TOTAL: %d", summary.Total),
		"",
		fmt.Sprintf("PASS: %d", summary.Passed),
		fmt.Sprintf("FAIL: %d  ERROR: %d  TIMEOUT: %d", summary.Failed, summary.Errored, summary.TimedOut),
	})
	t.AppendFooter(table.Row{"RUN ID", runID, "", ""})
	t.Render()
}

// printTestList prints discovered test notebooks for the list command.
func printTestList(out io.Writer, path string, notebooks []client.Notebook) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(fmt.Sprintf("Test notebooks under %s", path))
	t.AppendHeader(table.Row{"#", "Name", "Path"})

	for i, nb := range notebooks {
		t.AppendRow(table.Row{i + 1, nb.Name, nb.Path})
	}

	t.AppendFooter(table.Row{"", "TOTAL", len(notebooks)})
	t.SetStyle(table.StyleLight)
	t.Render()
}
