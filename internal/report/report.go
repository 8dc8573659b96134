// Package report renders run results as a plain-text summary for the CLI.
package report

import (
	"fmt"
	"io"

	"github.com/vk/checkrig/internal/testrun"
)

// Summary aggregates the outcome counts of a rendered result set.
type Summary struct {
	Passed  int
	Failed  int
	Errored int
}

// Ok reports whether every run passed.
func (s Summary) Ok() bool { return s.Failed == 0 && s.Errored == 0 }

// Render writes one line per run, grouped by file, with indented detail
// for each reconciliation diagnostic, and a trailing count line.
func Render(w io.Writer, results []testrun.RunResult) Summary {
	var s Summary

	lastFile := ""
	for _, res := range results {
		if res.File != lastFile {
			fmt.Fprintf(w, "--- %s\n", res.File)
			lastFile = res.File
		}

		fmt.Fprintf(w, "%-5s %s (%s)\n", res.Status, res.Name, res.Command)

		switch res.Status {
		case testrun.StatusPass:
			s.Passed++
		case testrun.StatusFail:
			s.Failed++
		case testrun.StatusError:
			s.Errored++
			fmt.Fprintf(w, "      %v\n", res.Err)
		}

		for _, d := range res.Diagnostics {
			fmt.Fprintf(w, "      %s: %s\n", d.Identifier, describe(d))
		}
	}

	fmt.Fprintf(w, "\n%d passed, %d failed, %d errored\n", s.Passed, s.Failed, s.Errored)
	return s
}

func describe(d testrun.Diagnostic) string {
	switch {
	case d.Expected && d.Failed:
		if d.Detail != "" {
			return "failed as expected: " + d.Detail
		}
		return "failed as expected"
	case d.Expected:
		return d.Detail
	default:
		if d.Detail != "" {
			return "unexpected failure: " + d.Detail
		}
		return "unexpected failure"
	}
}
