// Package testrun implements the test run engine: it drives the
// validation, condition and check engines for each declared run in file
// order, reconciles observed failures against the run's expected-failure
// list, and exposes apply outputs to later runs.
package testrun

import (
	"fmt"

	"github.com/vk/checkrig/internal/config"
)

// Status is the user-visible outcome of one run after reconciliation.
type Status int

const (
	// StatusPass means the observed failure set exactly matched the
	// declared expectations (both may be empty).
	StatusPass Status = iota

	// StatusFail means an unexpected failure occurred or an expected
	// failure did not occur.
	StatusFail

	// StatusError means the run aborted on an infrastructure failure
	// (configuration error or collaborator failure) before reconciliation
	// could decide anything.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusFail:
		return "fail"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Diagnostic is one (identifier, expected?, actual-failed?) triple from
// reconciliation, plus human-readable detail for the report.
type Diagnostic struct {
	Identifier string
	Expected   bool
	Failed     bool
	Detail     string
}

// Mismatched reports whether this triple flips the run to fail.
func (d Diagnostic) Mismatched() bool { return d.Expected != d.Failed }

// RunResult is the structured outcome of one test run.
type RunResult struct {
	File        string
	Name        string
	Command     config.Command
	Status      Status
	Diagnostics []Diagnostic

	// Err carries the infrastructure failure when Status is StatusError.
	Err error
}
