// Package checks implements the check block engine: independent,
// non-blocking assertion groups evaluated against final state. A check
// observes and reports; it never gates resources, other checks or
// subsequent runs.
package checks

import "fmt"

// Status is the outcome of a single check block.
type Status int

const (
	// StatusUnknown means a dependency the check needs could not be
	// resolved this run (missing resource, unresolvable lookup, internal
	// evaluation error). Distinct from StatusFail: nothing was proven
	// either way.
	StatusUnknown Status = iota

	// StatusPass means every assert condition held.
	StatusPass

	// StatusFail means the check evaluated cleanly and at least one
	// assert condition was false.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusPass:
		return "pass"
	case StatusFail:
		return "fail"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}
